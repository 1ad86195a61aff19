// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-biostore.
//
// go-biostore is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.


package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeremyhahn/go-biostore/pkg/bridge"
)

func TestPrinter_PrintResponse_Text(t *testing.T) {
	tests := []struct {
		name string
		resp bridge.Response
		want string
	}{
		{"blob", bridge.Response{Value: "c2VhbGVk"}, "c2VhbGVk\n"},
		{"capability success", bridge.Response{Value: "Success"}, "Success\n"},
		{"capability failure", bridge.Response{Value: "ErrorNoHardware"}, "ErrorNoHardware\n"},
		{"true", bridge.Response{Value: true}, "true\n"},
		{"false", bridge.Response{Value: false}, "false\n"},
		{"declined", bridge.Response{}, "No result: the prompt was declined\n"},
		{
			"error",
			bridge.Response{Error: &bridge.MethodError{Code: bridge.CodeNotImplemented, Message: "unknown method"}},
			"Error: NotImplemented: unknown method\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, NewPrinter("text", &buf).PrintResponse(tt.resp))
			assert.Equal(t, tt.want, buf.String())
		})
	}
}

func TestPrinter_PrintResponse_JSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewPrinter("json", &buf).PrintResponse(bridge.Response{Value: "Success"}))

	var got map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "Success", got["result"])
	assert.NotContains(t, got, "error")
}

func TestPrinter_Messages(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter("text", &buf)
	require.NoError(t, p.PrintSuccess("done"))
	require.NoError(t, p.PrintWarning("careful"))
	require.NoError(t, p.PrintError(errors.New("boom")))
	assert.Equal(t, "done\nWarning: careful\nError: boom\n", buf.String())

	buf.Reset()
	p = NewPrinter("json", &buf)
	require.NoError(t, p.PrintError(errors.New("boom")))
	var got map[string]string
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "error", got["status"])
	assert.Equal(t, "boom", got["error"])
}

func TestPrinter_UnknownFormat(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter("table", &buf)
	assert.Error(t, p.PrintSuccess("done"))
	assert.Error(t, p.PrintResponse(bridge.Response{Value: true}))
}
