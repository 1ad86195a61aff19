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

package keystore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecord_Stale(t *testing.T) {
	tests := []struct {
		name       string
		record     Record
		enrollment string
		want       bool
	}{
		{"bound and unchanged", Record{Enrollment: "a", InvalidateOnEnrollment: true}, "a", false},
		{"bound and changed", Record{Enrollment: "a", InvalidateOnEnrollment: true}, "b", true},
		{"unbound and changed", Record{Enrollment: "a"}, "b", false},
		{"flagged", Record{Enrollment: "a", Invalidated: true}, "a", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.record.Stale(tt.enrollment))
		})
	}
}

func TestRecord_MarshalRoundTrip(t *testing.T) {
	in := &Record{Kind: KindSecret, Algorithm: "AES", Material: []byte{1, 2, 3}, UserAuthRequired: true}
	data, err := marshalRecord(in)
	require.NoError(t, err)

	out, err := unmarshalRecord(data)
	require.NoError(t, err)
	assert.Equal(t, recordVersion, out.Version)
	assert.Equal(t, []byte{1, 2, 3}, out.Material)
	assert.True(t, out.UserAuthRequired)
}

func TestUnmarshalRecord_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not json", "garbage"},
		{"wrong version", `{"version":9,"material":"AQI="}`},
		{"no material", `{"version":1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := unmarshalRecord([]byte(tt.data))
			assert.ErrorIs(t, err, ErrInvalidRecord)
		})
	}
}

func TestRecord_SealAndOpen(t *testing.T) {
	material := []byte{9, 8, 7, 6}
	r := &Record{Material: material}

	enclave := r.Seal()
	require.NotNil(t, enclave)
	assert.Nil(t, r.Material)
	assert.Equal(t, []byte{0, 0, 0, 0}, material)

	var got []byte
	err := Open(enclave, func(b []byte) error {
		got = append([]byte(nil), b...)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []byte{9, 8, 7, 6}, got)

	assert.ErrorIs(t, Open(nil, func([]byte) error { return nil }), ErrInvalidRecord)
}
