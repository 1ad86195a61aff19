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

package password

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testParams keeps Argon2id cheap in tests.
var testParams = Params{Time: 1, Memory: 1024, Threads: 1, KeyLen: 32, SaltLen: 16}

func TestNewClearPassword(t *testing.T) {
	tests := []struct {
		name    string
		input   []byte
		wantErr bool
	}{
		{"valid password", []byte("secure-password-123"), false},
		{"empty password", []byte{}, true},
		{"nil password", nil, true},
		{"unicode password", []byte("пароль密码🔐"), false},
		{"single character password", []byte("x"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pwd, err := NewClearPassword(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrEmptyPassword)
				return
			}
			require.NoError(t, err)

			b, err := pwd.Bytes()
			require.NoError(t, err)
			assert.Equal(t, tt.input, b)

			// returned slice is a copy
			b[0] ^= 0xFF
			again, err := pwd.Bytes()
			require.NoError(t, err)
			assert.Equal(t, tt.input, again)
		})
	}
}

func TestNewClearPassword_CopiesInput(t *testing.T) {
	input := []byte("1234")
	pwd, err := NewClearPassword(input)
	require.NoError(t, err)

	input[0] = 'X'
	b, err := pwd.Bytes()
	require.NoError(t, err)
	assert.Equal(t, []byte("1234"), b)
}

func TestClearPassword_Clear(t *testing.T) {
	pwd, err := NewClearPassword([]byte("1234"))
	require.NoError(t, err)

	pwd.Clear()
	_, err = pwd.Bytes()
	assert.ErrorIs(t, err, ErrPasswordZeroed)

	// idempotent
	pwd.Clear()
}

func TestVerifier(t *testing.T) {
	pin, err := NewClearPassword([]byte("1234"))
	require.NoError(t, err)
	wrong, err := NewClearPassword([]byte("4321"))
	require.NoError(t, err)

	v, err := NewVerifier(pin, testParams, nil)
	require.NoError(t, err)
	assert.Len(t, v.Salt, 16)
	assert.Len(t, v.Hash, 32)

	ok, err := v.Verify(pin)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = v.Verify(wrong)
	require.NoError(t, err)
	assert.False(t, ok)

	data, err := v.Marshal()
	require.NoError(t, err)
	parsed, err := ParseVerifier(data)
	require.NoError(t, err)

	ok, err = parsed.Verify(pin)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestVerifier_SaltsDiffer(t *testing.T) {
	pin, err := NewClearPassword([]byte("1234"))
	require.NoError(t, err)

	a, err := NewVerifier(pin, testParams, nil)
	require.NoError(t, err)
	b, err := NewVerifier(pin, testParams, nil)
	require.NoError(t, err)
	assert.NotEqual(t, a.Salt, b.Salt)
	assert.NotEqual(t, a.Hash, b.Hash)
}

func TestVerifier_Cleared(t *testing.T) {
	pin, err := NewClearPassword([]byte("1234"))
	require.NoError(t, err)
	v, err := NewVerifier(pin, testParams, nil)
	require.NoError(t, err)

	pin.Clear()
	_, err = v.Verify(pin)
	assert.ErrorIs(t, err, ErrPasswordZeroed)
	_, err = NewVerifier(pin, testParams, nil)
	assert.ErrorIs(t, err, ErrPasswordZeroed)
}

func TestParseVerifier_Invalid(t *testing.T) {
	for _, data := range []string{"", "{", `{"version":2}`, `{"version":1,"params":{"time":1,"threads":1}}`} {
		_, err := ParseVerifier([]byte(data))
		assert.ErrorIs(t, err, ErrInvalidVerifier, data)
	}
}
