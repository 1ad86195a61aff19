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

package memory

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeremyhahn/go-biostore/pkg/storage"
)

func TestPutGet(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value []byte
	}{
		{"simple key-value", "test-key", []byte("test-value")},
		{"empty value", "empty", []byte{}},
		{"binary data", "binary", []byte{0x00, 0x01, 0x02, 0xFF}},
		{"key with slashes", "keys/vault1_private", []byte("pkcs8")},
	}

	store := New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, store.Put(tt.key, tt.value, nil))
			got, err := store.Get(tt.key)
			require.NoError(t, err)
			assert.Equal(t, tt.value, got)
		})
	}
}

func TestPutEmptyKey(t *testing.T) {
	assert.ErrorIs(t, New().Put("", []byte("x"), nil), storage.ErrInvalidKey)
}

func TestGetNotFound(t *testing.T) {
	_, err := New().Get("missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestDelete(t *testing.T) {
	store := New()
	require.NoError(t, store.Put("k", []byte("v"), nil))
	require.NoError(t, store.Delete("k"))

	assert.ErrorIs(t, store.Delete("k"), storage.ErrNotFound)
	exists, err := store.Exists("k")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestOverwriteWipesPrevious(t *testing.T) {
	s := New().(*Storage)
	require.NoError(t, s.Put("k", []byte("first"), nil))

	s.mu.RLock()
	old := s.data["k"]
	s.mu.RUnlock()

	require.NoError(t, s.Put("k", []byte("second"), nil))
	assert.Equal(t, make([]byte, 5), old)

	got, err := s.Get("k")
	require.NoError(t, err)
	assert.Equal(t, []byte("second"), got)
}

func TestDeleteAndCloseWipeValues(t *testing.T) {
	s := New().(*Storage)
	require.NoError(t, s.Put("deleted", []byte("secret"), nil))
	require.NoError(t, s.Put("kept", []byte("key"), nil))

	s.mu.RLock()
	deleted, kept := s.data["deleted"], s.data["kept"]
	s.mu.RUnlock()

	require.NoError(t, s.Delete("deleted"))
	assert.Equal(t, make([]byte, 6), deleted)
	assert.Equal(t, []byte("key"), kept)

	require.NoError(t, s.Close())
	assert.Equal(t, make([]byte, 3), kept)
}

func TestList(t *testing.T) {
	store := New()
	for _, k := range []string{"keys/b", "keys/a", "enrollment/console"} {
		require.NoError(t, store.Put(k, []byte(k), nil))
	}

	all, err := store.List("")
	require.NoError(t, err)
	assert.Equal(t, []string{"enrollment/console", "keys/a", "keys/b"}, all)

	keys, err := store.List("keys/")
	require.NoError(t, err)
	assert.Equal(t, []string{"keys/a", "keys/b"}, keys)
}

func TestDefensiveCopies(t *testing.T) {
	store := New()
	value := []byte("original")
	require.NoError(t, store.Put("k", value, nil))
	value[0] = 'X'

	got, err := store.Get("k")
	require.NoError(t, err)
	assert.Equal(t, []byte("original"), got)

	got[0] = 'Y'
	again, err := store.Get("k")
	require.NoError(t, err)
	assert.Equal(t, []byte("original"), again)
}

func TestClose(t *testing.T) {
	store := New()
	require.NoError(t, store.Put("k", []byte("v"), nil))
	require.NoError(t, store.Close())
	require.NoError(t, store.Close())

	_, err := store.Get("k")
	assert.ErrorIs(t, err, storage.ErrClosed)
	assert.ErrorIs(t, store.Put("k", nil, nil), storage.ErrClosed)
	assert.ErrorIs(t, store.Delete("k"), storage.ErrClosed)
	_, err = store.List("")
	assert.ErrorIs(t, err, storage.ErrClosed)
	_, err = store.Exists("k")
	assert.ErrorIs(t, err, storage.ErrClosed)
}

func TestConcurrentAccess(t *testing.T) {
	store := New()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := fmt.Sprintf("keys/%d", i)
			assert.NoError(t, store.Put(key, []byte(key), nil))
			_, err := store.Get(key)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	keys, err := store.List("keys/")
	require.NoError(t, err)
	assert.Len(t, keys, 50)
}
