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

package file

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeremyhahn/go-biostore/pkg/storage"
)

// fastKDF keeps Argon2id cheap in tests.
var fastKDF = KDFParams{Time: 1, Memory: 8, Threads: 1}

func newMemStore(t *testing.T, passphrase string) (storage.Backend, afero.Fs) {
	t.Helper()
	fsys := afero.NewMemMapFs()
	store, err := New(&Config{
		RootDir:    "/data",
		Fs:         fsys,
		Passphrase: []byte(passphrase),
		KDF:        fastKDF,
	})
	require.NoError(t, err)
	return store, fsys
}

func TestNew(t *testing.T) {
	t.Run("empty root", func(t *testing.T) {
		_, err := New(&Config{})
		assert.Error(t, err)
	})

	t.Run("nil config", func(t *testing.T) {
		_, err := New(nil)
		assert.Error(t, err)
	})

	t.Run("creates root on os filesystem", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "nested", "store")
		store, err := New(&Config{RootDir: dir})
		require.NoError(t, err)
		defer store.Close()

		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	})
}

func TestPutGetDelete(t *testing.T) {
	store, fsys := newMemStore(t, "")

	require.NoError(t, store.Put("keys/vault1", []byte("material"), nil))

	raw, err := afero.ReadFile(fsys, "/data/keys/vault1")
	require.NoError(t, err)
	assert.Equal(t, []byte("material"), raw)

	got, err := store.Get("keys/vault1")
	require.NoError(t, err)
	assert.Equal(t, []byte("material"), got)

	exists, err := store.Exists("keys/vault1")
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, store.Delete("keys/vault1"))
	assert.ErrorIs(t, store.Delete("keys/vault1"), storage.ErrNotFound)

	_, err = store.Get("keys/vault1")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestList(t *testing.T) {
	store, _ := newMemStore(t, "")
	for _, k := range []string{"keys/b", "keys/a_public", "enrollment/console"} {
		require.NoError(t, store.Put(k, []byte("x"), nil))
	}

	keys, err := store.List("keys/")
	require.NoError(t, err)
	assert.Equal(t, []string{"keys/a_public", "keys/b"}, keys)

	all, err := store.List("")
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestInvalidKeys(t *testing.T) {
	store, _ := newMemStore(t, "")

	for _, key := range []string{"", "../escape", "keys/../../escape", "/abs", "nul\x00byte", "keys/."} {
		t.Run(key, func(t *testing.T) {
			assert.ErrorIs(t, store.Put(key, []byte("x"), nil), storage.ErrInvalidKey)
			_, err := store.Get(key)
			assert.ErrorIs(t, err, storage.ErrInvalidKey)
		})
	}
}

func TestDotKeyDoesNotShadowNamespace(t *testing.T) {
	store, fsys := newMemStore(t, "")

	assert.ErrorIs(t, store.Put("keys/.", []byte("x"), nil), storage.ErrInvalidKey)
	require.NoError(t, store.Put("keys/other", []byte("y"), nil))

	info, err := fsys.Stat("/data/keys")
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	got, err := store.Get("keys/other")
	require.NoError(t, err)
	assert.Equal(t, []byte("y"), got)
}

func TestSealedRecords(t *testing.T) {
	store, fsys := newMemStore(t, "correct horse")
	secret := []byte("aes-256 key material")

	require.NoError(t, store.Put("keys/vault1", secret, nil))

	raw, err := afero.ReadFile(fsys, "/data/keys/vault1")
	require.NoError(t, err)
	assert.False(t, bytes.Contains(raw, secret), "record must not be stored in the clear")
	assert.Len(t, raw, saltSize+nonceSize+len(secret)+tagSize)

	got, err := store.Get("keys/vault1")
	require.NoError(t, err)
	assert.Equal(t, secret, got)
}

func TestSealedRecords_WrongPassphrase(t *testing.T) {
	fsys := afero.NewMemMapFs()
	writer, err := New(&Config{RootDir: "/data", Fs: fsys, Passphrase: []byte("one"), KDF: fastKDF})
	require.NoError(t, err)
	require.NoError(t, writer.Put("keys/vault1", []byte("secret"), nil))

	reader, err := New(&Config{RootDir: "/data", Fs: fsys, Passphrase: []byte("two"), KDF: fastKDF})
	require.NoError(t, err)

	_, err = reader.Get("keys/vault1")
	assert.ErrorIs(t, err, storage.ErrInvalidPassphrase)
}

func TestSealedRecords_BoundToKey(t *testing.T) {
	store, fsys := newMemStore(t, "pw")
	require.NoError(t, store.Put("keys/a", []byte("secret-a"), nil))

	raw, err := afero.ReadFile(fsys, "/data/keys/a")
	require.NoError(t, err)
	require.NoError(t, afero.WriteFile(fsys, "/data/keys/b", raw, 0600))

	_, err = store.Get("keys/b")
	assert.ErrorIs(t, err, storage.ErrInvalidPassphrase)
}

func TestSealedRecords_Truncated(t *testing.T) {
	store, fsys := newMemStore(t, "pw")
	require.NoError(t, afero.WriteFile(fsys, "/data/keys/short", []byte("tiny"), 0600))

	_, err := store.Get("keys/short")
	assert.ErrorIs(t, err, storage.ErrInvalidData)
}

func TestClose(t *testing.T) {
	store, _ := newMemStore(t, "pw")
	require.NoError(t, store.Close())

	_, err := store.Get("keys/a")
	assert.ErrorIs(t, err, storage.ErrClosed)
	assert.ErrorIs(t, store.Put("keys/a", nil, nil), storage.ErrClosed)
	_, err = store.List("")
	assert.ErrorIs(t, err, storage.ErrClosed)
}

func TestValidateStorageKey(t *testing.T) {
	tests := []struct {
		key     string
		wantErr bool
	}{
		{"keys/vault1", false},
		{"keys/vault1_private", false},
		{"enrollment/console", false},
		{"a..b", false},
		{"", true},
		{"..", true},
		{"../x", true},
		{"keys/../../x", true},
		{"/etc/passwd", true},
		{"keys/.", true},
		{"keys//a", true},
		{"keys/a/", true},
		{"./keys/a", true},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			err := validateStorageKey(tt.key)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
