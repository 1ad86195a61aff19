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

package storage_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeremyhahn/go-biostore/pkg/storage"
	"github.com/jeremyhahn/go-biostore/pkg/storage/memory"
)

func TestPaths(t *testing.T) {
	assert.Equal(t, "keys/vault1", storage.KeyPath("vault1"))
	assert.Equal(t, "keys/vault1_private", storage.KeyPath("vault1_private"))
	assert.Equal(t, "enrollment/console", storage.EnrollmentPath("console"))
}

func TestListKeys(t *testing.T) {
	backend := memory.New()
	require.NoError(t, backend.Put(storage.KeyPath("b"), []byte("1"), nil))
	require.NoError(t, backend.Put(storage.KeyPath("a"), []byte("2"), nil))
	require.NoError(t, backend.Put(storage.EnrollmentPath("console"), []byte("3"), nil))

	names, err := storage.ListKeys(backend)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, names)
}

func TestDeleteIfExists(t *testing.T) {
	backend := memory.New()
	require.NoError(t, backend.Put("k", []byte("v"), nil))

	require.NoError(t, storage.DeleteIfExists(backend, "k"))
	require.NoError(t, storage.DeleteIfExists(backend, "k"))

	exists, err := backend.Exists("k")
	require.NoError(t, err)
	assert.False(t, exists)
}
