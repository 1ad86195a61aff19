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

package symmetric

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeremyhahn/go-biostore/pkg/keystore"
	"github.com/jeremyhahn/go-biostore/pkg/storage"
	"github.com/jeremyhahn/go-biostore/pkg/storage/memory"
	"github.com/jeremyhahn/go-biostore/pkg/types"
)

func TestSymmetric_Generate(t *testing.T) {
	records, err := driver{}.Generate(bytes.NewReader(bytes.Repeat([]byte{7}, KeySize)))
	require.NoError(t, err)
	require.Len(t, records, 1)

	r := records[0]
	assert.Equal(t, keystore.KindSecret, r.Kind)
	assert.Equal(t, Algorithm, r.Algorithm)
	assert.Len(t, r.Material, KeySize)
	assert.True(t, r.UserAuthRequired)
	assert.True(t, r.InvalidateOnEnrollment)
}

func TestSymmetric_GenerateShortRead(t *testing.T) {
	_, err := driver{}.Generate(bytes.NewReader([]byte{1, 2, 3}))
	assert.Error(t, err)
}

func TestSymmetric_Block(t *testing.T) {
	backend := memory.New()
	ks, err := New(&keystore.Config{Storage: backend})
	require.NoError(t, err)
	assert.Equal(t, types.KeyVariantSymmetric, ks.Variant())

	h, err := ks.GetOrCreate(context.Background(), "vault1")
	require.NoError(t, err)

	sh, ok := h.(keystore.SymmetricHandle)
	require.True(t, ok)
	block, err := sh.Block()
	require.NoError(t, err)
	assert.Equal(t, 16, block.BlockSize())

	keys, err := storage.ListKeys(backend)
	require.NoError(t, err)
	assert.Equal(t, []string{"vault1"}, keys)
}

func TestSymmetric_WrongAlgorithmRecreates(t *testing.T) {
	backend := memory.New()
	ks, err := New(&keystore.Config{Storage: backend})
	require.NoError(t, err)

	record := []byte(`{"version":1,"kind":"secret","algorithm":"DES","material":"AQIDBA=="}`)
	require.NoError(t, backend.Put(storage.KeyPath("vault1"), record, nil))

	h, err := ks.GetOrCreate(context.Background(), "vault1")
	require.NoError(t, err)
	assert.True(t, h.Recreated())
}
