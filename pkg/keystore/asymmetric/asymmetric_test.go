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

package asymmetric

import (
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeremyhahn/go-biostore/pkg/keystore"
	"github.com/jeremyhahn/go-biostore/pkg/storage"
	"github.com/jeremyhahn/go-biostore/pkg/storage/memory"
	"github.com/jeremyhahn/go-biostore/pkg/types"
)

func TestAsymmetric_KeyPair(t *testing.T) {
	backend := memory.New()
	ks, err := New(&keystore.Config{Storage: backend})
	require.NoError(t, err)
	assert.Equal(t, types.KeyVariantAsymmetric, ks.Variant())

	ctx := context.Background()
	h, err := ks.GetOrCreate(ctx, "vault1")
	require.NoError(t, err)
	assert.True(t, h.Created())
	assert.Equal(t, types.KeyCapabilities{CanSealWithoutAuth: true}, h.Capabilities())

	for _, key := range []string{"keys/vault1_public", "keys/vault1_private"} {
		exists, err := backend.Exists(key)
		require.NoError(t, err)
		assert.True(t, exists, key)
	}

	ah, ok := h.(keystore.AsymmetricHandle)
	require.True(t, ok)
	assert.Equal(t, KeyBits, ah.PublicKey().N.BitLen())

	ct, err := rsa.EncryptOAEP(sha256.New(), rand.Reader, ah.PublicKey(), []byte("secret-value"), nil)
	require.NoError(t, err)

	dec, err := ah.Decrypter()
	require.NoError(t, err)
	pt, err := dec.Decrypt(rand.Reader, ct, &rsa.OAEPOptions{Hash: crypto.SHA256})
	require.NoError(t, err)
	assert.Equal(t, "secret-value", string(pt))

	// A second lookup returns the same pair.
	again, err := ks.GetOrCreate(ctx, "vault1")
	require.NoError(t, err)
	assert.False(t, again.Created())
	assert.True(t, ah.PublicKey().Equal(again.(keystore.AsymmetricHandle).PublicKey()))

	require.NoError(t, ks.Delete(ctx, "vault1"))
	for _, key := range []string{"keys/vault1_public", "keys/vault1_private"} {
		exists, err := backend.Exists(key)
		require.NoError(t, err)
		assert.False(t, exists, key)
	}
}

func TestAsymmetric_MissingHalfRecreates(t *testing.T) {
	backend := memory.New()
	ks, err := New(&keystore.Config{Storage: backend})
	require.NoError(t, err)

	ctx := context.Background()
	_, err = ks.GetOrCreate(ctx, "vault1")
	require.NoError(t, err)

	require.NoError(t, backend.Delete(storage.KeyPath("vault1_private")))

	h, err := ks.GetOrCreate(ctx, "vault1")
	require.NoError(t, err)
	assert.True(t, h.Recreated())
}
