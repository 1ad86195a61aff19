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

package cipher

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeremyhahn/go-biostore/pkg/keystore"
	"github.com/jeremyhahn/go-biostore/pkg/keystore/asymmetric"
	"github.com/jeremyhahn/go-biostore/pkg/keystore/symmetric"
	"github.com/jeremyhahn/go-biostore/pkg/storage/memory"
	"github.com/jeremyhahn/go-biostore/pkg/types"
)

func newSymmetric(t *testing.T) (*keystore.Store, keystore.Handle) {
	t.Helper()
	ks, err := symmetric.New(&keystore.Config{Storage: memory.New()})
	require.NoError(t, err)
	h, err := ks.GetOrCreate(context.Background(), "vault1")
	require.NoError(t, err)
	return ks, h
}

func newAsymmetric(t *testing.T) (*keystore.Store, keystore.Handle) {
	t.Helper()
	ks, err := asymmetric.New(&keystore.Config{Storage: memory.New()})
	require.NoError(t, err)
	h, err := ks.GetOrCreate(context.Background(), "vault1")
	require.NoError(t, err)
	return ks, h
}

func TestSymmetric_SealOpen(t *testing.T) {
	_, h := newSymmetric(t)
	f := NewFactory(nil)

	seal, err := f.ForSeal(h)
	require.NoError(t, err)
	assert.Equal(t, types.IntentSeal, seal.Intent())
	assert.Equal(t, "vault1", seal.KeyName())
	assert.Equal(t, types.KeyVariantSymmetric, seal.Variant())
	assert.True(t, seal.RequiresAuth())
	assert.Len(t, seal.IV(), types.IVSize)

	_, err = seal.Seal([]byte("secret-value"))
	assert.ErrorIs(t, err, ErrNotAuthenticated)
	assert.False(t, seal.Consumed())

	assert.ErrorIs(t, seal.Authenticate("not-the-ticket"), ErrTicketMismatch)
	require.NoError(t, seal.Authenticate(seal.ID()))
	assert.True(t, seal.Authenticated())

	ct, err := seal.Seal([]byte("secret-value"))
	require.NoError(t, err)
	assert.Len(t, ct, 16)
	assert.True(t, seal.Consumed())

	_, err = seal.Seal([]byte("again"))
	assert.ErrorIs(t, err, ErrContextConsumed)
	assert.ErrorIs(t, seal.Authenticate(seal.ID()), ErrContextConsumed)

	open, err := f.ForOpen(h, seal.IV())
	require.NoError(t, err)
	assert.True(t, open.RequiresAuth())
	require.NoError(t, open.Authenticate(open.ID()))

	pt, err := open.Open(ct)
	require.NoError(t, err)
	assert.Equal(t, "secret-value", string(pt))
}

func TestSymmetric_UniqueIVs(t *testing.T) {
	_, h := newSymmetric(t)
	f := NewFactory(nil)

	a, err := f.ForSeal(h)
	require.NoError(t, err)
	b, err := f.ForSeal(h)
	require.NoError(t, err)

	assert.NotEqual(t, a.IV(), b.IV())
	assert.NotEqual(t, a.ID(), b.ID())
}

func TestSymmetric_InjectedIVSource(t *testing.T) {
	_, h := newSymmetric(t)
	iv := bytes.Repeat([]byte{0xAB}, types.IVSize)
	f := NewFactory(bytes.NewReader(iv))

	c, err := f.ForSeal(h)
	require.NoError(t, err)
	assert.Equal(t, iv, c.IV())

	// The reader is exhausted.
	_, err = f.ForSeal(h)
	assert.Error(t, err)
}

func TestSymmetric_ForOpenRequiresIV(t *testing.T) {
	_, h := newSymmetric(t)
	f := NewFactory(nil)

	for _, iv := range [][]byte{nil, make([]byte, 8), make([]byte, 17)} {
		_, err := f.ForOpen(h, iv)
		assert.ErrorIs(t, err, ErrInvalidIV)
	}
}

func TestSymmetric_OpenMalformedCiphertext(t *testing.T) {
	_, h := newSymmetric(t)
	f := NewFactory(nil)

	c, err := f.ForOpen(h, make([]byte, types.IVSize))
	require.NoError(t, err)
	require.NoError(t, c.Authenticate(c.ID()))

	_, err = c.Open([]byte("short"))
	assert.ErrorIs(t, err, ErrDecrypt)
}

func TestWrongIntent(t *testing.T) {
	_, h := newSymmetric(t)
	f := NewFactory(nil)

	c, err := f.ForSeal(h)
	require.NoError(t, err)
	require.NoError(t, c.Authenticate(c.ID()))

	_, err = c.Open(make([]byte, 16))
	assert.ErrorIs(t, err, ErrWrongIntent)
}

func TestInvalidatedHandle(t *testing.T) {
	ks, h := newSymmetric(t)
	f := NewFactory(nil)

	pending, err := f.ForSeal(h)
	require.NoError(t, err)
	require.NoError(t, pending.Authenticate(pending.ID()))

	require.NoError(t, ks.Invalidate(context.Background(), "vault1"))

	_, err = f.ForSeal(h)
	assert.ErrorIs(t, err, keystore.ErrKeyInvalidated)
	_, err = f.ForOpen(h, make([]byte, types.IVSize))
	assert.ErrorIs(t, err, keystore.ErrKeyInvalidated)

	_, err = pending.Seal([]byte("x"))
	assert.ErrorIs(t, err, keystore.ErrKeyInvalidated)
}

func TestAsymmetric_SealOpen(t *testing.T) {
	_, h := newAsymmetric(t)
	f := NewFactory(nil)

	seal, err := f.ForSeal(h)
	require.NoError(t, err)
	assert.False(t, seal.RequiresAuth())
	assert.Equal(t, make([]byte, types.IVSize), seal.IV())

	ct, err := seal.Seal([]byte("secret-value"))
	require.NoError(t, err)
	assert.Len(t, ct, 256)

	open, err := f.ForOpen(h, nil)
	require.NoError(t, err)
	assert.True(t, open.RequiresAuth())

	_, err = open.Open(ct)
	assert.ErrorIs(t, err, ErrNotAuthenticated)

	require.NoError(t, open.Authenticate(open.ID()))
	pt, err := open.Open(ct)
	require.NoError(t, err)
	assert.Equal(t, "secret-value", string(pt))
}

func TestAsymmetric_PlaintextLimit(t *testing.T) {
	_, h := newAsymmetric(t)
	f := NewFactory(nil)

	c, err := f.ForSeal(h)
	require.NoError(t, err)
	_, err = c.Seal([]byte(strings.Repeat("x", MaxAsymmetricPlaintext+1)))
	assert.ErrorIs(t, err, ErrPlaintextTooLarge)

	c, err = f.ForSeal(h)
	require.NoError(t, err)
	_, err = c.Seal([]byte(strings.Repeat("x", MaxAsymmetricPlaintext)))
	assert.NoError(t, err)
}

func TestAsymmetric_OpenTampered(t *testing.T) {
	_, h := newAsymmetric(t)
	f := NewFactory(nil)

	seal, err := f.ForSeal(h)
	require.NoError(t, err)
	ct, err := seal.Seal([]byte("secret-value"))
	require.NoError(t, err)
	ct[10] ^= 0xFF

	open, err := f.ForOpen(h, nil)
	require.NoError(t, err)
	require.NoError(t, open.Authenticate(open.ID()))
	_, err = open.Open(ct)
	assert.ErrorIs(t, err, ErrDecrypt)
}
