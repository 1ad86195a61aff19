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

// Package cipher binds key handles to single-use seal and open sessions.
//
// A Context carries one key, one intent and, for symmetric keys, one IV.
// It performs exactly one transform. When the key requires
// authentication for the intent, the context must first be authenticated
// with its own ticket ID, which the authentication gate presents after a
// successful prompt.
package cipher

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"fmt"
	"io"

	"github.com/jeremyhahn/go-biostore/pkg/keystore"
	"github.com/jeremyhahn/go-biostore/pkg/types"
)

// MaxAsymmetricPlaintext is the largest payload RSA-2048 OAEP-SHA256 can seal.
const MaxAsymmetricPlaintext = 2048/8 - 2*sha256.Size - 2

// Factory creates cipher contexts.
type Factory struct {
	rand io.Reader
}

// NewFactory returns a Factory drawing IVs and OAEP randomness from rand.
// A nil reader uses crypto/rand.Reader.
func NewFactory(rand io.Reader) *Factory {
	return &Factory{rand: rand}
}

func (f *Factory) reader() io.Reader {
	if f == nil || f.rand == nil {
		return rand.Reader
	}
	return f.rand
}

// ForSeal binds a seal context. Symmetric keys get a fresh random IV;
// asymmetric keys get the all-zero marker IV and need no authentication.
func (f *Factory) ForSeal(h keystore.Handle) (*Context, error) {
	if h.Invalidated() {
		return nil, keystore.ErrKeyInvalidated
	}

	switch kh := h.(type) {
	case keystore.SymmetricHandle:
		iv := make([]byte, types.IVSize)
		if _, err := io.ReadFull(f.reader(), iv); err != nil {
			return nil, fmt.Errorf("cipher: failed to generate IV: %w", err)
		}
		block, err := kh.Block()
		if err != nil {
			return nil, err
		}
		return newContext(h, types.IntentSeal, iv, &cbcTransform{block: block}, f.reader()), nil

	case keystore.AsymmetricHandle:
		t := &oaepTransform{public: kh.PublicKey()}
		return newContext(h, types.IntentSeal, make([]byte, types.IVSize), t, f.reader()), nil

	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedHandle, h)
	}
}

// ForOpen binds an open context. Symmetric keys require the 16-byte IV
// taken from the sealed blob; asymmetric keys ignore it.
func (f *Factory) ForOpen(h keystore.Handle, iv []byte) (*Context, error) {
	if h.Invalidated() {
		return nil, keystore.ErrKeyInvalidated
	}

	switch kh := h.(type) {
	case keystore.SymmetricHandle:
		if len(iv) != types.IVSize {
			return nil, fmt.Errorf("%w: got %d bytes", ErrInvalidIV, len(iv))
		}
		block, err := kh.Block()
		if err != nil {
			return nil, err
		}
		bound := make([]byte, types.IVSize)
		copy(bound, iv)
		return newContext(h, types.IntentOpen, bound, &cbcTransform{block: block}, f.reader()), nil

	case keystore.AsymmetricHandle:
		t := &oaepTransform{public: kh.PublicKey(), private: kh.Decrypter}
		return newContext(h, types.IntentOpen, make([]byte, types.IVSize), t, f.reader()), nil

	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedHandle, h)
	}
}

// oaepTransform seals with the public half and opens with the private half.
type oaepTransform struct {
	public  *rsa.PublicKey
	private func() (crypto.Decrypter, error)
}

func (t *oaepTransform) seal(rand io.Reader, _ []byte, plaintext []byte) ([]byte, error) {
	if len(plaintext) > MaxAsymmetricPlaintext {
		return nil, fmt.Errorf("%w: %d bytes exceeds %d", ErrPlaintextTooLarge, len(plaintext), MaxAsymmetricPlaintext)
	}
	return rsa.EncryptOAEP(sha256.New(), rand, t.public, plaintext, nil)
}

func (t *oaepTransform) open(rand io.Reader, _ []byte, ciphertext []byte) ([]byte, error) {
	if t.private == nil {
		return nil, ErrWrongIntent
	}
	dec, err := t.private()
	if err != nil {
		return nil, err
	}
	pt, err := dec.Decrypt(rand, ciphertext, &rsa.OAEPOptions{Hash: crypto.SHA256})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecrypt, err)
	}
	return pt, nil
}
