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

// Package symmetric provides an AES-256 keystore. Each key requires a
// fresh authentication for both seal and open and is invalidated when
// biometric enrollment changes.
package symmetric

import (
	"crypto/aes"
	"crypto/cipher"
	"fmt"
	"io"

	"github.com/awnumar/memguard"

	"github.com/jeremyhahn/go-biostore/pkg/keystore"
	"github.com/jeremyhahn/go-biostore/pkg/storage"
	"github.com/jeremyhahn/go-biostore/pkg/types"
)

const (
	// KeySize is the AES key size in bytes.
	KeySize = 32

	// Algorithm is the record algorithm name.
	Algorithm = "AES-256-CBC-PKCS7"
)

// New creates a symmetric keystore.
func New(config *keystore.Config) (*keystore.Store, error) {
	return keystore.New(driver{}, config)
}

type driver struct{}

func (driver) Variant() types.KeyVariant {
	return types.KeyVariantSymmetric
}

func (driver) Paths(name string) []string {
	return []string{storage.KeyPath(name)}
}

func (driver) Generate(rand io.Reader) ([]*keystore.Record, error) {
	material := make([]byte, KeySize)
	if _, err := io.ReadFull(rand, material); err != nil {
		memguard.WipeBytes(material)
		return nil, err
	}
	return []*keystore.Record{{
		Kind:                   keystore.KindSecret,
		Algorithm:              Algorithm,
		Material:               material,
		UserAuthRequired:       true,
		InvalidateOnEnrollment: true,
	}}, nil
}

func (driver) Open(info *keystore.KeyInfo, records []*keystore.Record) (keystore.Handle, error) {
	r := records[0]
	if r.Kind != keystore.KindSecret || r.Algorithm != Algorithm || len(r.Material) != KeySize {
		return nil, fmt.Errorf("%w: not an %s secret", keystore.ErrInvalidRecord, Algorithm)
	}
	return &Handle{
		KeyInfo: info,
		secret:  r.Seal(),
	}, nil
}

// Handle is a reference to an AES-256 key.
type Handle struct {
	*keystore.KeyInfo
	secret *memguard.Enclave
}

// Capabilities reports that both directions require authentication.
func (h *Handle) Capabilities() types.KeyCapabilities {
	return types.KeyCapabilities{}
}

// Block returns an AES block cipher keyed with the secret.
func (h *Handle) Block() (cipher.Block, error) {
	var block cipher.Block
	err := keystore.Open(h.secret, func(key []byte) error {
		var err error
		block, err = aes.NewCipher(key)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("symmetric: failed to load key %q: %w", h.Name(), err)
	}
	return block, nil
}
