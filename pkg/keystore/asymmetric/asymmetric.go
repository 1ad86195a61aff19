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

// Package asymmetric provides an RSA-2048 keystore. The public half is
// usable without authentication; the private half requires it and is
// invalidated when biometric enrollment changes.
package asymmetric

import (
	"crypto"
	"crypto/rsa"
	"crypto/x509"
	"fmt"
	"io"

	"github.com/awnumar/memguard"

	"github.com/jeremyhahn/go-biostore/pkg/keystore"
	"github.com/jeremyhahn/go-biostore/pkg/storage"
	"github.com/jeremyhahn/go-biostore/pkg/types"
)

const (
	// KeyBits is the RSA modulus size.
	KeyBits = 2048

	// Algorithm is the record algorithm name.
	Algorithm = "RSA-2048-OAEP-SHA256"

	publicSuffix  = "_public"
	privateSuffix = "_private"
)

// New creates an asymmetric keystore.
func New(config *keystore.Config) (*keystore.Store, error) {
	return keystore.New(driver{}, config)
}

type driver struct{}

func (driver) Variant() types.KeyVariant {
	return types.KeyVariantAsymmetric
}

func (driver) Paths(name string) []string {
	return []string{
		storage.KeyPath(name + publicSuffix),
		storage.KeyPath(name + privateSuffix),
	}
}

func (driver) Generate(rand io.Reader) ([]*keystore.Record, error) {
	priv, err := rsa.GenerateKey(rand, KeyBits)
	if err != nil {
		return nil, err
	}

	pub, err := x509.MarshalPKIXPublicKey(&priv.PublicKey)
	if err != nil {
		return nil, err
	}
	der, err := x509.MarshalPKCS8PrivateKey(priv)
	if err != nil {
		return nil, err
	}

	return []*keystore.Record{
		{
			Kind:      keystore.KindPublic,
			Algorithm: Algorithm,
			Material:  pub,
		},
		{
			Kind:                   keystore.KindPrivate,
			Algorithm:              Algorithm,
			Material:               der,
			UserAuthRequired:       true,
			InvalidateOnEnrollment: true,
		},
	}, nil
}

func (driver) Open(info *keystore.KeyInfo, records []*keystore.Record) (keystore.Handle, error) {
	pubRec, privRec := records[0], records[1]
	if pubRec.Kind != keystore.KindPublic || privRec.Kind != keystore.KindPrivate {
		return nil, fmt.Errorf("%w: mismatched key pair records", keystore.ErrInvalidRecord)
	}

	parsed, err := x509.ParsePKIXPublicKey(pubRec.Material)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", keystore.ErrInvalidRecord, err)
	}
	pub, ok := parsed.(*rsa.PublicKey)
	if !ok || pub.N.BitLen() != KeyBits {
		return nil, fmt.Errorf("%w: public key is not %s", keystore.ErrInvalidRecord, Algorithm)
	}
	pubRec.Wipe()

	return &Handle{
		KeyInfo: info,
		public:  pub,
		private: privRec.Seal(),
	}, nil
}

// Handle is a reference to an RSA-2048 key pair.
type Handle struct {
	*keystore.KeyInfo
	public  *rsa.PublicKey
	private *memguard.Enclave
}

// Capabilities reports that sealing with the public half needs no
// authentication.
func (h *Handle) Capabilities() types.KeyCapabilities {
	return types.KeyCapabilities{CanSealWithoutAuth: true}
}

// PublicKey returns the public half.
func (h *Handle) PublicKey() *rsa.PublicKey {
	return h.public
}

// Decrypter parses and returns the private half.
func (h *Handle) Decrypter() (crypto.Decrypter, error) {
	var priv *rsa.PrivateKey
	err := keystore.Open(h.private, func(der []byte) error {
		key, err := x509.ParsePKCS8PrivateKey(der)
		if err != nil {
			return fmt.Errorf("%w: %v", keystore.ErrInvalidRecord, err)
		}
		rsaKey, ok := key.(*rsa.PrivateKey)
		if !ok {
			return fmt.Errorf("%w: private key is not RSA", keystore.ErrInvalidRecord)
		}
		priv = rsaKey
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("asymmetric: failed to load private key %q: %w", h.Name(), err)
	}
	return priv, nil
}
