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

// Package keystore manages named key material held in a protected
// storage backend. Keys are bound to the biometric enrollment present
// when they were created and become permanently invalid when that
// enrollment changes.
//
// Callers never see raw key bytes. A Handle exposes only the transform
// the key supports: a cipher.Block for symmetric keys, or the public key
// and a crypto.Decrypter for asymmetric pairs.
package keystore

import (
	"context"
	"crypto"
	"crypto/cipher"
	"crypto/rand"
	"crypto/rsa"
	"io"

	"github.com/jeremyhahn/go-biostore/pkg/logging"
	"github.com/jeremyhahn/go-biostore/pkg/storage"
	"github.com/jeremyhahn/go-biostore/pkg/types"
)

// KeyStore creates, looks up and deletes named keys of one variant.
type KeyStore interface {
	// GetOrCreate returns the key for name, generating it on a miss. A
	// stored key that has been permanently invalidated is deleted and
	// replaced; the returned handle then reports Recreated.
	GetOrCreate(ctx context.Context, name string) (Handle, error)

	// Get returns the key for name without creating it.
	Get(ctx context.Context, name string) (Handle, error)

	// Delete removes all key material stored under name. Deleting a name
	// that does not exist is not an error.
	Delete(ctx context.Context, name string) error

	// Invalidate permanently invalidates the key stored under name.
	Invalidate(ctx context.Context, name string) error

	// Variant returns the capability shape of keys in this store.
	Variant() types.KeyVariant
}

// Handle is an opaque reference to stored key material.
type Handle interface {
	Name() string
	Variant() types.KeyVariant
	Capabilities() types.KeyCapabilities

	// Created reports whether the key was generated by the call that
	// returned this handle.
	Created() bool

	// Recreated reports whether the key replaced an invalidated one.
	Recreated() bool

	// Invalidated reports whether the key has been deleted or
	// invalidated since the handle was issued.
	Invalidated() bool
}

// SymmetricHandle is a handle to a secret key usable for both directions.
type SymmetricHandle interface {
	Handle

	// Block returns an AES block cipher keyed with the secret.
	Block() (cipher.Block, error)
}

// AsymmetricHandle is a handle to a key pair.
type AsymmetricHandle interface {
	Handle

	PublicKey() *rsa.PublicKey

	// Decrypter returns the private half.
	Decrypter() (crypto.Decrypter, error)
}

// EnrollmentSource reports a fingerprint of the biometric enrollment set
// currently registered on the device. Any change to the enrolled set
// must change the fingerprint.
type EnrollmentSource interface {
	Fingerprint(ctx context.Context) (string, error)
}

// EnrollmentFunc adapts a function to an EnrollmentSource.
type EnrollmentFunc func(ctx context.Context) (string, error)

// Fingerprint calls f(ctx).
func (f EnrollmentFunc) Fingerprint(ctx context.Context) (string, error) {
	return f(ctx)
}

// Config contains configuration shared by keystore implementations.
type Config struct {
	// Storage holds the key records.
	Storage storage.Backend

	// Enrollment supplies the enrollment fingerprint keys are bound to.
	// If nil, keys are never invalidated by enrollment changes.
	Enrollment EnrollmentSource

	// Logger receives lifecycle events. Defaults to a no-op logger.
	Logger logging.Logger

	// Rand is the entropy source for key generation. Defaults to
	// crypto/rand.Reader.
	Rand io.Reader
}

// Validate checks if the Config is valid.
func (c *Config) Validate() error {
	if c == nil {
		return ErrInvalidConfig
	}
	if c.Storage == nil {
		return ErrInvalidConfig
	}
	return nil
}

func (c *Config) setDefaults() {
	if c.Logger == nil {
		c.Logger = logging.NewNop()
	}
	if c.Rand == nil {
		c.Rand = rand.Reader
	}
}
