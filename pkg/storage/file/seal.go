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
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"

	"github.com/awnumar/memguard"
	"golang.org/x/crypto/argon2"

	"github.com/jeremyhahn/go-biostore/pkg/storage"
)

const (
	saltSize  = 32
	nonceSize = 12
	tagSize   = 16
)

// KDFParams are the Argon2id cost parameters used to derive record keys.
type KDFParams struct {
	Time    uint32
	Memory  uint32 // KiB
	Threads uint8
}

// DefaultKDFParams returns time=1, memory=64MB, threads=4.
func DefaultKDFParams() KDFParams {
	return KDFParams{Time: 1, Memory: 64 * 1024, Threads: 4}
}

func (p KDFParams) withDefaults() KDFParams {
	def := DefaultKDFParams()
	if p.Time == 0 {
		p.Time = def.Time
	}
	if p.Memory == 0 {
		p.Memory = def.Memory
	}
	if p.Threads == 0 {
		p.Threads = def.Threads
	}
	return p
}

// sealer encrypts records with a per-record salt.
//
// Format: [salt(32)][nonce(12)][ciphertext+tag]
// The salt and storage key are bound as additional authenticated data so a
// record cannot be moved to a different key.
type sealer struct {
	passphrase *memguard.Enclave
	params     KDFParams
}

func newSealer(passphrase []byte, params KDFParams) *sealer {
	buf := make([]byte, len(passphrase))
	copy(buf, passphrase)
	return &sealer{
		// NewEnclave wipes buf
		passphrase: memguard.NewEnclave(buf),
		params:     params.withDefaults(),
	}
}

func (s *sealer) aead(salt []byte) (cipher.AEAD, error) {
	lb, err := s.passphrase.Open()
	if err != nil {
		return nil, fmt.Errorf("file storage: failed to open passphrase enclave: %w", err)
	}
	defer lb.Destroy()

	derived := argon2.IDKey(lb.Bytes(), salt, s.params.Time, s.params.Memory, s.params.Threads, 32)
	defer memguard.WipeBytes(derived)

	block, err := aes.NewCipher(derived)
	if err != nil {
		return nil, fmt.Errorf("file storage: failed to create cipher: %w", err)
	}
	return cipher.NewGCM(block)
}

func (s *sealer) seal(key string, plaintext []byte) ([]byte, error) {
	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("file storage: failed to generate salt: %w", err)
	}

	gcm, err := s.aead(salt)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("file storage: failed to generate nonce: %w", err)
	}

	ciphertext := gcm.Seal(nil, nonce, plaintext, additionalData(salt, key))

	result := make([]byte, 0, saltSize+nonceSize+len(ciphertext))
	result = append(result, salt...)
	result = append(result, nonce...)
	result = append(result, ciphertext...)
	return result, nil
}

func (s *sealer) open(key string, data []byte) ([]byte, error) {
	if len(data) < saltSize+nonceSize+tagSize {
		return nil, fmt.Errorf("%w: sealed record too short: %d bytes", storage.ErrInvalidData, len(data))
	}

	salt := data[:saltSize]
	nonce := data[saltSize : saltSize+nonceSize]
	ciphertext := data[saltSize+nonceSize:]

	gcm, err := s.aead(salt)
	if err != nil {
		return nil, err
	}

	plaintext, err := gcm.Open(nil, nonce, ciphertext, additionalData(salt, key))
	if err != nil {
		return nil, storage.ErrInvalidPassphrase
	}
	return plaintext, nil
}

func (s *sealer) destroy() {
	s.passphrase = nil
}

func additionalData(salt []byte, key string) []byte {
	aad := make([]byte, 0, len(salt)+len(key))
	aad = append(aad, salt...)
	return append(aad, key...)
}
