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

// Package password holds credentials in wipeable memory and derives
// Argon2id verifiers for them. The console platform uses it for the
// enrolled PIN.
package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/argon2"
)

var (
	// ErrEmptyPassword is returned when an empty password is provided.
	ErrEmptyPassword = errors.New("password cannot be empty")

	// ErrPasswordZeroed is returned when the password has been zeroed.
	ErrPasswordZeroed = errors.New("password has been zeroed")

	// ErrInvalidVerifier is returned when a stored verifier cannot be parsed.
	ErrInvalidVerifier = errors.New("password: invalid verifier")
)

// ClearPassword stores a password in memory as cleartext until Clear is
// called.
type ClearPassword struct {
	password []byte
}

// NewClearPassword copies password into a new ClearPassword.
func NewClearPassword(password []byte) (*ClearPassword, error) {
	if len(password) == 0 {
		return nil, ErrEmptyPassword
	}
	p := make([]byte, len(password))
	copy(p, password)
	return &ClearPassword{password: p}, nil
}

// Bytes returns a copy of the password.
func (p *ClearPassword) Bytes() ([]byte, error) {
	if p.password == nil {
		return nil, ErrPasswordZeroed
	}
	result := make([]byte, len(p.password))
	copy(result, p.password)
	return result, nil
}

// Clear zeroes the password. It cannot be read afterwards.
func (p *ClearPassword) Clear() {
	if p.password != nil {
		zero(p.password)
		p.password = nil
	}
}

// Params are the Argon2id cost parameters.
type Params struct {
	Time    uint32 `json:"time"`
	Memory  uint32 `json:"memory"`
	Threads uint8  `json:"threads"`
	KeyLen  uint32 `json:"key_len"`
	SaltLen int    `json:"-"`
}

// DefaultParams returns the RFC 9106 second recommended parameter set.
func DefaultParams() Params {
	return Params{
		Time:    3,
		Memory:  64 * 1024,
		Threads: 4,
		KeyLen:  32,
		SaltLen: 16,
	}
}

// Verifier is a salted Argon2id hash of a password.
type Verifier struct {
	Version int    `json:"version"`
	Params  Params `json:"params"`
	Salt    []byte `json:"salt"`
	Hash    []byte `json:"hash"`
}

const verifierVersion = 1

// NewVerifier derives a verifier for p. A nil rnd uses crypto/rand.
func NewVerifier(p *ClearPassword, params Params, rnd io.Reader) (*Verifier, error) {
	if rnd == nil {
		rnd = rand.Reader
	}
	if params.SaltLen <= 0 {
		params.SaltLen = 16
	}
	secret, err := p.Bytes()
	if err != nil {
		return nil, err
	}
	defer zero(secret)

	salt := make([]byte, params.SaltLen)
	if _, err := io.ReadFull(rnd, salt); err != nil {
		return nil, fmt.Errorf("password: failed to generate salt: %w", err)
	}

	return &Verifier{
		Version: verifierVersion,
		Params:  params,
		Salt:    salt,
		Hash:    argon2.IDKey(secret, salt, params.Time, params.Memory, params.Threads, params.KeyLen),
	}, nil
}

// Verify reports whether p matches the verifier, in constant time.
func (v *Verifier) Verify(p *ClearPassword) (bool, error) {
	secret, err := p.Bytes()
	if err != nil {
		return false, err
	}
	defer zero(secret)

	got := argon2.IDKey(secret, v.Salt, v.Params.Time, v.Params.Memory, v.Params.Threads, uint32(len(v.Hash)))
	return subtle.ConstantTimeCompare(got, v.Hash) == 1, nil
}

// Marshal encodes the verifier for storage.
func (v *Verifier) Marshal() ([]byte, error) {
	return json.Marshal(v)
}

// ParseVerifier decodes a stored verifier.
func ParseVerifier(data []byte) (*Verifier, error) {
	var v Verifier
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidVerifier, err)
	}
	if v.Version != verifierVersion || len(v.Salt) == 0 || len(v.Hash) == 0 || v.Params.Time == 0 || v.Params.Threads == 0 {
		return nil, ErrInvalidVerifier
	}
	return &v, nil
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
	// keep the compiler from eliding the loop
	subtle.ConstantTimeCopy(1, b, make([]byte, len(b)))
}
