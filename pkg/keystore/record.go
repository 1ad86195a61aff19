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

package keystore

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/awnumar/memguard"
)

const recordVersion = 1

// Record kinds
const (
	KindSecret  = "secret"
	KindPublic  = "public"
	KindPrivate = "private"
)

// Record is the persisted form of one piece of key material.
type Record struct {
	Version                int       `json:"version"`
	Kind                   string    `json:"kind"`
	Algorithm              string    `json:"algorithm"`
	Material               []byte    `json:"material"`
	CreatedAt              time.Time `json:"created_at"`
	Enrollment             string    `json:"enrollment,omitempty"`
	UserAuthRequired       bool      `json:"user_auth_required"`
	InvalidateOnEnrollment bool      `json:"invalidate_on_enrollment"`
	Invalidated            bool      `json:"invalidated"`
}

// Stale reports whether the record can no longer be used given the
// current enrollment fingerprint.
func (r *Record) Stale(enrollment string) bool {
	if r.Invalidated {
		return true
	}
	return r.InvalidateOnEnrollment && r.Enrollment != enrollment
}

// Seal moves the record's material into an encrypted memory enclave and
// wipes the plaintext copy.
func (r *Record) Seal() *memguard.Enclave {
	if len(r.Material) == 0 {
		return nil
	}
	enclave := memguard.NewEnclave(r.Material)
	r.Material = nil
	return enclave
}

// Wipe zeroes the record's material.
func (r *Record) Wipe() {
	memguard.WipeBytes(r.Material)
	r.Material = nil
}

func marshalRecord(r *Record) ([]byte, error) {
	r.Version = recordVersion
	return json.Marshal(r)
}

func unmarshalRecord(data []byte) (*Record, error) {
	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}
	if r.Version != recordVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrInvalidRecord, r.Version)
	}
	if len(r.Material) == 0 {
		return nil, fmt.Errorf("%w: empty key material", ErrInvalidRecord)
	}
	return &r, nil
}

// Open copies the enclave contents into a locked buffer and passes its
// bytes to fn. The buffer is destroyed when fn returns.
func Open(enclave *memguard.Enclave, fn func(material []byte) error) error {
	if enclave == nil {
		return fmt.Errorf("%w: no key material", ErrInvalidRecord)
	}
	buf, err := enclave.Open()
	if err != nil {
		return fmt.Errorf("keystore: failed to open key enclave: %w", err)
	}
	defer buf.Destroy()
	return fn(buf.Bytes())
}
