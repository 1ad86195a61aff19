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

import "errors"

var (
	// ErrContextConsumed is returned when a context is used for a second transform.
	ErrContextConsumed = errors.New("cipher: context already consumed")

	// ErrNotAuthenticated is returned when a context that requires
	// authentication is used before the gate authenticated it.
	ErrNotAuthenticated = errors.New("cipher: context not authenticated")

	// ErrTicketMismatch is returned when authentication presents a ticket
	// issued for a different context.
	ErrTicketMismatch = errors.New("cipher: authentication ticket mismatch")

	// ErrWrongIntent is returned when a seal context is used to open or
	// an open context is used to seal.
	ErrWrongIntent = errors.New("cipher: wrong intent")

	// ErrInvalidIV is returned when an IV is not exactly 16 bytes.
	ErrInvalidIV = errors.New("cipher: invalid IV")

	// ErrUnsupportedHandle is returned for a handle whose variant the
	// factory cannot bind.
	ErrUnsupportedHandle = errors.New("cipher: unsupported key handle")

	// ErrPlaintextTooLarge is returned when plaintext exceeds what the
	// bound key can seal in one operation.
	ErrPlaintextTooLarge = errors.New("cipher: plaintext too large")

	// ErrDecrypt is returned when ciphertext cannot be decrypted.
	ErrDecrypt = errors.New("cipher: decryption failed")
)
