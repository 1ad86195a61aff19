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

import "errors"

var (
	// ErrKeyNotFound is returned when no key material exists under a name.
	ErrKeyNotFound = errors.New("keystore: key not found")

	// ErrKeyInvalidated is returned when a key exists but has been
	// permanently invalidated, typically because biometric enrollment
	// changed after the key was created.
	ErrKeyInvalidated = errors.New("keystore: key permanently invalidated")

	// ErrInvalidRecord is returned when stored key material cannot be parsed.
	ErrInvalidRecord = errors.New("keystore: invalid key record")

	// ErrInvalidConfig is returned when a keystore is constructed without
	// the required collaborators.
	ErrInvalidConfig = errors.New("keystore: invalid config")
)
