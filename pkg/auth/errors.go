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

package auth

import "errors"

var (
	// ErrPromptInFlight is returned when a challenge starts while another
	// is still prompting.
	ErrPromptInFlight = errors.New("auth: prompt already in flight")

	// ErrNoPlatform is returned when a gate is created without a platform.
	ErrNoPlatform = errors.New("auth: platform is required")

	// ErrNilContext is returned when a challenge has no cipher context.
	ErrNilContext = errors.New("auth: cipher context is required")
)
