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

import (
	"context"

	"github.com/jeremyhahn/go-biostore/pkg/types"
)

// Authenticators is a bit set of authenticator classes.
type Authenticators int

const (
	BiometricStrong  Authenticators = 0x000F
	BiometricWeak    Authenticators = 0x00FF
	DeviceCredential Authenticators = 0x8000
)

// Capability status codes returned by Platform.CanAuthenticate.
const (
	StatusSuccess                = 0
	StatusHwUnavailable          = 1
	StatusNoneEnrolled           = 11
	StatusNoHardware             = 12
	StatusSecurityUpdateRequired = 15
	StatusUnsupported            = -2
	StatusUnknown                = -1
	StatusPasscodeNotSet         = -99
)

// Prompt error codes passed to Callback.OnError.
const (
	ErrorHwUnavailable      = 1
	ErrorUnableToProcess    = 2
	ErrorTimeout            = 3
	ErrorNoSpace            = 4
	ErrorCanceled           = 5
	ErrorLockout            = 7
	ErrorVendor             = 8
	ErrorLockoutPermanent   = 9
	ErrorUserCanceled       = 10
	ErrorNoBiometrics       = 11
	ErrorHwNotPresent       = 12
	ErrorNegativeButton     = 13
	ErrorNoDeviceCredential = 14
)

// Prompt is what the platform renders. Ticket must be handed back to
// OnSucceeded so the gate can authenticate the matching cipher context.
type Prompt struct {
	Config types.PromptConfig
	Ticket string
}

// Callback receives prompt events. OnFailed may fire any number of times
// while the prompt stays live; OnSucceeded and OnError end the prompt.
type Callback interface {
	OnSucceeded(ticket string)
	OnFailed()
	OnError(code int, message string)
}

// Platform is the device authenticator.
type Platform interface {
	// CanAuthenticate returns a capability status code for the given
	// authenticator classes.
	CanAuthenticate(ctx context.Context, authenticators Authenticators) int

	// Authenticate shows the prompt and reports events to cb. It may
	// return before the prompt resolves.
	Authenticate(ctx context.Context, prompt Prompt, cb Callback) error
}

// Dismisser is implemented by platforms that can close a live prompt.
// A dismissed prompt reports ErrorCanceled.
type Dismisser interface {
	Dismiss()
}
