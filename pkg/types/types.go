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

// Package types defines the shared vocabulary used across the biostore
// packages: key variants, cipher intents, capability responses,
// authentication error kinds and prompt configuration.
package types

import (
	"errors"
	"fmt"
	"strings"
)

const (
	// DefaultKeyName is the key name used when a caller does not bind one.
	DefaultKeyName = "biometric_encryption_key"

	// IVSize is the size of the initialization vector prefix of a sealed blob.
	IVSize = 16
)

var (
	// ErrInvalidKeyVariant is returned when a key variant string is not recognized.
	ErrInvalidKeyVariant = errors.New("types: invalid key variant")

	// ErrInvalidPromptConfig is returned when a prompt is missing a required field.
	ErrInvalidPromptConfig = errors.New("types: invalid prompt config")
)

// KeyVariant selects the capability shape of a named key.
type KeyVariant string

const (
	// KeyVariantSymmetric is an AES-256-CBC key usable only after authentication.
	KeyVariantSymmetric KeyVariant = "symmetric"

	// KeyVariantAsymmetric is an RSA-2048 pair whose private half requires
	// authentication and whose public half does not.
	KeyVariantAsymmetric KeyVariant = "asymmetric"
)

// String returns the variant name.
func (v KeyVariant) String() string {
	return string(v)
}

// ParseKeyVariant parses a case-insensitive key variant name.
func ParseKeyVariant(s string) (KeyVariant, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "symmetric", "aes", "aes-256-cbc":
		return KeyVariantSymmetric, nil
	case "asymmetric", "rsa", "rsa-2048":
		return KeyVariantAsymmetric, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidKeyVariant, s)
	}
}

// Intent is the purpose a cipher context is bound to.
type Intent int

const (
	// IntentSeal binds a context for encryption.
	IntentSeal Intent = iota
	// IntentOpen binds a context for decryption.
	IntentOpen
)

// String returns the intent name.
func (i Intent) String() string {
	switch i {
	case IntentSeal:
		return "seal"
	case IntentOpen:
		return "open"
	default:
		return "unknown"
	}
}

// KeyCapabilities describes which operations a key permits without a
// successful authentication.
type KeyCapabilities struct {
	CanSealWithoutAuth bool
	CanOpenWithoutAuth bool
}

// RequiresAuth reports whether the given intent requires authentication.
func (c KeyCapabilities) RequiresAuth(intent Intent) bool {
	if intent == IntentSeal {
		return !c.CanSealWithoutAuth
	}
	return !c.CanOpenWithoutAuth
}

// CapabilityResponse is the device's ability to perform the gate check.
type CapabilityResponse int

const (
	CapabilitySuccess CapabilityResponse = iota
	CapabilityErrorHwUnavailable
	CapabilityErrorNoBiometricEnrolled
	CapabilityErrorNoHardware
	CapabilityErrorPasscodeNotSet
	CapabilityErrorStatusUnknown
)

var capabilityNames = map[CapabilityResponse]string{
	CapabilitySuccess:                  "Success",
	CapabilityErrorHwUnavailable:       "ErrorHwUnavailable",
	CapabilityErrorNoBiometricEnrolled: "ErrorNoBiometricEnrolled",
	CapabilityErrorNoHardware:          "ErrorNoHardware",
	CapabilityErrorPasscodeNotSet:      "ErrorPasscodeNotSet",
	CapabilityErrorStatusUnknown:       "ErrorStatusUnknown",
}

// String returns the boundary name of the capability response.
func (c CapabilityResponse) String() string {
	if name, ok := capabilityNames[c]; ok {
		return name
	}
	return capabilityNames[CapabilityErrorStatusUnknown]
}

// OK reports whether authentication is possible.
func (c CapabilityResponse) OK() bool {
	return c == CapabilitySuccess
}

// ParseCapabilityResponse parses a boundary capability name. Unknown names
// map to CapabilityErrorStatusUnknown.
func ParseCapabilityResponse(name string) CapabilityResponse {
	for c, n := range capabilityNames {
		if n == name {
			return c
		}
	}
	return CapabilityErrorStatusUnknown
}

// AuthErrorKind classifies a terminal authentication error.
type AuthErrorKind int

const (
	// AuthErrorUnknown covers lockout, hardware faults and unmapped codes.
	AuthErrorUnknown AuthErrorKind = iota
	// AuthErrorCanceled is a cancellation by the system.
	AuthErrorCanceled
	// AuthErrorUserCanceled is a dismissal or negative button press.
	AuthErrorUserCanceled
	// AuthErrorTimeout is a prompt that expired without input.
	AuthErrorTimeout
	// AuthErrorFailed is a rejected attempt.
	AuthErrorFailed
)

// String returns the boundary name of the error kind.
func (k AuthErrorKind) String() string {
	switch k {
	case AuthErrorCanceled:
		return "Canceled"
	case AuthErrorUserCanceled:
		return "UserCanceled"
	case AuthErrorTimeout:
		return "Timeout"
	case AuthErrorFailed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// Declined reports whether the kind represents the user or system declining
// the prompt, which callers treat as an empty success.
func (k AuthErrorKind) Declined() bool {
	return k == AuthErrorCanceled || k == AuthErrorUserCanceled || k == AuthErrorTimeout
}

// PromptConfig is the text rendered by the platform prompt.
type PromptConfig struct {
	Title                string `json:"title" yaml:"title"`
	Subtitle             string `json:"subtitle,omitempty" yaml:"subtitle,omitempty"`
	Description          string `json:"description,omitempty" yaml:"description,omitempty"`
	NegativeButtonLabel  string `json:"negativeButton" yaml:"negative_button"`
	ConfirmationRequired bool   `json:"confirmationRequired" yaml:"confirmation_required"`
}

// DefaultPromptConfig returns the prompt used when the caller supplies none.
func DefaultPromptConfig() PromptConfig {
	return PromptConfig{
		Title:               "Authenticate to continue",
		NegativeButtonLabel: "Cancel",
	}
}

// Validate checks the required prompt fields.
func (p PromptConfig) Validate() error {
	if strings.TrimSpace(p.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidPromptConfig)
	}
	if strings.TrimSpace(p.NegativeButtonLabel) == "" {
		return fmt.Errorf("%w: negative button label is required", ErrInvalidPromptConfig)
	}
	return nil
}
