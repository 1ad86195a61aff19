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

package secretstore

import (
	"errors"
	"fmt"

	"github.com/jeremyhahn/go-biostore/pkg/types"
)

var (
	// ErrOperationInFlight is returned when a store or retrieve starts for
	// a name that already has one running.
	ErrOperationInFlight = errors.New("secretstore: operation already in flight")

	// ErrRateLimited is returned when prompts for a name exceed the
	// configured rate.
	ErrRateLimited = errors.New("secretstore: rate limited")

	// ErrInvalidConfig is returned when a Store is created without its
	// collaborators.
	ErrInvalidConfig = errors.New("secretstore: invalid config")

	// ErrInvalidContent is returned when plaintext is not valid UTF-8.
	ErrInvalidContent = errors.New("secretstore: content is not valid UTF-8")
)

// InputError reports a caller argument that failed validation. Input
// errors are never retried.
type InputError struct {
	Field string
	Err   error
}

// Error returns the error message.
func (e *InputError) Error() string {
	return fmt.Sprintf("secretstore: invalid %s: %v", e.Field, e.Err)
}

// Unwrap returns the underlying error.
func (e *InputError) Unwrap() error {
	return e.Err
}

// AuthError reports an authentication flow that ended in an error other
// than the user or system declining the prompt.
type AuthError struct {
	Kind    types.AuthErrorKind
	Message string
}

// Error returns the error message.
func (e *AuthError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("secretstore: authentication error %s: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("secretstore: authentication error %s", e.Kind)
}

// Is matches another *AuthError of the same kind.
func (e *AuthError) Is(target error) bool {
	t, ok := target.(*AuthError)
	return ok && t.Kind == e.Kind
}

// SecurityError reports a transform failure: a malformed or tampered
// blob, a failed decryption, or a key that can no longer open the blob.
type SecurityError struct {
	Op  string
	Err error
}

// Error returns the error message.
func (e *SecurityError) Error() string {
	return fmt.Sprintf("secretstore: %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *SecurityError) Unwrap() error {
	return e.Err
}
