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

package bridge

import (
	"context"
	"errors"
	"fmt"

	"github.com/jeremyhahn/go-biostore/pkg/auth"
	"github.com/jeremyhahn/go-biostore/pkg/keystore"
	"github.com/jeremyhahn/go-biostore/pkg/secretstore"
	"github.com/jeremyhahn/go-biostore/pkg/types"
)

// Error codes
const (
	CodeMissingArgument   = "MissingArgument"
	CodeInvalidArguments  = "InvalidArguments"
	CodeAuthErrorPrefix   = "AuthError:"
	CodeSecurityError     = "SecurityError"
	CodeOperationInFlight = "OperationInFlight"
	CodeRateLimited       = "RateLimited"
	CodeNotImplemented    = "NotImplemented"
	CodeUnexpected        = "Unexpected Error"
)

// MethodError is the structured error returned across the boundary.
type MethodError struct {
	Code    string `json:"code"`
	Message string `json:"message,omitempty"`
	Details any    `json:"details,omitempty"`
}

// Error returns the error message.
func (e *MethodError) Error() string {
	if e.Message == "" {
		return e.Code
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// AuthErrorCode returns the boundary code for an authentication error kind.
func AuthErrorCode(kind types.AuthErrorKind) string {
	return CodeAuthErrorPrefix + kind.String()
}

// toMethodError classifies err into a boundary error.
func toMethodError(err error) *MethodError {
	var (
		methodErr   *MethodError
		inputErr    *secretstore.InputError
		authErr     *secretstore.AuthError
		securityErr *secretstore.SecurityError
	)

	switch {
	case errors.As(err, &methodErr):
		return methodErr
	case errors.As(err, &inputErr):
		return &MethodError{Code: CodeInvalidArguments, Message: err.Error(), Details: inputErr.Field}
	case errors.As(err, &authErr):
		return &MethodError{Code: AuthErrorCode(authErr.Kind), Message: authErr.Message}
	case errors.As(err, &securityErr), errors.Is(err, keystore.ErrKeyInvalidated):
		return &MethodError{Code: CodeSecurityError, Message: err.Error()}
	case errors.Is(err, secretstore.ErrOperationInFlight), errors.Is(err, auth.ErrPromptInFlight):
		return &MethodError{Code: CodeOperationInFlight, Message: err.Error()}
	case errors.Is(err, secretstore.ErrRateLimited):
		return &MethodError{Code: CodeRateLimited, Message: err.Error()}
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return &MethodError{Code: AuthErrorCode(types.AuthErrorCanceled), Message: err.Error()}
	default:
		return &MethodError{Code: CodeUnexpected, Message: err.Error(), Details: fmt.Sprintf("%+v", err)}
	}
}
