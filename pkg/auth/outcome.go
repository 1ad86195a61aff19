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
	"github.com/jeremyhahn/go-biostore/pkg/cipher"
	"github.com/jeremyhahn/go-biostore/pkg/types"
)

// OutcomeKind is the terminal state of a challenge.
type OutcomeKind int

const (
	// OutcomeSucceeded carries an authenticated cipher context.
	OutcomeSucceeded OutcomeKind = iota
	// OutcomeFailed means rejected attempts exhausted the attempt limit.
	OutcomeFailed
	// OutcomeError is any other platform error.
	OutcomeError
	// OutcomeCanceled means the prompt was dismissed, declined or timed out.
	OutcomeCanceled
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSucceeded:
		return "succeeded"
	case OutcomeFailed:
		return "failed"
	case OutcomeError:
		return "error"
	case OutcomeCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// Outcome is the resolution of a challenge.
type Outcome struct {
	Kind OutcomeKind

	// Cipher is the authenticated context. Set only for OutcomeSucceeded.
	Cipher *cipher.Context

	// Error classifies non-success outcomes.
	Error types.AuthErrorKind

	// Message is the platform's description of the error, if any.
	Message string
}

// ClassifyError maps a platform prompt error code to an outcome.
func ClassifyError(code int, message string) Outcome {
	switch code {
	case ErrorCanceled:
		return Outcome{Kind: OutcomeCanceled, Error: types.AuthErrorCanceled, Message: message}
	case ErrorTimeout:
		return Outcome{Kind: OutcomeCanceled, Error: types.AuthErrorTimeout, Message: message}
	case ErrorUserCanceled, ErrorNegativeButton:
		return Outcome{Kind: OutcomeCanceled, Error: types.AuthErrorUserCanceled, Message: message}
	default:
		return Outcome{Kind: OutcomeError, Error: types.AuthErrorUnknown, Message: message}
	}
}
