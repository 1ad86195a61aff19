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

package rest

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/jeremyhahn/go-biostore/pkg/bridge"
)

// Common errors
var (
	ErrInvalidRequest = errors.New("invalid request")
	ErrInternalError  = errors.New("internal server error")
)

// writeErrorWithMessage writes an error response with a custom message.
func writeErrorWithMessage(w http.ResponseWriter, err error, message string, statusCode int) {
	writeJSON(w, ErrorResponse{
		Error:   err.Error(),
		Message: message,
		Code:    statusCode,
	}, statusCode)
}

// statusForResponse maps a method response to an HTTP status code.
func statusForResponse(resp bridge.Response) int {
	if resp.Error == nil {
		return http.StatusOK
	}
	code := resp.Error.Code
	switch {
	case code == bridge.CodeMissingArgument, code == bridge.CodeInvalidArguments:
		return http.StatusBadRequest
	case strings.HasPrefix(code, bridge.CodeAuthErrorPrefix):
		return http.StatusUnauthorized
	case code == bridge.CodeNotImplemented:
		return http.StatusNotFound
	case code == bridge.CodeOperationInFlight:
		return http.StatusConflict
	case code == bridge.CodeSecurityError:
		return http.StatusUnprocessableEntity
	case code == bridge.CodeRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("Failed to encode JSON response: %v", err)
	}
}
