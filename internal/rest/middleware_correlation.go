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
	"net/http"

	"github.com/jeremyhahn/go-biostore/pkg/correlation"
)

// CorrelationMiddleware takes the correlation ID from X-Correlation-ID or
// X-Request-ID, or generates one, stores it in the request context and
// echoes it in the response headers.
func (s *Server) CorrelationMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := correlation.FromRequest(r)
			r = r.WithContext(correlation.WithCorrelationID(r.Context(), id))
			w.Header().Set(correlation.CorrelationIDHeader, id)
			next.ServeHTTP(w, r)
		})
	}
}
