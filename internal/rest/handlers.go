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
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/jeremyhahn/go-biostore/pkg/bridge"
	"github.com/jeremyhahn/go-biostore/pkg/logging"
)

// maxBodySize bounds a method call's argument object.
const maxBodySize = 1 << 20

// MethodHandler decodes the JSON argument object and dispatches the
// method named in the path.
func (s *Server) MethodHandler(w http.ResponseWriter, r *http.Request) {
	method := chi.URLParam(r, "method")

	args, err := decodeArgs(w, r)
	if err != nil {
		logging.WarnCtx(r.Context(), s.logger, "Invalid request body",
			logging.String("method", method),
			logging.Error(err))
		resp := bridge.Response{Error: &bridge.MethodError{
			Code:    bridge.CodeInvalidArguments,
			Message: "request body must be a JSON object",
		}}
		writeJSON(w, resp, http.StatusBadRequest)
		return
	}

	resp := s.dispatcher.Call(r.Context(), method, args)
	writeJSON(w, resp, statusForResponse(resp))
}

func decodeArgs(w http.ResponseWriter, r *http.Request) (map[string]any, error) {
	body := http.MaxBytesReader(w, r.Body, maxBodySize)
	defer body.Close()

	var args map[string]any
	if err := json.NewDecoder(body).Decode(&args); err != nil {
		if errors.Is(err, io.EOF) {
			return map[string]any{}, nil
		}
		return nil, err
	}
	if args == nil {
		args = map[string]any{}
	}
	return args, nil
}

// HealthHandler reports server status and the current device capability.
func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:  "ok",
		Version: s.version,
	}
	if s.health != nil {
		resp.Capability = s.health.CanAuthenticate(r.Context()).String()
	}
	writeJSON(w, resp, http.StatusOK)
}
