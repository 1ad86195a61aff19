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

// Package bridge is the typed request/response contract between callers
// outside the process (the HTTP surface, the CLI) and the secret store.
// Requests are decoded and validated here before they reach the core.
package bridge

import (
	"context"
	"fmt"
	"runtime"

	"github.com/jeremyhahn/go-biostore/pkg/correlation"
	"github.com/jeremyhahn/go-biostore/pkg/logging"
	"github.com/jeremyhahn/go-biostore/pkg/secretstore"
)

// Response is the result of one dispatched request. Exactly one of
// Value and Error is meaningful; a nil Value with a nil Error is a valid
// empty result.
type Response struct {
	Value any          `json:"result"`
	Error *MethodError `json:"error,omitempty"`
}

// OK reports whether the response carries no error.
func (r Response) OK() bool {
	return r.Error == nil
}

// Dispatcher routes typed requests to a secret store.
type Dispatcher struct {
	store   *secretstore.Store
	logger  logging.Logger
	version string
}

// NewDispatcher creates a Dispatcher. An empty platformVersion reports
// the Go runtime's OS and architecture.
func NewDispatcher(store *secretstore.Store, logger logging.Logger, platformVersion string) *Dispatcher {
	if logger == nil {
		logger = logging.NewNop()
	}
	if platformVersion == "" {
		platformVersion = fmt.Sprintf("%s/%s %s", runtime.GOOS, runtime.GOARCH, runtime.Version())
	}
	return &Dispatcher{store: store, logger: logger, version: platformVersion}
}

// Call decodes method and args and dispatches the request.
func (d *Dispatcher) Call(ctx context.Context, method string, args map[string]any) Response {
	req, err := Decode(method, args)
	if err != nil {
		logging.WarnCtx(ctx, d.logger, "Rejected method call",
			logging.String("method", method),
			logging.Error(err))
		return Response{Error: toMethodError(err)}
	}
	return d.Dispatch(ctx, req)
}

// Dispatch runs req against the secret store.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) Response {
	ctx, _ = correlation.Ensure(ctx)
	logging.DebugCtx(ctx, d.logger, "Dispatching method call", logging.String("method", req.Method()))

	value, err := d.dispatch(ctx, req)
	if err != nil {
		me := toMethodError(err)
		logging.ErrorCtx(ctx, d.logger, "Error while processing method call",
			logging.String("method", req.Method()),
			logging.String("code", me.Code),
			logging.Error(err))
		return Response{Error: me}
	}
	return Response{Value: value}
}

func (d *Dispatcher) dispatch(ctx context.Context, req Request) (any, error) {
	switch r := req.(type) {
	case PlatformVersionRequest:
		return d.version, nil

	case CanAuthenticateRequest:
		return d.store.CanAuthenticate(ctx).String(), nil

	case InitRequest:
		return d.store.Initialize(ctx, r.Name)

	case StoreRequest:
		res, err := d.store.Store(ctx, r.Name, r.Content, r.Prompt)
		if err != nil {
			return nil, err
		}
		return transformValue(res, res.Blob), nil

	case RetrieveRequest:
		res, err := d.store.Retrieve(ctx, r.Name, r.Content, r.Prompt)
		if err != nil {
			return nil, err
		}
		return transformValue(res, res.Value), nil

	case DeleteRequest:
		name := r.Name
		if name == "" {
			name = d.store.DefaultName()
		}
		if err := d.store.Remove(ctx, name); err != nil {
			return nil, err
		}
		return true, nil

	case DisposeRequest:
		d.store.Dismiss()
		return true, nil

	default:
		return nil, &MethodError{Code: CodeNotImplemented, Message: fmt.Sprintf("Method '%s' is not implemented", req.Method())}
	}
}

// transformValue is the capability name when the device cannot
// authenticate, nil when the prompt was declined, and out otherwise.
func transformValue(res *secretstore.Result, out string) any {
	if !res.Capability.OK() {
		return res.Capability.String()
	}
	if res.Declined {
		return nil
	}
	return out
}
