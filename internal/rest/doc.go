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

// Package rest exposes the biostore method contract over local HTTP.
//
// Every boundary method is reachable through a single route; the request
// body is the JSON argument object and the response carries either the
// result or the structured method error.
//
// # API Endpoints
//
//   - POST /api/v1/methods/{method} - Invoke canAuthenticate, init, write
//     (store), read (retrieve), delete, dispose or getPlatformVersion
//   - GET /health - Server status and device capability
//   - GET /metrics - Prometheus metrics, when enabled
//
// # Example
//
//	curl -s -X POST http://127.0.0.1:8484/api/v1/methods/write \
//	    -d '{"name":"vault1","content":"s3cret",
//	         "androidPromptInfo":{"title":"Unlock","negativeButton":"Cancel"}}'
//	{"result":"q83vEjRWeJASNFZ4kBI0Vg..."}
//
//	curl -s -X POST http://127.0.0.1:8484/api/v1/methods/init -d '{}'
//	{"result":null,"error":{"code":"MissingArgument","message":"Missing required argument 'name'"}}
//
// # Status Codes
//
// A method that completes returns 200, including declined prompts (null
// result) and capability failures (the capability name as the result).
// Method errors map to 400 (MissingArgument, InvalidArguments), 401
// (AuthError:*), 404 (NotImplemented), 409 (OperationInFlight), 422
// (SecurityError), 429 (RateLimited) and 500 (Unexpected Error).
//
// Requests carry an X-Correlation-ID header (or X-Request-ID); one is
// generated when absent and echoed in the response.
package rest
