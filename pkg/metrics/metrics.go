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

// Package metrics provides Prometheus instrumentation for biostore
// operations: secret store calls, authentication prompts, key lifecycle
// events and the local HTTP surface.
package metrics

import (
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	// Namespace is the Prometheus namespace for all biostore metrics
	Namespace = "biostore"

	// Label names
	LabelOperation  = "operation"
	LabelVariant    = "variant"
	LabelStatus     = "status"
	LabelErrorType  = "error_type"
	LabelOutcome    = "outcome"
	LabelReason     = "reason"
	LabelResponse   = "response"
	LabelMethod     = "method"
	LabelRoute      = "route"
	LabelStatusCode = "status_code"

	// Status values
	StatusSuccess  = "success"
	StatusDeclined = "declined"
	StatusError    = "error"

	// Operation names
	OpStore           = "store"
	OpRetrieve        = "retrieve"
	OpRemove          = "remove"
	OpInitialize      = "initialize"
	OpCanAuthenticate = "can_authenticate"
	OpGetOrCreate     = "get_or_create"
	OpDeleteKey       = "delete_key"

	// Key recreation reasons
	ReasonEnrollmentChanged = "enrollment_changed"
	ReasonInvalidated       = "invalidated"
	ReasonBindFailed        = "bind_failed"
)

var (
	// OperationsTotal counts secret store and keystore operations by
	// operation, key variant and status.
	OperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "operations_total",
			Help:      "Total number of biostore operations by type, key variant, and status",
		},
		[]string{LabelOperation, LabelVariant, LabelStatus},
	)

	// OperationDuration tracks operation latency in seconds. Prompted
	// operations include the time the user spends at the prompt.
	OperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "operation_duration_seconds",
			Help:      "Duration of biostore operations in seconds",
			Buckets:   []float64{.001, .005, .01, .05, .1, .5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{LabelOperation, LabelVariant},
	)

	// ErrorsTotal counts errors by operation, key variant and error type.
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "errors_total",
			Help:      "Total number of errors by operation, key variant, and error type",
		},
		[]string{LabelOperation, LabelVariant, LabelErrorType},
	)

	// PromptsTotal counts authentication prompts by outcome.
	PromptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "auth",
			Name:      "prompts_total",
			Help:      "Total number of authentication prompts by outcome",
		},
		[]string{LabelOutcome},
	)

	// FailedAttemptsTotal counts rejected attempts inside live prompts.
	FailedAttemptsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "auth",
			Name:      "failed_attempts_total",
			Help:      "Total number of rejected authentication attempts",
		},
	)

	// CapabilityChecksTotal counts capability checks by response.
	CapabilityChecksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "auth",
			Name:      "capability_checks_total",
			Help:      "Total number of capability checks by response",
		},
		[]string{LabelResponse},
	)

	// KeyRecreationsTotal counts keys deleted and regenerated after
	// permanent invalidation.
	KeyRecreationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "keys",
			Name:      "recreations_total",
			Help:      "Total number of keys recreated after invalidation",
		},
		[]string{LabelVariant, LabelReason},
	)

	// HTTPRequestsTotal tracks the total number of HTTP requests by route and status code.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests by route and status code",
		},
		[]string{LabelRoute, LabelStatusCode},
	)

	// HTTPRequestDuration tracks the duration of HTTP requests in seconds.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{LabelRoute},
	)

	// ActiveRequests tracks in-flight HTTP requests.
	ActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Subsystem: "http",
			Name:      "active_requests",
			Help:      "Number of in-flight HTTP requests",
		},
	)

	// enabled tracks whether metrics collection is enabled
	enabled atomic.Bool
)

func init() {
	// Metrics are enabled by default
	enabled.Store(true)
}

// RecordOperation records an operation with its duration and status.
//
//	start := time.Now()
//	res, err := store.Store(ctx, name, secret, prompt)
//	metrics.RecordOperation(metrics.OpStore, "symmetric", status, time.Since(start).Seconds())
func RecordOperation(operation, variant, status string, duration float64) {
	if !enabled.Load() {
		return
	}
	OperationsTotal.WithLabelValues(operation, variant, status).Inc()
	OperationDuration.WithLabelValues(operation, variant).Observe(duration)
}

// RecordError records an error event. Error types should be specific,
// e.g. "key_invalidated", "decode", "auth_unknown".
func RecordError(operation, variant, errorType string) {
	if !enabled.Load() {
		return
	}
	ErrorsTotal.WithLabelValues(operation, variant, errorType).Inc()
}

// RecordPrompt records the terminal outcome of an authentication prompt.
func RecordPrompt(outcome string) {
	if !enabled.Load() {
		return
	}
	PromptsTotal.WithLabelValues(outcome).Inc()
}

// RecordFailedAttempt records a rejected attempt inside a live prompt.
func RecordFailedAttempt() {
	if !enabled.Load() {
		return
	}
	FailedAttemptsTotal.Inc()
}

// RecordCapabilityCheck records the response of a capability check.
func RecordCapabilityCheck(response string) {
	if !enabled.Load() {
		return
	}
	CapabilityChecksTotal.WithLabelValues(response).Inc()
}

// RecordKeyRecreation records a key deleted and regenerated after invalidation.
func RecordKeyRecreation(variant, reason string) {
	if !enabled.Load() {
		return
	}
	KeyRecreationsTotal.WithLabelValues(variant, reason).Inc()
}

// RecordHTTPRequest records an HTTP request against its route pattern.
func RecordHTTPRequest(route, statusCode string, duration float64) {
	if !enabled.Load() {
		return
	}
	HTTPRequestsTotal.WithLabelValues(route, statusCode).Inc()
	HTTPRequestDuration.WithLabelValues(route).Observe(duration)
}

// Enable enables metrics collection.
func Enable() {
	enabled.Store(true)
}

// Disable disables metrics collection.
func Disable() {
	enabled.Store(false)
}

// IsEnabled returns whether metrics collection is currently enabled.
func IsEnabled() bool {
	return enabled.Load()
}
