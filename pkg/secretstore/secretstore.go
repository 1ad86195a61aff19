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

// Package secretstore orchestrates biometric-gated encryption of small
// secrets. Store seals a UTF-8 value under a named key after the user
// authenticates; Retrieve opens a sealed blob the same way.
//
// Every operation queries device capability first. When the device
// cannot authenticate the result carries the capability and no prompt is
// shown. A prompt the user dismisses, or that times out, yields a
// declined result rather than an error.
package secretstore

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/jeremyhahn/go-biostore/pkg/auth"
	"github.com/jeremyhahn/go-biostore/pkg/cipher"
	"github.com/jeremyhahn/go-biostore/pkg/codec"
	"github.com/jeremyhahn/go-biostore/pkg/correlation"
	"github.com/jeremyhahn/go-biostore/pkg/keystore"
	"github.com/jeremyhahn/go-biostore/pkg/logging"
	"github.com/jeremyhahn/go-biostore/pkg/metrics"
	"github.com/jeremyhahn/go-biostore/pkg/ratelimit"
	"github.com/jeremyhahn/go-biostore/pkg/types"
	"github.com/jeremyhahn/go-biostore/pkg/validation"
)

// Config configures a Store.
type Config struct {
	KeyStore keystore.KeyStore
	Gate     *auth.Gate

	// Factory binds cipher contexts. Defaults to a factory over crypto/rand.
	Factory *cipher.Factory

	// Limiter throttles prompts per key name. Nil disables throttling.
	Limiter *ratelimit.Limiter

	Logger logging.Logger

	// RecreateOnInvalidation replaces an invalidated key and retries once
	// when sealing. Blobs sealed under the old key become unreadable.
	RecreateOnInvalidation bool

	// DefaultName is the key name bound before Initialize is called.
	// Defaults to types.DefaultKeyName.
	DefaultName string
}

// Result is the outcome of a facade operation that did not fail.
type Result struct {
	// Capability is the device capability observed at the start of the
	// operation. Anything but CapabilitySuccess means no prompt was shown.
	Capability types.CapabilityResponse

	// Declined is set when the prompt was canceled, dismissed or timed out.
	Declined bool

	// DeclineReason classifies a declined prompt.
	DeclineReason types.AuthErrorKind

	// Value is the opened secret.
	Value string

	// Blob is the sealed secret as base64 text.
	Blob string
}

// Completed reports whether the operation produced a value or blob.
func (r *Result) Completed() bool {
	return r.Capability.OK() && !r.Declined
}

// Store is the secret store facade.
type Store struct {
	keys     keystore.KeyStore
	gate     *auth.Gate
	factory  *cipher.Factory
	limiter  *ratelimit.Limiter
	logger   logging.Logger
	recreate bool

	mu          sync.Mutex
	inflight    map[string]struct{}
	defaultName string
}

// New creates a Store.
func New(config *Config) (*Store, error) {
	if config == nil || config.KeyStore == nil || config.Gate == nil {
		return nil, fmt.Errorf("%w: key store and gate are required", ErrInvalidConfig)
	}

	factory := config.Factory
	if factory == nil {
		factory = cipher.NewFactory(nil)
	}
	logger := config.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	limiter := config.Limiter
	if limiter == nil {
		limiter = ratelimit.New(nil)
	}
	defaultName := config.DefaultName
	if defaultName == "" {
		defaultName = types.DefaultKeyName
	}
	if err := validation.ValidateName(defaultName); err != nil {
		return nil, fmt.Errorf("%w: default name: %v", ErrInvalidConfig, err)
	}

	return &Store{
		keys:        config.KeyStore,
		gate:        config.Gate,
		factory:     factory,
		limiter:     limiter,
		logger:      logger.With(logging.String("variant", config.KeyStore.Variant().String())),
		recreate:    config.RecreateOnInvalidation,
		inflight:    make(map[string]struct{}),
		defaultName: defaultName,
	}, nil
}

// Variant returns the key variant the store seals with.
func (s *Store) Variant() types.KeyVariant {
	return s.keys.Variant()
}

// DefaultName returns the name bound by the last Initialize.
func (s *Store) DefaultName() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.defaultName
}

// CanAuthenticate reports whether the device can authenticate right now.
func (s *Store) CanAuthenticate(ctx context.Context) types.CapabilityResponse {
	start := time.Now()
	resp := s.gate.CheckCapability(ctx)
	metrics.RecordOperation(metrics.OpCanAuthenticate, s.Variant().String(), metrics.StatusSuccess, time.Since(start).Seconds())
	return resp
}

// Initialize binds name as the default key name and reports whether the
// device can authenticate.
func (s *Store) Initialize(ctx context.Context, name string) (bool, error) {
	start := time.Now()
	if err := validateName(name); err != nil {
		s.record(metrics.OpInitialize, metrics.StatusError, start)
		return false, err
	}

	s.mu.Lock()
	s.defaultName = name
	s.mu.Unlock()

	ok := s.gate.CheckCapability(ctx).OK()
	s.record(metrics.OpInitialize, metrics.StatusSuccess, start)
	logging.DebugCtx(ctx, s.logger, "Key name bound",
		logging.String("key", name),
		logging.Bool("can_authenticate", ok))
	return ok, nil
}

// Store seals plaintext under the key called name.
func (s *Store) Store(ctx context.Context, name, plaintext string, prompt types.PromptConfig) (*Result, error) {
	ctx, _ = correlation.Ensure(ctx)
	start := time.Now()

	res, err := s.store(ctx, name, plaintext, prompt)
	s.finish(ctx, metrics.OpStore, name, res, err, start)
	return res, err
}

func (s *Store) store(ctx context.Context, name, plaintext string, prompt types.PromptConfig) (*Result, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}
	if err := validatePrompt(prompt); err != nil {
		return nil, err
	}
	if !utf8.ValidString(plaintext) {
		return nil, &InputError{Field: "content", Err: ErrInvalidContent}
	}

	release, err := s.acquire(name)
	if err != nil {
		return nil, err
	}
	defer release()

	capability := s.gate.CheckCapability(ctx)
	if !capability.OK() {
		return &Result{Capability: capability}, nil
	}

	h, err := s.keys.GetOrCreate(ctx, name)
	if err != nil {
		return nil, err
	}

	c, err := s.factory.ForSeal(h)
	if errors.Is(err, keystore.ErrKeyInvalidated) && s.recreate {
		logging.WarnCtx(ctx, s.logger, "Key invalidated at bind time, recreating",
			logging.String("key", name))
		metrics.RecordKeyRecreation(s.Variant().String(), metrics.ReasonInvalidated)
		if err := s.keys.Delete(ctx, name); err != nil {
			return nil, err
		}
		if h, err = s.keys.GetOrCreate(ctx, name); err != nil {
			return nil, err
		}
		c, err = s.factory.ForSeal(h)
	}
	if err != nil {
		return nil, err
	}

	if c.RequiresAuth() {
		res, err := s.authenticate(ctx, c, prompt)
		if res != nil || err != nil {
			return res, err
		}
	}

	blob, err := codec.Seal(plaintext, c)
	if err != nil {
		if errors.Is(err, cipher.ErrPlaintextTooLarge) {
			return nil, &InputError{Field: "content", Err: err}
		}
		return nil, &SecurityError{Op: "seal", Err: err}
	}

	return &Result{Capability: capability, Blob: codec.Encode(blob)}, nil
}

// Retrieve opens the base64 blob with the key called name.
func (s *Store) Retrieve(ctx context.Context, name, blob string, prompt types.PromptConfig) (*Result, error) {
	ctx, _ = correlation.Ensure(ctx)
	start := time.Now()

	res, err := s.retrieve(ctx, name, blob, prompt)
	s.finish(ctx, metrics.OpRetrieve, name, res, err, start)
	return res, err
}

func (s *Store) retrieve(ctx context.Context, name, text string, prompt types.PromptConfig) (*Result, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}
	if err := validatePrompt(prompt); err != nil {
		return nil, err
	}

	release, err := s.acquire(name)
	if err != nil {
		return nil, err
	}
	defer release()

	capability := s.gate.CheckCapability(ctx)
	if !capability.OK() {
		return &Result{Capability: capability}, nil
	}

	blob, err := codec.Decode(text)
	if err != nil {
		return nil, &SecurityError{Op: "decode", Err: err}
	}

	h, err := s.keys.GetOrCreate(ctx, name)
	if err != nil {
		return nil, err
	}
	if h.Created() {
		// A fresh key cannot open anything sealed before it existed.
		logging.WarnCtx(ctx, s.logger, "Blob was sealed under a key that no longer exists",
			logging.String("key", name),
			logging.Bool("recreated", h.Recreated()))
		return nil, &SecurityError{Op: "bind", Err: keystore.ErrKeyInvalidated}
	}

	c, err := s.factory.ForOpen(h, blob.IV())
	if err != nil {
		if errors.Is(err, keystore.ErrKeyInvalidated) {
			return nil, &SecurityError{Op: "bind", Err: err}
		}
		return nil, err
	}

	if c.RequiresAuth() {
		res, err := s.authenticate(ctx, c, prompt)
		if res != nil || err != nil {
			return res, err
		}
	}

	value, err := codec.Open(blob, c)
	if err != nil {
		return nil, &SecurityError{Op: "open", Err: err}
	}

	return &Result{Capability: capability, Value: value}, nil
}

// Remove deletes the key called name. Removing a missing key is not an error.
func (s *Store) Remove(ctx context.Context, name string) error {
	start := time.Now()
	if err := validateName(name); err != nil {
		s.record(metrics.OpRemove, metrics.StatusError, start)
		return err
	}

	if err := s.keys.Delete(ctx, name); err != nil {
		s.record(metrics.OpRemove, metrics.StatusError, start)
		return err
	}
	s.record(metrics.OpRemove, metrics.StatusSuccess, start)
	logging.InfoCtx(ctx, s.logger, "Key removed", logging.String("key", name))
	return nil
}

// Dismiss asks the platform to close any live prompt.
func (s *Store) Dismiss() {
	s.gate.Dismiss()
}

// Close releases background resources.
func (s *Store) Close() error {
	s.limiter.Stop()
	return nil
}

// authenticate runs the challenge for c. It returns a non-nil Result
// when the prompt was declined, an error when it failed, and neither
// when c is now authenticated.
func (s *Store) authenticate(ctx context.Context, c *cipher.Context, prompt types.PromptConfig) (*Result, error) {
	if !s.limiter.Allow(c.KeyName()) {
		return nil, ErrRateLimited
	}

	outcome, err := s.gate.ChallengeWait(ctx, c, prompt)
	if err != nil {
		return nil, err
	}

	switch outcome.Kind {
	case auth.OutcomeSucceeded:
		return nil, nil
	case auth.OutcomeCanceled:
		logging.InfoCtx(ctx, s.logger, "Authentication declined",
			logging.String("key", c.KeyName()),
			logging.String("reason", outcome.Error.String()))
		return &Result{
			Capability:    types.CapabilitySuccess,
			Declined:      true,
			DeclineReason: outcome.Error,
		}, nil
	default:
		return nil, &AuthError{Kind: outcome.Error, Message: outcome.Message}
	}
}

// acquire marks name in flight and returns the release function.
func (s *Store) acquire(name string) (func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, busy := s.inflight[name]; busy {
		return nil, ErrOperationInFlight
	}
	s.inflight[name] = struct{}{}
	return func() {
		s.mu.Lock()
		delete(s.inflight, name)
		s.mu.Unlock()
	}, nil
}

func (s *Store) finish(ctx context.Context, op, name string, res *Result, err error, start time.Time) {
	variant := s.Variant().String()
	switch {
	case err != nil:
		s.record(op, metrics.StatusError, start)
		metrics.RecordError(op, variant, errorType(err))
		logging.ErrorCtx(ctx, s.logger, "Operation failed",
			logging.String("operation", op),
			logging.String("key", validation.SanitizeForLog(name)),
			logging.Error(err))
	case res.Declined || !res.Capability.OK():
		s.record(op, metrics.StatusDeclined, start)
		logging.DebugCtx(ctx, s.logger, "Operation not completed",
			logging.String("operation", op),
			logging.String("key", name),
			logging.String("capability", res.Capability.String()),
			logging.Bool("declined", res.Declined))
	default:
		s.record(op, metrics.StatusSuccess, start)
		logging.DebugCtx(ctx, s.logger, "Operation completed",
			logging.String("operation", op),
			logging.String("key", name))
	}
}

func (s *Store) record(op, status string, start time.Time) {
	metrics.RecordOperation(op, s.Variant().String(), status, time.Since(start).Seconds())
}

func errorType(err error) string {
	var (
		inputErr    *InputError
		authErr     *AuthError
		securityErr *SecurityError
	)
	switch {
	case errors.As(err, &inputErr):
		return "input"
	case errors.As(err, &authErr):
		return "auth_" + authErr.Kind.String()
	case errors.As(err, &securityErr):
		return "security_" + securityErr.Op
	case errors.Is(err, ErrOperationInFlight):
		return "in_flight"
	case errors.Is(err, ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "context"
	default:
		return "internal"
	}
}

func validateName(name string) error {
	if err := validation.ValidateName(name); err != nil {
		return &InputError{Field: "name", Err: err}
	}
	return nil
}

func validatePrompt(prompt types.PromptConfig) error {
	if err := prompt.Validate(); err != nil {
		return &InputError{Field: "prompt", Err: err}
	}
	return nil
}
