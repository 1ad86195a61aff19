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

// Package auth mediates interactive biometric or device-credential
// verification. A Gate checks whether the device can authenticate and
// runs one prompt at a time, binding a successful prompt to the cipher
// context it was started for.
package auth

import (
	"context"
	"fmt"
	"sync"

	"github.com/jeremyhahn/go-biostore/pkg/cipher"
	"github.com/jeremyhahn/go-biostore/pkg/logging"
	"github.com/jeremyhahn/go-biostore/pkg/metrics"
	"github.com/jeremyhahn/go-biostore/pkg/types"
)

// State is the gate's prompt state.
type State int

const (
	StateIdle State = iota
	StatePrompting
)

func (s State) String() string {
	if s == StatePrompting {
		return "prompting"
	}
	return "idle"
}

// Config configures a Gate.
type Config struct {
	Platform Platform
	Logger   logging.Logger

	// MaxFailedAttempts resolves a challenge as failed after this many
	// rejected attempts. Zero leaves the limit to the platform.
	MaxFailedAttempts int
}

// Gate runs authentication challenges against a Platform.
type Gate struct {
	platform          Platform
	logger            logging.Logger
	maxFailedAttempts int

	mu    sync.Mutex
	state State
}

// NewGate creates a Gate.
func NewGate(config *Config) (*Gate, error) {
	if config == nil || config.Platform == nil {
		return nil, ErrNoPlatform
	}
	if config.MaxFailedAttempts < 0 {
		return nil, fmt.Errorf("auth: max failed attempts must not be negative")
	}
	logger := config.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Gate{
		platform:          config.Platform,
		logger:            logger,
		maxFailedAttempts: config.MaxFailedAttempts,
	}, nil
}

// State returns the current prompt state.
func (g *Gate) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// CheckCapability reports whether the device can authenticate right now.
// A device with no credential enrolled is reported as having no
// biometrics enrolled.
func (g *Gate) CheckCapability(ctx context.Context) types.CapabilityResponse {
	resp := g.checkCapability(ctx)
	metrics.RecordCapabilityCheck(resp.String())
	return resp
}

func (g *Gate) checkCapability(ctx context.Context) types.CapabilityResponse {
	credential := g.platform.CanAuthenticate(ctx, DeviceCredential)
	logging.DebugCtx(ctx, g.logger, "Device credential capability", logging.Int("status", credential))
	if credential == StatusNoneEnrolled {
		return types.CapabilityErrorNoBiometricEnrolled
	}

	status := g.platform.CanAuthenticate(ctx, BiometricStrong|BiometricWeak)
	switch status {
	case StatusSuccess:
		return types.CapabilitySuccess
	case StatusHwUnavailable:
		return types.CapabilityErrorHwUnavailable
	case StatusNoneEnrolled:
		return types.CapabilityErrorNoBiometricEnrolled
	case StatusNoHardware:
		return types.CapabilityErrorNoHardware
	case StatusPasscodeNotSet:
		return types.CapabilityErrorPasscodeNotSet
	case StatusUnknown:
		return types.CapabilityErrorStatusUnknown
	default:
		logging.WarnCtx(ctx, g.logger, "Unknown capability status", logging.Int("status", status))
		return types.CapabilityErrorStatusUnknown
	}
}

// Challenge starts a prompt for c and returns immediately. done is called
// exactly once, from another goroutine, with the outcome. Only one
// challenge may be prompting at a time.
func (g *Gate) Challenge(ctx context.Context, c *cipher.Context, prompt types.PromptConfig, done func(Outcome)) error {
	if c == nil {
		return ErrNilContext
	}
	if err := prompt.Validate(); err != nil {
		return err
	}

	g.mu.Lock()
	if g.state == StatePrompting {
		g.mu.Unlock()
		return ErrPromptInFlight
	}
	g.state = StatePrompting
	g.mu.Unlock()

	prompt.ConfirmationRequired = false

	ch := &challenge{
		gate:   g,
		ctx:    ctx,
		cipher: c,
		done:   done,
	}

	logging.DebugCtx(ctx, g.logger, "Prompting for authentication",
		logging.String("key", c.KeyName()),
		logging.String("intent", c.Intent().String()))

	go func() {
		if err := g.platform.Authenticate(ctx, Prompt{Config: prompt, Ticket: c.ID()}, ch); err != nil {
			ch.resolve(Outcome{Kind: OutcomeError, Error: types.AuthErrorUnknown, Message: err.Error()})
		}
	}()
	return nil
}

// ChallengeWait runs a challenge and blocks until it resolves or ctx
// ends. When ctx ends first the platform is asked to dismiss the prompt
// and ctx.Err() is returned; the gate stays prompting until the platform
// reports the dismissal.
func (g *Gate) ChallengeWait(ctx context.Context, c *cipher.Context, prompt types.PromptConfig) (Outcome, error) {
	result := make(chan Outcome, 1)
	if err := g.Challenge(ctx, c, prompt, func(o Outcome) { result <- o }); err != nil {
		return Outcome{}, err
	}

	select {
	case o := <-result:
		return o, nil
	case <-ctx.Done():
		g.Dismiss()
		return Outcome{}, ctx.Err()
	}
}

// Dismiss asks the platform to close a live prompt, if it supports that.
func (g *Gate) Dismiss() {
	if d, ok := g.platform.(Dismisser); ok {
		d.Dismiss()
	}
}

func (g *Gate) release() {
	g.mu.Lock()
	g.state = StateIdle
	g.mu.Unlock()
}

// challenge receives platform callbacks for one prompt.
type challenge struct {
	gate   *Gate
	ctx    context.Context
	cipher *cipher.Context
	done   func(Outcome)

	once     sync.Once
	mu       sync.Mutex
	failures int
	resolved bool
}

func (ch *challenge) OnSucceeded(ticket string) {
	if ch.isResolved() {
		return
	}
	if err := ch.cipher.Authenticate(ticket); err != nil {
		ch.resolve(Outcome{Kind: OutcomeError, Error: types.AuthErrorUnknown, Message: err.Error()})
		return
	}
	ch.resolve(Outcome{Kind: OutcomeSucceeded, Cipher: ch.cipher})
}

func (ch *challenge) OnFailed() {
	ch.mu.Lock()
	if ch.resolved {
		ch.mu.Unlock()
		return
	}
	ch.failures++
	failures := ch.failures
	ch.mu.Unlock()

	metrics.RecordFailedAttempt()
	logging.InfoCtx(ch.ctx, ch.gate.logger, "Authentication attempt rejected",
		logging.Int("attempt", failures))

	limit := ch.gate.maxFailedAttempts
	if limit > 0 && failures >= limit {
		// Dismiss before release so it cannot close a newer prompt.
		ch.resolveWith(Outcome{
			Kind:    OutcomeFailed,
			Error:   types.AuthErrorFailed,
			Message: fmt.Sprintf("%d failed attempts", failures),
		}, ch.gate.Dismiss)
	}
}

func (ch *challenge) OnError(code int, message string) {
	o := ClassifyError(code, message)
	if o.Kind == OutcomeError {
		logging.WarnCtx(ch.ctx, ch.gate.logger, "Authentication error",
			logging.Int("code", code),
			logging.String("message", message))
	}
	ch.resolve(o)
}

func (ch *challenge) isResolved() bool {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	return ch.resolved
}

func (ch *challenge) resolve(o Outcome) {
	ch.resolveWith(o, nil)
}

// resolveWith settles the challenge once. beforeRelease runs after the
// challenge is marked resolved and before the gate accepts a new prompt;
// callbacks it triggers on this challenge are ignored.
func (ch *challenge) resolveWith(o Outcome, beforeRelease func()) {
	ch.mu.Lock()
	if ch.resolved {
		ch.mu.Unlock()
		return
	}
	ch.resolved = true
	ch.mu.Unlock()

	ch.once.Do(func() {
		if beforeRelease != nil {
			beforeRelease()
		}
		ch.gate.release()
		metrics.RecordPrompt(o.Kind.String())
		logging.DebugCtx(ch.ctx, ch.gate.logger, "Authentication resolved",
			logging.String("outcome", o.Kind.String()),
			logging.String("error_kind", o.Error.String()))

		if ch.done != nil {
			ch.done(o)
		}
	})
}
