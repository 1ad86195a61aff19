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

package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeremyhahn/go-biostore/pkg/auth"
	"github.com/jeremyhahn/go-biostore/pkg/auth/mock"
	"github.com/jeremyhahn/go-biostore/pkg/cipher"
	"github.com/jeremyhahn/go-biostore/pkg/keystore"
	"github.com/jeremyhahn/go-biostore/pkg/keystore/symmetric"
	"github.com/jeremyhahn/go-biostore/pkg/storage/memory"
	"github.com/jeremyhahn/go-biostore/pkg/types"
)

var unlockPrompt = types.PromptConfig{
	Title:                "Unlock",
	NegativeButtonLabel:  "Cancel",
	ConfirmationRequired: true,
}

func newGate(t *testing.T, p *mock.Platform, maxFailed int) *auth.Gate {
	t.Helper()
	g, err := auth.NewGate(&auth.Config{Platform: p, MaxFailedAttempts: maxFailed})
	require.NoError(t, err)
	return g
}

func newSealContext(t *testing.T) *cipher.Context {
	t.Helper()
	ks, err := symmetric.New(&keystore.Config{Storage: memory.New()})
	require.NoError(t, err)
	h, err := ks.GetOrCreate(context.Background(), "vault1")
	require.NoError(t, err)
	c, err := cipher.NewFactory(nil).ForSeal(h)
	require.NoError(t, err)
	return c
}

func TestNewGate(t *testing.T) {
	_, err := auth.NewGate(nil)
	assert.ErrorIs(t, err, auth.ErrNoPlatform)

	_, err = auth.NewGate(&auth.Config{Platform: mock.New(), MaxFailedAttempts: -1})
	assert.Error(t, err)
}

func TestCheckCapability(t *testing.T) {
	tests := []struct {
		name       string
		credential int
		biometric  int
		want       types.CapabilityResponse
	}{
		{"success", auth.StatusSuccess, auth.StatusSuccess, types.CapabilitySuccess},
		{"credential none enrolled", auth.StatusNoneEnrolled, auth.StatusSuccess, types.CapabilityErrorNoBiometricEnrolled},
		{"biometric none enrolled", auth.StatusSuccess, auth.StatusNoneEnrolled, types.CapabilityErrorNoBiometricEnrolled},
		{"hardware unavailable", auth.StatusSuccess, auth.StatusHwUnavailable, types.CapabilityErrorHwUnavailable},
		{"no hardware", auth.StatusSuccess, auth.StatusNoHardware, types.CapabilityErrorNoHardware},
		{"passcode not set", auth.StatusSuccess, auth.StatusPasscodeNotSet, types.CapabilityErrorPasscodeNotSet},
		{"status unknown", auth.StatusSuccess, auth.StatusUnknown, types.CapabilityErrorStatusUnknown},
		{"security update", auth.StatusSuccess, auth.StatusSecurityUpdateRequired, types.CapabilityErrorStatusUnknown},
		{"unmapped code", auth.StatusSuccess, 42, types.CapabilityErrorStatusUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := mock.New().SetStatus(tt.credential, tt.biometric)
			g := newGate(t, p, 0)
			assert.Equal(t, tt.want, g.CheckCapability(context.Background()))
		})
	}
}

func TestChallengeWait_Succeeded(t *testing.T) {
	p := mock.New()
	g := newGate(t, p, 0)
	c := newSealContext(t)

	o, err := g.ChallengeWait(context.Background(), c, unlockPrompt)
	require.NoError(t, err)
	assert.Equal(t, auth.OutcomeSucceeded, o.Kind)
	assert.Same(t, c, o.Cipher)
	assert.True(t, c.Authenticated())
	assert.Equal(t, auth.StateIdle, g.State())

	prompts := p.Prompts()
	require.Len(t, prompts, 1)
	assert.Equal(t, "Unlock", prompts[0].Config.Title)
	assert.False(t, prompts[0].Config.ConfirmationRequired)
	assert.Equal(t, c.ID(), prompts[0].Ticket)
}

func TestChallengeWait_Errors(t *testing.T) {
	tests := []struct {
		name string
		code int
		kind auth.OutcomeKind
		want types.AuthErrorKind
	}{
		{"canceled", auth.ErrorCanceled, auth.OutcomeCanceled, types.AuthErrorCanceled},
		{"timeout", auth.ErrorTimeout, auth.OutcomeCanceled, types.AuthErrorTimeout},
		{"user canceled", auth.ErrorUserCanceled, auth.OutcomeCanceled, types.AuthErrorUserCanceled},
		{"negative button", auth.ErrorNegativeButton, auth.OutcomeCanceled, types.AuthErrorUserCanceled},
		{"lockout", auth.ErrorLockout, auth.OutcomeError, types.AuthErrorUnknown},
		{"vendor", auth.ErrorVendor, auth.OutcomeError, types.AuthErrorUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := mock.New().Enqueue(mock.Errored(tt.code, tt.name))
			g := newGate(t, p, 0)
			c := newSealContext(t)

			o, err := g.ChallengeWait(context.Background(), c, unlockPrompt)
			require.NoError(t, err)
			assert.Equal(t, tt.kind, o.Kind)
			assert.Equal(t, tt.want, o.Error)
			assert.Equal(t, tt.name, o.Message)
			assert.Nil(t, o.Cipher)
			assert.False(t, c.Authenticated())
			assert.Equal(t, auth.StateIdle, g.State())
		})
	}
}

func TestChallengeWait_FailedAttemptsStayLive(t *testing.T) {
	p := mock.New().Enqueue(mock.Failed(), mock.Failed(), mock.Succeeded())
	g := newGate(t, p, 0)

	o, err := g.ChallengeWait(context.Background(), newSealContext(t), unlockPrompt)
	require.NoError(t, err)
	assert.Equal(t, auth.OutcomeSucceeded, o.Kind)
}

func TestChallengeWait_MaxFailedAttempts(t *testing.T) {
	p := mock.New().Enqueue(mock.Failed(), mock.Failed(), mock.Succeeded())
	g := newGate(t, p, 2)
	c := newSealContext(t)

	o, err := g.ChallengeWait(context.Background(), c, unlockPrompt)
	require.NoError(t, err)
	assert.Equal(t, auth.OutcomeFailed, o.Kind)
	assert.Equal(t, types.AuthErrorFailed, o.Error)
	assert.Equal(t, 1, p.Dismissals())

	// The late success is ignored.
	assert.False(t, c.Authenticated())
	assert.Equal(t, auth.StateIdle, g.State())
}

func TestChallengeWait_TicketMismatch(t *testing.T) {
	p := mock.New().Enqueue(mock.Event{Kind: mock.Succeed, Ticket: "forged"})
	g := newGate(t, p, 0)
	c := newSealContext(t)

	o, err := g.ChallengeWait(context.Background(), c, unlockPrompt)
	require.NoError(t, err)
	assert.Equal(t, auth.OutcomeError, o.Kind)
	assert.False(t, c.Authenticated())
}

func TestChallengeWait_PlatformError(t *testing.T) {
	p := mock.New().SetFailAuthenticate(true)
	g := newGate(t, p, 0)

	o, err := g.ChallengeWait(context.Background(), newSealContext(t), unlockPrompt)
	require.NoError(t, err)
	assert.Equal(t, auth.OutcomeError, o.Kind)
	assert.Equal(t, types.AuthErrorUnknown, o.Error)
	assert.Equal(t, auth.StateIdle, g.State())
}

// stateAtDismiss records the gate state each time the platform is asked
// to dismiss.
type stateAtDismiss struct {
	*mock.Platform
	gate   *auth.Gate
	states []auth.State
}

func (p *stateAtDismiss) Dismiss() {
	p.states = append(p.states, p.gate.State())
	p.Platform.Dismiss()
}

func TestChallengeWait_MaxFailedAttemptsDismissesBeforeRelease(t *testing.T) {
	p := &stateAtDismiss{Platform: mock.New().Enqueue(mock.Failed())}
	g, err := auth.NewGate(&auth.Config{Platform: p, MaxFailedAttempts: 1})
	require.NoError(t, err)
	p.gate = g

	o, err := g.ChallengeWait(context.Background(), newSealContext(t), unlockPrompt)
	require.NoError(t, err)
	assert.Equal(t, auth.OutcomeFailed, o.Kind)
	assert.Equal(t, []auth.State{auth.StatePrompting}, p.states)
	assert.Equal(t, auth.StateIdle, g.State())
}

func TestChallenge_RejectsSecondPrompt(t *testing.T) {
	p := mock.New().SetHold(true)
	g := newGate(t, p, 0)

	done := make(chan auth.Outcome, 1)
	require.NoError(t, g.Challenge(context.Background(), newSealContext(t), unlockPrompt, func(o auth.Outcome) {
		done <- o
	}))
	assert.Equal(t, auth.StatePrompting, g.State())

	err := g.Challenge(context.Background(), newSealContext(t), unlockPrompt, func(auth.Outcome) {})
	assert.ErrorIs(t, err, auth.ErrPromptInFlight)

	require.Eventually(t, func() bool { return p.Pending() == 1 }, time.Second, time.Millisecond)
	require.True(t, p.Resolve(mock.Succeeded()))

	select {
	case o := <-done:
		assert.Equal(t, auth.OutcomeSucceeded, o.Kind)
	case <-time.After(time.Second):
		t.Fatal("challenge did not resolve")
	}
	assert.Equal(t, auth.StateIdle, g.State())

	// The gate accepts a new prompt once idle.
	p.SetHold(false)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err = g.ChallengeWait(ctx, newSealContext(t), unlockPrompt)
	assert.NoError(t, err)
}

func TestChallengeWait_ContextCanceled(t *testing.T) {
	p := mock.New().SetHold(true)
	g := newGate(t, p, 0)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		deadline := time.Now().Add(time.Second)
		for p.Pending() == 0 && time.Now().Before(deadline) {
			time.Sleep(time.Millisecond)
		}
		cancel()
	}()

	_, err := g.ChallengeWait(ctx, newSealContext(t), unlockPrompt)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, p.Dismissals())
	assert.Eventually(t, func() bool { return g.State() == auth.StateIdle }, time.Second, time.Millisecond)
}

func TestChallenge_Validation(t *testing.T) {
	g := newGate(t, mock.New(), 0)

	err := g.Challenge(context.Background(), nil, unlockPrompt, nil)
	assert.ErrorIs(t, err, auth.ErrNilContext)

	err = g.Challenge(context.Background(), newSealContext(t), types.PromptConfig{Title: "Unlock"}, nil)
	assert.ErrorIs(t, err, types.ErrInvalidPromptConfig)
	assert.Equal(t, auth.StateIdle, g.State())
}

func TestClassifyError(t *testing.T) {
	o := auth.ClassifyError(auth.ErrorLockoutPermanent, "locked")
	assert.Equal(t, auth.OutcomeError, o.Kind)
	assert.Equal(t, types.AuthErrorUnknown, o.Error)
	assert.Equal(t, "locked", o.Message)

	assert.Equal(t, "canceled", auth.OutcomeCanceled.String())
	assert.Equal(t, "prompting", auth.StatePrompting.String())
}
