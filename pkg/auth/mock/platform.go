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

// Package mock provides a scripted auth.Platform for tests and demos.
package mock

import (
	"context"
	"errors"
	"sync"

	"github.com/jeremyhahn/go-biostore/pkg/auth"
)

// EventKind is a scripted prompt event.
type EventKind int

const (
	// Succeed reports success with the prompt's ticket.
	Succeed EventKind = iota
	// Fail reports a rejected attempt.
	Fail
	// Error reports a terminal error code.
	Error
)

// Event is one scripted callback.
type Event struct {
	Kind    EventKind
	Code    int
	Message string

	// Ticket overrides the ticket passed to OnSucceeded.
	Ticket string
}

// Succeeded returns a success event.
func Succeeded() Event { return Event{Kind: Succeed} }

// Failed returns a rejected attempt event.
func Failed() Event { return Event{Kind: Fail} }

// Errored returns a terminal error event.
func Errored(code int, message string) Event {
	return Event{Kind: Error, Code: code, Message: message}
}

// ErrAuthenticate is returned by Authenticate when FailAuthenticate is set.
var ErrAuthenticate = errors.New("mock: authenticate failed")

// Platform replays scripted events. Each Authenticate call consumes the
// next queued script; with nothing queued it succeeds. When Hold is set,
// prompts stay live until Resolve or Dismiss is called.
type Platform struct {
	mu sync.Mutex

	credentialStatus int
	biometricStatus  int
	fingerprint      string
	scripts          [][]Event
	hold             bool
	failAuthenticate bool

	prompts   []auth.Prompt
	pending   []pendingPrompt
	dismissed int
	checks    int
}

type pendingPrompt struct {
	prompt auth.Prompt
	cb     auth.Callback
}

// New returns a Platform that reports success for every capability
// check and prompt.
func New() *Platform {
	return &Platform{
		credentialStatus: auth.StatusSuccess,
		biometricStatus:  auth.StatusSuccess,
		fingerprint:      "mock-enrollment",
	}
}

// SetStatus sets the codes returned for device credential and biometric
// capability checks.
func (p *Platform) SetStatus(credential, biometric int) *Platform {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.credentialStatus = credential
	p.biometricStatus = biometric
	return p
}

// SetFingerprint changes the enrollment fingerprint.
func (p *Platform) SetFingerprint(fp string) *Platform {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fingerprint = fp
	return p
}

// SetHold makes prompts stay live until resolved or dismissed.
func (p *Platform) SetHold(hold bool) *Platform {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.hold = hold
	return p
}

// SetFailAuthenticate makes Authenticate return ErrAuthenticate.
func (p *Platform) SetFailAuthenticate(fail bool) *Platform {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failAuthenticate = fail
	return p
}

// Enqueue queues the events for the next prompt.
func (p *Platform) Enqueue(events ...Event) *Platform {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.scripts = append(p.scripts, events)
	return p
}

// CanAuthenticate returns the configured status for the authenticator class.
func (p *Platform) CanAuthenticate(_ context.Context, authenticators auth.Authenticators) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.checks++
	if authenticators == auth.DeviceCredential {
		return p.credentialStatus
	}
	return p.biometricStatus
}

// Fingerprint returns the enrollment fingerprint.
func (p *Platform) Fingerprint(context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.fingerprint, nil
}

// Authenticate records the prompt and replays the next script.
func (p *Platform) Authenticate(_ context.Context, prompt auth.Prompt, cb auth.Callback) error {
	p.mu.Lock()
	if p.failAuthenticate {
		p.mu.Unlock()
		return ErrAuthenticate
	}
	p.prompts = append(p.prompts, prompt)
	if p.hold {
		p.pending = append(p.pending, pendingPrompt{prompt: prompt, cb: cb})
		p.mu.Unlock()
		return nil
	}
	events := []Event{Succeeded()}
	if len(p.scripts) > 0 {
		events = p.scripts[0]
		p.scripts = p.scripts[1:]
	}
	p.mu.Unlock()

	replay(prompt, cb, events)
	return nil
}

// Resolve replays events against the oldest held prompt. It reports
// whether a prompt was pending.
func (p *Platform) Resolve(events ...Event) bool {
	p.mu.Lock()
	if len(p.pending) == 0 {
		p.mu.Unlock()
		return false
	}
	pp := p.pending[0]
	p.pending = p.pending[1:]
	p.mu.Unlock()

	replay(pp.prompt, pp.cb, events)
	return true
}

// Dismiss cancels every held prompt.
func (p *Platform) Dismiss() {
	p.mu.Lock()
	p.dismissed++
	pending := p.pending
	p.pending = nil
	p.mu.Unlock()

	for _, pp := range pending {
		pp.cb.OnError(auth.ErrorCanceled, "dismissed")
	}
}

// Prompts returns the prompts shown so far.
func (p *Platform) Prompts() []auth.Prompt {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]auth.Prompt, len(p.prompts))
	copy(out, p.prompts)
	return out
}

// Pending returns the number of held prompts.
func (p *Platform) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.pending)
}

// Dismissals returns the number of Dismiss calls.
func (p *Platform) Dismissals() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.dismissed
}

// CapabilityChecks returns the number of CanAuthenticate calls.
func (p *Platform) CapabilityChecks() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.checks
}

func replay(prompt auth.Prompt, cb auth.Callback, events []Event) {
	for _, e := range events {
		switch e.Kind {
		case Succeed:
			ticket := prompt.Ticket
			if e.Ticket != "" {
				ticket = e.Ticket
			}
			cb.OnSucceeded(ticket)
		case Fail:
			cb.OnFailed()
		case Error:
			cb.OnError(e.Code, e.Message)
		}
	}
}
