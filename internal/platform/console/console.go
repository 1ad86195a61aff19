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

// Package console implements the device authenticator on a desktop
// terminal. The enrolled credential is a PIN whose Argon2id verifier is
// kept in the storage backend; a prompt reads the PIN without echo.
// Changing the PIN changes the enrollment fingerprint, which
// invalidates every key bound to the previous one.
package console

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/jeremyhahn/go-biostore/internal/password"
	"github.com/jeremyhahn/go-biostore/pkg/auth"
	"github.com/jeremyhahn/go-biostore/pkg/logging"
	"github.com/jeremyhahn/go-biostore/pkg/storage"
)

// EnrollmentID is the storage id of the PIN verifier.
const EnrollmentID = "console"

// DefaultMaxAttempts is the number of wrong PINs a prompt accepts before
// it reports a lockout.
const DefaultMaxAttempts = 5

// Config configures the console platform.
type Config struct {
	Storage     storage.Backend
	Terminal    Terminal
	Logger      logging.Logger
	Params      *password.Params
	MaxAttempts int
}

// Platform is an auth.Platform backed by a terminal PIN prompt.
type Platform struct {
	storage     storage.Backend
	term        Terminal
	logger      logging.Logger
	params      password.Params
	maxAttempts int

	mu     sync.Mutex
	active *session
}

type session struct {
	cb        auth.Callback
	dismissed bool
}

// New creates a console Platform.
func New(config *Config) (*Platform, error) {
	if config == nil || config.Storage == nil {
		return nil, errors.New("console: storage is required")
	}
	t := config.Terminal
	if t == nil {
		t = NewStdTerminal()
	}
	logger := config.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	params := password.DefaultParams()
	if config.Params != nil {
		params = *config.Params
	}
	maxAttempts := config.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	return &Platform{
		storage:     config.Storage,
		term:        t,
		logger:      logger,
		params:      params,
		maxAttempts: maxAttempts,
	}, nil
}

// Enrolled reports whether a PIN is enrolled.
func (p *Platform) Enrolled() (bool, error) {
	return p.storage.Exists(storage.EnrollmentPath(EnrollmentID))
}

// Enroll sets or replaces the PIN.
func (p *Platform) Enroll(pin []byte) error {
	pwd, err := password.NewClearPassword(pin)
	if err != nil {
		return err
	}
	defer pwd.Clear()

	v, err := password.NewVerifier(pwd, p.params, nil)
	if err != nil {
		return err
	}
	data, err := v.Marshal()
	if err != nil {
		return fmt.Errorf("console: failed to encode verifier: %w", err)
	}

	opts := storage.DefaultOptions()
	opts.Label = "biostore console PIN"
	if err := p.storage.Put(storage.EnrollmentPath(EnrollmentID), data, opts); err != nil {
		return fmt.Errorf("console: failed to store verifier: %w", err)
	}
	p.logger.Info("Console PIN enrolled")
	return nil
}

// Unenroll removes the PIN.
func (p *Platform) Unenroll() error {
	return storage.DeleteIfExists(p.storage, storage.EnrollmentPath(EnrollmentID))
}

// Fingerprint returns a SHA-256 of the stored verifier, or an empty
// string when no PIN is enrolled.
func (p *Platform) Fingerprint(context.Context) (string, error) {
	data, err := p.storage.Get(storage.EnrollmentPath(EnrollmentID))
	if errors.Is(err, storage.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// CanAuthenticate reports the console's capability. The same PIN serves
// every authenticator class.
func (p *Platform) CanAuthenticate(_ context.Context, _ auth.Authenticators) int {
	if !p.term.IsTerminal() {
		return auth.StatusHwUnavailable
	}
	ok, err := p.Enrolled()
	if err != nil {
		p.logger.Warn("Failed to read console enrollment", logging.Error(err))
		return auth.StatusUnknown
	}
	if !ok {
		return auth.StatusNoneEnrolled
	}
	return auth.StatusSuccess
}

// Authenticate prompts for the PIN until it is entered correctly, the
// user cancels, the attempts run out or the prompt is dismissed. It
// blocks for the life of the prompt.
func (p *Platform) Authenticate(ctx context.Context, prompt auth.Prompt, cb auth.Callback) error {
	data, err := p.storage.Get(storage.EnrollmentPath(EnrollmentID))
	if errors.Is(err, storage.ErrNotFound) {
		cb.OnError(auth.ErrorNoDeviceCredential, "No PIN enrolled")
		return nil
	}
	if err != nil {
		return fmt.Errorf("console: failed to read enrollment: %w", err)
	}
	verifier, err := password.ParseVerifier(data)
	if err != nil {
		return err
	}

	s := &session{cb: cb}
	p.mu.Lock()
	p.active = s
	p.mu.Unlock()
	defer func() {
		p.mu.Lock()
		if p.active == s {
			p.active = nil
		}
		p.mu.Unlock()
	}()

	p.render(prompt)

	for attempt := 1; ; attempt++ {
		if p.isDismissed(s) {
			return nil
		}
		if ctx.Err() != nil {
			p.fire(s, func() { cb.OnError(auth.ErrorCanceled, ctx.Err().Error()) })
			return nil
		}

		input, err := p.term.ReadSecret("PIN: ")
		if p.isDismissed(s) {
			return nil
		}
		if errors.Is(err, io.EOF) || (err == nil && len(strings.TrimSpace(string(input))) == 0) {
			p.fire(s, func() { cb.OnError(auth.ErrorNegativeButton, prompt.Config.NegativeButtonLabel) })
			return nil
		}
		if err != nil {
			p.fire(s, func() { cb.OnError(auth.ErrorUnableToProcess, err.Error()) })
			return nil
		}

		ok, err := p.verify(verifier, input)
		if err != nil {
			p.fire(s, func() { cb.OnError(auth.ErrorUnableToProcess, err.Error()) })
			return nil
		}
		if ok {
			p.fire(s, func() { cb.OnSucceeded(prompt.Ticket) })
			return nil
		}

		p.term.Println("Incorrect PIN")
		p.fire(s, cb.OnFailed)
		if attempt >= p.maxAttempts {
			p.fire(s, func() { cb.OnError(auth.ErrorLockout, "Too many attempts. Try again later.") })
			return nil
		}
	}
}

// Dismiss closes the live prompt. The prompt reports ErrorCanceled.
func (p *Platform) Dismiss() {
	p.mu.Lock()
	s := p.active
	if s == nil || s.dismissed {
		p.mu.Unlock()
		return
	}
	s.dismissed = true
	p.mu.Unlock()

	s.cb.OnError(auth.ErrorCanceled, "Prompt dismissed")
}

func (p *Platform) render(prompt auth.Prompt) {
	cfg := prompt.Config
	p.term.Println(cfg.Title)
	if cfg.Subtitle != "" {
		p.term.Println(cfg.Subtitle)
	}
	if cfg.Description != "" {
		p.term.Println(cfg.Description)
	}
	p.term.Println(fmt.Sprintf("Press Enter to %s.", strings.ToLower(cfg.NegativeButtonLabel)))
}

func (p *Platform) verify(v *password.Verifier, input []byte) (bool, error) {
	pwd, err := password.NewClearPassword([]byte(strings.TrimSpace(string(input))))
	for i := range input {
		input[i] = 0
	}
	if err != nil {
		return false, err
	}
	defer pwd.Clear()
	return v.Verify(pwd)
}

func (p *Platform) isDismissed(s *session) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return s.dismissed
}

// fire delivers a callback unless the prompt was dismissed.
func (p *Platform) fire(s *session, fn func()) {
	if p.isDismissed(s) {
		return
	}
	fn()
}

var (
	_ auth.Platform  = (*Platform)(nil)
	_ auth.Dismisser = (*Platform)(nil)
)
