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

package server

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/afero"

	"github.com/jeremyhahn/go-biostore/internal/config"
	"github.com/jeremyhahn/go-biostore/internal/platform/console"
	"github.com/jeremyhahn/go-biostore/pkg/auth"
	"github.com/jeremyhahn/go-biostore/pkg/bridge"
	"github.com/jeremyhahn/go-biostore/pkg/keystore"
	"github.com/jeremyhahn/go-biostore/pkg/keystore/asymmetric"
	"github.com/jeremyhahn/go-biostore/pkg/keystore/symmetric"
	"github.com/jeremyhahn/go-biostore/pkg/logging"
	"github.com/jeremyhahn/go-biostore/pkg/ratelimit"
	"github.com/jeremyhahn/go-biostore/pkg/secretstore"
	"github.com/jeremyhahn/go-biostore/pkg/storage"
	"github.com/jeremyhahn/go-biostore/pkg/storage/file"
	"github.com/jeremyhahn/go-biostore/pkg/storage/keyring"
	"github.com/jeremyhahn/go-biostore/pkg/storage/memory"
	"github.com/jeremyhahn/go-biostore/pkg/types"
)

// Options override parts of the assembled stack.
type Options struct {
	// Storage replaces the configured backend.
	Storage storage.Backend

	// Fs is the filesystem for the file backend.
	Fs afero.Fs

	// Terminal replaces the console's standard terminal.
	Terminal console.Terminal

	// Platform replaces the console platform. Enrollment must then be set
	// too when keys should follow enrollment changes.
	Platform auth.Platform

	// Enrollment replaces the platform's enrollment source.
	Enrollment keystore.EnrollmentSource

	// Logger replaces the logger built from the logging section.
	Logger logging.Logger

	// LogOutput is where the built logger writes. Defaults to os.Stderr.
	LogOutput io.Writer
}

// Components is the assembled biostore stack.
type Components struct {
	Logger     logging.Logger
	Storage    storage.Backend
	Console    *console.Platform
	KeyStore   *keystore.Store
	Gate       *auth.Gate
	Store      *secretstore.Store
	Dispatcher *bridge.Dispatcher
}

// Build assembles storage, platform, key store, gate and secret store
// from cfg.
func Build(cfg *config.Config, opts *Options) (*Components, error) {
	if opts == nil {
		opts = &Options{}
	}

	logger := opts.Logger
	if logger == nil {
		logger = NewLogger(cfg.Logging, opts.LogOutput)
	}

	backend := opts.Storage
	if backend == nil {
		var err error
		backend, err = OpenStorage(&cfg.Storage, cfg.Passphrase(), opts.Fs)
		if err != nil {
			return nil, err
		}
	}

	c := &Components{Logger: logger, Storage: backend}

	platform := opts.Platform
	enrollment := opts.Enrollment
	if platform == nil {
		cp, err := console.New(&console.Config{
			Storage:     backend,
			Terminal:    opts.Terminal,
			Logger:      logger.With(logging.String("component", "console")),
			Params:      ptr(cfg.Auth.PINHash.Params()),
			MaxAttempts: cfg.Auth.MaxAttempts,
		})
		if err != nil {
			_ = backend.Close()
			return nil, err
		}
		c.Console = cp
		platform = cp
		if enrollment == nil {
			enrollment = cp
		}
	}

	kcfg := &keystore.Config{
		Storage:    backend,
		Enrollment: enrollment,
		Logger:     logger.With(logging.String("component", "keystore")),
	}
	var err error
	switch cfg.KeyVariant() {
	case types.KeyVariantAsymmetric:
		c.KeyStore, err = asymmetric.New(kcfg)
	default:
		c.KeyStore, err = symmetric.New(kcfg)
	}
	if err != nil {
		_ = backend.Close()
		return nil, fmt.Errorf("failed to create key store: %w", err)
	}

	c.Gate, err = auth.NewGate(&auth.Config{
		Platform:          platform,
		Logger:            logger.With(logging.String("component", "auth")),
		MaxFailedAttempts: cfg.Auth.MaxFailedAttempts,
	})
	if err != nil {
		_ = backend.Close()
		return nil, err
	}

	c.Store, err = secretstore.New(&secretstore.Config{
		KeyStore:               c.KeyStore,
		Gate:                   c.Gate,
		Limiter:                ratelimit.New(&cfg.RateLimit.Prompts),
		Logger:                 logger,
		RecreateOnInvalidation: cfg.Keys.RecreateOnInvalidation,
		DefaultName:            cfg.Keys.DefaultName,
	})
	if err != nil {
		_ = backend.Close()
		return nil, err
	}

	c.Dispatcher = bridge.NewDispatcher(c.Store, logger, cfg.Server.PlatformVersion)
	return c, nil
}

// Close releases the secret store and the storage backend.
func (c *Components) Close() error {
	var errs []error
	if c.Store != nil {
		errs = append(errs, c.Store.Close())
	}
	if c.Storage != nil {
		errs = append(errs, c.Storage.Close())
	}
	return errors.Join(errs...)
}

// OpenStorage opens the configured storage backend.
func OpenStorage(cfg *config.StorageConfig, passphrase []byte, fs afero.Fs) (storage.Backend, error) {
	switch cfg.Backend {
	case config.StorageMemory:
		return memory.New(), nil

	case config.StorageFile:
		backend, err := file.New(&file.Config{
			RootDir:    cfg.Path,
			Fs:         fs,
			Passphrase: passphrase,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to open file storage: %w", err)
		}
		return backend, nil

	case config.StorageKeyring:
		kc := &keyring.Config{
			ServiceName:     cfg.Keyring.Service,
			AllowedBackends: cfg.Keyring.AllowedBackends,
			FileDir:         cfg.Keyring.FileDir,
		}
		if len(passphrase) > 0 {
			kc.FilePassword = func() (string, error) { return string(passphrase), nil }
		}
		return keyring.New(kc)

	default:
		return nil, fmt.Errorf("unknown storage backend: %q", cfg.Backend)
	}
}

// NewLogger builds the slog-backed logger for cfg. A nil out writes to
// os.Stderr.
func NewLogger(cfg config.LoggingConfig, out io.Writer) logging.Logger {
	level, err := logging.ParseLevel(cfg.Level)
	if err != nil {
		level = logging.LevelInfo
	}
	if out == nil {
		out = os.Stderr
	}
	return logging.NewSlogAdapter(&logging.SlogConfig{
		Level:  level,
		Format: cfg.Format,
		Output: out,
	})
}

func ptr[T any](v T) *T {
	return &v
}
