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
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime/debug"
	"sync"
	"syscall"
	"time"

	"github.com/jeremyhahn/go-biostore/internal/config"
	"github.com/jeremyhahn/go-biostore/internal/rest"
	"github.com/jeremyhahn/go-biostore/pkg/logging"
	"github.com/jeremyhahn/go-biostore/pkg/metrics"
	"github.com/jeremyhahn/go-biostore/pkg/ratelimit"
)

// Server runs the local HTTP surface over the assembled stack
type Server struct {
	config     *config.Config
	mu         sync.RWMutex
	components *Components
	logger     logging.Logger

	restServer  *rest.Server
	httpLimiter *ratelimit.Limiter

	wg         sync.WaitGroup
	errCh      chan error
	shutdownCh chan struct{}
	closeOnce  sync.Once
}

// New creates a server for cfg.
func New(cfg *config.Config, opts *Options) (*Server, error) {
	components, err := Build(cfg, opts)
	if err != nil {
		return nil, err
	}

	if cfg.Metrics.Enabled {
		metrics.Enable()
	} else {
		metrics.Disable()
	}

	tlsConfig, err := cfg.Server.TLS.LoadTLSConfig()
	if err != nil {
		_ = components.Close()
		return nil, fmt.Errorf("failed to load TLS configuration: %w", err)
	}

	metricsPath := ""
	if cfg.Metrics.Enabled {
		metricsPath = cfg.Metrics.Path
	}

	httpLimiter := ratelimit.New(&cfg.RateLimit.HTTP)
	restServer, err := rest.NewServer(&rest.Config{
		Address:      cfg.Server.Address(),
		Dispatcher:   components.Dispatcher,
		Health:       components.Store,
		Limiter:      httpLimiter,
		MetricsPath:  metricsPath,
		Version:      getBuildVersion(),
		TLSConfig:    tlsConfig,
		Logger:       components.Logger.With(logging.String("component", "rest")),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	})
	if err != nil {
		httpLimiter.Stop()
		_ = components.Close()
		return nil, fmt.Errorf("failed to create REST server: %w", err)
	}

	return &Server{
		config:      cfg,
		components:  components,
		logger:      components.Logger,
		restServer:  restServer,
		httpLimiter: httpLimiter,
		errCh:       make(chan error, 1),
		shutdownCh:  make(chan struct{}),
	}, nil
}

// getBuildVersion retrieves the version from build information
func getBuildVersion() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return "dev"
	}

	for _, setting := range info.Settings {
		if setting.Key == "vcs.revision" && setting.Value != "" {
			if len(setting.Value) >= 7 {
				return setting.Value[:7]
			}
			return setting.Value
		}
	}

	if info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}
	return "dev"
}

// Start binds the listen address and serves in the background.
func (s *Server) Start() error {
	if err := s.restServer.Listen(); err != nil {
		return err
	}

	s.logger.Info("Starting biostore server",
		logging.String("address", s.restServer.Addr()),
		logging.String("variant", s.components.Store.Variant().String()),
		logging.String("storage", s.config.Storage.Backend))

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.restServer.Start(); err != nil {
			s.logger.Error("REST server failed", logging.Error(err))
			s.errCh <- err
		}
	}()
	return nil
}

// Addr returns the bound address.
func (s *Server) Addr() string {
	return s.restServer.Addr()
}

// Errors reports a serve failure.
func (s *Server) Errors() <-chan error {
	return s.errCh
}

// Components returns the assembled stack.
func (s *Server) Components() *Components {
	return s.components
}

// Shutdown stops the HTTP surface, dismisses any live prompt and closes
// the stack.
func (s *Server) Shutdown() error {
	var shutdownErr error
	s.closeOnce.Do(func() {
		s.logger.Info("Shutting down server...")

		timeout := s.config.Server.ShutdownTimeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		// A request blocked on a prompt holds the shutdown open.
		s.components.Store.Dismiss()

		if err := s.restServer.Stop(ctx); err != nil {
			s.logger.Error("Error shutting down REST server", logging.Error(err))
			shutdownErr = err
		}
		s.wg.Wait()

		s.httpLimiter.Stop()
		if err := s.components.Close(); err != nil {
			s.logger.Error("Error closing components", logging.Error(err))
			if shutdownErr == nil {
				shutdownErr = err
			}
		}

		close(s.shutdownCh)
		s.logger.Info("Server shutdown complete")
	})
	return shutdownErr
}

// WaitForShutdown blocks until the server is shut down
func (s *Server) WaitForShutdown() {
	<-s.shutdownCh
}

// SetupSignalHandler returns a context canceled on SIGINT or SIGTERM.
func SetupSignalHandler() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
