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

package rest

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jeremyhahn/go-biostore/pkg/bridge"
	"github.com/jeremyhahn/go-biostore/pkg/logging"
	"github.com/jeremyhahn/go-biostore/pkg/metrics"
	"github.com/jeremyhahn/go-biostore/pkg/ratelimit"
	"github.com/jeremyhahn/go-biostore/pkg/types"
)

// HealthChecker reports the device capability for the health endpoint.
type HealthChecker interface {
	CanAuthenticate(ctx context.Context) types.CapabilityResponse
}

// Server represents the REST API server.
type Server struct {
	server     *http.Server
	dispatcher *bridge.Dispatcher
	health     HealthChecker
	limiter    *ratelimit.Limiter
	tlsConfig  *tls.Config
	logger     logging.Logger
	version    string
	listener   net.Listener
}

// Config holds the REST server configuration.
type Config struct {
	// Address is the host:port to listen on (default: 127.0.0.1:8484)
	Address string

	// Dispatcher runs boundary method calls
	Dispatcher *bridge.Dispatcher

	// Health reports device capability on /health (optional)
	Health HealthChecker

	// Limiter limits requests per client address (optional)
	Limiter *ratelimit.Limiter

	// MetricsPath serves Prometheus metrics when non-empty
	MetricsPath string

	// Version is reported by /health
	Version string

	// TLSConfig enables HTTPS (optional)
	TLSConfig *tls.Config

	// Logger is the logging adapter (optional)
	Logger logging.Logger

	// ReadTimeout is the maximum duration for reading the entire request
	ReadTimeout time.Duration

	// WriteTimeout bounds the whole request, including time spent waiting
	// on an authentication prompt
	WriteTimeout time.Duration

	// IdleTimeout is the maximum amount of time to wait for the next request
	IdleTimeout time.Duration
}

// NewServer creates a new REST API server.
func NewServer(cfg *Config) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if cfg.Dispatcher == nil {
		return nil, fmt.Errorf("dispatcher is required")
	}

	if cfg.Address == "" {
		cfg.Address = "127.0.0.1:8484"
	}
	if cfg.Version == "" {
		cfg.Version = "dev"
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 30 * time.Second
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 5 * time.Minute
	}
	if cfg.IdleTimeout == 0 {
		cfg.IdleTimeout = 60 * time.Second
	}

	log := cfg.Logger
	if log == nil {
		log = logging.NewNop()
	}
	limiter := cfg.Limiter
	if limiter == nil {
		limiter = ratelimit.New(nil)
	}

	s := &Server{
		dispatcher: cfg.Dispatcher,
		health:     cfg.Health,
		limiter:    limiter,
		tlsConfig:  cfg.TLSConfig,
		logger:     log,
		version:    cfg.Version,
	}

	s.server = &http.Server{
		Addr:         cfg.Address,
		Handler:      s.setupRouter(cfg.MetricsPath),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
		TLSConfig:    cfg.TLSConfig,
	}
	return s, nil
}

// setupRouter configures the chi router with all routes and middleware.
func (s *Server) setupRouter(metricsPath string) *chi.Mux {
	r := chi.NewRouter()

	r.Use(s.RecoveryMiddleware())
	r.Use(s.CorrelationMiddleware())
	r.Use(s.LoggingMiddleware())
	r.Use(metrics.HTTPMiddleware)

	r.Get("/health", s.HealthHandler)
	r.Head("/health", s.HealthHandler)

	if metricsPath != "" {
		r.Handle(metricsPath, promhttp.Handler())
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(ratelimit.Middleware(s.limiter))
		r.Post("/methods/{method}", s.MethodHandler)
	})

	return r
}

// Handler returns the server's root handler.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Listen binds the listen address. Start calls it when needed.
func (s *Server) Listen() error {
	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.server.Addr, err)
	}
	s.listener = ln
	return nil
}

// Addr returns the bound address, or the configured one before Listen.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.server.Addr
}

// Start serves until Stop is called.
func (s *Server) Start() error {
	if s.listener == nil {
		if err := s.Listen(); err != nil {
			return err
		}
	}

	var err error
	if s.tlsConfig != nil {
		s.logger.Info("Starting HTTPS server", logging.String("address", s.Addr()))
		err = s.server.ServeTLS(s.listener, "", "")
	} else {
		s.logger.Info("Starting HTTP server", logging.String("address", s.Addr()))
		err = s.server.Serve(s.listener)
	}
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to serve: %w", err)
	}
	return nil
}

// Stop gracefully stops the REST API server.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Shutting down server")

	if err := s.server.Shutdown(ctx); err != nil {
		s.logger.Error("Failed to shutdown server", logging.Error(err))
		return fmt.Errorf("failed to shutdown server: %w", err)
	}

	s.logger.Info("Server stopped")
	return nil
}
