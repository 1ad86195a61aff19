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
	"github.com/jeremyhahn/go-biostore/internal/config"
	"github.com/jeremyhahn/go-biostore/pkg/logging"
	"github.com/jeremyhahn/go-biostore/pkg/metrics"
)

// Reload applies the metrics switch from cfg. Every other section needs
// a restart; a changed logging section is only reported.
func (s *Server) Reload(cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if cfg.Metrics.Enabled != s.config.Metrics.Enabled {
		if cfg.Metrics.Enabled {
			metrics.Enable()
		} else {
			metrics.Disable()
		}
	}

	if cfg.Logging.Level != s.config.Logging.Level || cfg.Logging.Format != s.config.Logging.Format {
		s.logger.Info("Logging configuration changed; restart to apply",
			logging.String("old_level", s.config.Logging.Level),
			logging.String("new_level", cfg.Logging.Level))
	}

	s.config.Metrics = cfg.Metrics
	s.logger.Info("Server configuration reloaded")
	return nil
}
