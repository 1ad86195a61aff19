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


package cli

import (
	"fmt"
	"io"

	"github.com/spf13/viper"

	"github.com/jeremyhahn/go-biostore/internal/config"
	"github.com/jeremyhahn/go-biostore/internal/server"
)

// Flag names bound into viper. Each is also read from BIOSTORE_<NAME>
// with dashes replaced by underscores.
const (
	flagConfig   = "config"
	flagOutput   = "output"
	flagVerbose  = "verbose"
	flagLogLevel = "log-level"
	flagStorage  = "storage"
	flagDataDir  = "data-dir"
	flagVariant  = "variant"
	flagKeyName  = "key-name"
)

// Config holds global CLI configuration
type Config struct {
	v *viper.Viper

	// Options are passed through to the assembled stack.
	Options *server.Options
}

// NewConfig creates a CLI configuration reading flags and environment
// through v.
func NewConfig(v *viper.Viper, opts *server.Options) *Config {
	if opts == nil {
		opts = &server.Options{}
	}
	return &Config{v: v, Options: opts}
}

// OutputFormat returns the selected output format.
func (c *Config) OutputFormat() string {
	if f := c.v.GetString(flagOutput); f != "" {
		return f
	}
	return string(OutputFormatText)
}

// Verbose reports whether verbose output is enabled.
func (c *Config) Verbose() bool {
	return c.v.GetBool(flagVerbose)
}

// Printer returns a printer for w in the selected format.
func (c *Config) Printer(w io.Writer) *Printer {
	return NewPrinter(c.OutputFormat(), w)
}

// Load reads the configuration file and applies flag overrides on top of
// the file and the BIOSTORE_ environment.
func (c *Config) Load() (*config.Config, error) {
	switch OutputFormat(c.OutputFormat()) {
	case OutputFormatText, OutputFormatJSON:
	default:
		return nil, fmt.Errorf("unknown output format: %s", c.OutputFormat())
	}

	cfg, err := config.Load(c.v.GetString(flagConfig))
	if err != nil {
		return nil, err
	}

	if s := c.v.GetString(flagStorage); s != "" {
		cfg.Storage.Backend = s
	}
	if s := c.v.GetString(flagDataDir); s != "" {
		cfg.Storage.Path = s
	}
	if s := c.v.GetString(flagVariant); s != "" {
		cfg.Keys.Variant = s
	}
	if s := c.v.GetString(flagKeyName); s != "" {
		cfg.Keys.DefaultName = s
	}
	if s := c.v.GetString(flagLogLevel); s != "" {
		cfg.Logging.Level = s
	}
	if c.Verbose() {
		cfg.Logging.Level = "debug"
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Components loads the configuration and assembles the stack. The caller
// closes the returned components.
func (c *Config) Components() (*server.Components, error) {
	cfg, err := c.Load()
	if err != nil {
		return nil, err
	}
	return server.Build(cfg, c.Options)
}
