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

package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jeremyhahn/go-biostore/pkg/ratelimit"
	"github.com/jeremyhahn/go-biostore/pkg/storage/keyring"
	"github.com/jeremyhahn/go-biostore/pkg/types"
	"github.com/jeremyhahn/go-biostore/pkg/validation"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "BIOSTORE_"

// Storage backend names
const (
	StorageMemory  = "memory"
	StorageFile    = "file"
	StorageKeyring = "keyring"
)

// Config represents the complete biostore configuration
type Config struct {
	Logging   LoggingConfig   `yaml:"logging"`
	Storage   StorageConfig   `yaml:"storage"`
	Keys      KeysConfig      `yaml:"keys"`
	Auth      AuthConfig      `yaml:"auth"`
	RateLimit RateLimitConfig `yaml:"ratelimit"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Server    ServerConfig    `yaml:"server"`
}

// LoggingConfig controls logging behavior
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// StorageConfig selects where key material and enrollment records live
type StorageConfig struct {
	Backend string `yaml:"backend"` // memory, file, keyring
	Path    string `yaml:"path"`

	// PassphraseEnv names the environment variable holding the file
	// backend passphrase. When unset or empty, records are stored unsealed.
	PassphraseEnv string `yaml:"passphrase_env"`

	Keyring KeyringConfig `yaml:"keyring"`
}

// KeyringConfig configures the OS credential store backend
type KeyringConfig struct {
	Service         string   `yaml:"service"`
	AllowedBackends []string `yaml:"allowed_backends,omitempty"`
	FileDir         string   `yaml:"file_dir,omitempty"`
}

// KeysConfig controls key generation
type KeysConfig struct {
	Variant                string `yaml:"variant"` // symmetric, asymmetric
	DefaultName            string `yaml:"default_name"`
	RecreateOnInvalidation bool   `yaml:"recreate_on_invalidation"`
}

// RateLimitConfig limits prompts per key and HTTP requests per client
type RateLimitConfig struct {
	Prompts ratelimit.Config `yaml:"prompts"`
	HTTP    ratelimit.Config `yaml:"http"`
}

// MetricsConfig controls the metrics endpoint
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// ServerConfig controls the local HTTP surface
type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	PlatformVersion string        `yaml:"platform_version,omitempty"`
	TLS             TLSConfig     `yaml:"tls"`
}

// Address returns host:port.
func (s ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// DefaultDataDir returns ~/.biostore, or ./.biostore when the home
// directory cannot be determined.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".biostore"
	}
	return filepath.Join(home, ".biostore")
}

// Default returns a working configuration: file storage under the data
// directory, symmetric keys and the console platform on loopback.
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Storage: StorageConfig{
			Backend:       StorageFile,
			Path:          DefaultDataDir(),
			PassphraseEnv: EnvPrefix + "PASSPHRASE",
			Keyring: KeyringConfig{
				Service: keyring.DefaultServiceName,
			},
		},
		Keys: KeysConfig{
			Variant:                string(types.KeyVariantSymmetric),
			DefaultName:            types.DefaultKeyName,
			RecreateOnInvalidation: true,
		},
		Auth: AuthConfig{
			Platform:    PlatformConsole,
			MaxAttempts: 5,
			PINHash:     DefaultPINHashConfig(),
		},
		RateLimit: RateLimitConfig{
			Prompts: ratelimit.Config{Enabled: false, RequestsPerMinute: 10, Burst: 3},
			HTTP:    ratelimit.Config{Enabled: true, RequestsPerMinute: 120, Burst: 20},
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
		Server: ServerConfig{
			Host:            "127.0.0.1",
			Port:            8484,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    5 * time.Minute,
			ShutdownTimeout: 10 * time.Second,
			TLS: TLSConfig{
				MinVersion: "TLS1.2",
			},
		},
	}
}

// Load reads configuration from a YAML file over the defaults and applies
// environment variable overrides. An empty path loads the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		// #nosec G304 - Config file path is provided by the user
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// applyEnvOverrides applies BIOSTORE_* environment variable overrides
func applyEnvOverrides(cfg *Config) {
	if level := os.Getenv(EnvPrefix + "LOG_LEVEL"); level != "" {
		cfg.Logging.Level = level
	}
	if format := os.Getenv(EnvPrefix + "LOG_FORMAT"); format != "" {
		cfg.Logging.Format = format
	}

	if backend := os.Getenv(EnvPrefix + "STORAGE"); backend != "" {
		cfg.Storage.Backend = backend
	}
	if dataDir := os.Getenv(EnvPrefix + "DATA_DIR"); dataDir != "" {
		cfg.Storage.Path = dataDir
	}

	if variant := os.Getenv(EnvPrefix + "KEY_VARIANT"); variant != "" {
		cfg.Keys.Variant = variant
	}
	if name := os.Getenv(EnvPrefix + "KEY_NAME"); name != "" {
		cfg.Keys.DefaultName = name
	}

	if host := os.Getenv(EnvPrefix + "HOST"); host != "" {
		cfg.Server.Host = host
	}
	if port := os.Getenv(EnvPrefix + "PORT"); port != "" {
		p, err := strconv.Atoi(port)
		if err != nil {
			log.Printf("Warning: invalid %sPORT value %q, using %d: %v",
				EnvPrefix, port, cfg.Server.Port, err)
		} else if p < 1 || p > 65535 {
			log.Printf("Warning: invalid %sPORT value %q (out of range 1-65535), using %d",
				EnvPrefix, port, cfg.Server.Port)
		} else {
			cfg.Server.Port = p
		}
	}

	if attempts := os.Getenv(EnvPrefix + "MAX_FAILED_ATTEMPTS"); attempts != "" {
		n, err := strconv.Atoi(attempts)
		if err != nil || n < 0 {
			log.Printf("Warning: invalid %sMAX_FAILED_ATTEMPTS value %q, using %d",
				EnvPrefix, attempts, cfg.Auth.MaxFailedAttempts)
		} else {
			cfg.Auth.MaxFailedAttempts = n
		}
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	validLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "warning": true, "error": true,
	}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logging.Level)
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[strings.ToLower(c.Logging.Format)] {
		return fmt.Errorf("invalid log format: %s (must be json or text)", c.Logging.Format)
	}

	switch c.Storage.Backend {
	case StorageMemory:
	case StorageFile:
		if c.Storage.Path == "" {
			return fmt.Errorf("storage path is required for the file backend")
		}
	case StorageKeyring:
		if c.Storage.Keyring.Service == "" {
			return fmt.Errorf("keyring service is required for the keyring backend")
		}
	default:
		return fmt.Errorf("invalid storage backend: %q (must be memory, file, or keyring)", c.Storage.Backend)
	}

	if _, err := types.ParseKeyVariant(c.Keys.Variant); err != nil {
		return err
	}
	if err := validation.ValidateName(c.Keys.DefaultName); err != nil {
		return fmt.Errorf("invalid default key name: %w", err)
	}

	if err := c.Auth.Validate(); err != nil {
		return err
	}

	for name, rl := range map[string]ratelimit.Config{"prompts": c.RateLimit.Prompts, "http": c.RateLimit.HTTP} {
		if rl.Enabled && rl.RequestsPerMinute <= 0 {
			return fmt.Errorf("ratelimit.%s.requests_per_minute must be positive when enabled", name)
		}
	}

	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Path, "/") {
		return fmt.Errorf("metrics path must start with '/': %q", c.Metrics.Path)
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.TLS.Enabled {
		if c.Server.TLS.CertFile == "" {
			return fmt.Errorf("TLS cert_file is required when TLS is enabled")
		}
		if c.Server.TLS.KeyFile == "" {
			return fmt.Errorf("TLS key_file is required when TLS is enabled")
		}
	}

	return nil
}

// KeyVariant returns the parsed key variant. Call after Validate.
func (c *Config) KeyVariant() types.KeyVariant {
	v, _ := types.ParseKeyVariant(c.Keys.Variant)
	return v
}

// Passphrase returns the file backend passphrase from the configured
// environment variable.
func (c *Config) Passphrase() []byte {
	if c.Storage.PassphraseEnv == "" {
		return nil
	}
	if p := os.Getenv(c.Storage.PassphraseEnv); p != "" {
		return []byte(p)
	}
	return nil
}
