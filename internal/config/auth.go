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

	"github.com/jeremyhahn/go-biostore/internal/password"
)

// Platform names
const (
	PlatformConsole = "console"
)

// AuthConfig controls the authentication platform and gate
type AuthConfig struct {
	Platform string `yaml:"platform"`

	// MaxFailedAttempts ends a prompt as Failed after this many rejected
	// attempts. Zero leaves the limit to the platform.
	MaxFailedAttempts int `yaml:"max_failed_attempts"`

	// MaxAttempts is how many wrong PINs the console prompt accepts
	// before reporting a lockout.
	MaxAttempts int `yaml:"max_attempts"`

	PINHash PINHashConfig `yaml:"pin_hash"`
}

// PINHashConfig holds the Argon2id cost of the console PIN verifier
type PINHashConfig struct {
	Time      uint32 `yaml:"time"`
	MemoryKiB uint32 `yaml:"memory_kib"`
	Threads   uint8  `yaml:"threads"`
}

// DefaultPINHashConfig mirrors password.DefaultParams.
func DefaultPINHashConfig() PINHashConfig {
	p := password.DefaultParams()
	return PINHashConfig{Time: p.Time, MemoryKiB: p.Memory, Threads: p.Threads}
}

// Params converts the configuration to Argon2id parameters.
func (c PINHashConfig) Params() password.Params {
	p := password.DefaultParams()
	p.Time = c.Time
	p.Memory = c.MemoryKiB
	p.Threads = c.Threads
	return p
}

// Validate checks the auth section.
func (c *AuthConfig) Validate() error {
	switch c.Platform {
	case PlatformConsole:
	default:
		return fmt.Errorf("unknown auth platform: %q", c.Platform)
	}
	if c.MaxFailedAttempts < 0 {
		return fmt.Errorf("auth.max_failed_attempts must not be negative")
	}
	if c.MaxAttempts < 0 {
		return fmt.Errorf("auth.max_attempts must not be negative")
	}
	if c.PINHash.Time == 0 || c.PINHash.MemoryKiB == 0 || c.PINHash.Threads == 0 {
		return fmt.Errorf("auth.pin_hash time, memory_kib and threads must be positive")
	}
	return nil
}
