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

// Package validation provides input validation for key names and other
// values that cross the public boundary. Every entry point (library
// facade, boundary dispatcher, REST, CLI) goes through the secret store,
// which enforces these checks before any key is touched.
package validation

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

// MaxNameLength leaves room for the "_public" / "_private" suffixes that
// asymmetric keys append to the name.
const MaxNameLength = 240

var (
	// ErrEmptyName is returned for an empty key name.
	ErrEmptyName = errors.New("name cannot be empty")

	// ErrInvalidName is returned for a key name that fails validation.
	ErrInvalidName = errors.New("invalid name")

	namePattern = regexp.MustCompile(`^[a-zA-Z0-9_\-\.]+$`)
)

// ValidateName validates a key name.
// Prevents path traversal, injection, and other attacks by:
// - Rejecting empty strings
// - Rejecting null bytes and control characters
// - Rejecting absolute paths and parent directory references
// - Allowing only safe characters
// - Enforcing length limits
func ValidateName(name string) error {
	if name == "" {
		return ErrEmptyName
	}

	if strings.Contains(name, "\x00") {
		return fmt.Errorf("%w: contains null byte", ErrInvalidName)
	}

	// Check length before the regex
	if len(name) > MaxNameLength {
		return fmt.Errorf("%w: too long (max %d characters)", ErrInvalidName, MaxNameLength)
	}

	if filepath.IsAbs(name) {
		return fmt.Errorf("%w: cannot be an absolute path", ErrInvalidName)
	}

	cleaned := filepath.Clean(name)
	if cleaned == ".." || strings.HasPrefix(cleaned, "..") || strings.Contains(name, "/") || strings.Contains(name, "\\") {
		return fmt.Errorf("%w: contains path traversal attempt", ErrInvalidName)
	}
	if cleaned != name || strings.Trim(name, ".") == "" {
		return fmt.Errorf("%w: does not name a single path element", ErrInvalidName)
	}

	for _, r := range name {
		if r < 32 || r == 127 {
			return fmt.Errorf("%w: contains control characters", ErrInvalidName)
		}
	}

	if !namePattern.MatchString(name) {
		return fmt.Errorf("%w: contains invalid characters (allowed: a-z, A-Z, 0-9, -, _, .)", ErrInvalidName)
	}

	return nil
}

// SanitizeForLog sanitizes a string for safe logging (prevents log injection).
func SanitizeForLog(s string) string {
	s = strings.Map(func(r rune) rune {
		if r < 32 || r == 127 {
			return -1
		}
		return r
	}, s)

	// Limit length to prevent log flooding
	if len(s) > 256 {
		s = s[:256] + "...[truncated]"
	}

	return s
}
