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

// Package logging provides the structured logging interface used across
// go-biostore and an adapter for log/slog.
package logging

import (
	"context"
	"fmt"
	"strings"
)

// Level represents the log level
type Level int

const (
	// LevelDebug is for detailed debugging information
	LevelDebug Level = iota
	// LevelInfo is for general informational messages
	LevelInfo
	// LevelWarn is for warning messages
	LevelWarn
	// LevelError is for error messages
	LevelError
)

// String returns the string representation of the log level
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel parses a case-insensitive level name.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, nil
	case "", "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	default:
		return LevelInfo, fmt.Errorf("logging: invalid level %q", s)
	}
}

// Logger is the interface for logging adapters.
// Applications implement this interface to integrate their logging system.
type Logger interface {
	// Debug logs a debug message with optional fields
	Debug(msg string, fields ...Field)

	// Info logs an informational message with optional fields
	Info(msg string, fields ...Field)

	// Warn logs a warning message with optional fields
	Warn(msg string, fields ...Field)

	// Error logs an error message with optional fields
	Error(msg string, fields ...Field)

	// With creates a child logger with the given fields
	With(fields ...Field) Logger

	// WithError creates a child logger with an error field
	WithError(err error) Logger
}

// ContextLogger is implemented by loggers that can enrich records from a
// context, such as adding the correlation ID.
type ContextLogger interface {
	Logger
	DebugContext(ctx context.Context, msg string, fields ...Field)
	InfoContext(ctx context.Context, msg string, fields ...Field)
	WarnContext(ctx context.Context, msg string, fields ...Field)
	ErrorContext(ctx context.Context, msg string, fields ...Field)
}

// Field represents a structured logging field
type Field struct {
	Key   string
	Value interface{}
}

// String creates a string field
func String(key, value string) Field {
	return Field{Key: key, Value: value}
}

// Int creates an int field
func Int(key string, value int) Field {
	return Field{Key: key, Value: value}
}

// Int64 creates an int64 field
func Int64(key string, value int64) Field {
	return Field{Key: key, Value: value}
}

// Bool creates a bool field
func Bool(key string, value bool) Field {
	return Field{Key: key, Value: value}
}

// Error creates an error field
func Error(err error) Field {
	return Field{Key: "error", Value: err}
}

// Any creates a field with any value
func Any(key string, value interface{}) Field {
	return Field{Key: key, Value: value}
}

// Strings creates a string slice field
func Strings(key string, values []string) Field {
	return Field{Key: key, Value: values}
}

// DebugCtx logs at debug level with context enrichment when available.
func DebugCtx(ctx context.Context, l Logger, msg string, fields ...Field) {
	if cl, ok := l.(ContextLogger); ok {
		cl.DebugContext(ctx, msg, fields...)
		return
	}
	l.Debug(msg, fields...)
}

// InfoCtx logs at info level with context enrichment when available.
func InfoCtx(ctx context.Context, l Logger, msg string, fields ...Field) {
	if cl, ok := l.(ContextLogger); ok {
		cl.InfoContext(ctx, msg, fields...)
		return
	}
	l.Info(msg, fields...)
}

// WarnCtx logs at warn level with context enrichment when available.
func WarnCtx(ctx context.Context, l Logger, msg string, fields ...Field) {
	if cl, ok := l.(ContextLogger); ok {
		cl.WarnContext(ctx, msg, fields...)
		return
	}
	l.Warn(msg, fields...)
}

// ErrorCtx logs at error level with context enrichment when available.
func ErrorCtx(ctx context.Context, l Logger, msg string, fields ...Field) {
	if cl, ok := l.(ContextLogger); ok {
		cl.ErrorContext(ctx, msg, fields...)
		return
	}
	l.Error(msg, fields...)
}
