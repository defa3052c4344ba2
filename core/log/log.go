// Package log defines the structured logging facade used across duplex.
//
// Overview:
//   - Responsibility: Stable logging interface decoupled from any backend
//   - Key Types: Logger interface with structured key-value logging
//   - Concurrency Model: Logger implementations must be safe for concurrent use
//   - Error Semantics: Error method accepts the error as first parameter
//
// Usage:
//
//	logger.Info("h3 reattempt", log.Str("base_url", cfg.BaseURL))
package log

import "time"

// Logger is a structured logging interface compatible with slog concepts.
// Implementations must be safe for concurrent use.
type Logger interface {
	// With returns a new Logger with the given key-value pairs attached to
	// every subsequent record.
	With(kv ...any) Logger

	// Debug logs a debug message with optional key-value pairs.
	Debug(msg string, kv ...any)

	// Info logs an informational message with optional key-value pairs.
	Info(msg string, kv ...any)

	// Warn logs a warning message with optional key-value pairs.
	Warn(msg string, kv ...any)

	// Error logs an error message. The error comes first so backends can
	// attach it as a dedicated field.
	Error(err error, msg string, kv ...any)
}

// Str creates a string key-value pair.
func Str(k, v string) any {
	return []any{k, v}
}

// Int creates an integer key-value pair.
func Int(k string, v int) any {
	return []any{k, v}
}

// Bool creates a boolean key-value pair.
func Bool(k string, v bool) any {
	return []any{k, v}
}

// Dur creates a duration key-value pair.
func Dur(k string, v time.Duration) any {
	return []any{k, v}
}

// Any creates a key-value pair for an arbitrary value.
func Any(k string, v any) any {
	return []any{k, v}
}

// Discard returns a Logger that drops every record. Useful as a default in
// components where the caller did not supply a logger and in tests.
func Discard() Logger {
	return discardLogger{}
}

type discardLogger struct{}

func (discardLogger) With(kv ...any) Logger             { return discardLogger{} }
func (discardLogger) Debug(msg string, kv ...any)       {}
func (discardLogger) Info(msg string, kv ...any)        {}
func (discardLogger) Warn(msg string, kv ...any)        {}
func (discardLogger) Error(_ error, _ string, _ ...any) {}
