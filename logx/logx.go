// Package logx implements the core/log facade on top of log/slog.
//
// Overview:
//   - Responsibility: Structured logging with logfmt output, sorted fields,
//     and masking for sensitive values such as bearer tokens
//   - Key Types: Logger implementation, Options for configuration
//   - Concurrency Model: Loggers are safe for concurrent use
//   - Error Semantics: No errors returned; logging failures are dropped
//
// Usage:
//
//	logger := logx.New(logx.WithLevel(slog.LevelDebug))
//	logger.Info("h3 fallback", logx.Str("base_url", url))
package logx

import (
	"context"
	"io"
	"log/slog"
	"os"

	"go.eggybyte.com/duplex/core/identity"
	"go.eggybyte.com/duplex/core/log"
	"go.eggybyte.com/duplex/logx/internal"
)

// Options configures the logger behavior.
type Options struct {
	Level            slog.Level // Minimum log level
	Color            bool       // Colorize the level field only
	Writer           io.Writer  // Output writer (default: os.Stderr)
	SensitiveFields  []string   // Field names to mask (e.g., "token")
	DisableTimestamp bool       // Omit the timestamp field
}

// Option configures logger behavior.
type Option func(*Options)

// WithLevel sets the minimum log level.
func WithLevel(level slog.Level) Option {
	return func(o *Options) { o.Level = level }
}

// WithColor enables colorization of the level field.
func WithColor(enabled bool) Option {
	return func(o *Options) { o.Color = enabled }
}

// WithWriter sets the output writer.
func WithWriter(w io.Writer) Option {
	return func(o *Options) { o.Writer = w }
}

// WithSensitiveFields sets field names whose values are masked in output.
func WithSensitiveFields(fields ...string) Option {
	return func(o *Options) { o.SensitiveFields = fields }
}

// WithTimestamp controls whether records carry a timestamp field.
func WithTimestamp(enabled bool) Option {
	return func(o *Options) { o.DisableTimestamp = !enabled }
}

// Logger implements core/log.Logger using a logfmt slog handler.
type Logger struct {
	handler *internal.Handler
	attrs   []slog.Attr
}

// New creates a Logger with the given options.
func New(opts ...Option) log.Logger {
	options := Options{
		Level:            slog.LevelInfo,
		Writer:           os.Stderr,
		DisableTimestamp: true, // container runtimes stamp their own
	}
	for _, opt := range opts {
		opt(&options)
	}
	if options.Writer == nil {
		options.Writer = os.Stderr
	}

	return &Logger{
		handler: internal.NewHandler(internal.Options{
			Level:            options.Level,
			Color:            options.Color,
			SensitiveFields:  options.SensitiveFields,
			DisableTimestamp: options.DisableTimestamp,
		}, options.Writer),
	}
}

// With returns a new Logger with the given key-value pairs attached.
func (l *Logger) With(kv ...any) log.Logger {
	attrs := append([]slog.Attr{}, l.attrs...)
	attrs = append(attrs, internal.KVToAttrs(kv)...)
	return &Logger{handler: l.handler, attrs: attrs}
}

// Debug logs a debug message.
func (l *Logger) Debug(msg string, kv ...any) {
	l.log(slog.LevelDebug, msg, internal.KVToAttrs(kv))
}

// Info logs an informational message.
func (l *Logger) Info(msg string, kv ...any) {
	l.log(slog.LevelInfo, msg, internal.KVToAttrs(kv))
}

// Warn logs a warning message.
func (l *Logger) Warn(msg string, kv ...any) {
	l.log(slog.LevelWarn, msg, internal.KVToAttrs(kv))
}

// Error logs an error message with the error attached as a field.
func (l *Logger) Error(err error, msg string, kv ...any) {
	attrs := internal.KVToAttrs(kv)
	if err != nil {
		attrs = append([]slog.Attr{slog.Any("error", err)}, attrs...)
	}
	l.log(slog.LevelError, msg, attrs)
}

func (l *Logger) log(level slog.Level, msg string, attrs []slog.Attr) {
	all := append([]slog.Attr{}, l.attrs...)
	all = append(all, attrs...)
	l.handler.LogRecord(level, msg, all)
}

// FromContext returns a logger with request-scoped fields attached
// (correlation id, authenticated subject) when present in the context.
func FromContext(ctx context.Context, base log.Logger) log.Logger {
	var kv []any
	if cid := identity.CorrelationIDFrom(ctx); cid != "" {
		kv = append(kv, log.Str("correlation_id", cid))
	}
	if claims, ok := identity.ClaimsFrom(ctx); ok && claims.Subject != "" {
		kv = append(kv, log.Str("sub", claims.Subject))
	}
	if len(kv) > 0 {
		return base.With(kv...)
	}
	return base
}

// Field helper aliases so callers importing only logx can build pairs.
var (
	Str  = log.Str
	Int  = log.Int
	Bool = log.Bool
	Dur  = log.Dur
)
