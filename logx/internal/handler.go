// Package internal contains the logfmt handler behind logx.
package internal

import (
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"
)

// Options configures the handler.
type Options struct {
	Level            slog.Level // Minimum level to emit
	Color            bool       // Colorize the level field only
	SensitiveFields  []string   // Field names whose values are masked
	DisableTimestamp bool       // Omit the time field
}

// Handler writes logfmt records with stable field ordering.
type Handler struct {
	opts   Options
	mu     sync.Mutex
	writer io.Writer
}

// NewHandler creates a Handler writing to w.
func NewHandler(opts Options, w io.Writer) *Handler {
	return &Handler{opts: opts, writer: w}
}

// LogRecord writes a single record if the level is enabled.
func (h *Handler) LogRecord(level slog.Level, msg string, attrs []slog.Attr) {
	if level < h.opts.Level {
		return
	}

	var buf strings.Builder

	if !h.opts.DisableTimestamp {
		buf.WriteString("time=")
		buf.WriteString(time.Now().Format(time.RFC3339))
		buf.WriteString(" ")
	}

	buf.WriteString("level=")
	levelStr := levelString(level)
	if h.opts.Color {
		buf.WriteString(colorizeLevel(levelStr))
	} else {
		buf.WriteString(levelStr)
	}

	// Message is always quoted for consistency.
	buf.WriteString(" msg=")
	fmt.Fprintf(&buf, "%q", msg)

	for _, attr := range sortAttrs(attrs) {
		buf.WriteString(" ")
		buf.WriteString(attr.Key)
		buf.WriteString("=")
		buf.WriteString(h.formatValue(attr.Key, attr.Value))
	}
	buf.WriteString("\n")

	h.mu.Lock()
	defer h.mu.Unlock()
	io.WriteString(h.writer, buf.String())
}

// KVToAttrs converts the facade's key-value pairs into slog attributes.
// Pairs built by log.Str and friends arrive as two-element []any tuples;
// loose key, value sequences are also accepted.
func KVToAttrs(kv []any) []slog.Attr {
	flat := make([]any, 0, len(kv))
	for _, item := range kv {
		if pair, ok := item.([]any); ok && len(pair) == 2 {
			flat = append(flat, pair[0], pair[1])
			continue
		}
		flat = append(flat, item)
	}

	attrs := make([]slog.Attr, 0, len(flat)/2)
	for i := 0; i+1 < len(flat); i += 2 {
		attrs = append(attrs, slog.Any(fmt.Sprintf("%v", flat[i]), flat[i+1]))
	}
	return attrs
}

func sortAttrs(attrs []slog.Attr) []slog.Attr {
	sorted := make([]slog.Attr, len(attrs))
	copy(sorted, attrs)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Key < sorted[j].Key })
	return sorted
}

func (h *Handler) formatValue(key string, v slog.Value) string {
	for _, field := range h.opts.SensitiveFields {
		if strings.EqualFold(key, field) {
			return `"***REDACTED***"`
		}
	}

	switch v.Kind() {
	case slog.KindString:
		return fmt.Sprintf("%q", v.String())
	case slog.KindInt64:
		return fmt.Sprintf("%d", v.Int64())
	case slog.KindUint64:
		return fmt.Sprintf("%d", v.Uint64())
	case slog.KindBool:
		return fmt.Sprintf("%t", v.Bool())
	case slog.KindFloat64:
		f := v.Float64()
		if f == float64(int64(f)) {
			return fmt.Sprintf("%.0f", f)
		}
		return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.6f", f), "0"), ".")
	case slog.KindDuration:
		// Durations in milliseconds for dashboard consistency.
		return fmt.Sprintf("%d", v.Duration().Milliseconds())
	case slog.KindTime:
		return fmt.Sprintf("%q", v.Time().Format(time.RFC3339))
	default:
		return fmt.Sprintf("%q", v.String())
	}
}

func levelString(level slog.Level) string {
	switch level {
	case slog.LevelDebug:
		return "DEBUG"
	case slog.LevelInfo:
		return "INFO"
	case slog.LevelWarn:
		return "WARN"
	case slog.LevelError:
		return "ERROR"
	default:
		return fmt.Sprintf("LEVEL(%d)", level)
	}
}

func colorizeLevel(level string) string {
	const (
		reset  = "\033[0m"
		red    = "\033[31m"
		yellow = "\033[33m"
		cyan   = "\033[36m"
		purple = "\033[35m"
	)
	switch level {
	case "DEBUG":
		return purple + level + reset
	case "INFO":
		return cyan + level + reset
	case "WARN":
		return yellow + level + reset
	case "ERROR":
		return red + level + reset
	default:
		return level
	}
}
