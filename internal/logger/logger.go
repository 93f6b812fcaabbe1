// Package logger builds the daemon's slog logger.
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// LevelTrace is below debug; per-cycle detail is logged at this level.
const LevelTrace = slog.Level(-8)

// Output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// ParseLevel converts a level name. Matching is case-insensitive.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "TRACE":
		return LevelTrace, nil
	case "DEBUG":
		return slog.LevelDebug, nil
	case "", "INFO":
		return slog.LevelInfo, nil
	case "WARN", "WARNING":
		return slog.LevelWarn, nil
	case "ERROR":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level: %q", s)
}

// New returns a logger writing to w in the given format. The returned
// LevelVar changes the level of the logger and every logger derived from it.
func New(w io.Writer, format string, level slog.Level) (*slog.Logger, *slog.LevelVar, error) {
	lv := new(slog.LevelVar)
	lv.Set(level)
	opts := &slog.HandlerOptions{
		Level: lv,
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if a.Key == slog.LevelKey {
				if l, ok := a.Value.Any().(slog.Level); ok && l == LevelTrace {
					a.Value = slog.StringValue("TRACE")
				}
			}
			return a
		},
	}

	var h slog.Handler
	switch strings.ToLower(format) {
	case "", FormatText:
		h = slog.NewTextHandler(w, opts)
	case FormatJSON:
		h = slog.NewJSONHandler(w, opts)
	default:
		return nil, nil, fmt.Errorf("unknown log format: %q", format)
	}
	return slog.New(h), lv, nil
}
