// Package logging builds the structured loggers used across restmock.
// Components take an injected *slog.Logger; Nop is the default when a caller
// does not care about log output.
package logging

import (
	"io"
	"log/slog"
	"os"
)

// Format selects the log output encoding.
type Format string

const (
	// FormatText emits human-readable key=value lines.
	FormatText Format = "text"
	// FormatJSON emits one JSON object per line.
	FormatJSON Format = "json"
)

// Config holds logger construction options.
type Config struct {
	// Level is the minimum level to emit.
	Level slog.Level
	// Format selects text or JSON output.
	Format Format
	// Output receives the log lines. Defaults to os.Stderr.
	Output io.Writer
}

// New builds a logger from cfg.
func New(cfg Config) *slog.Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	opts := &slog.HandlerOptions{Level: cfg.Level}

	var handler slog.Handler
	if cfg.Format == FormatJSON {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}
	return slog.New(handler)
}

// Nop returns a logger that discards everything.
func Nop() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// ParseLevel maps a level name to a slog.Level. Unknown names (and the empty
// string) resolve to info.
func ParseLevel(s string) slog.Level {
	switch s {
	case "debug", "DEBUG":
		return slog.LevelDebug
	case "warn", "WARN", "warning":
		return slog.LevelWarn
	case "error", "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ParseFormat maps a format name to a Format, defaulting to text.
func ParseFormat(s string) Format {
	if s == "json" || s == "JSON" {
		return FormatJSON
	}
	return FormatText
}
