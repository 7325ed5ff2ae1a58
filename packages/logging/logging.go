// Package logging builds the slog loggers used by the CLI and handed to the
// HTTP transports.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// EnvLevel overrides the level when no explicit level is given.
const EnvLevel = "HTTPDEBUG_LOG_LEVEL"

// ParseLevel maps "debug", "info", "warn"/"warning" and "error" onto slog
// levels. An empty string means info.
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level %q", level)
}

// Options configure New.
type Options struct {
	Level  string
	Format string // "text" or "json"
	Writer io.Writer
}

// New builds a logger. An empty level falls back to HTTPDEBUG_LOG_LEVEL,
// then info; output goes to stderr unless a writer is set.
func New(opts Options) (*slog.Logger, error) {
	lvl := opts.Level
	if lvl == "" {
		lvl = os.Getenv(EnvLevel)
	}
	level, err := ParseLevel(lvl)
	if err != nil {
		return nil, err
	}
	w := opts.Writer
	if w == nil {
		w = os.Stderr
	}
	handlerOpts := &slog.HandlerOptions{Level: level}
	switch strings.ToLower(opts.Format) {
	case "", "text":
		return slog.New(slog.NewTextHandler(w, handlerOpts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, handlerOpts)), nil
	}
	return nil, fmt.Errorf("unknown log format %q", opts.Format)
}

// Discard returns a logger that drops every record.
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
