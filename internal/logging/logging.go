// Package logging builds the slog loggers shared by the executor, the
// runner and the dependent types.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/yourorg/restspec/internal/config"
)

// Format is the log output format.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// Options controls logger construction.
type Options struct {
	Level  slog.Level
	Format Format
	Output io.Writer
}

// New creates a logger writing to opts.Output (stderr when nil).
func New(opts Options) *slog.Logger {
	if opts.Output == nil {
		opts.Output = os.Stderr
	}
	hopts := &slog.HandlerOptions{Level: opts.Level}
	if opts.Format == FormatJSON {
		return slog.New(slog.NewJSONHandler(opts.Output, hopts))
	}
	return slog.New(slog.NewTextHandler(opts.Output, hopts))
}

// FromConfig creates a logger from the log section of the config.
func FromConfig(cfg config.LogConfig, out io.Writer) *slog.Logger {
	return New(Options{
		Level:  ParseLevel(cfg.Level),
		Format: ParseFormat(cfg.Format),
		Output: out,
	})
}

// Nop returns a logger that discards everything.
func Nop() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// ParseLevel parses debug/info/warn/error, defaulting to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ParseFormat parses text/json, defaulting to text.
func ParseFormat(s string) Format {
	if strings.EqualFold(strings.TrimSpace(s), "json") {
		return FormatJSON
	}
	return FormatText
}
