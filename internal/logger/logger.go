// Package logger configures the structured logger used across netbuilder.
//
// All components log through zerolog; this package only owns the writer,
// format and level setup so that commands and tests configure logging the
// same way.
package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Config holds the logger configuration.
type Config struct {
	// Level is one of debug, info, warn, error. Defaults to info.
	Level string

	// Format is "console" for human-readable output or "json" for
	// machine-readable output. Defaults to console.
	Format string

	// Output is the destination writer. Defaults to os.Stderr.
	Output io.Writer
}

// New creates a configured zerolog logger.
func New(cfg Config) zerolog.Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}

	if cfg.Format != "json" {
		out = zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: time.RFC3339,
		}
	}

	return zerolog.New(out).
		Level(ParseLevel(cfg.Level)).
		With().
		Timestamp().
		Logger()
}

// ParseLevel maps a level name to a zerolog level. Unknown names fall back
// to info.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zerolog.DebugLevel
	case "info", "":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
