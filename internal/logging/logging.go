// Package logging configures the process-wide zerolog logger: RFC3339Nano
// timestamps, level driven by LOG_LEVEL.
package logging

import (
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Log is the application-wide logger. The cmd entrypoints pass it to their
// components as is; For derives a child logger tagged with a "component"
// field.
var Log zerolog.Logger

func init() {
	zerolog.TimeFieldFormat = time.RFC3339Nano
	level := parseLevel(os.Getenv("LOG_LEVEL"))
	Log = zerolog.New(os.Stdout).With().Timestamp().Logger().Level(level)
}

func parseLevel(s string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "":
		return zerolog.InfoLevel
	default:
		lvl, err := zerolog.ParseLevel(s)
		if err != nil {
			return zerolog.InfoLevel
		}
		return lvl
	}
}

// For component-scoped derivation: logging.For("ingest") etc.
func For(component string) zerolog.Logger {
	return Log.With().Str("component", component).Logger()
}
