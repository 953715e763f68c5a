// internal/logger/logger.go
package logger

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Init configures the global zerolog logger. format is "console" for
// human-readable output or "json" for structured output.
func Init(level, format string) error {
	return initTo(os.Stderr, level, format)
}

func initTo(out io.Writer, level, format string) error {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}
	if lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	switch format {
	case "", "console":
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339})
	case "json":
		log.Logger = zerolog.New(out).With().Timestamp().Logger()
	default:
		return fmt.Errorf("unknown log format %q", format)
	}

	zerolog.SetGlobalLevel(lvl)

	// Add a hook to include the caller's file and line number
	log.Logger = log.With().Caller().Logger()
	return nil
}

// GooseLogger routes migration output through zerolog.
type GooseLogger struct{}

// Printf implements goose.Logger.
func (GooseLogger) Printf(format string, v ...interface{}) {
	log.Info().Str("component", "migrate").Msgf(format, v...)
}

// Fatalf implements goose.Logger. goose calls it on unrecoverable errors.
func (GooseLogger) Fatalf(format string, v ...interface{}) {
	log.Fatal().Str("component", "migrate").Msgf(format, v...)
}
