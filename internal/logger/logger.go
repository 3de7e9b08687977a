package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Setup configures the global zerolog logger. format is "json" or "console";
// unknown levels fall back to info. Output goes to stderr so the stdio MCP
// transport keeps stdout to itself.
func Setup(level, format string) zerolog.Logger {
	return setup(os.Stderr, level, format)
}

func setup(out io.Writer, level, format string) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339
	zerolog.SetGlobalLevel(ParseLevel(level))

	var w io.Writer = out
	if strings.ToLower(format) != "json" {
		w = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	log.Logger = zerolog.New(w).With().Timestamp().Str("service", "claudememkeep").Logger()
	return log.Logger
}

// ParseLevel parses raw, defaulting to info.
func ParseLevel(raw string) zerolog.Level {
	if raw == "" {
		return zerolog.InfoLevel
	}
	level, err := zerolog.ParseLevel(strings.ToLower(raw))
	if err != nil || level == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return level
}
