// Package logx builds the process logger.
package logx

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// New builds a console zerolog logger at the given level (debug, info, warn,
// error). Unknown levels fall back to info.
func New(level string) zerolog.Logger {
	return NewWriter(os.Stdout, level)
}

// NewWriter is New with an explicit destination.
func NewWriter(w io.Writer, level string) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339Nano
	output := zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: time.RFC3339,
		NoColor:    w != os.Stdout,
	}
	return zerolog.New(output).Level(ParseLevel(level)).With().Timestamp().Logger()
}

// ParseLevel maps a config level name to a zerolog level.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "info", "":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "off", "disabled":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}
