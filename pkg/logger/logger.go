// Package logger provides structured logging with automatic secret redaction
package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Logger wraps zerolog.Logger so call sites never log raw share material.
type Logger struct {
	zlog zerolog.Logger
}

// Config holds logger configuration
type Config struct {
	// Level is the minimum log level (debug, info, warn, error)
	Level string

	// Output is where logs are written (default: os.Stdout)
	Output io.Writer

	// Pretty enables human-readable console output
	Pretty bool
}

// DefaultConfig returns default logger configuration
func DefaultConfig() *Config {
	return &Config{
		Level:  "info",
		Output: os.Stdout,
		Pretty: false,
	}
}

// New creates a new logger with the given configuration
func New(cfg *Config) *Logger {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	output := cfg.Output
	if output == nil {
		output = os.Stdout
	}

	if cfg.Pretty {
		output = zerolog.ConsoleWriter{
			Out:        output,
			TimeFormat: time.RFC3339,
		}
	}

	zlog := zerolog.New(output).
		Level(parseLevel(cfg.Level)).
		With().
		Timestamp().
		Logger()

	return &Logger{zlog: zlog}
}

// Nop returns a logger that discards everything. Useful in tests.
func Nop() *Logger {
	return &Logger{zlog: zerolog.Nop()}
}

func parseLevel(level string) zerolog.Level {
	switch level {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// WithSession returns a child logger carrying session context.
func (l *Logger) WithSession(sessionID, federationID string) *Logger {
	return &Logger{
		zlog: l.zlog.With().
			Str("session_id", sessionID).
			Str("federation_id", federationID).
			Logger(),
	}
}

// WithParticipant returns a child logger carrying participant context.
func (l *Logger) WithParticipant(participantID string) *Logger {
	return &Logger{zlog: l.zlog.With().Str("participant_id", participantID).Logger()}
}

// Debug returns a debug-level event builder.
func (l *Logger) Debug() *zerolog.Event { return l.zlog.Debug() }

// Info returns an info-level event builder.
func (l *Logger) Info() *zerolog.Event { return l.zlog.Info() }

// Warn returns a warn-level event builder.
func (l *Logger) Warn() *zerolog.Event { return l.zlog.Warn() }

// Error returns an error-level event builder.
func (l *Logger) Error() *zerolog.Event { return l.zlog.Error() }

// Redact truncates an identifier-like value for logging. Raw secrets,
// shares, and scalars must never be passed here or anywhere else in a log
// call; this is for opaque IDs that are safe to show a prefix of.
func Redact(value string) string {
	if len(value) == 0 {
		return "<empty>"
	}
	if len(value) <= 8 {
		return "<redacted>"
	}
	return value[:4] + "...<redacted>"
}
