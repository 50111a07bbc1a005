// Package logging defines a minimal structured-logging interface used across
// the project, with slog and zerolog implementations.
package logging

import (
	"context"
	"io"
	"log/slog"
	"strings"

	"github.com/rs/zerolog"
)

// Logger is a context-aware, structured logger.
//
// The variadic args are interpreted as key–value pairs, e.g.:
//
//	log.Info(ctx, "resolved item", "id", id, "kind", kind)
type Logger interface {
	// Debug logs detail useful only while diagnosing.
	Debug(ctx context.Context, msg string, args ...any)

	// Info logs an informational message.
	Info(ctx context.Context, msg string, args ...any)

	// Warn logs a warning message for unusual but non-fatal conditions.
	Warn(ctx context.Context, msg string, args ...any)

	// Error logs an error message for failures.
	Error(ctx context.Context, msg string, args ...any)

	// With returns a child logger that always includes the given key–value pairs.
	With(args ...any) Logger
}

// Output formats accepted by New.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// New builds a Logger writing to w. Format "json" selects zerolog, anything
// else selects slog's text handler. Unknown levels fall back to info.
func New(format, level string, w io.Writer) Logger {
	if strings.EqualFold(format, FormatJSON) {
		zl := zerolog.New(w).Level(zerologLevel(level)).With().Timestamp().Logger()
		return NewZerologLogger(zl)
	}

	return newTextLogger(w, slogLevel(level))
}

const redacted = "[REDACTED]"

// secretKeys are attribute keys whose values never reach the output.
var secretKeys = map[string]bool{
	"password":      true,
	"passphrase":    true,
	"access_token":  true,
	"refresh_token": true,
	"master_key":    true,
}

func isSecret(key string) bool {
	return secretKeys[strings.ToLower(key)]
}

// Nop returns a Logger that discards everything.
func Nop() Logger {
	return NewZerologLogger(zerolog.Nop())
}

func slogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
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

func zerologLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
