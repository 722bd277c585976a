// Package log provides a structured logging interface for sizefit pipeline
// operations.
//
// The package defines a minimal, slog-compatible logging interface so that
// callers can swap implementations (slog JSON output, test capture, no-op)
// without touching pipeline code. Components receive a Logger by injection;
// nothing in this module logs through a package-level default.
//
// Example usage:
//
//	logger := log.NewLogger("info").With(
//	    log.ComponentKey, "preprocessing",
//	    log.SessionIDKey, sessionID,
//	)
//	logger.Info("fit_transform completed",
//	    log.RowsKey, 1200,
//	    log.FeaturesKey, 14,
//	)
package log

import (
	"context"
)

// Logger defines a structured logging interface compatible with Go's log/slog.
//
// Fields are alternating key-value pairs, as accepted by slog. With returns a
// derived logger carrying pre-populated fields, which is how components attach
// their session and component context once instead of on every call.
type Logger interface {
	// Debug logs a debug-level message with optional structured fields.
	Debug(msg string, fields ...any)

	// Info logs an info-level message with optional structured fields.
	Info(msg string, fields ...any)

	// Warn logs a warning-level message with optional structured fields.
	Warn(msg string, fields ...any)

	// Error logs an error-level message with optional structured fields.
	// If a field value is an error carrying an embedded stacktrace, the
	// backing handler may extract and attach it.
	Error(msg string, fields ...any)

	// With returns a new Logger with the given fields pre-populated.
	With(fields ...any) Logger

	// Enabled reports whether the logger emits records at the given level.
	// Use it to skip expensive attribute construction.
	Enabled(ctx context.Context, level Level) bool
}

// Level represents a logging level, value-compatible with slog.Level.
type Level int

// Standard logging levels, values are compatible with slog.Level.
const (
	LevelDebug Level = -4
	LevelInfo  Level = 0
	LevelWarn  Level = 4
	LevelError Level = 8
)

// String returns the string representation of the log level.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}
