// Package logger wraps zap with the fields and sane defaults every worker,
// cache, and store component in this module logs through.
package logger

import "go.uber.org/zap"

// Logger wraps a zap.Logger so call sites can use it as a lightweight
// facade without importing zap directly everywhere.
type Logger struct {
	*zap.Logger
}

// NewLogger builds a production zap logger (JSON encoding, info level).
func NewLogger() (*Logger, error) {
	zapLogger, err := zap.NewProduction()
	if err != nil {
		return nil, err
	}

	return &Logger{Logger: zapLogger}, nil
}

// NewDevelopment builds a console-encoded, debug-level logger for local runs.
func NewDevelopment() (*Logger, error) {
	zapLogger, err := zap.NewDevelopment()
	if err != nil {
		return nil, err
	}

	return &Logger{Logger: zapLogger}, nil
}

// Sync flushes any buffered log entries. Safe to call on a Logger with a nil
// inner logger (no-op).
func (l *Logger) Sync() error {
	if l == nil || l.Logger == nil {
		return nil
	}

	return l.Logger.Sync()
}

// With returns a child Logger with the given structured fields attached to
// every subsequent entry.
func (l *Logger) With(fields ...zap.Field) *Logger {
	if l == nil || l.Logger == nil {
		return l
	}

	return &Logger{Logger: l.Logger.With(fields...)}
}
