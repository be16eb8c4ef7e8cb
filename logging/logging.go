package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds the process logger. Development loggers write human readable
// console output; otherwise JSON.
func New(level string, development bool) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("parsing log level %q: %w", level, err)
	}
	cfg := zap.NewProductionConfig()
	if development {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	return cfg.Build()
}

// AuditLogger records reset attempt events. It never receives the link
// secret or the passwords.
type AuditLogger struct {
	Log *zap.Logger
}

// NewAuditLogger wraps log; a nil log discards events.
func NewAuditLogger(log *zap.Logger) *AuditLogger {
	if log == nil {
		log = zap.NewNop()
	}
	return &AuditLogger{Log: log.Named("audit")}
}

func (a *AuditLogger) LogEvent(event string, fields ...zap.Field) {
	if a == nil || a.Log == nil {
		return
	}
	a.Log.Info(event, fields...)
}

// LogFailure records an event that needs operator attention.
func (a *AuditLogger) LogFailure(event string, err error, fields ...zap.Field) {
	if a == nil || a.Log == nil {
		return
	}
	a.Log.Error(event, append(fields, zap.Error(err))...)
}
