// Package logger builds the structured zap logger shared by every
// component of the store. It is deliberately tiny: a production JSON
// encoder config plus a "service" field so several store instances
// logging to the same sink remain distinguishable.
package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a *zap.SugaredLogger tagged with service, using zap's
// production config (JSON, ISO8601 timestamps, caller annotation, stack
// traces only at error level and above).
func New(service string) *zap.SugaredLogger {
	cfg := zap.NewProductionConfig()
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	base, err := cfg.Build()
	if err != nil {
		base = zap.NewNop()
	}
	return base.Sugar().With("service", service)
}

// Nop returns a logger that discards everything.
func Nop() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}
