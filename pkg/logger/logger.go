// Package logger constructs the structured logger used across the cinder
// storage engine. Every component receives a *zap.SugaredLogger through its
// Config struct rather than constructing one itself, which keeps log output
// uniform and lets tests inject a no-op logger.
package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a production-configured SugaredLogger tagged with the given
// service name. Falls back to a no-op logger if construction fails, so
// callers never need to handle a logger error during startup.
func New(service string) *zap.SugaredLogger {
	config := zap.NewProductionConfig()
	config.OutputPaths = []string{"stdout"}
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.InitialFields = map[string]any{"service": service}
	config.DisableStacktrace = true

	log, err := config.Build()
	if err != nil {
		return zap.NewNop().Sugar()
	}
	return log.Sugar()
}

// Nop returns a logger that discards everything. Used by tests.
func Nop() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}
