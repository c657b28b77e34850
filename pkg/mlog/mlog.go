// Package mlog constructs the zap logger shared by all services.
package mlog

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New returns a production JSON logger tagged with the service name.
// level accepts zap atomic level strings ("debug", "info", "warn", "error");
// anything unparseable falls back to info.
func New(service, level string) (*zap.SugaredLogger, error) {
	cfg := zap.NewProductionConfig()
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	if lvl, err := zapcore.ParseLevel(level); err == nil {
		cfg.Level = zap.NewAtomicLevelAt(lvl)
	}

	logger, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return logger.Sugar().With("service", service), nil
}

// NewNop returns a discard logger for tests.
func NewNop() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}
