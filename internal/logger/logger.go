package logger

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options controls logger construction.
type Options struct {
	Development bool
	// Level overrides the mode default ("debug", "info", "warn", "error").
	Level string
	// Service is attached to every entry when set.
	Service string
}

// Build creates a zap logger from opts
func Build(opts Options) (*zap.Logger, error) {
	var cfg zap.Config

	if opts.Development {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		cfg = zap.NewProductionConfig()
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	if opts.Level != "" {
		level, err := zapcore.ParseLevel(opts.Level)
		if err != nil {
			return nil, fmt.Errorf("parsing log level: %w", err)
		}
		cfg.Level = zap.NewAtomicLevelAt(level)
	}

	var zopts []zap.Option
	if opts.Service != "" {
		zopts = append(zopts, zap.Fields(zap.String("service", opts.Service)))
	}
	return cfg.Build(zopts...)
}

// New creates a logger for the given mode
func New(development bool) (*zap.Logger, error) {
	return Build(Options{Development: development, Service: "radar"})
}

// Must creates a logger or panics
func Must(development bool) *zap.Logger {
	log, err := New(development)
	if err != nil {
		panic(err)
	}
	return log
}
