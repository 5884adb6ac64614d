package main

import (
	"fmt"

	"github.com/newthinker/radar/internal/app"
	"github.com/newthinker/radar/internal/config"
	"github.com/newthinker/radar/internal/logger"
	"github.com/newthinker/radar/internal/metrics"
	"go.uber.org/zap"
)

// loadConfig reads --config, or the defaults when none is given.
func loadConfig(log *zap.Logger) (*config.Config, error) {
	var cfg *config.Config
	if cfgFile != "" {
		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return nil, fmt.Errorf("loading config: %w", err)
		}
	} else {
		cfg = config.Defaults()
		log.Debug("no config file specified, using defaults")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// cliLogger logs only warnings unless --debug is set, keeping command output
// readable.
func cliLogger() *zap.Logger {
	level := "warn"
	if debug {
		level = "debug"
	}
	log, err := logger.Build(logger.Options{Development: debug, Level: level, Service: "radar"})
	if err != nil {
		return zap.NewNop()
	}
	return log
}

// newApp loads config and wires the application for a one-shot command.
func newApp(log *zap.Logger) (*app.App, error) {
	cfg, err := loadConfig(log)
	if err != nil {
		return nil, err
	}
	var opts []app.Option
	if cfg.Metrics.Enabled {
		opts = append(opts, app.WithMetrics(metrics.NewRegistry()))
	}
	return app.New(cfg, log, opts...)
}
