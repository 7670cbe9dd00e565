package main

import (
	"github.com/grafana/pyroscope-go"
	"github.com/rxtech-lab/autotrader/internal/config"
	"github.com/rxtech-lab/autotrader/internal/logger"
	"github.com/rxtech-lab/autotrader/internal/version"
	"github.com/rxtech-lab/autotrader/pkg/errors"
	"go.uber.org/zap"
)

// startProfiling starts the pyroscope agent when enabled and returns its
// stop function.
func startProfiling(cfg config.ProfilingConfig, log *logger.Logger) (func(), error) {
	if !cfg.Enabled {
		return func() {}, nil
	}

	if cfg.ServerAddress == "" {
		return nil, errors.New(errors.ErrCodeInvalidConfiguration, "profiling needs a server address")
	}

	profiler, err := pyroscope.Start(pyroscope.Config{
		ApplicationName: cfg.ApplicationName,
		ServerAddress:   cfg.ServerAddress,
		Tags: map[string]string{
			"version": version.Version,
		},
		Logger: log.Named("pyroscope").Sugar(),
		ProfileTypes: []pyroscope.ProfileType{
			pyroscope.ProfileCPU,
			pyroscope.ProfileAllocObjects,
			pyroscope.ProfileAllocSpace,
			pyroscope.ProfileInuseObjects,
			pyroscope.ProfileInuseSpace,
			pyroscope.ProfileGoroutines,
		},
	})
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to start profiler", err)
	}

	log.Info("profiling enabled", zap.String("server", cfg.ServerAddress))

	return func() {
		if err := profiler.Stop(); err != nil {
			log.Warn("failed to stop profiler", zap.Error(err))
		}
	}, nil
}
