package main

import (
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/vistta-org/fs/internal/config"
	"github.com/vistta-org/fs/internal/logging"
	"github.com/vistta-org/fs/internal/watcher"
)

// loadConfiguration reads the configuration file and applies environment
// and command line overrides.
func loadConfiguration(command *cobra.Command) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(rootConfiguration.configFile)
	if err != nil {
		return nil, nil, err
	}
	if err := cfg.ApplyFlags(command.Flags()); err != nil {
		return nil, nil, err
	}
	logger := logging.Setup(cfg.Logger)
	slog.SetDefault(logger)
	return cfg, logger, nil
}

// watchOptions builds session options for a root.
func watchOptions(cfg *config.Config, r config.Root, logger *slog.Logger, metrics *watcher.Metrics) watcher.Options {
	return watcher.Options{
		Exclude:  cfg.ExcludeFor(r),
		Throttle: cfg.Throttle,
		Rescan:   cfg.Rescan,
		Buffer:   cfg.Buffer,
		Logger:   logger.With("root", r.Alias),
		Metrics:  metrics,
	}
}
