package main

import (
	"fmt"
	"log/slog"

	"github.com/phrazzld/revision-scheduler/internal/config"
)

// initialize loads configuration and sets up structured logging.
func initialize(configPath string) (*config.Config, *slog.Logger, error) {
	cfg, err := config.LoadFromFile(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := setupLogger(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to set up logger: %w", err)
	}
	return cfg, logger, nil
}
