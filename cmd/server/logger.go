package main

import (
	"log/slog"

	"github.com/phrazzld/revision-scheduler/internal/config"
	"github.com/phrazzld/revision-scheduler/internal/platform/logger"
)

// setupLogger installs the JSON logger and records the effective
// configuration, with the database password masked.
func setupLogger(cfg *config.Config) (*slog.Logger, error) {
	l, err := logger.Setup(cfg.Server)
	if err != nil {
		return nil, err
	}

	l.Info("configuration loaded",
		slog.Int("port", cfg.Server.Port),
		slog.String("log_level", cfg.Server.LogLevel),
		slog.String("database_driver", cfg.Database.Driver),
		slog.String("database_url", maskDatabaseURL(cfg.Database.URL)),
		slog.Duration("lookahead", cfg.Scheduler.Lookahead),
		slog.String("timezone", cfg.Scheduler.Timezone),
		slog.Bool("metrics_enabled", cfg.Telemetry.MetricsEnabled),
		slog.Bool("tracing_enabled", cfg.Telemetry.TracingEnabled))
	return l, nil
}
