package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/phrazzld/revision-scheduler/internal/config"
	"github.com/phrazzld/revision-scheduler/internal/platform/postgres"
	"github.com/phrazzld/revision-scheduler/internal/platform/sqlite"
	"github.com/phrazzld/revision-scheduler/internal/platform/sqlstore"
)

// database bundles a connection pool with the dialect and migrations of its
// engine.
type database struct {
	*sql.DB
	Dialect    sqlstore.Dialect
	Migrations sqlstore.Migrations
}

// openDatabase connects to the configured engine. SQLite databases are
// always migrated on open; PostgreSQL only when auto_migrate is set.
func openDatabase(ctx context.Context, cfg config.DatabaseConfig, logger *slog.Logger) (*database, error) {
	switch cfg.Driver {
	case "sqlite":
		db, err := sqlite.Open(ctx, cfg.URL, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite database: %w", err)
		}
		return &database{DB: db, Dialect: sqlite.Dialect{}, Migrations: sqlite.Migrations()}, nil

	case "postgres":
		db, err := postgres.Open(ctx, cfg.URL, postgres.PoolConfig{MaxOpenConns: cfg.MaxOpenConns}, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to open postgres database at %s: %w", maskDatabaseURL(cfg.URL), err)
		}
		d := &database{DB: db, Dialect: postgres.Dialect{}, Migrations: postgres.Migrations()}
		if cfg.AutoMigrate {
			if err := sqlstore.Migrate(ctx, db, d.Dialect, d.Migrations, logger); err != nil {
				_ = db.Close()
				return nil, fmt.Errorf("failed to migrate postgres database: %w", err)
			}
		}
		return d, nil

	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

// maskDatabaseURL hides the password of a connection URL. Values that are
// not URLs, such as SQLite file paths, are returned unchanged.
func maskDatabaseURL(dbURL string) string {
	parsed, err := url.Parse(dbURL)
	if err != nil || parsed.User == nil {
		return dbURL
	}
	return parsed.Redacted()
}
