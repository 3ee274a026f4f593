package postgres

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" driver
	"github.com/phrazzld/revision-scheduler/internal/platform/sqlstore"
)

// DriverName is the database/sql driver registered by pgx.
const DriverName = "pgx"

//go:embed migrations/*.sql
var migrationFS embed.FS

// Migrations returns the embedded PostgreSQL schema migrations.
func Migrations() sqlstore.Migrations {
	return sqlstore.Migrations{FS: migrationFS, Dir: "migrations"}
}

// Dialect is the sqlstore.Dialect for PostgreSQL.
type Dialect struct{}

var _ sqlstore.Dialect = Dialect{}

// Name implements sqlstore.Dialect.
func (Dialect) Name() string { return "postgres" }

// Rebind implements sqlstore.Dialect.
func (Dialect) Rebind(query string) string { return sqlstore.RebindDollar(query) }

// TimeValue implements sqlstore.Dialect. TIMESTAMPTZ keeps microseconds, the
// same precision instants are normalized to.
func (Dialect) TimeValue(t time.Time) any { return t.UTC() }

// MapError implements sqlstore.Dialect.
func (Dialect) MapError(err error) error { return MapError(err) }

// PoolConfig sizes the connection pool.
type PoolConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Open establishes a connection pool to the database at url and verifies it
// with a ping.
func Open(ctx context.Context, url string, pool PoolConfig, logger *slog.Logger) (*sql.DB, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if url == "" {
		return nil, fmt.Errorf("database URL is empty: check your configuration")
	}

	db, err := sql.Open(DriverName, url)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	if pool.MaxOpenConns <= 0 {
		pool.MaxOpenConns = 10
	}
	if pool.MaxIdleConns <= 0 {
		pool.MaxIdleConns = pool.MaxOpenConns / 2
	}
	if pool.ConnMaxLifetime <= 0 {
		pool.ConnMaxLifetime = 5 * time.Minute
	}
	db.SetMaxOpenConns(pool.MaxOpenConns)
	db.SetMaxIdleConns(pool.MaxIdleConns)
	db.SetConnMaxLifetime(pool.ConnMaxLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("database connection established",
		slog.String("driver", DriverName),
		slog.Int("max_open_conns", pool.MaxOpenConns))
	return db, nil
}
