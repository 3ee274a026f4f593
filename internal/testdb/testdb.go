// Package testdb provides utilities for tests that need a real PostgreSQL
// database. Tests using it carry the integration build tag.
package testdb

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/phrazzld/revision-scheduler/internal/platform/postgres"
	"github.com/phrazzld/revision-scheduler/internal/platform/sqlstore"
	"github.com/stretchr/testify/require"
)

// Environment variables consulted for the test database, preferred first.
const (
	EnvTestDatabaseURL = "REVISE_TEST_DATABASE_URL"
	EnvDatabaseURL     = "DATABASE_URL"
	EnvCI              = "CI"
)

// TestTimeout defines a default timeout for test database operations.
const TestTimeout = 10 * time.Second

// IsCI reports whether the tests run under a CI system.
func IsCI() bool {
	return os.Getenv(EnvCI) != "" || os.Getenv("GITHUB_ACTIONS") != ""
}

// GetTestDatabaseURL returns the first non-empty of REVISE_TEST_DATABASE_URL
// and DATABASE_URL. Falling back to DATABASE_URL is logged.
func GetTestDatabaseURL(logger *slog.Logger) string {
	if url := os.Getenv(EnvTestDatabaseURL); url != "" {
		return url
	}
	url := os.Getenv(EnvDatabaseURL)
	if url != "" && logger != nil {
		logger.Warn("using fallback environment variable for test database",
			slog.String("used_var", EnvDatabaseURL),
			slog.String("preferred_var", EnvTestDatabaseURL))
	}
	return url
}

// OpenPostgres connects to the test database, applies the migrations and
// empties every table. The test is skipped when no database is configured,
// except under CI where a missing database is a failure.
func OpenPostgres(t *testing.T) *sql.DB {
	t.Helper()

	url := GetTestDatabaseURL(slog.Default())
	if url == "" {
		if IsCI() {
			t.Fatalf("%s must be set in CI", EnvTestDatabaseURL)
		}
		t.Skipf("%s not set", EnvTestDatabaseURL)
	}

	ctx, cancel := context.WithTimeout(context.Background(), TestTimeout)
	defer cancel()

	db, err := postgres.Open(ctx, url, postgres.PoolConfig{MaxOpenConns: 4}, nil)
	require.NoError(t, err, "failed to connect to test database")
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, sqlstore.Migrate(ctx, db, postgres.Dialect{}, postgres.Migrations(), nil),
		"failed to migrate test database")
	ResetTables(t, db)
	return db
}

// ResetTables removes every row the stores write.
func ResetTables(t *testing.T, db *sql.DB) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), TestTimeout)
	defer cancel()

	_, err := db.ExecContext(ctx, `TRUNCATE cards, topics, settings`)
	require.NoError(t, err, "failed to reset test tables")
}

// WithTx executes a test function within a transaction, automatically rolling back
// after the test completes. This ensures test isolation and prevents side effects.
func WithTx(t *testing.T, db *sql.DB, fn func(t *testing.T, tx *sql.Tx)) {
	t.Helper()

	tx, err := db.Begin()
	require.NoError(t, err, "failed to begin transaction")

	defer func() {
		// sql.ErrTxDone is expected if fn committed or rolled back itself
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			t.Logf("failed to roll back transaction: %v", err)
		}
	}()

	fn(t, tx)
}
