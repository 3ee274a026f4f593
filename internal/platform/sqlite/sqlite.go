package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/phrazzld/revision-scheduler/internal/platform/sqlstore"
	"github.com/phrazzld/revision-scheduler/internal/store"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// DriverName is the database/sql driver registered by modernc.org/sqlite.
const DriverName = "sqlite"

//go:embed migrations/*.sql
var migrationFS embed.FS

// Migrations returns the embedded SQLite schema migrations.
func Migrations() sqlstore.Migrations {
	return sqlstore.Migrations{FS: migrationFS, Dir: "migrations"}
}

// Dialect is the sqlstore.Dialect for SQLite. Instants are stored as
// fixed-width UTC text.
type Dialect struct{}

var _ sqlstore.Dialect = Dialect{}

// Name implements sqlstore.Dialect.
func (Dialect) Name() string { return "sqlite3" }

// Rebind implements sqlstore.Dialect. SQLite accepts ? natively.
func (Dialect) Rebind(query string) string { return query }

// TimeValue implements sqlstore.Dialect.
func (Dialect) TimeValue(t time.Time) any { return sqlstore.FormatTextTime(t) }

// MapError implements sqlstore.Dialect.
func (Dialect) MapError(err error) error {
	return MapError(err)
}

// MapError translates SQLite constraint failures into store errors.
func MapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %v", store.ErrNotFound, err)
	}

	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		switch code := sqliteErr.Code(); {
		case code == sqlite3.SQLITE_CONSTRAINT_UNIQUE, code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return fmt.Errorf("%w: %v", store.ErrDuplicate, err)
		case code == sqlite3.SQLITE_CONSTRAINT_CHECK, code == sqlite3.SQLITE_CONSTRAINT_NOTNULL:
			return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
		case code&0xff == sqlite3.SQLITE_CONSTRAINT:
			// Only the primary result code was reported.
			if strings.Contains(err.Error(), "UNIQUE") {
				return fmt.Errorf("%w: %v", store.ErrDuplicate, err)
			}
			return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
		}
	}
	return err
}

// Open opens the SQLite database at dsn, or an in-memory database when dsn
// is empty or ":memory:", and applies the schema migrations.
//
// The pool is pinned to one connection: PRAGMAs are per connection and an
// in-memory database lives only as long as its connection.
func Open(ctx context.Context, dsn string, logger *slog.Logger) (*sql.DB, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if dsn == "" {
		dsn = ":memory:"
	}

	db, err := sql.Open(DriverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("%s: %w", p, err)
		}
	}

	if err := sqlstore.Migrate(ctx, db, Dialect{}, Migrations(), logger); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	logger.Debug("sqlite database ready", slog.String("dsn", dsn))
	return db, nil
}
