package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"sync"

	"github.com/pressly/goose/v3"
)

// MigrationTableName is the table goose records applied versions in.
const MigrationTableName = "schema_migrations"

// goose keeps its configuration in package state.
var gooseMu sync.Mutex

// Migrations is an embedded set of goose SQL migrations for one dialect.
type Migrations struct {
	FS  fs.FS
	Dir string
}

// slogGooseLogger adapts the goose logger interface to slog.
type slogGooseLogger struct {
	logger *slog.Logger
}

func (l *slogGooseLogger) Printf(format string, v ...interface{}) {
	l.logger.Info(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

// Fatalf logs at error level and deliberately does not exit, so callers get
// the error back from goose and decide themselves.
func (l *slogGooseLogger) Fatalf(format string, v ...interface{}) {
	l.logger.Error(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

// Migrate applies every pending migration.
func Migrate(ctx context.Context, db *sql.DB, dialect Dialect, m Migrations, logger *slog.Logger) error {
	return RunMigrations(ctx, db, dialect, m, "up", logger)
}

// RunMigrations executes a goose command (up, down, redo, reset, status,
// version) against db.
func RunMigrations(
	ctx context.Context,
	db *sql.DB,
	dialect Dialect,
	m Migrations,
	command string,
	logger *slog.Logger,
	args ...string,
) error {
	if logger == nil {
		logger = slog.Default()
	}
	log := logger.With(
		slog.String("component", "migrations"),
		slog.String("dialect", dialect.Name()),
		slog.String("command", command),
	)

	gooseMu.Lock()
	defer gooseMu.Unlock()

	goose.SetBaseFS(m.FS)
	defer goose.SetBaseFS(nil)
	goose.SetLogger(&slogGooseLogger{logger: log})
	goose.SetTableName(MigrationTableName)
	if err := goose.SetDialect(dialect.Name()); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	log.Debug("running migrations")
	if err := goose.RunContext(ctx, command, db, m.Dir, args...); err != nil {
		log.Error("migration command failed", slog.String("error", err.Error()))
		return fmt.Errorf("migration %s failed: %w", command, err)
	}
	return nil
}
