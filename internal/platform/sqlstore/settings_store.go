package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/revision-scheduler/internal/domain"
	"github.com/phrazzld/revision-scheduler/internal/platform/logger"
	"github.com/phrazzld/revision-scheduler/internal/store"
)

// SettingsStore implements store.SettingsStore as a single-row table.
type SettingsStore struct {
	db      store.DBTX
	dialect Dialect
	logger  *slog.Logger
}

// NewSettingsStore creates a SettingsStore running on db.
func NewSettingsStore(db store.DBTX, dialect Dialect, logger *slog.Logger) *SettingsStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if dialect == nil {
		panic("dialect cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SettingsStore{
		db:      db,
		dialect: dialect,
		logger:  logger.With(slog.String("component", "settings_store")),
	}
}

var _ store.SettingsStore = (*SettingsStore)(nil)

// Get implements store.SettingsStore.Get.
func (s *SettingsStore) Get(ctx context.Context) (domain.Settings, error) {
	var settings domain.Settings
	err := s.db.QueryRowContext(ctx,
		`SELECT request_retention FROM settings WHERE id = 1`,
	).Scan(&settings.RetentionTarget)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Settings{}, store.ErrNotFound
	}
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to read settings",
			slog.String("error", err.Error()))
		return domain.Settings{}, storeError(s.dialect, "settings", "get", "query failed", err)
	}
	return settings, nil
}

// Save implements store.SettingsStore.Save.
func (s *SettingsStore) Save(ctx context.Context, settings domain.Settings) error {
	if err := settings.Validate(); err != nil {
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}

	_, err := s.db.ExecContext(ctx, s.dialect.Rebind(`
		INSERT INTO settings (id, request_retention, updated_at)
		VALUES (1, ?, ?)
		ON CONFLICT (id) DO UPDATE
		SET request_retention = excluded.request_retention, updated_at = excluded.updated_at`),
		settings.RetentionTarget,
		s.dialect.TimeValue(time.Now()),
	)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to save settings",
			slog.Float64("request_retention", settings.RetentionTarget),
			slog.String("error", err.Error()))
		return storeError(s.dialect, "settings", "save", "statement failed", err)
	}
	return nil
}
