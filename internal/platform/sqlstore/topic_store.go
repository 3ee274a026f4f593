package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/phrazzld/revision-scheduler/internal/domain"
	"github.com/phrazzld/revision-scheduler/internal/platform/logger"
	"github.com/phrazzld/revision-scheduler/internal/store"
)

// TopicStore implements store.TopicStore on a SQL database. Topic names are
// unique case-insensitively through the name_key column.
type TopicStore struct {
	db      store.DBTX
	dialect Dialect
	logger  *slog.Logger
}

// NewTopicStore creates a TopicStore running on db.
func NewTopicStore(db store.DBTX, dialect Dialect, logger *slog.Logger) *TopicStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if dialect == nil {
		panic("dialect cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &TopicStore{
		db:      db,
		dialect: dialect,
		logger:  logger.With(slog.String("component", "topic_store")),
	}
}

var _ store.TopicStore = (*TopicStore)(nil)

// WithTx implements store.TopicStore.WithTx.
func (s *TopicStore) WithTx(tx *sql.Tx) store.TopicStore {
	return &TopicStore{db: tx, dialect: s.dialect, logger: s.logger}
}

// List implements store.TopicStore.List.
func (s *TopicStore) List(ctx context.Context) ([]*domain.Topic, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name, color, created_at FROM topics ORDER BY name_key`)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to list topics",
			slog.String("error", err.Error()))
		return nil, storeError(s.dialect, "topic", "list", "query failed", err)
	}
	defer func() { _ = rows.Close() }()

	topics := make([]*domain.Topic, 0)
	for rows.Next() {
		var t domain.Topic
		if err := rows.Scan(&t.Name, &t.Color, &timeScanner{dst: &t.CreatedAt}); err != nil {
			return nil, fmt.Errorf("failed to scan topic row: %w", err)
		}
		topics = append(topics, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError(s.dialect, "topic", "list", "row iteration failed", err)
	}
	return topics, nil
}

// Get implements store.TopicStore.Get.
func (s *TopicStore) Get(ctx context.Context, name string) (*domain.Topic, error) {
	var t domain.Topic
	err := s.db.QueryRowContext(ctx,
		s.dialect.Rebind(`SELECT name, color, created_at FROM topics WHERE name_key = ?`),
		topicKey(name),
	).Scan(&t.Name, &t.Color, &timeScanner{dst: &t.CreatedAt})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrTopicNotFound
	}
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to get topic",
			slog.String("topic", name),
			slog.String("error", err.Error()))
		return nil, storeError(s.dialect, "topic", "get", "query failed", err)
	}
	return &t, nil
}

// Upsert implements store.TopicStore.Upsert.
func (s *TopicStore) Upsert(ctx context.Context, topic *domain.Topic) (*domain.Topic, error) {
	if topic == nil {
		return nil, fmt.Errorf("%w: topic is nil", store.ErrInvalidEntity)
	}
	if err := topic.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}

	_, err := s.db.ExecContext(ctx, s.dialect.Rebind(`
		INSERT INTO topics (name_key, name, color, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (name_key) DO UPDATE SET color = excluded.color`),
		topicKey(topic.Name),
		topic.Name,
		topic.Color,
		s.dialect.TimeValue(topic.CreatedAt),
	)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to upsert topic",
			slog.String("topic", topic.Name),
			slog.String("error", err.Error()))
		return nil, storeError(s.dialect, "topic", "upsert", "statement failed", err)
	}
	return s.Get(ctx, topic.Name)
}

func topicKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
