package store

import (
	"context"
	"database/sql"

	"github.com/phrazzld/revision-scheduler/internal/domain"
)

// SettingsStore persists the single global settings record.
type SettingsStore interface {
	// Get returns the stored settings.
	// Returns ErrNotFound if nothing has been saved yet.
	Get(ctx context.Context) (domain.Settings, error)

	// Save replaces the stored settings.
	Save(ctx context.Context, settings domain.Settings) error
}

// TopicStore persists topics.
type TopicStore interface {
	// List returns every topic ordered by name.
	List(ctx context.Context) ([]*domain.Topic, error)

	// Get finds a topic by name, case-insensitively.
	// Returns ErrTopicNotFound if it does not exist.
	Get(ctx context.Context, name string) (*domain.Topic, error)

	// Upsert creates the topic or updates the color of an existing one with
	// the same name. It returns the stored topic.
	Upsert(ctx context.Context, topic *domain.Topic) (*domain.Topic, error)

	// WithTx returns a TopicStore that runs every statement on tx.
	WithTx(tx *sql.Tx) TopicStore
}
