package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/revision-scheduler/internal/domain"
)

// CardSort selects the ordering of CardStore.Find results.
type CardSort int

// Supported orderings.
const (
	SortNone CardSort = iota
	SortCreatedDesc
	SortDueAsc
)

// CardFilter narrows a card query. Zero-valued fields are ignored and the
// remaining conditions are combined with AND.
type CardFilter struct {
	// ID matches a single card.
	ID *uuid.UUID

	// DueBefore matches cards whose due instant is at or before the value.
	DueBefore *time.Time

	// ReviewedSince matches cards last reviewed at or after the value.
	ReviewedSince *time.Time

	// Topic matches the card topic case-insensitively.
	Topic string

	// HasReviews restricts the query to cards with a non-empty review log.
	HasReviews bool
}

// ByID is a convenience constructor for an id filter.
func ByID(id uuid.UUID) CardFilter {
	return CardFilter{ID: &id}
}

// ScheduleUpdate replaces the derived scheduling fields and the review log
// of a card in one write.
type ScheduleUpdate struct {
	Memory       domain.MemoryState
	Due          time.Time
	LastReviewed *time.Time
	ReviewLog    []domain.ReviewEvent
}

// CardPatch lists the fields to change in UpdateByID. Nil fields are left
// untouched.
type CardPatch struct {
	Topic      *string
	TopicColor *string
	Title      *string
	Content    *string
	Schedule   *ScheduleUpdate
}

// IsEmpty reports whether the patch changes nothing.
func (p CardPatch) IsEmpty() bool {
	return p.Topic == nil && p.TopicColor == nil && p.Title == nil &&
		p.Content == nil && p.Schedule == nil
}

// Apply writes the patch onto card in memory. Stores use it to build the
// value they return.
func (p CardPatch) Apply(card *domain.Card) {
	if p.Topic != nil {
		card.Topic = *p.Topic
	}
	if p.TopicColor != nil {
		card.TopicColor = *p.TopicColor
	}
	if p.Title != nil {
		card.Title = *p.Title
	}
	if p.Content != nil {
		card.Content = *p.Content
	}
	if p.Schedule != nil {
		card.Memory = p.Schedule.Memory
		card.Memory.LastReview = domain.NormalizeTimePtr(p.Schedule.Memory.LastReview)
		card.Due = domain.NormalizeTime(p.Schedule.Due)
		card.LastReviewed = domain.NormalizeTimePtr(p.Schedule.LastReviewed)
		card.ReviewLog = make([]domain.ReviewEvent, len(p.Schedule.ReviewLog))
		copy(card.ReviewLog, p.Schedule.ReviewLog)
	}
}

// CardStore defines the interface for card data persistence.
//
// Writes that must be atomic with other stores run on a shared transaction:
//
//	err := store.RunInTransaction(ctx, db, func(ctx context.Context, tx *sql.Tx) error {
//	    _, err := cardStore.WithTx(tx).SetTopicColor(ctx, topic, color)
//	    return err
//	})
type CardStore interface {
	// Find returns every card matching filter in the requested order.
	Find(ctx context.Context, filter CardFilter, sort CardSort) ([]*domain.Card, error)

	// FindOne returns the first card matching filter.
	// Returns ErrCardNotFound if nothing matches.
	FindOne(ctx context.Context, filter CardFilter) (*domain.Card, error)

	// Insert stores a new card. The card's Version is set to 1.
	Insert(ctx context.Context, card *domain.Card) error

	// UpdateByID applies patch to the card if its stored version equals
	// expectedVersion, increments the version, and returns the updated card.
	//
	// Returns ErrCardNotFound if the card does not exist and
	// ErrVersionConflict if it exists with a different version.
	UpdateByID(
		ctx context.Context,
		id uuid.UUID,
		expectedVersion int64,
		patch CardPatch,
	) (*domain.Card, error)

	// DeleteByID removes a card and its review log. It reports whether a
	// card was deleted.
	DeleteByID(ctx context.Context, id uuid.UUID) (bool, error)

	// Count returns the number of cards matching filter.
	Count(ctx context.Context, filter CardFilter) (int, error)

	// SetTopicColor sets the topic color of every card in topic, bumping the
	// version of each card it changes. It returns the number of cards changed.
	SetTopicColor(ctx context.Context, topic, color string) (int, error)

	// WithTx returns a CardStore that runs every statement on tx.
	WithTx(tx *sql.Tx) CardStore
}
