package card_review

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/revision-scheduler/internal/domain"
)

// DefaultLookahead is how far past now DueCards looks when the caller does
// not say otherwise.
const DefaultLookahead = 10 * time.Minute

// RetentionSource supplies the retention target in effect for a scheduling
// decision. service.SettingsService satisfies it.
type RetentionSource interface {
	RetentionTarget() float64
}

// ProgressFunc is called after each card RecalculateAll rewrites.
type ProgressFunc func(done, total int)

// RecalculateResult reports the outcome of RecalculateAll.
type RecalculateResult struct {
	// Updated is the number of cards whose schedule was rebuilt.
	Updated int `json:"updated"`
	// Total is the number of cards in the collection.
	Total int `json:"total"`
}

// Service schedules reviews: it records ratings, takes them back, previews
// the outcome of each rating, and selects the cards that are due.
type Service interface {
	// SubmitReview records a rating for a card and reschedules it.
	//
	// Parameters:
	//   - ctx: Context for the operation
	//   - cardID: the card being reviewed
	//   - rating: the learner's rating, validated before the store is touched
	//   - now: when the review happened
	//
	// Returns:
	//   - (*domain.Card, nil): the card with the new event appended
	//   - (nil, ValidationError): invalid rating
	//   - (nil, store.ErrCardNotFound): no such card
	//   - (nil, domain.ErrInvalidState): now precedes the last review
	//   - (nil, store.ErrVersionConflict): the card changed concurrently
	SubmitReview(ctx context.Context, cardID uuid.UUID, rating domain.Rating, now time.Time) (*domain.Card, error)

	// Undo removes the most recent review and rebuilds the schedule from
	// the remaining log. Returns domain.ErrNoReviewsToUndo when the log is
	// empty, leaving the card unchanged.
	Undo(ctx context.Context, cardID uuid.UUID) (*domain.Card, error)

	// Preview returns the due instant each rating would produce if the card
	// were reviewed at now. Nothing is written.
	Preview(ctx context.Context, cardID uuid.UUID, now time.Time) (map[domain.Rating]time.Time, error)

	// DueCards returns every card due at or before now+lookahead, earliest
	// first.
	DueCards(ctx context.Context, now time.Time, lookahead time.Duration) ([]*domain.Card, error)

	// RecalculateAll rebuilds the schedule of every reviewed card under the
	// current retention target. Cards without reviews are left alone.
	// progress may be nil.
	RecalculateAll(ctx context.Context, progress ProgressFunc) (RecalculateResult, error)
}
