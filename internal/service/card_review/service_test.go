package card_review_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/revision-scheduler/internal/domain"
	"github.com/phrazzld/revision-scheduler/internal/domain/srs"
	"github.com/phrazzld/revision-scheduler/internal/events"
	"github.com/phrazzld/revision-scheduler/internal/platform/sqlite"
	"github.com/phrazzld/revision-scheduler/internal/platform/sqlstore"
	"github.com/phrazzld/revision-scheduler/internal/service"
	"github.com/phrazzld/revision-scheduler/internal/service/card_review"
	"github.com/phrazzld/revision-scheduler/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var created = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

// retention is a RetentionSource the tests can change.
type retention struct {
	mu    sync.Mutex
	value float64
}

func (r *retention) RetentionTarget() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.value
}

func (r *retention) set(v float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.value = v
}

type fixture struct {
	cards     store.CardStore
	svc       card_review.Service
	retention *retention
	emitted   func(eventType string) []*events.Event
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db, err := sqlite.Open(context.Background(), ":memory:", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return newFixtureWithStore(t, sqlstore.NewCardStore(db, sqlite.Dialect{}, nil))
}

func newFixtureWithStore(t *testing.T, cards store.CardStore) *fixture {
	t.Helper()

	srsService, err := srs.NewDefaultService()
	require.NoError(t, err)

	var mu sync.Mutex
	var recorded []*events.Event
	emitter := events.NewInMemoryEventEmitter(nil)
	emitter.RegisterHandler(events.HandlerFunc(func(_ context.Context, e *events.Event) error {
		mu.Lock()
		defer mu.Unlock()
		recorded = append(recorded, e)
		return nil
	}))

	r := &retention{value: domain.DefaultRetentionTarget}
	svc, err := card_review.NewService(cards, srsService, r, service.NewCardLocks(), emitter, nil)
	require.NoError(t, err)

	return &fixture{
		cards:     cards,
		svc:       svc,
		retention: r,
		emitted: func(eventType string) []*events.Event {
			mu.Lock()
			defer mu.Unlock()
			var out []*events.Event
			for _, e := range recorded {
				if e.Type == eventType {
					out = append(out, e)
				}
			}
			return out
		},
	}
}

func (f *fixture) insert(t *testing.T, title string, createdAt time.Time) *domain.Card {
	t.Helper()
	card, err := domain.NewCard("Go", "", title, "", createdAt)
	require.NoError(t, err)
	require.NoError(t, f.cards.Insert(context.Background(), card))
	return card
}

func (f *fixture) get(t *testing.T, id uuid.UUID) *domain.Card {
	t.Helper()
	card, err := f.cards.FindOne(context.Background(), store.ByID(id))
	require.NoError(t, err)
	return card
}

func TestNewService(t *testing.T) {
	srsService, err := srs.NewDefaultService()
	require.NoError(t, err)
	r := &retention{value: 0.9}
	locks := service.NewCardLocks()

	db, err := sqlite.Open(context.Background(), ":memory:", nil)
	require.NoError(t, err)
	defer func() { _ = db.Close() }()
	cards := sqlstore.NewCardStore(db, sqlite.Dialect{}, nil)

	_, err = card_review.NewService(nil, srsService, r, locks, nil, nil)
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = card_review.NewService(cards, nil, r, locks, nil, nil)
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = card_review.NewService(cards, srsService, nil, locks, nil, nil)
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = card_review.NewService(cards, srsService, r, nil, nil, nil)
	assert.ErrorIs(t, err, domain.ErrValidation)

	svc, err := card_review.NewService(cards, srsService, r, locks, nil, nil)
	require.NoError(t, err)
	assert.NotNil(t, svc)
}

func TestSubmitReview(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	card := f.insert(t, "Goroutines", created)
	reviewedAt := created.Add(25 * time.Hour)

	updated, err := f.svc.SubmitReview(ctx, card.ID, domain.RatingGood, reviewedAt)
	require.NoError(t, err)

	require.Len(t, updated.ReviewLog, 1)
	assert.Equal(t, domain.RatingGood, updated.ReviewLog[0].Rating)
	assert.Equal(t, "Good", updated.ReviewLog[0].Label)
	assert.True(t, updated.ReviewLog[0].ReviewedAt.Equal(reviewedAt))
	require.NotNil(t, updated.LastReviewed)
	assert.True(t, updated.LastReviewed.Equal(reviewedAt))
	assert.Equal(t, domain.StageLearning, updated.Memory.Stage)
	assert.Equal(t, 1, updated.Memory.Reps)
	assert.True(t, updated.Due.After(reviewedAt))
	assert.Equal(t, int64(2), updated.Version)

	stored := f.get(t, card.ID)
	assert.True(t, stored.Due.Equal(updated.Due))
	assert.True(t, stored.Memory.Equal(updated.Memory))

	submitted := f.emitted(events.TypeReviewSubmitted)
	require.Len(t, submitted, 1)
	var payload events.ReviewSubmittedPayload
	require.NoError(t, submitted[0].UnmarshalPayload(&payload))
	assert.Equal(t, card.ID, payload.CardID)
	assert.Equal(t, 3, payload.Rating)
	assert.Equal(t, string(domain.StageLearning), payload.Stage)
}

func TestSubmitReviewIsDeterministic(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a := f.insert(t, "a", created)
	b := f.insert(t, "b", created)

	times := []time.Duration{25 * time.Hour, 72 * time.Hour, 200 * time.Hour}
	ratings := []domain.Rating{domain.RatingGood, domain.RatingHard, domain.RatingEasy}
	var lastA, lastB *domain.Card
	for i := range times {
		var err error
		lastA, err = f.svc.SubmitReview(ctx, a.ID, ratings[i], created.Add(times[i]))
		require.NoError(t, err)
		lastB, err = f.svc.SubmitReview(ctx, b.ID, ratings[i], created.Add(times[i]))
		require.NoError(t, err)
	}

	assert.True(t, lastA.Due.Equal(lastB.Due))
	assert.True(t, lastA.Memory.Equal(lastB.Memory))
}

func TestSubmitReviewRejectsInvalidRating(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	card := f.insert(t, "Interfaces", created)

	for _, rating := range []domain.Rating{0, 5, -1} {
		_, err := f.svc.SubmitReview(ctx, card.ID, rating, created.Add(time.Hour))
		assert.ErrorIs(t, err, domain.ErrValidation)
		assert.ErrorIs(t, err, domain.ErrInvalidRating)
	}

	// Validation runs before the store is consulted.
	_, err := f.svc.SubmitReview(ctx, uuid.New(), 7, created)
	assert.ErrorIs(t, err, domain.ErrInvalidRating)

	stored := f.get(t, card.ID)
	assert.Empty(t, stored.ReviewLog)
	assert.Equal(t, int64(1), stored.Version)
	assert.Empty(t, f.emitted(events.TypeReviewSubmitted))
}

func TestSubmitReviewErrors(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	t.Run("missing card", func(t *testing.T) {
		_, err := f.svc.SubmitReview(ctx, uuid.New(), domain.RatingGood, created)
		assert.ErrorIs(t, err, store.ErrCardNotFound)
	})

	t.Run("review earlier than the last one", func(t *testing.T) {
		card := f.insert(t, "Time", created)
		_, err := f.svc.SubmitReview(ctx, card.ID, domain.RatingGood, created.Add(48*time.Hour))
		require.NoError(t, err)

		_, err = f.svc.SubmitReview(ctx, card.ID, domain.RatingGood, created.Add(47*time.Hour))
		assert.ErrorIs(t, err, domain.ErrInvalidState)
		assert.Len(t, f.get(t, card.ID).ReviewLog, 1)
	})
}

// conflictingStore reports every update as a lost race.
type conflictingStore struct {
	store.CardStore
}

func (conflictingStore) UpdateByID(context.Context, uuid.UUID, int64, store.CardPatch) (*domain.Card, error) {
	return nil, store.ErrVersionConflict
}

func TestSubmitReviewVersionConflict(t *testing.T) {
	ctx := context.Background()
	base := newFixture(t)
	card := base.insert(t, "Race", created)

	f := newFixtureWithStore(t, conflictingStore{CardStore: base.cards})
	_, err := f.svc.SubmitReview(ctx, card.ID, domain.RatingGood, created.Add(time.Hour))
	assert.ErrorIs(t, err, store.ErrVersionConflict)

	_, err = f.svc.Undo(ctx, card.ID)
	assert.ErrorIs(t, err, domain.ErrNoReviewsToUndo)
	assert.Empty(t, f.emitted(events.TypeReviewSubmitted))
}

func TestConcurrentSubmitsAreSerialized(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	card := f.insert(t, "Mutex", created)
	at := created.Add(30 * time.Hour)

	const n = 8
	var failures atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.svc.SubmitReview(ctx, card.ID, domain.RatingGood, at); err != nil {
				failures.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Zero(t, failures.Load())
	stored := f.get(t, card.ID)
	assert.Len(t, stored.ReviewLog, n)
	assert.Equal(t, int64(n+1), stored.Version)
}

func TestUndo(t *testing.T) {
	ctx := context.Background()

	t.Run("restores the schedule before the last review", func(t *testing.T) {
		f := newFixture(t)
		card := f.insert(t, "Select", created)

		_, err := f.svc.SubmitReview(ctx, card.ID, domain.RatingGood, created.Add(25*time.Hour))
		require.NoError(t, err)
		before, err := f.svc.SubmitReview(ctx, card.ID, domain.RatingHard, created.Add(80*time.Hour))
		require.NoError(t, err)
		_, err = f.svc.SubmitReview(ctx, card.ID, domain.RatingAgain, created.Add(150*time.Hour))
		require.NoError(t, err)

		undone, err := f.svc.Undo(ctx, card.ID)
		require.NoError(t, err)

		assert.Len(t, undone.ReviewLog, len(before.ReviewLog))
		assert.True(t, undone.Due.Equal(before.Due), "due %s != %s", undone.Due, before.Due)
		assert.True(t, undone.Memory.Equal(before.Memory))
		require.NotNil(t, undone.LastReviewed)
		assert.True(t, undone.LastReviewed.Equal(*before.LastReviewed))

		undoneEvents := f.emitted(events.TypeReviewUndone)
		require.Len(t, undoneEvents, 1)
		var payload events.ReviewUndonePayload
		require.NoError(t, undoneEvents[0].UnmarshalPayload(&payload))
		assert.Equal(t, 2, payload.RemainingReviews)
	})

	t.Run("undoing the only review restores a pristine card", func(t *testing.T) {
		f := newFixture(t)
		card := f.insert(t, "Context", created)

		_, err := f.svc.SubmitReview(ctx, card.ID, domain.RatingEasy, created.Add(2*time.Hour))
		require.NoError(t, err)

		undone, err := f.svc.Undo(ctx, card.ID)
		require.NoError(t, err)
		assert.Empty(t, undone.ReviewLog)
		assert.Equal(t, domain.StageNew, undone.Memory.Stage)
		assert.True(t, undone.Due.Equal(created.Add(domain.NewCardDueDelay)))
		assert.Nil(t, undone.LastReviewed)
		assert.Nil(t, undone.Memory.LastReview)
	})

	t.Run("empty log is a state error and changes nothing", func(t *testing.T) {
		f := newFixture(t)
		card := f.insert(t, "Errors", created)

		_, err := f.svc.Undo(ctx, card.ID)
		assert.ErrorIs(t, err, domain.ErrNoReviewsToUndo)
		assert.ErrorIs(t, err, domain.ErrInvalidState)

		stored := f.get(t, card.ID)
		assert.Equal(t, int64(1), stored.Version)
		assert.True(t, stored.Due.Equal(card.Due))
		assert.Empty(t, f.emitted(events.TypeReviewUndone))
	})

	t.Run("missing card", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.Undo(ctx, uuid.New())
		assert.ErrorIs(t, err, store.ErrCardNotFound)
	})
}

func TestPreview(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	card := f.insert(t, "Generics", created)
	now := created.Add(26 * time.Hour)

	preview, err := f.svc.Preview(ctx, card.ID, now)
	require.NoError(t, err)
	require.Len(t, preview, 4)

	assert.False(t, preview[domain.RatingAgain].After(preview[domain.RatingHard]))
	assert.False(t, preview[domain.RatingHard].After(preview[domain.RatingGood]))
	assert.False(t, preview[domain.RatingGood].After(preview[domain.RatingEasy]))
	for _, r := range domain.AllRatings {
		assert.True(t, preview[r].After(now), "rating %s", r)
	}

	// The preview for a rating matches what submitting it produces.
	reviewed, err := f.svc.SubmitReview(ctx, card.ID, domain.RatingGood, now)
	require.NoError(t, err)
	assert.True(t, preview[domain.RatingGood].Equal(reviewed.Due))

	_, err = f.svc.Preview(ctx, uuid.New(), now)
	assert.ErrorIs(t, err, store.ErrCardNotFound)
}

func TestPreviewDoesNotMutate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	card := f.insert(t, "Pure", created)

	_, err := f.svc.Preview(ctx, card.ID, created.Add(30*time.Hour))
	require.NoError(t, err)

	stored := f.get(t, card.ID)
	assert.Equal(t, int64(1), stored.Version)
	assert.Empty(t, stored.ReviewLog)
}

func TestDueCards(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	// New cards are due a day after creation.
	overdue := f.insert(t, "overdue", now.Add(-time.Hour-domain.NewCardDueDelay))
	soon := f.insert(t, "soon", now.Add(5*time.Minute-domain.NewCardDueDelay))
	f.insert(t, "later", now.Add(time.Hour-domain.NewCardDueDelay))

	due, err := f.svc.DueCards(ctx, now, card_review.DefaultLookahead)
	require.NoError(t, err)
	require.Len(t, due, 2)
	assert.Equal(t, overdue.ID, due[0].ID)
	assert.Equal(t, soon.ID, due[1].ID)

	due, err = f.svc.DueCards(ctx, now, 0)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, overdue.ID, due[0].ID)

	due, err = f.svc.DueCards(ctx, now, 2*time.Hour)
	require.NoError(t, err)
	assert.Len(t, due, 3)

	_, err = f.svc.DueCards(ctx, now, -time.Minute)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestRecalculateAll(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	reviewedA := f.insert(t, "a", created)
	reviewedB := f.insert(t, "b", created)
	untouched := f.insert(t, "c", created)

	_, err := f.svc.SubmitReview(ctx, reviewedA.ID, domain.RatingGood, created.Add(25*time.Hour))
	require.NoError(t, err)
	beforeA, err := f.svc.SubmitReview(ctx, reviewedA.ID, domain.RatingGood, created.Add(100*time.Hour))
	require.NoError(t, err)
	beforeB, err := f.svc.SubmitReview(ctx, reviewedB.ID, domain.RatingHard, created.Add(30*time.Hour))
	require.NoError(t, err)

	t.Run("same target is idempotent", func(t *testing.T) {
		result, err := f.svc.RecalculateAll(ctx, nil)
		require.NoError(t, err)
		assert.Equal(t, card_review.RecalculateResult{Updated: 2, Total: 3}, result)

		a := f.get(t, reviewedA.ID)
		assert.True(t, a.Due.Equal(beforeA.Due))
		assert.True(t, a.Memory.Equal(beforeA.Memory))
	})

	t.Run("lower target lengthens intervals", func(t *testing.T) {
		f.retention.set(0.8)

		var calls []int
		result, err := f.svc.RecalculateAll(ctx, func(done, total int) {
			assert.Equal(t, 2, total)
			calls = append(calls, done)
		})
		require.NoError(t, err)
		assert.Equal(t, card_review.RecalculateResult{Updated: 2, Total: 3}, result)
		assert.Equal(t, []int{1, 2}, calls)

		a := f.get(t, reviewedA.ID)
		b := f.get(t, reviewedB.ID)
		assert.True(t, a.Due.After(beforeA.Due))
		assert.True(t, b.Due.After(beforeB.Due))
		assert.Len(t, a.ReviewLog, 2)
		assert.True(t, a.LastReviewed.Equal(*beforeA.LastReviewed))

		c := f.get(t, untouched.ID)
		assert.Equal(t, int64(1), c.Version)
		assert.True(t, c.Due.Equal(untouched.Due))
	})

	recalculated := f.emitted(events.TypeCardsRecalculated)
	require.Len(t, recalculated, 2)
	var payload events.CardsRecalculatedPayload
	require.NoError(t, recalculated[1].UnmarshalPayload(&payload))
	assert.Equal(t, 2, payload.Updated)
	assert.Equal(t, 3, payload.Total)
}

func TestRecalculateAllEmpty(t *testing.T) {
	f := newFixture(t)
	f.insert(t, "new", created)

	result, err := f.svc.RecalculateAll(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, card_review.RecalculateResult{Updated: 0, Total: 1}, result)
}

func TestRecalculateAllHonoursCancellation(t *testing.T) {
	f := newFixture(t)
	card := f.insert(t, "a", created)
	_, err := f.svc.SubmitReview(context.Background(), card.ID, domain.RatingGood, created.Add(25*time.Hour))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = f.svc.RecalculateAll(ctx, nil)
	assert.Error(t, err)
}
