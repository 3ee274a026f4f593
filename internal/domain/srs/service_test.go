package srs

import (
	"testing"
	"time"

	"github.com/phrazzld/revision-scheduler/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) Service {
	t.Helper()
	svc, err := NewDefaultService()
	require.NoError(t, err, "Failed to create SRS service")
	return svc
}

func TestNewDefaultService(t *testing.T) {
	t.Parallel()
	service := newTestService(t)

	defaultSvc, ok := service.(*defaultService)
	if !ok {
		t.Fatal("Expected *defaultService type")
	}
	if defaultSvc.params == nil {
		t.Fatal("Expected non-nil params")
	}

	_, err := NewServiceWithParams(nil)
	assert.ErrorIs(t, err, ErrInvalidParams)
}

func TestAdvanceFirstReview(t *testing.T) {
	t.Parallel()
	svc := newTestService(t)
	now := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)

	for _, r := range domain.AllRatings {
		state, due, err := svc.Advance(domain.NewMemoryState(), r, now, 0.9)
		require.NoError(t, err)
		assert.Equal(t, domain.StageLearning, state.Stage, "rating %s", r)
		assert.Equal(t, 1, state.Reps)
		assert.Equal(t, 0, state.Lapses)
		require.NotNil(t, state.LastReview)
		assert.True(t, state.LastReview.Equal(now))
		assert.InDelta(t, DefaultWeights[r-1], state.Stability, epsilon)
		assert.GreaterOrEqual(t, state.Difficulty, 1.0)
		assert.LessOrEqual(t, state.Difficulty, 10.0)
		assert.True(t, due.After(now))
	}
}

func TestAdvanceTransitions(t *testing.T) {
	t.Parallel()
	svc := newTestService(t)
	start := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)

	state, due, err := svc.Advance(domain.NewMemoryState(), domain.RatingGood, start, 0.9)
	require.NoError(t, err)

	state, due, err = svc.Advance(state, domain.RatingGood, due, 0.9)
	require.NoError(t, err)
	assert.Equal(t, domain.StageReview, state.Stage)
	assert.Equal(t, 2, state.Reps)
	stabilityBefore := state.Stability

	state, _, err = svc.Advance(state, domain.RatingAgain, due.Add(time.Hour), 0.9)
	require.NoError(t, err)
	assert.Equal(t, domain.StageRelearning, state.Stage)
	assert.Equal(t, 3, state.Reps)
	assert.Equal(t, 1, state.Lapses)
	assert.Less(t, state.Stability, stabilityBefore)
}

func TestAdvanceIsDeterministic(t *testing.T) {
	t.Parallel()
	svc := newTestService(t)
	last := time.Date(2024, 2, 2, 10, 0, 0, 0, time.UTC)
	state := domain.MemoryState{
		Stage:      domain.StageReview,
		Stability:  7.25,
		Difficulty: 5.5,
		Reps:       4,
		Lapses:     1,
		LastReview: &last,
	}
	at := last.Add(9*24*time.Hour + 3*time.Hour)

	s1, d1, err1 := svc.Advance(state, domain.RatingHard, at, 0.85)
	s2, d2, err2 := svc.Advance(state, domain.RatingHard, at, 0.85)
	require.NoError(t, err1)
	require.NoError(t, err2)
	assert.True(t, s1.Equal(s2))
	assert.Equal(t, s1.Stability, s2.Stability, "bit-for-bit identical")
	assert.True(t, d1.Equal(d2))
}

func TestAdvanceDueMatchesRetentionTarget(t *testing.T) {
	t.Parallel()
	svc := newTestService(t)
	now := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)

	state, _, err := svc.Advance(domain.NewMemoryState(), domain.RatingEasy, now, 0.9)
	require.NoError(t, err)
	next, due, err := svc.Advance(state, domain.RatingGood, now.Add(10*24*time.Hour), 0.8)
	require.NoError(t, err)

	assert.InDelta(t, 0.8, svc.Retrievability(next, due), 1e-6)
}

func TestAdvanceMinimumInterval(t *testing.T) {
	t.Parallel()
	w := DefaultWeights
	w[0] = 0.001
	params, err := NewParams(ParamsConfig{Weights: w[:]})
	require.NoError(t, err)
	svc, err := NewServiceWithParams(params)
	require.NoError(t, err)

	now := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
	_, due, err := svc.Advance(domain.NewMemoryState(), domain.RatingAgain, now, 0.97)
	require.NoError(t, err)
	assert.Equal(t, now.Add(5*time.Minute), due)
}

func TestAdvanceRejectsInvalidInput(t *testing.T) {
	t.Parallel()
	svc := newTestService(t)
	now := time.Now()

	_, _, err := svc.Advance(domain.NewMemoryState(), domain.Rating(0), now, 0.9)
	assert.ErrorIs(t, err, domain.ErrInvalidRating)

	_, _, err = svc.Advance(domain.NewMemoryState(), domain.Rating(5), now, 0.9)
	assert.ErrorIs(t, err, domain.ErrInvalidRating)

	_, _, err = svc.Advance(domain.NewMemoryState(), domain.RatingGood, now, 0.5)
	assert.ErrorIs(t, err, domain.ErrRetentionOutOfRange)

	_, _, err = svc.Advance(domain.NewMemoryState(), domain.RatingGood, now, 0.98)
	assert.ErrorIs(t, err, domain.ErrRetentionOutOfRange)
}

func TestAdvanceTimeTravel(t *testing.T) {
	t.Parallel()
	svc := newTestService(t)
	now := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)

	state, _, err := svc.Advance(domain.NewMemoryState(), domain.RatingGood, now, 0.9)
	require.NoError(t, err)

	_, _, err = svc.Advance(state, domain.RatingGood, now.Add(-time.Second), 0.9)
	assert.ErrorIs(t, err, ErrTimeTravel)

	_, _, err = svc.Advance(state, domain.RatingGood, now, 0.9)
	assert.NoError(t, err, "a review at the same instant is allowed")
}

func TestAdvanceCorruptState(t *testing.T) {
	t.Parallel()
	svc := newTestService(t)

	_, _, err := svc.Advance(domain.MemoryState{Stage: domain.StageReview}, domain.RatingGood, time.Now(), 0.9)
	assert.ErrorIs(t, err, ErrCorruptState)
}

func TestReplayEmptyLog(t *testing.T) {
	t.Parallel()
	svc := newTestService(t)
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	state, due, err := svc.Replay(nil, created, 0.9)
	require.NoError(t, err)
	assert.True(t, state.Equal(domain.NewMemoryState()))
	assert.Equal(t, created.Add(24*time.Hour), due)
}

func TestReplayMatchesIncrementalAdvance(t *testing.T) {
	t.Parallel()
	svc := newTestService(t)
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	ratings := []domain.Rating{domain.RatingGood, domain.RatingHard, domain.RatingAgain, domain.RatingEasy}
	var log []domain.ReviewEvent
	state := domain.NewMemoryState()
	var due time.Time
	at := created.Add(25 * time.Hour)
	for _, r := range ratings {
		ev := domain.NewReviewEvent(r, at)
		log = append(log, ev)
		var err error
		state, due, err = svc.Advance(state, ev.Rating, ev.ReviewedAt, 0.9)
		require.NoError(t, err)
		at = due.Add(37 * time.Minute)
	}

	replayed, replayedDue, err := svc.Replay(log, created, 0.9)
	require.NoError(t, err)
	assert.True(t, state.Equal(replayed))
	assert.True(t, due.Equal(replayedDue))

	again, againDue, err := svc.Replay(log, created, 0.9)
	require.NoError(t, err)
	assert.True(t, replayed.Equal(again), "replay must be idempotent")
	assert.True(t, replayedDue.Equal(againDue))
}

func TestReplaySortsByTimestamp(t *testing.T) {
	t.Parallel()
	svc := newTestService(t)
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	first := domain.NewReviewEvent(domain.RatingGood, created.Add(48*time.Hour))
	second := domain.NewReviewEvent(domain.RatingAgain, created.Add(96*time.Hour))

	ordered, orderedDue, err := svc.Replay([]domain.ReviewEvent{first, second}, created, 0.9)
	require.NoError(t, err)
	shuffled, shuffledDue, err := svc.Replay([]domain.ReviewEvent{second, first}, created, 0.9)
	require.NoError(t, err)

	assert.True(t, ordered.Equal(shuffled))
	assert.True(t, orderedDue.Equal(shuffledDue))
	assert.Equal(t, domain.StageRelearning, ordered.Stage)
}

func TestReplayRetentionChangesDue(t *testing.T) {
	t.Parallel()
	svc := newTestService(t)
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	log := []domain.ReviewEvent{
		domain.NewReviewEvent(domain.RatingGood, created.Add(24*time.Hour)),
		domain.NewReviewEvent(domain.RatingGood, created.Add(5*24*time.Hour)),
	}

	_, due90, err := svc.Replay(log, created, 0.9)
	require.NoError(t, err)
	_, due80, err := svc.Replay(log, created, 0.8)
	require.NoError(t, err)
	assert.True(t, due80.After(due90))

	_, _, err = svc.Replay(log, created, 0.1)
	assert.ErrorIs(t, err, domain.ErrRetentionOutOfRange)
}

func TestPreview(t *testing.T) {
	t.Parallel()
	svc := newTestService(t)
	now := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)

	preview, err := svc.Preview(domain.NewMemoryState(), now, 0.9)
	require.NoError(t, err)
	require.Len(t, preview, 4)
	assert.True(t, preview[domain.RatingAgain].Before(preview[domain.RatingHard]))
	assert.True(t, preview[domain.RatingHard].Before(preview[domain.RatingGood]))
	assert.True(t, preview[domain.RatingGood].Before(preview[domain.RatingEasy]))
}

func TestRetrievabilityOfNewCard(t *testing.T) {
	t.Parallel()
	svc := newTestService(t)
	assert.Equal(t, 0.0, svc.Retrievability(domain.NewMemoryState(), time.Now()))
}
