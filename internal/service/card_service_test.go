package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/revision-scheduler/internal/domain"
	"github.com/phrazzld/revision-scheduler/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestNewCardService(t *testing.T) {
	env := newTestEnv(t)
	topics := env.topicService(t)

	_, err := NewCardService(nil, topics, env.locks, nil)
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = NewCardService(env.cards, nil, env.locks, nil)
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = NewCardService(env.cards, topics, nil, nil)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestCardServiceCreate(t *testing.T) {
	ctx := context.Background()
	created := time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC)
	env := newTestEnv(t)
	svc := env.cardService(t, WithClock(fixedClock(created)))

	t.Run("new card is due a day later", func(t *testing.T) {
		card, err := svc.Create(ctx, CreateCardInput{
			Topic:   " Go ",
			Title:   " Select ",
			Content: "  waits on many channels\n",
		})
		require.NoError(t, err)
		assert.Equal(t, "Go", card.Topic)
		assert.Equal(t, "Select", card.Title)
		assert.Equal(t, "waits on many channels", card.Content)
		assert.Equal(t, domain.DefaultTopicColor, card.TopicColor)
		assert.True(t, card.Due.Equal(created.Add(24*time.Hour)))
		assert.Equal(t, domain.StageNew, card.Memory.Stage)
		assert.Empty(t, card.ReviewLog)
		assert.Nil(t, card.LastReviewed)
		assert.Equal(t, int64(1), card.Version)
	})

	t.Run("supplied color creates the topic", func(t *testing.T) {
		card, err := svc.Create(ctx, CreateCardInput{Topic: "Rust", Title: "Borrowing", TopicColor: "#b7410e"})
		require.NoError(t, err)
		assert.Equal(t, "#b7410e", card.TopicColor)

		// The stored topic color now wins over a different supplied one.
		card, err = svc.Create(ctx, CreateCardInput{Topic: "rust", Title: "Lifetimes", TopicColor: "#000000"})
		require.NoError(t, err)
		assert.Equal(t, "#b7410e", card.TopicColor)
	})

	t.Run("blank fields are rejected", func(t *testing.T) {
		_, err := svc.Create(ctx, CreateCardInput{Topic: "  ", Title: "x"})
		assert.ErrorIs(t, err, domain.ErrValidation)
		_, err = svc.Create(ctx, CreateCardInput{Topic: "Go", Title: "\t"})
		assert.ErrorIs(t, err, domain.ErrValidation)
	})
}

func TestCardServiceListAndGet(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	clock := now
	svc := env.cardService(t, WithClock(func() time.Time { return clock }))

	var ids []uuid.UUID
	for _, title := range []string{"first", "second", "third"} {
		card, err := svc.Create(ctx, CreateCardInput{Topic: "Go", Title: title})
		require.NoError(t, err)
		ids = append(ids, card.ID)
		clock = clock.Add(time.Minute)
	}

	cards, err := svc.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, cards, 3)
	assert.Equal(t, []uuid.UUID{ids[2], ids[1], ids[0]}, []uuid.UUID{cards[0].ID, cards[1].ID, cards[2].ID})

	got, err := svc.Get(ctx, ids[1])
	require.NoError(t, err)
	assert.Equal(t, "second", got.Title)

	_, err = svc.Get(ctx, uuid.New())
	assert.ErrorIs(t, err, store.ErrCardNotFound)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestCardServiceUpdate(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	svc := env.cardService(t)

	card, err := svc.Create(ctx, CreateCardInput{Topic: "Go", Title: "Maps", Content: "hash tables"})
	require.NoError(t, err)

	_, _, err = env.topicService(t).Upsert(ctx, "Rust", "#b7410e")
	require.NoError(t, err)

	t.Run("color follows the new topic", func(t *testing.T) {
		updated, err := svc.Update(ctx, card.ID, UpdateCardInput{Topic: "Rust", Title: "HashMap", Content: " buckets "})
		require.NoError(t, err)
		assert.Equal(t, "Rust", updated.Topic)
		assert.Equal(t, "HashMap", updated.Title)
		assert.Equal(t, "buckets", updated.Content)
		assert.Equal(t, "#b7410e", updated.TopicColor)
		assert.Equal(t, int64(2), updated.Version)
		assert.True(t, card.Due.Equal(updated.Due), "editing must not reschedule")
	})

	t.Run("explicit color", func(t *testing.T) {
		updated, err := svc.Update(ctx, card.ID, UpdateCardInput{Topic: "Rust", Title: "HashMap", TopicColor: "#123456"})
		require.NoError(t, err)
		assert.Equal(t, "#123456", updated.TopicColor)
	})

	t.Run("unknown topic gets the default color", func(t *testing.T) {
		updated, err := svc.Update(ctx, card.ID, UpdateCardInput{Topic: "Elm", Title: "Records"})
		require.NoError(t, err)
		assert.Equal(t, domain.DefaultTopicColor, updated.TopicColor)
	})

	t.Run("missing card", func(t *testing.T) {
		_, err := svc.Update(ctx, uuid.New(), UpdateCardInput{Topic: "Go", Title: "x"})
		assert.ErrorIs(t, err, store.ErrCardNotFound)
	})

	t.Run("blank title", func(t *testing.T) {
		_, err := svc.Update(ctx, card.ID, UpdateCardInput{Topic: "Go", Title: ""})
		assert.ErrorIs(t, err, domain.ErrValidation)
	})
}

func TestCardServiceDelete(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	svc := env.cardService(t)

	card, err := svc.Create(ctx, CreateCardInput{Topic: "Go", Title: "Defer"})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, card.ID))
	_, err = svc.Get(ctx, card.ID)
	assert.ErrorIs(t, err, store.ErrCardNotFound)

	err = svc.Delete(ctx, card.ID)
	assert.ErrorIs(t, err, store.ErrCardNotFound)
	assert.Equal(t, 0, env.locks.active())
}

func TestCardServiceStats(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	loc := time.FixedZone("UTC+10", 10*3600)
	svc := env.cardService(t, WithLocation(loc))

	// 2025-03-10 08:00 local is 2025-03-09 22:00 UTC.
	now := time.Date(2025, 3, 10, 8, 0, 0, 0, loc)

	due := insertCard(t, env, "Go", "", "due")
	notDue := insertCard(t, env, "Go", "", "not due")
	reviewedToday := insertCard(t, env, "Go", "", "reviewed today")
	reviewedYesterday := insertCard(t, env, "Go", "", "reviewed yesterday")

	schedule := func(card *domain.Card, dueAt time.Time, lastReviewed *time.Time) {
		t.Helper()
		_, err := env.cards.UpdateByID(ctx, card.ID, card.Version, store.CardPatch{
			Schedule: &store.ScheduleUpdate{
				Memory:       card.Memory,
				Due:          dueAt,
				LastReviewed: lastReviewed,
				ReviewLog:    card.ReviewLog,
			},
		})
		require.NoError(t, err)
	}

	todayMorning := time.Date(2025, 3, 10, 0, 30, 0, 0, loc)
	lateYesterday := time.Date(2025, 3, 9, 23, 59, 0, 0, loc)
	schedule(due, now.Add(-time.Hour), nil)
	schedule(notDue, now.Add(time.Hour), nil)
	schedule(reviewedToday, now.Add(48*time.Hour), &todayMorning)
	schedule(reviewedYesterday, now, &lateYesterday)

	stats, err := svc.Stats(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, CardStats{Total: 4, Due: 2, ReviewedToday: 1}, stats)
}

func TestStartOfDay(t *testing.T) {
	loc := time.FixedZone("UTC-5", -5*3600)
	got := StartOfDay(time.Date(2025, 3, 10, 2, 0, 0, 0, time.UTC), loc)
	assert.True(t, got.Equal(time.Date(2025, 3, 9, 0, 0, 0, 0, loc)))
}
