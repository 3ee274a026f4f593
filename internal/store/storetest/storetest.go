// Package storetest holds behavioral tests shared by every store backend.
package storetest

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/revision-scheduler/internal/domain"
	"github.com/phrazzld/revision-scheduler/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Stores bundles the stores of one backend, all on the same database.
type Stores struct {
	DB       *sql.DB
	Cards    store.CardStore
	Topics   store.TopicStore
	Settings store.SettingsStore
}

// Factory returns a fresh, empty set of stores.
type Factory func(t *testing.T) Stores

var base = time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)

// NewCard builds a valid card created at base plus offset.
func NewCard(t *testing.T, topic, title string, offset time.Duration) *domain.Card {
	t.Helper()
	card, err := domain.NewCard(topic, "", title, "content of "+title, base.Add(offset))
	require.NoError(t, err)
	return card
}

// RunAll runs every store suite against the backend.
func RunAll(t *testing.T, factory Factory) {
	t.Run("CardStore", func(t *testing.T) { RunCardStoreTests(t, factory) })
	t.Run("TopicStore", func(t *testing.T) { RunTopicStoreTests(t, factory) })
	t.Run("SettingsStore", func(t *testing.T) { RunSettingsStoreTests(t, factory) })
}

// RunCardStoreTests verifies store.CardStore behavior.
func RunCardStoreTests(t *testing.T, factory Factory) {
	ctx := context.Background()

	t.Run("insert and read back", func(t *testing.T) {
		s := factory(t)
		card := NewCard(t, "Go", "Interfaces", 0)
		require.NoError(t, s.Cards.Insert(ctx, card))
		assert.Equal(t, int64(1), card.Version)

		got, err := s.Cards.FindOne(ctx, store.ByID(card.ID))
		require.NoError(t, err)
		assert.Equal(t, card.ID, got.ID)
		assert.Equal(t, "Go", got.Topic)
		assert.Equal(t, domain.DefaultTopicColor, got.TopicColor)
		assert.Equal(t, "content of Interfaces", got.Content)
		assert.True(t, card.CreatedAt.Equal(got.CreatedAt))
		assert.True(t, card.Due.Equal(got.Due))
		assert.Equal(t, domain.StageNew, got.Memory.Stage)
		assert.Nil(t, got.Memory.LastReview)
		assert.Nil(t, got.LastReviewed)
		assert.Empty(t, got.ReviewLog)
		assert.Equal(t, int64(1), got.Version)
	})

	t.Run("duplicate id", func(t *testing.T) {
		s := factory(t)
		card := NewCard(t, "Go", "Maps", 0)
		require.NoError(t, s.Cards.Insert(ctx, card))
		err := s.Cards.Insert(ctx, card.Clone())
		assert.ErrorIs(t, err, store.ErrDuplicate)
	})

	t.Run("invalid card rejected", func(t *testing.T) {
		s := factory(t)
		card := NewCard(t, "Go", "Slices", 0)
		card.Title = "  "
		assert.ErrorIs(t, s.Cards.Insert(ctx, card), store.ErrInvalidEntity)
	})

	t.Run("find one missing", func(t *testing.T) {
		s := factory(t)
		_, err := s.Cards.FindOne(ctx, store.ByID(uuid.New()))
		assert.ErrorIs(t, err, store.ErrCardNotFound)
	})

	t.Run("filters and ordering", func(t *testing.T) {
		s := factory(t)
		a := NewCard(t, "Go", "A", 0)
		b := NewCard(t, "go", "B", time.Hour)
		c := NewCard(t, "Rust", "C", 2*time.Hour)
		for _, card := range []*domain.Card{a, b, c} {
			require.NoError(t, s.Cards.Insert(ctx, card))
		}

		all, err := s.Cards.Find(ctx, store.CardFilter{}, store.SortCreatedDesc)
		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.Equal(t, []uuid.UUID{c.ID, b.ID, a.ID}, ids(all))

		cutoff := a.Due.Add(30 * time.Minute)
		due, err := s.Cards.Find(ctx, store.CardFilter{DueBefore: &cutoff}, store.SortDueAsc)
		require.NoError(t, err)
		assert.Equal(t, []uuid.UUID{a.ID}, ids(due))

		exact := b.Due
		due, err = s.Cards.Find(ctx, store.CardFilter{DueBefore: &exact}, store.SortDueAsc)
		require.NoError(t, err)
		assert.Equal(t, []uuid.UUID{a.ID, b.ID}, ids(due))

		goCards, err := s.Cards.Find(ctx, store.CardFilter{Topic: "GO"}, store.SortDueAsc)
		require.NoError(t, err)
		assert.Equal(t, []uuid.UUID{a.ID, b.ID}, ids(goCards))

		n, err := s.Cards.Count(ctx, store.CardFilter{})
		require.NoError(t, err)
		assert.Equal(t, 3, n)

		n, err = s.Cards.Count(ctx, store.CardFilter{HasReviews: true})
		require.NoError(t, err)
		assert.Equal(t, 0, n)
	})

	t.Run("update with schedule", func(t *testing.T) {
		s := factory(t)
		card := NewCard(t, "Go", "Goroutines", 0)
		require.NoError(t, s.Cards.Insert(ctx, card))

		reviewed := base.Add(25*time.Hour + 123456789*time.Nanosecond)
		event := domain.NewReviewEvent(domain.RatingGood, reviewed)
		memory := domain.MemoryState{
			Stage:      domain.StageLearning,
			Stability:  3.1262,
			Difficulty: 5.31457783,
			Reps:       1,
			LastReview: &event.ReviewedAt,
		}
		updated, err := s.Cards.UpdateByID(ctx, card.ID, 1, store.CardPatch{
			Schedule: &store.ScheduleUpdate{
				Memory:       memory,
				Due:          reviewed.Add(72 * time.Hour),
				LastReviewed: &reviewed,
				ReviewLog:    []domain.ReviewEvent{event},
			},
		})
		require.NoError(t, err)
		assert.Equal(t, int64(2), updated.Version)

		got, err := s.Cards.FindOne(ctx, store.ByID(card.ID))
		require.NoError(t, err)
		assert.Equal(t, int64(2), got.Version)
		assert.True(t, memory.Equal(got.Memory), "memory state must round-trip exactly")
		assert.True(t, domain.NormalizeTime(reviewed.Add(72*time.Hour)).Equal(got.Due))
		require.NotNil(t, got.LastReviewed)
		assert.True(t, event.ReviewedAt.Equal(*got.LastReviewed))
		require.Len(t, got.ReviewLog, 1)
		assert.Equal(t, domain.RatingGood, got.ReviewLog[0].Rating)
		assert.Equal(t, "Good", got.ReviewLog[0].Label)
		assert.True(t, event.ReviewedAt.Equal(got.ReviewLog[0].ReviewedAt))

		since := base.Add(24 * time.Hour)
		n, err := s.Cards.Count(ctx, store.CardFilter{ReviewedSince: &since})
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		reviewedCards, err := s.Cards.Find(ctx, store.CardFilter{HasReviews: true}, store.SortNone)
		require.NoError(t, err)
		assert.Len(t, reviewedCards, 1)
	})

	t.Run("version conflict", func(t *testing.T) {
		s := factory(t)
		card := NewCard(t, "Go", "Select", 0)
		require.NoError(t, s.Cards.Insert(ctx, card))

		title := "Select statement"
		_, err := s.Cards.UpdateByID(ctx, card.ID, 1, store.CardPatch{Title: &title})
		require.NoError(t, err)

		stale := "stale"
		_, err = s.Cards.UpdateByID(ctx, card.ID, 1, store.CardPatch{Title: &stale})
		assert.ErrorIs(t, err, store.ErrVersionConflict)

		got, err := s.Cards.FindOne(ctx, store.ByID(card.ID))
		require.NoError(t, err)
		assert.Equal(t, "Select statement", got.Title)
	})

	t.Run("update missing card", func(t *testing.T) {
		s := factory(t)
		title := "x"
		_, err := s.Cards.UpdateByID(ctx, uuid.New(), 1, store.CardPatch{Title: &title})
		assert.ErrorIs(t, err, store.ErrCardNotFound)
	})

	t.Run("delete", func(t *testing.T) {
		s := factory(t)
		card := NewCard(t, "Go", "Defer", 0)
		require.NoError(t, s.Cards.Insert(ctx, card))

		deleted, err := s.Cards.DeleteByID(ctx, card.ID)
		require.NoError(t, err)
		assert.True(t, deleted)

		deleted, err = s.Cards.DeleteByID(ctx, card.ID)
		require.NoError(t, err)
		assert.False(t, deleted)
	})

	t.Run("set topic color", func(t *testing.T) {
		s := factory(t)
		a := NewCard(t, "Go", "A", 0)
		b := NewCard(t, "GO", "B", time.Minute)
		c := NewCard(t, "Rust", "C", 2*time.Minute)
		for _, card := range []*domain.Card{a, b, c} {
			require.NoError(t, s.Cards.Insert(ctx, card))
		}

		n, err := s.Cards.SetTopicColor(ctx, "go", "#00ff00")
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		n, err = s.Cards.SetTopicColor(ctx, "go", "#00ff00")
		require.NoError(t, err)
		assert.Equal(t, 0, n, "cards already carrying the color are untouched")

		got, err := s.Cards.FindOne(ctx, store.ByID(b.ID))
		require.NoError(t, err)
		assert.Equal(t, "#00ff00", got.TopicColor)
		assert.Equal(t, int64(2), got.Version)

		got, err = s.Cards.FindOne(ctx, store.ByID(c.ID))
		require.NoError(t, err)
		assert.Equal(t, domain.DefaultTopicColor, got.TopicColor)
	})

	t.Run("transaction rollback", func(t *testing.T) {
		s := factory(t)
		card := NewCard(t, "Go", "Tx", 0)
		require.NoError(t, s.Cards.Insert(ctx, card))

		boom := errors.New("boom")
		err := store.RunInTransaction(ctx, s.DB, func(ctx context.Context, tx *sql.Tx) error {
			n, err := s.Cards.WithTx(tx).SetTopicColor(ctx, "Go", "#123456")
			require.NoError(t, err)
			assert.Equal(t, 1, n)
			return boom
		})
		assert.ErrorIs(t, err, boom)

		got, err := s.Cards.FindOne(ctx, store.ByID(card.ID))
		require.NoError(t, err)
		assert.Equal(t, domain.DefaultTopicColor, got.TopicColor)
	})
}

// RunTopicStoreTests verifies store.TopicStore behavior.
func RunTopicStoreTests(t *testing.T, factory Factory) {
	ctx := context.Background()

	t.Run("upsert and get case-insensitively", func(t *testing.T) {
		s := factory(t)
		topic, err := domain.NewTopic("Biology", "#22c55e", base)
		require.NoError(t, err)

		stored, err := s.Topics.Upsert(ctx, topic)
		require.NoError(t, err)
		assert.Equal(t, "Biology", stored.Name)

		got, err := s.Topics.Get(ctx, "  biology ")
		require.NoError(t, err)
		assert.Equal(t, "#22c55e", got.Color)
		assert.True(t, base.Equal(got.CreatedAt))
	})

	t.Run("upsert updates color and keeps name", func(t *testing.T) {
		s := factory(t)
		first, err := domain.NewTopic("Chemistry", "#111111", base)
		require.NoError(t, err)
		_, err = s.Topics.Upsert(ctx, first)
		require.NoError(t, err)

		second, err := domain.NewTopic("CHEMISTRY", "#222222", base.Add(time.Hour))
		require.NoError(t, err)
		stored, err := s.Topics.Upsert(ctx, second)
		require.NoError(t, err)
		assert.Equal(t, "Chemistry", stored.Name)
		assert.Equal(t, "#222222", stored.Color)
		assert.True(t, base.Equal(stored.CreatedAt))
	})

	t.Run("list ordered by name", func(t *testing.T) {
		s := factory(t)
		for _, name := range []string{"physics", "Art", "math"} {
			topic, err := domain.NewTopic(name, "#000000", base)
			require.NoError(t, err)
			_, err = s.Topics.Upsert(ctx, topic)
			require.NoError(t, err)
		}
		topics, err := s.Topics.List(ctx)
		require.NoError(t, err)
		names := make([]string, 0, len(topics))
		for _, topic := range topics {
			names = append(names, topic.Name)
		}
		assert.Equal(t, []string{"Art", "math", "physics"}, names)
	})

	t.Run("missing topic", func(t *testing.T) {
		s := factory(t)
		_, err := s.Topics.Get(ctx, "nothing")
		assert.ErrorIs(t, err, store.ErrTopicNotFound)
		assert.True(t, store.IsNotFoundError(err))
	})
}

// RunSettingsStoreTests verifies store.SettingsStore behavior.
func RunSettingsStoreTests(t *testing.T, factory Factory) {
	ctx := context.Background()

	t.Run("missing settings", func(t *testing.T) {
		s := factory(t)
		_, err := s.Settings.Get(ctx)
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("save and overwrite", func(t *testing.T) {
		s := factory(t)
		require.NoError(t, s.Settings.Save(ctx, domain.Settings{RetentionTarget: 0.85}))
		require.NoError(t, s.Settings.Save(ctx, domain.Settings{RetentionTarget: 0.95}))

		got, err := s.Settings.Get(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0.95, got.RetentionTarget)
	})

	t.Run("out of range rejected", func(t *testing.T) {
		s := factory(t)
		err := s.Settings.Save(ctx, domain.Settings{RetentionTarget: 0.5})
		assert.ErrorIs(t, err, store.ErrInvalidEntity)
		assert.ErrorIs(t, err, domain.ErrRetentionOutOfRange)
	})
}

func ids(cards []*domain.Card) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(cards))
	for _, c := range cards {
		out = append(out, c.ID)
	}
	return out
}
