package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/revision-scheduler/internal/domain"
	"github.com/phrazzld/revision-scheduler/internal/platform/logger"
	"github.com/phrazzld/revision-scheduler/internal/store"
)

// CreateCardInput carries the fields of a new card.
type CreateCardInput struct {
	Topic      string
	Title      string
	Content    string
	TopicColor string
}

// UpdateCardInput carries the editable fields of a card. Scheduling state is
// not editable.
type UpdateCardInput struct {
	Topic      string
	Title      string
	Content    string
	TopicColor string
}

// CardStats summarizes the collection.
type CardStats struct {
	Total         int `json:"total_cards"`
	Due           int `json:"due_cards"`
	ReviewedToday int `json:"reviewed_today"`
}

// CardService manages the card lifecycle outside of reviews.
type CardService struct {
	cards    store.CardStore
	topics   *TopicService
	locks    *CardLocks
	location *time.Location
	logger   *slog.Logger
	now      func() time.Time
}

// CardServiceOption configures a CardService.
type CardServiceOption func(*CardService)

// WithLocation sets the time zone whose midnight starts "today" in Stats.
func WithLocation(loc *time.Location) CardServiceOption {
	return func(s *CardService) {
		if loc != nil {
			s.location = loc
		}
	}
}

// WithClock replaces time.Now as the source of creation times.
func WithClock(now func() time.Time) CardServiceOption {
	return func(s *CardService) {
		if now != nil {
			s.now = now
		}
	}
}

// NewCardService creates a CardService.
// It returns an error if any of the required dependencies are nil.
func NewCardService(
	cards store.CardStore,
	topics *TopicService,
	locks *CardLocks,
	logger *slog.Logger,
	opts ...CardServiceOption,
) (*CardService, error) {
	if cards == nil {
		return nil, domain.NewValidationError("cards", "cannot be nil", domain.ErrValidation)
	}
	if topics == nil {
		return nil, domain.NewValidationError("topics", "cannot be nil", domain.ErrValidation)
	}
	if locks == nil {
		return nil, domain.NewValidationError("locks", "cannot be nil", domain.ErrValidation)
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &CardService{
		cards:    cards,
		topics:   topics,
		locks:    locks,
		location: time.Local,
		logger:   logger.With(slog.String("component", "card_service")),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Create validates and stores a new card, due 24 hours after creation.
func (s *CardService) Create(ctx context.Context, in CreateCardInput) (*domain.Card, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	topic, title, err := validateCardFields(in.Topic, in.Title)
	if err != nil {
		return nil, err
	}

	color, err := s.topics.ResolveColor(ctx, topic, in.TopicColor)
	if err != nil {
		return nil, err
	}

	card, err := domain.NewCard(topic, color, title, strings.TrimSpace(in.Content), s.now())
	if err != nil {
		return nil, err
	}

	if err := s.cards.Insert(ctx, card); err != nil {
		log.Error("failed to insert card",
			slog.String("card_id", card.ID.String()),
			slog.String("error", err.Error()))
		return nil, NewServiceError("create_card", "failed to store card", err)
	}

	log.Info("card created",
		slog.String("card_id", card.ID.String()),
		slog.String("topic", card.Topic),
		slog.Time("due", card.Due))
	return card, nil
}

// ListAll returns every card, newest first.
func (s *CardService) ListAll(ctx context.Context) ([]*domain.Card, error) {
	cards, err := s.cards.Find(ctx, store.CardFilter{}, store.SortCreatedDesc)
	if err != nil {
		return nil, NewServiceError("list_cards", "failed to list cards", err)
	}
	return cards, nil
}

// Get returns one card.
func (s *CardService) Get(ctx context.Context, id uuid.UUID) (*domain.Card, error) {
	card, err := s.cards.FindOne(ctx, store.ByID(id))
	if err != nil {
		if store.IsNotFoundError(err) {
			return nil, err
		}
		return nil, NewServiceError("get_card", "failed to read card", err)
	}
	return card, nil
}

// Update replaces the topic, title, content, and color of a card. The color
// is taken from the input, else from the topic, else the default.
func (s *CardService) Update(ctx context.Context, id uuid.UUID, in UpdateCardInput) (*domain.Card, error) {
	log := logger.FromContextOrDefault(ctx, s.logger).With(slog.String("card_id", id.String()))

	topic, title, err := validateCardFields(in.Topic, in.Title)
	if err != nil {
		return nil, err
	}

	color := strings.TrimSpace(in.TopicColor)
	if color == "" {
		if color, err = s.topics.ColorFor(ctx, topic); err != nil {
			return nil, err
		}
	}
	content := strings.TrimSpace(in.Content)

	unlock := s.locks.LockCard(id)
	defer unlock()

	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	updated, err := s.cards.UpdateByID(ctx, id, current.Version, store.CardPatch{
		Topic:      &topic,
		TopicColor: &color,
		Title:      &title,
		Content:    &content,
	})
	if err != nil {
		if store.IsNotFoundError(err) || isConflict(err) {
			return nil, err
		}
		log.Error("failed to update card", slog.String("error", err.Error()))
		return nil, NewServiceError("update_card", "failed to store card", err)
	}

	log.Info("card updated")
	return updated, nil
}

// Delete removes a card and its review log.
func (s *CardService) Delete(ctx context.Context, id uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger).With(slog.String("card_id", id.String()))

	unlock := s.locks.LockCard(id)
	defer unlock()

	deleted, err := s.cards.DeleteByID(ctx, id)
	if err != nil {
		log.Error("failed to delete card", slog.String("error", err.Error()))
		return NewServiceError("delete_card", "failed to delete card", err)
	}
	if !deleted {
		return store.ErrCardNotFound
	}

	log.Info("card deleted")
	return nil
}

// Stats counts all cards, the cards due at now, and the cards reviewed since
// local midnight.
func (s *CardService) Stats(ctx context.Context, now time.Time) (CardStats, error) {
	var stats CardStats
	var err error

	if stats.Total, err = s.cards.Count(ctx, store.CardFilter{}); err != nil {
		return CardStats{}, NewServiceError("stats", "failed to count cards", err)
	}

	due := now
	if stats.Due, err = s.cards.Count(ctx, store.CardFilter{DueBefore: &due}); err != nil {
		return CardStats{}, NewServiceError("stats", "failed to count due cards", err)
	}

	midnight := StartOfDay(now, s.location)
	if stats.ReviewedToday, err = s.cards.Count(ctx, store.CardFilter{ReviewedSince: &midnight}); err != nil {
		return CardStats{}, NewServiceError("stats", "failed to count reviewed cards", err)
	}

	return stats, nil
}

// StartOfDay returns midnight of the day containing t in loc.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
}

func validateCardFields(topic, title string) (string, string, error) {
	topic = strings.TrimSpace(topic)
	title = strings.TrimSpace(title)
	if topic == "" {
		return "", "", domain.NewValidationError("topic", "is required", domain.ErrValidation)
	}
	if title == "" {
		return "", "", domain.NewValidationError("title", "is required", domain.ErrValidation)
	}
	return topic, title, nil
}

func isConflict(err error) bool {
	return errors.Is(err, store.ErrVersionConflict)
}
