package api

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/revision-scheduler/internal/domain"
	"github.com/phrazzld/revision-scheduler/internal/service"
	"github.com/phrazzld/revision-scheduler/internal/service/card_review"
	"github.com/stretchr/testify/mock"
)

type mockCardManager struct{ mock.Mock }

func (m *mockCardManager) Create(ctx context.Context, in service.CreateCardInput) (*domain.Card, error) {
	args := m.Called(ctx, in)
	card, _ := args.Get(0).(*domain.Card)
	return card, args.Error(1)
}

func (m *mockCardManager) ListAll(ctx context.Context) ([]*domain.Card, error) {
	args := m.Called(ctx)
	cards, _ := args.Get(0).([]*domain.Card)
	return cards, args.Error(1)
}

func (m *mockCardManager) Get(ctx context.Context, id uuid.UUID) (*domain.Card, error) {
	args := m.Called(ctx, id)
	card, _ := args.Get(0).(*domain.Card)
	return card, args.Error(1)
}

func (m *mockCardManager) Update(ctx context.Context, id uuid.UUID, in service.UpdateCardInput) (*domain.Card, error) {
	args := m.Called(ctx, id, in)
	card, _ := args.Get(0).(*domain.Card)
	return card, args.Error(1)
}

func (m *mockCardManager) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockCardManager) Stats(ctx context.Context, now time.Time) (service.CardStats, error) {
	args := m.Called(ctx, now)
	return args.Get(0).(service.CardStats), args.Error(1)
}

type mockReviewService struct{ mock.Mock }

var _ card_review.Service = (*mockReviewService)(nil)

func (m *mockReviewService) SubmitReview(
	ctx context.Context,
	cardID uuid.UUID,
	rating domain.Rating,
	now time.Time,
) (*domain.Card, error) {
	args := m.Called(ctx, cardID, rating, now)
	card, _ := args.Get(0).(*domain.Card)
	return card, args.Error(1)
}

func (m *mockReviewService) Undo(ctx context.Context, cardID uuid.UUID) (*domain.Card, error) {
	args := m.Called(ctx, cardID)
	card, _ := args.Get(0).(*domain.Card)
	return card, args.Error(1)
}

func (m *mockReviewService) Preview(
	ctx context.Context,
	cardID uuid.UUID,
	now time.Time,
) (map[domain.Rating]time.Time, error) {
	args := m.Called(ctx, cardID, now)
	preview, _ := args.Get(0).(map[domain.Rating]time.Time)
	return preview, args.Error(1)
}

func (m *mockReviewService) DueCards(ctx context.Context, now time.Time, lookahead time.Duration) ([]*domain.Card, error) {
	args := m.Called(ctx, now, lookahead)
	cards, _ := args.Get(0).([]*domain.Card)
	return cards, args.Error(1)
}

func (m *mockReviewService) RecalculateAll(
	ctx context.Context,
	progress card_review.ProgressFunc,
) (card_review.RecalculateResult, error) {
	args := m.Called(ctx, progress)
	return args.Get(0).(card_review.RecalculateResult), args.Error(1)
}

type mockSettingsManager struct{ mock.Mock }

func (m *mockSettingsManager) Get() domain.Settings {
	return m.Called().Get(0).(domain.Settings)
}

func (m *mockSettingsManager) Update(ctx context.Context, retentionTarget float64) (domain.Settings, error) {
	args := m.Called(ctx, retentionTarget)
	return args.Get(0).(domain.Settings), args.Error(1)
}

type mockTopicManager struct{ mock.Mock }

func (m *mockTopicManager) List(ctx context.Context) ([]*domain.Topic, error) {
	args := m.Called(ctx)
	topics, _ := args.Get(0).([]*domain.Topic)
	return topics, args.Error(1)
}

func (m *mockTopicManager) Upsert(ctx context.Context, name, color string) (*domain.Topic, bool, error) {
	args := m.Called(ctx, name, color)
	topic, _ := args.Get(0).(*domain.Topic)
	return topic, args.Bool(1), args.Error(2)
}
