package card_review

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/revision-scheduler/internal/domain"
	"github.com/phrazzld/revision-scheduler/internal/domain/srs"
	"github.com/phrazzld/revision-scheduler/internal/events"
	"github.com/phrazzld/revision-scheduler/internal/platform/logger"
	"github.com/phrazzld/revision-scheduler/internal/service"
	"github.com/phrazzld/revision-scheduler/internal/store"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/phrazzld/revision-scheduler/internal/service/card_review"

// Verify interface compliance at compile time
var _ Service = (*reviewService)(nil)

type reviewService struct {
	cards    store.CardStore
	srs      srs.Service
	settings RetentionSource
	locks    *service.CardLocks
	emitter  events.EventEmitter
	logger   *slog.Logger
	tracer   trace.Tracer
}

// NewService creates the review scheduling service. locks must be the table
// shared with every other writer of cards in the process. A nil emitter
// discards events.
func NewService(
	cards store.CardStore,
	srsService srs.Service,
	settings RetentionSource,
	locks *service.CardLocks,
	emitter events.EventEmitter,
	logger *slog.Logger,
) (Service, error) {
	if cards == nil {
		return nil, domain.NewValidationError("cards", "cannot be nil", domain.ErrValidation)
	}
	if srsService == nil {
		return nil, domain.NewValidationError("srsService", "cannot be nil", domain.ErrValidation)
	}
	if settings == nil {
		return nil, domain.NewValidationError("settings", "cannot be nil", domain.ErrValidation)
	}
	if locks == nil {
		return nil, domain.NewValidationError("locks", "cannot be nil", domain.ErrValidation)
	}
	if emitter == nil {
		emitter = events.NopEmitter{}
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &reviewService{
		cards:    cards,
		srs:      srsService,
		settings: settings,
		locks:    locks,
		emitter:  emitter,
		logger:   logger.With(slog.String("component", "card_review_service")),
		tracer:   otel.Tracer(tracerName),
	}, nil
}

// SubmitReview implements Service.SubmitReview.
func (s *reviewService) SubmitReview(
	ctx context.Context,
	cardID uuid.UUID,
	rating domain.Rating,
	now time.Time,
) (card *domain.Card, err error) {
	ctx, span := s.tracer.Start(ctx, "card_review.SubmitReview", trace.WithAttributes(
		attribute.String("card.id", cardID.String()),
		attribute.Int("review.rating", int(rating)),
	))
	defer func() { endSpan(span, err) }()

	log := logger.FromContextOrDefault(ctx, s.logger).With(slog.String("card_id", cardID.String()))

	if !rating.IsValid() {
		_, err := domain.ParseRating(int(rating))
		log.Warn("invalid review rating", slog.Int("rating", int(rating)))
		return nil, err
	}
	retention := s.settings.RetentionTarget()
	reviewedAt := domain.NormalizeTime(now)

	unlock := s.locks.LockCard(cardID)
	defer unlock()

	current, err := s.load(ctx, "submit_review", cardID)
	if err != nil {
		return nil, err
	}

	memory, due, err := s.srs.Advance(current.Memory, rating, reviewedAt, retention)
	if err != nil {
		log.Warn("review rejected by memory model", slog.String("error", err.Error()))
		return nil, scheduleError("submit_review", err)
	}

	reviewLog := append(slices.Clone(current.ReviewLog), domain.NewReviewEvent(rating, reviewedAt))
	updated, err := s.write(ctx, "submit_review", current, store.ScheduleUpdate{
		Memory:       memory,
		Due:          due,
		LastReviewed: &reviewedAt,
		ReviewLog:    reviewLog,
	})
	if err != nil {
		return nil, err
	}

	log.Info("review submitted",
		slog.String("rating", rating.String()),
		slog.String("stage", string(updated.Memory.Stage)),
		slog.Float64("stability", updated.Memory.Stability),
		slog.Time("due", updated.Due))

	events.Publish(ctx, s.emitter, log, events.TypeReviewSubmitted, events.ReviewSubmittedPayload{
		CardID: updated.ID,
		Rating: int(rating),
		Stage:  string(updated.Memory.Stage),
		Due:    updated.Due,
	})
	return updated, nil
}

// Undo implements Service.Undo.
func (s *reviewService) Undo(ctx context.Context, cardID uuid.UUID) (card *domain.Card, err error) {
	ctx, span := s.tracer.Start(ctx, "card_review.Undo", trace.WithAttributes(
		attribute.String("card.id", cardID.String()),
	))
	defer func() { endSpan(span, err) }()

	log := logger.FromContextOrDefault(ctx, s.logger).With(slog.String("card_id", cardID.String()))
	retention := s.settings.RetentionTarget()

	unlock := s.locks.LockCard(cardID)
	defer unlock()

	current, err := s.load(ctx, "undo_review", cardID)
	if err != nil {
		return nil, err
	}
	if !current.HasReviews() {
		return nil, domain.ErrNoReviewsToUndo
	}

	remaining := slices.Clone(current.ReviewLog[:len(current.ReviewLog)-1])
	var update store.ScheduleUpdate
	if len(remaining) == 0 {
		update = store.ScheduleUpdate{
			Memory:    domain.NewMemoryState(),
			Due:       current.PristineDue(),
			ReviewLog: remaining,
		}
	} else {
		memory, due, err := s.srs.Replay(remaining, current.CreatedAt, retention)
		if err != nil {
			log.Error("failed to replay review log", slog.String("error", err.Error()))
			return nil, scheduleError("undo_review", err)
		}
		sorted := srs.SortedEvents(remaining)
		lastReviewed := sorted[len(sorted)-1].ReviewedAt
		update = store.ScheduleUpdate{
			Memory:       memory,
			Due:          due,
			LastReviewed: &lastReviewed,
			ReviewLog:    remaining,
		}
	}

	updated, err := s.write(ctx, "undo_review", current, update)
	if err != nil {
		return nil, err
	}

	log.Info("review undone",
		slog.Int("remaining_reviews", len(updated.ReviewLog)),
		slog.Time("due", updated.Due))

	events.Publish(ctx, s.emitter, log, events.TypeReviewUndone, events.ReviewUndonePayload{
		CardID:           updated.ID,
		RemainingReviews: len(updated.ReviewLog),
	})
	return updated, nil
}

// Preview implements Service.Preview.
func (s *reviewService) Preview(
	ctx context.Context,
	cardID uuid.UUID,
	now time.Time,
) (map[domain.Rating]time.Time, error) {
	card, err := s.load(ctx, "preview_review", cardID)
	if err != nil {
		return nil, err
	}

	preview, err := s.srs.Preview(card.Memory, now, s.settings.RetentionTarget())
	if err != nil {
		return nil, scheduleError("preview_review", err)
	}
	return preview, nil
}

// DueCards implements Service.DueCards.
func (s *reviewService) DueCards(
	ctx context.Context,
	now time.Time,
	lookahead time.Duration,
) ([]*domain.Card, error) {
	if lookahead < 0 {
		return nil, domain.NewValidationError("lookahead", "cannot be negative", domain.ErrValidation)
	}

	cutoff := now.Add(lookahead)
	cards, err := s.cards.Find(ctx, store.CardFilter{DueBefore: &cutoff}, store.SortDueAsc)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to list due cards",
			slog.String("error", err.Error()))
		return nil, service.NewServiceError("due_cards", "failed to list due cards", err)
	}
	return cards, nil
}

// RecalculateAll implements Service.RecalculateAll.
func (s *reviewService) RecalculateAll(ctx context.Context, progress ProgressFunc) (result RecalculateResult, err error) {
	ctx, span := s.tracer.Start(ctx, "card_review.RecalculateAll")
	defer func() {
		span.SetAttributes(
			attribute.Int("cards.updated", result.Updated),
			attribute.Int("cards.total", result.Total),
		)
		endSpan(span, err)
	}()

	log := logger.FromContextOrDefault(ctx, s.logger)
	started := time.Now()

	unlock := s.locks.LockAll()
	defer unlock()

	retention := s.settings.RetentionTarget()

	result.Total, err = s.cards.Count(ctx, store.CardFilter{})
	if err != nil {
		return result, service.NewServiceError("recalculate", "failed to count cards", err)
	}
	reviewed, err := s.cards.Find(ctx, store.CardFilter{HasReviews: true}, store.SortNone)
	if err != nil {
		return result, service.NewServiceError("recalculate", "failed to list reviewed cards", err)
	}

	log.Info("recalculating schedules",
		slog.Int("cards", len(reviewed)),
		slog.Float64("request_retention", retention))

	for i, card := range reviewed {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		memory, due, err := s.srs.Replay(card.ReviewLog, card.CreatedAt, retention)
		if err != nil {
			log.Error("failed to replay review log",
				slog.String("card_id", card.ID.String()),
				slog.String("error", err.Error()))
			return result, scheduleError("recalculate", err)
		}

		if _, err := s.write(ctx, "recalculate", card, store.ScheduleUpdate{
			Memory:       memory,
			Due:          due,
			LastReviewed: card.LastReviewed,
			ReviewLog:    card.ReviewLog,
		}); err != nil {
			return result, err
		}

		result.Updated++
		if progress != nil {
			progress(i+1, len(reviewed))
		}
	}

	elapsed := time.Since(started)
	log.Info("schedules recalculated",
		slog.Int("updated", result.Updated),
		slog.Int("total", result.Total),
		slog.Duration("duration", elapsed))

	events.Publish(ctx, s.emitter, log, events.TypeCardsRecalculated, events.CardsRecalculatedPayload{
		Updated:         result.Updated,
		Total:           result.Total,
		DurationSeconds: elapsed.Seconds(),
	})
	return result, nil
}

func (s *reviewService) load(ctx context.Context, operation string, cardID uuid.UUID) (*domain.Card, error) {
	card, err := s.cards.FindOne(ctx, store.ByID(cardID))
	if err != nil {
		if store.IsNotFoundError(err) {
			return nil, err
		}
		return nil, service.NewServiceError(operation, "failed to read card", err)
	}
	return card, nil
}

// write stores a new schedule for card, guarded by the version it was read at.
func (s *reviewService) write(
	ctx context.Context,
	operation string,
	card *domain.Card,
	update store.ScheduleUpdate,
) (*domain.Card, error) {
	updated, err := s.cards.UpdateByID(ctx, card.ID, card.Version, store.CardPatch{Schedule: &update})
	if err == nil {
		return updated, nil
	}
	if store.IsNotFoundError(err) || errors.Is(err, store.ErrVersionConflict) {
		logger.FromContextOrDefault(ctx, s.logger).Warn("card changed before schedule write",
			slog.String("card_id", card.ID.String()),
			slog.Int64("version", card.Version),
			slog.String("error", err.Error()))
		return nil, err
	}
	return nil, service.NewServiceError(operation, "failed to store schedule", err)
}

// scheduleError classifies a memory model failure. Bad input passes through,
// a review earlier than the last one is a state error, and anything else is
// unexpected.
func scheduleError(operation string, err error) error {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return err
	case errors.Is(err, srs.ErrTimeTravel):
		return fmt.Errorf("%w: %w", domain.ErrInvalidState, err)
	default:
		return service.NewServiceError(operation, "failed to compute schedule", err)
	}
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
