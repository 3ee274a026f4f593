package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/revision-scheduler/internal/api/shared"
	"github.com/phrazzld/revision-scheduler/internal/domain"
	"github.com/phrazzld/revision-scheduler/internal/platform/logger"
	"github.com/phrazzld/revision-scheduler/internal/service"
	"github.com/phrazzld/revision-scheduler/internal/service/card_review"
)

// CardManager is the card lifecycle the handlers need. service.CardService
// satisfies it.
type CardManager interface {
	Create(ctx context.Context, in service.CreateCardInput) (*domain.Card, error)
	ListAll(ctx context.Context) ([]*domain.Card, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.Card, error)
	Update(ctx context.Context, id uuid.UUID, in service.UpdateCardInput) (*domain.Card, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Stats(ctx context.Context, now time.Time) (service.CardStats, error)
}

// CardHandler handles card-related HTTP requests
type CardHandler struct {
	cards     CardManager
	reviews   card_review.Service
	lookahead time.Duration
	now       func() time.Time
	logger    *slog.Logger
}

// NewCardHandler creates a new CardHandler. lookahead is used by the due
// list when the request does not carry one.
func NewCardHandler(
	cards CardManager,
	reviews card_review.Service,
	lookahead time.Duration,
	logger *slog.Logger,
) *CardHandler {
	if cards == nil || reviews == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("card and review services cannot be nil for CardHandler")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if lookahead < 0 {
		lookahead = card_review.DefaultLookahead
	}

	return &CardHandler{
		cards:     cards,
		reviews:   reviews,
		lookahead: lookahead,
		now:       time.Now,
		logger:    logger.With(slog.String("component", "card_handler")),
	}
}

// CreateCard handles POST /api/cards requests.
func (h *CardHandler) CreateCard(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	var req CreateCardRequest
	if !decodeAndValidate(w, r, &req, log) {
		return
	}

	card, err := h.cards.Create(r.Context(), service.CreateCardInput{
		Topic:      req.Topic,
		Title:      req.Title,
		Content:    req.Content,
		TopicColor: req.TopicColor,
	})
	if err != nil {
		HandleAPIError(w, r, err, "Failed to create card")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusCreated, cardToResponse(card))
}

// ListDueCards handles GET /api/cards/due requests. The optional lookahead
// query parameter widens the window past now.
func (h *CardHandler) ListDueCards(w http.ResponseWriter, r *http.Request) {
	lookahead, err := parseLookahead(r, h.lookahead)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	cards, err := h.reviews.DueCards(r.Context(), h.now(), lookahead)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list due cards")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, cardsToResponse(cards))
}

// ListAllCards handles GET /api/cards/all requests, newest first.
func (h *CardHandler) ListAllCards(w http.ResponseWriter, r *http.Request) {
	cards, err := h.cards.ListAll(r.Context())
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list cards")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, cardsToResponse(cards))
}

// GetCard handles GET /api/cards/{id} requests.
func (h *CardHandler) GetCard(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)
	cardID, ok := handlePathUUID(w, r, "id", log)
	if !ok {
		return
	}

	card, err := h.cards.Get(r.Context(), cardID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to get card")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, cardToResponse(card))
}

// UpdateCard handles PUT /api/cards/{id} requests.
func (h *CardHandler) UpdateCard(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)
	cardID, ok := handlePathUUID(w, r, "id", log)
	if !ok {
		return
	}

	var req UpdateCardRequest
	if !decodeAndValidate(w, r, &req, log) {
		return
	}

	card, err := h.cards.Update(r.Context(), cardID, service.UpdateCardInput{
		Topic:      req.Topic,
		Title:      req.Title,
		Content:    req.Content,
		TopicColor: req.TopicColor,
	})
	if err != nil {
		HandleAPIError(w, r, err, "Failed to update card")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, cardToResponse(card))
}

// DeleteCard handles DELETE /api/cards/{id} requests.
func (h *CardHandler) DeleteCard(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)
	cardID, ok := handlePathUUID(w, r, "id", log)
	if !ok {
		return
	}

	if err := h.cards.Delete(r.Context(), cardID); err != nil {
		HandleAPIError(w, r, err, "Failed to delete card")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SubmitReview handles POST /api/cards/{id}/review requests
// It records the rating and returns the rescheduled card.
func (h *CardHandler) SubmitReview(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)
	cardID, ok := handlePathUUID(w, r, "id", log)
	if !ok {
		return
	}

	var req SubmitReviewRequest
	if !decodeAndValidate(w, r, &req, log) {
		return
	}

	card, err := h.reviews.SubmitReview(r.Context(), cardID, domain.Rating(req.Rating), h.now())
	if err != nil {
		HandleAPIError(w, r, err, "Failed to submit review")
		return
	}

	log.Debug("review submitted",
		slog.String("card_id", cardID.String()),
		slog.Int("rating", req.Rating))
	shared.RespondWithJSON(w, r, http.StatusOK, cardToResponse(card))
}

// UndoReview handles POST /api/cards/{id}/undo requests.
func (h *CardHandler) UndoReview(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)
	cardID, ok := handlePathUUID(w, r, "id", log)
	if !ok {
		return
	}

	card, err := h.reviews.Undo(r.Context(), cardID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to undo review")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, cardToResponse(card))
}

// PreviewScheduling handles GET /api/cards/{id}/scheduling requests. The
// response maps each rating to the due instant it would produce now.
func (h *CardHandler) PreviewScheduling(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)
	cardID, ok := handlePathUUID(w, r, "id", log)
	if !ok {
		return
	}

	preview, err := h.reviews.Preview(r.Context(), cardID, h.now())
	if err != nil {
		HandleAPIError(w, r, err, "Failed to preview scheduling")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, previewToResponse(preview))
}

// Recalculate handles POST /api/cards/recalculate requests.
func (h *CardHandler) Recalculate(w http.ResponseWriter, r *http.Request) {
	result, err := h.reviews.RecalculateAll(r.Context(), nil)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to recalculate schedules")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, RecalculateResponse{
		Updated: result.Updated,
		Total:   result.Total,
	})
}

// Stats handles GET /api/stats requests.
func (h *CardHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.cards.Stats(r.Context(), h.now())
	if err != nil {
		HandleAPIError(w, r, err, "Failed to compute statistics")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, StatsResponse{
		TotalCards:    stats.Total,
		DueCards:      stats.Due,
		ReviewedToday: stats.ReviewedToday,
	})
}
