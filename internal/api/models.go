package api

import (
	"strconv"
	"time"

	"github.com/phrazzld/revision-scheduler/internal/domain"
)

// CreateCardRequest defines the payload for POST /api/cards.
type CreateCardRequest struct {
	Topic      string `json:"topic"       validate:"required"`
	Title      string `json:"title"       validate:"required"`
	Content    string `json:"content"`
	TopicColor string `json:"topic_color" validate:"omitempty,iscolor"`
}

// UpdateCardRequest defines the payload for PUT /api/cards/{id}. Scheduling
// state cannot be edited.
type UpdateCardRequest struct {
	Topic      string `json:"topic"       validate:"required"`
	Title      string `json:"title"       validate:"required"`
	Content    string `json:"content"`
	TopicColor string `json:"topic_color" validate:"omitempty,iscolor"`
}

// SubmitReviewRequest defines the payload for POST /api/cards/{id}/review.
type SubmitReviewRequest struct {
	Rating int `json:"rating" validate:"required,min=1,max=4"`
}

// UpdateSettingsRequest defines the payload for POST|PUT /api/settings.
// The range is checked by the settings service so the message names the
// actual bounds.
type UpdateSettingsRequest struct {
	RetentionTarget *float64 `json:"request_retention" validate:"required"`
}

// UpsertTopicRequest defines the payload for POST /api/topics.
type UpsertTopicRequest struct {
	Name  string `json:"name"  validate:"required"`
	Color string `json:"color" validate:"required,iscolor"`
}

// CardResponse is a card as returned by the API.
type CardResponse struct {
	ID           string                `json:"id"`
	Topic        string                `json:"topic"`
	TopicColor   string                `json:"topic_color"`
	Title        string                `json:"title"`
	Content      string                `json:"content"`
	CreatedAt    time.Time             `json:"created_at"`
	Due          time.Time             `json:"due"`
	LastReviewed *time.Time            `json:"last_reviewed,omitempty"`
	Stage        domain.Stage          `json:"stage"`
	Stability    float64               `json:"stability"`
	Difficulty   float64               `json:"difficulty"`
	Reps         int                   `json:"reps"`
	Lapses       int                   `json:"lapses"`
	ReviewLog    []ReviewEventResponse `json:"review_log"`
}

// ReviewEventResponse is one entry of a card's review log.
type ReviewEventResponse struct {
	Date       time.Time `json:"date"`
	Rating     int       `json:"rating"`
	RatingText string    `json:"rating_text"`
}

// SchedulingPreviewResponse maps each rating ordinal ("1".."4") to the due
// instant it would produce.
type SchedulingPreviewResponse map[string]time.Time

// SettingsResponse is the current settings.
type SettingsResponse struct {
	RetentionTarget float64 `json:"request_retention"`
}

// TopicResponse is a topic and its color.
type TopicResponse struct {
	Name      string    `json:"name"`
	Color     string    `json:"color"`
	CreatedAt time.Time `json:"created_at"`
}

// RecalculateResponse reports a recalculation.
type RecalculateResponse struct {
	Updated int `json:"updated"`
	Total   int `json:"total"`
}

// StatsResponse summarizes the collection.
type StatsResponse struct {
	TotalCards    int `json:"total_cards"`
	DueCards      int `json:"due_cards"`
	ReviewedToday int `json:"reviewed_today"`
}

// cardToResponse converts a domain.Card to a CardResponse
func cardToResponse(card *domain.Card) CardResponse {
	log := make([]ReviewEventResponse, 0, len(card.ReviewLog))
	for _, ev := range card.ReviewLog {
		log = append(log, ReviewEventResponse{
			Date:       ev.ReviewedAt,
			Rating:     int(ev.Rating),
			RatingText: ev.Label,
		})
	}

	return CardResponse{
		ID:           card.ID.String(),
		Topic:        card.Topic,
		TopicColor:   card.TopicColor,
		Title:        card.Title,
		Content:      card.Content,
		CreatedAt:    card.CreatedAt,
		Due:          card.Due,
		LastReviewed: card.LastReviewed,
		Stage:        card.Memory.Stage,
		Stability:    card.Memory.Stability,
		Difficulty:   card.Memory.Difficulty,
		Reps:         card.Memory.Reps,
		Lapses:       card.Memory.Lapses,
		ReviewLog:    log,
	}
}

func cardsToResponse(cards []*domain.Card) []CardResponse {
	out := make([]CardResponse, 0, len(cards))
	for _, c := range cards {
		out = append(out, cardToResponse(c))
	}
	return out
}

func previewToResponse(preview map[domain.Rating]time.Time) SchedulingPreviewResponse {
	out := make(SchedulingPreviewResponse, len(preview))
	for rating, due := range preview {
		out[strconv.Itoa(int(rating))] = due
	}
	return out
}

func topicToResponse(t *domain.Topic) TopicResponse {
	return TopicResponse{Name: t.Name, Color: t.Color, CreatedAt: t.CreatedAt}
}
