package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event types emitted by the services.
const (
	TypeReviewSubmitted   = "review.submitted"
	TypeReviewUndone      = "review.undone"
	TypeCardsRecalculated = "cards.recalculated"
	TypeSettingsChanged   = "settings.changed"
	TypeTopicColorChanged = "topic.color_changed"
)

// Event is a notification that something happened in the scheduler. The
// payload is one of the *Payload types below, encoded as JSON.
type Event struct {
	// ID uniquely identifies the event
	ID uuid.UUID `json:"id"`

	// Type is one of the Type* constants
	Type string `json:"type"`

	// Payload holds the event-specific data
	Payload json.RawMessage `json:"payload"`

	// OccurredAt is when the event happened
	OccurredAt time.Time `json:"occurred_at"`
}

// UnmarshalPayload decodes the event payload into v.
func (e *Event) UnmarshalPayload(v interface{}) error {
	return json.Unmarshal(e.Payload, v)
}

// NewEvent creates an event of the given type with payload encoded as JSON.
func NewEvent(eventType string, payload interface{}) (*Event, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return &Event{
		ID:         uuid.New(),
		Type:       eventType,
		Payload:    payloadBytes,
		OccurredAt: time.Now().UTC(),
	}, nil
}

// ReviewSubmittedPayload accompanies TypeReviewSubmitted.
type ReviewSubmittedPayload struct {
	CardID uuid.UUID `json:"card_id"`
	Rating int       `json:"rating"`
	Stage  string    `json:"stage"`
	Due    time.Time `json:"due"`
}

// ReviewUndonePayload accompanies TypeReviewUndone.
type ReviewUndonePayload struct {
	CardID           uuid.UUID `json:"card_id"`
	RemainingReviews int       `json:"remaining_reviews"`
}

// CardsRecalculatedPayload accompanies TypeCardsRecalculated.
type CardsRecalculatedPayload struct {
	Updated         int     `json:"updated"`
	Total           int     `json:"total"`
	DurationSeconds float64 `json:"duration_seconds"`
}

// SettingsChangedPayload accompanies TypeSettingsChanged.
type SettingsChangedPayload struct {
	Previous        float64 `json:"previous"`
	RetentionTarget float64 `json:"request_retention"`
}

// TopicColorChangedPayload accompanies TypeTopicColorChanged.
type TopicColorChangedPayload struct {
	Topic string `json:"topic"`
	Color string `json:"color"`
}

// EventHandler defines the interface for components that handle events.
type EventHandler interface {
	// HandleEvent processes an event. Handlers ignore types they do not
	// care about and return nil for them.
	HandleEvent(ctx context.Context, event *Event) error
}

// EventEmitter defines the interface for components that emit events.
type EventEmitter interface {
	EmitEvent(ctx context.Context, event *Event) error
}

// HandlerFunc adapts a function to EventHandler.
type HandlerFunc func(ctx context.Context, event *Event) error

// HandleEvent implements EventHandler.
func (f HandlerFunc) HandleEvent(ctx context.Context, event *Event) error {
	return f(ctx, event)
}

// NopEmitter discards every event.
type NopEmitter struct{}

// EmitEvent implements EventEmitter.
func (NopEmitter) EmitEvent(context.Context, *Event) error { return nil }
