package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// NewCardDueDelay is how long after creation an unreviewed card first
// becomes due.
const NewCardDueDelay = 24 * time.Hour

// DefaultTopicColor is used when neither the topic nor the request supplies one.
const DefaultTopicColor = "#6366f1"

// ReviewEvent is one entry in a card's review log. Events are immutable once
// appended; only the most recent one can be removed, by undo.
type ReviewEvent struct {
	ReviewedAt time.Time `json:"date"`
	Rating     Rating    `json:"rating"`
	Label      string    `json:"rating_text"`
}

// NewReviewEvent builds an event for rating r at the normalized instant at.
func NewReviewEvent(r Rating, at time.Time) ReviewEvent {
	return ReviewEvent{
		ReviewedAt: NormalizeTime(at),
		Rating:     r,
		Label:      r.String(),
	}
}

// Card is a single learning item together with its scheduling state.
//
// Due always holds the instant last produced by the memory model, or
// CreatedAt + NewCardDueDelay while the review log is empty. Version is
// incremented by the store on every write and used for compare-and-swap.
type Card struct {
	ID           uuid.UUID     `json:"id"`
	Topic        string        `json:"topic"`
	TopicColor   string        `json:"topic_color"`
	Title        string        `json:"title"`
	Content      string        `json:"content"`
	CreatedAt    time.Time     `json:"created_at"`
	Memory       MemoryState   `json:"memory"`
	Due          time.Time     `json:"due"`
	LastReviewed *time.Time    `json:"last_reviewed,omitempty"`
	ReviewLog    []ReviewEvent `json:"review_log"`
	Version      int64         `json:"version"`
}

// NewCard creates an unreviewed card. Topic and title are trimmed and must
// not be blank; content may be empty.
func NewCard(topic, topicColor, title, content string, createdAt time.Time) (*Card, error) {
	createdAt = NormalizeTime(createdAt)
	card := &Card{
		ID:         uuid.New(),
		Topic:      strings.TrimSpace(topic),
		TopicColor: topicColor,
		Title:      strings.TrimSpace(title),
		Content:    content,
		CreatedAt:  createdAt,
		Memory:     NewMemoryState(),
		Due:        createdAt.Add(NewCardDueDelay),
		ReviewLog:  []ReviewEvent{},
	}

	if card.TopicColor == "" {
		card.TopicColor = DefaultTopicColor
	}

	if err := card.Validate(); err != nil {
		return nil, err
	}
	return card, nil
}

// Validate checks the user-editable fields of the card.
func (c *Card) Validate() error {
	if c.ID == uuid.Nil {
		return NewValidationError("id", "cannot be empty", ErrInvalidID)
	}
	if strings.TrimSpace(c.Topic) == "" {
		return NewValidationError("topic", "is required", ErrValidation)
	}
	if strings.TrimSpace(c.Title) == "" {
		return NewValidationError("title", "is required", ErrValidation)
	}
	return nil
}

// HasReviews reports whether the card has at least one logged review.
func (c *Card) HasReviews() bool {
	return len(c.ReviewLog) > 0
}

// LastEvent returns the most recent review event, if any.
func (c *Card) LastEvent() (ReviewEvent, bool) {
	if len(c.ReviewLog) == 0 {
		return ReviewEvent{}, false
	}
	return c.ReviewLog[len(c.ReviewLog)-1], true
}

// PristineDue is the due date of the card with an empty review log.
func (c *Card) PristineDue() time.Time {
	return c.CreatedAt.Add(NewCardDueDelay)
}

// Clone returns a deep copy of the card.
func (c *Card) Clone() *Card {
	cp := *c
	cp.Memory.LastReview = NormalizeTimePtr(c.Memory.LastReview)
	cp.LastReviewed = NormalizeTimePtr(c.LastReviewed)
	cp.ReviewLog = make([]ReviewEvent, len(c.ReviewLog))
	copy(cp.ReviewLog, c.ReviewLog)
	return &cp
}
