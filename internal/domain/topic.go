package domain

import (
	"strings"
	"time"
)

// Topic groups cards and carries the color shown for them.
type Topic struct {
	Name      string    `json:"name"`
	Color     string    `json:"color"`
	CreatedAt time.Time `json:"created_at"`
}

// NewTopic trims and validates a topic name and color.
func NewTopic(name, color string, now time.Time) (*Topic, error) {
	t := &Topic{
		Name:      strings.TrimSpace(name),
		Color:     strings.TrimSpace(color),
		CreatedAt: NormalizeTime(now),
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// Validate requires both a name and a color.
func (t *Topic) Validate() error {
	if t.Name == "" {
		return NewValidationError("name", "is required", ErrValidation)
	}
	if t.Color == "" {
		return NewValidationError("color", "is required", ErrValidation)
	}
	return nil
}
