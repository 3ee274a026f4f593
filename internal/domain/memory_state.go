package domain

import (
	"fmt"
	"time"
)

// Stage is the learning phase a card is in.
type Stage string

// Valid stages. A card starts New, moves to Learning on its first review,
// then alternates between Review and Relearning.
const (
	StageNew        Stage = "new"
	StageLearning   Stage = "learning"
	StageReview     Stage = "review"
	StageRelearning Stage = "relearning"
)

// IsValid reports whether s is a known stage.
func (s Stage) IsValid() bool {
	switch s {
	case StageNew, StageLearning, StageReview, StageRelearning:
		return true
	default:
		return false
	}
}

// ParseStage converts a stored stage string into a Stage.
func ParseStage(s string) (Stage, error) {
	stage := Stage(s)
	if !stage.IsValid() {
		return "", fmt.Errorf("%w: unknown stage %q", ErrValidation, s)
	}
	return stage, nil
}

// MemoryState is the memory model's per-card state. It is a plain value and
// is copied, never shared, between cards.
type MemoryState struct {
	Stage      Stage      `json:"stage"`
	Stability  float64    `json:"stability"`
	Difficulty float64    `json:"difficulty"`
	Reps       int        `json:"reps"`
	Lapses     int        `json:"lapses"`
	LastReview *time.Time `json:"last_review,omitempty"`
}

// NewMemoryState returns the state of a card that has never been reviewed.
func NewMemoryState() MemoryState {
	return MemoryState{Stage: StageNew}
}

// Equal compares two states field by field, including LastReview instants.
func (m MemoryState) Equal(other MemoryState) bool {
	if m.Stage != other.Stage ||
		m.Stability != other.Stability ||
		m.Difficulty != other.Difficulty ||
		m.Reps != other.Reps ||
		m.Lapses != other.Lapses {
		return false
	}
	if m.LastReview == nil || other.LastReview == nil {
		return m.LastReview == nil && other.LastReview == nil
	}
	return m.LastReview.Equal(*other.LastReview)
}
