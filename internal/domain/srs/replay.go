package srs

import (
	"fmt"
	"sort"
	"time"

	"github.com/phrazzld/revision-scheduler/internal/domain"
)

// Replay implements Service.Replay.
//
// Events are stably sorted by timestamp first, so equal timestamps keep their
// log order. Replaying the same log twice gives identical results.
func (s *defaultService) Replay(
	log []domain.ReviewEvent,
	createdAt time.Time,
	retentionTarget float64,
) (domain.MemoryState, time.Time, error) {
	if err := domain.ValidateRetentionTarget(retentionTarget); err != nil {
		return domain.MemoryState{}, time.Time{}, err
	}

	createdAt = domain.NormalizeTime(createdAt)
	state := domain.NewMemoryState()
	due := createdAt.Add(domain.NewCardDueDelay)

	events := SortedEvents(log)
	for i, ev := range events {
		var err error
		state, due, err = s.Advance(state, ev.Rating, ev.ReviewedAt, retentionTarget)
		if err != nil {
			return domain.MemoryState{}, time.Time{}, fmt.Errorf("replay event %d: %w", i, err)
		}
	}

	return state, due, nil
}

// SortedEvents returns a copy of log in non-decreasing timestamp order.
func SortedEvents(log []domain.ReviewEvent) []domain.ReviewEvent {
	events := make([]domain.ReviewEvent, len(log))
	copy(events, log)
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].ReviewedAt.Before(events[j].ReviewedAt)
	})
	return events
}
