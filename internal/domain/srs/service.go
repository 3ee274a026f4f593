package srs

import (
	"errors"
	"fmt"
	"time"

	"github.com/phrazzld/revision-scheduler/internal/domain"
)

// Common errors
var (
	ErrInvalidParams = errors.New("srs parameters out of bounds")
	ErrTimeTravel    = errors.New("review time precedes last review")
	ErrCorruptState  = errors.New("memory state is not usable")
)

// Service defines the interface for SRS algorithm operations.
// Every method is pure: no clock reads, no randomness, no shared state.
type Service interface {
	// Advance applies one review to a memory state.
	//
	// Parameters:
	//   - state: the card's current memory state
	//   - rating: the review rating
	//   - reviewTime: when the review happened, not earlier than state.LastReview
	//   - retentionTarget: the desired recall probability at the due date
	//
	// Returns:
	//   - The new memory state and the next due instant
	//   - A ValidationError for a bad rating or retention target
	//   - ErrTimeTravel if reviewTime precedes state.LastReview
	Advance(
		state domain.MemoryState,
		rating domain.Rating,
		reviewTime time.Time,
		retentionTarget float64,
	) (domain.MemoryState, time.Time, error)

	// Replay folds Advance over a review log, starting from the state of a
	// card created at createdAt. An empty log yields the New state and
	// createdAt + domain.NewCardDueDelay.
	Replay(
		log []domain.ReviewEvent,
		createdAt time.Time,
		retentionTarget float64,
	) (domain.MemoryState, time.Time, error)

	// Preview returns the due instant each rating would produce, without
	// changing anything.
	Preview(
		state domain.MemoryState,
		reviewTime time.Time,
		retentionTarget float64,
	) (map[domain.Rating]time.Time, error)

	// Retrievability returns the projected recall probability at the given instant.
	Retrievability(state domain.MemoryState, at time.Time) float64
}

// defaultService is the standard implementation of the Service interface
type defaultService struct {
	params *Params
	curve  curve
}

// NewDefaultService creates a new SRS service with default parameters
func NewDefaultService() (Service, error) {
	return NewServiceWithParams(NewDefaultParams())
}

// NewServiceWithParams creates a new SRS service with custom parameters
func NewServiceWithParams(params *Params) (Service, error) {
	if params == nil {
		return nil, fmt.Errorf("%w: params cannot be nil", ErrInvalidParams)
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &defaultService{
		params: params,
		curve:  newCurve(params),
	}, nil
}

// Advance implements Service.Advance.
func (s *defaultService) Advance(
	state domain.MemoryState,
	rating domain.Rating,
	reviewTime time.Time,
	retentionTarget float64,
) (domain.MemoryState, time.Time, error) {
	if !rating.IsValid() {
		_, err := domain.ParseRating(int(rating))
		return domain.MemoryState{}, time.Time{}, err
	}
	if err := domain.ValidateRetentionTarget(retentionTarget); err != nil {
		return domain.MemoryState{}, time.Time{}, err
	}

	reviewTime = domain.NormalizeTime(reviewTime)
	next, err := s.step(state, rating, reviewTime)
	if err != nil {
		return domain.MemoryState{}, time.Time{}, err
	}

	days := s.curve.intervalDays(next.Stability, retentionTarget)
	return next, dueAfter(reviewTime, days, s.params.MinInterval), nil
}

// step computes the state transition for one review.
func (s *defaultService) step(
	state domain.MemoryState,
	rating domain.Rating,
	reviewTime time.Time,
) (domain.MemoryState, error) {
	at := reviewTime
	next := domain.MemoryState{
		Reps:       state.Reps + 1,
		Lapses:     state.Lapses,
		LastReview: &at,
	}

	if state.Stage == domain.StageNew || state.Stage == "" {
		next.Stage = domain.StageLearning
		next.Stability = s.curve.initStability(rating)
		next.Difficulty = s.curve.initDifficulty(rating, true)
		return next, nil
	}

	if state.LastReview == nil || state.Stability <= 0 {
		return domain.MemoryState{}, fmt.Errorf("%w: stage %s without review history",
			ErrCorruptState, state.Stage)
	}
	if reviewTime.Before(*state.LastReview) {
		return domain.MemoryState{}, fmt.Errorf("%w: %s before %s",
			ErrTimeTravel, reviewTime.Format(time.RFC3339Nano),
			state.LastReview.Format(time.RFC3339Nano))
	}

	r := s.curve.retrievability(elapsedDays(*state.LastReview, reviewTime), state.Stability)
	next.Difficulty = s.curve.nextDifficulty(state.Difficulty, rating)

	if rating == domain.RatingAgain {
		next.Stage = domain.StageRelearning
		next.Lapses++
		next.Stability = s.curve.nextForgetStability(state.Difficulty, state.Stability, r)
	} else {
		next.Stage = domain.StageReview
		next.Stability = s.curve.nextRecallStability(state.Difficulty, state.Stability, r, rating)
	}

	return next, nil
}

// Preview implements Service.Preview.
func (s *defaultService) Preview(
	state domain.MemoryState,
	reviewTime time.Time,
	retentionTarget float64,
) (map[domain.Rating]time.Time, error) {
	out := make(map[domain.Rating]time.Time, len(domain.AllRatings))
	for _, r := range domain.AllRatings {
		_, due, err := s.Advance(state, r, reviewTime, retentionTarget)
		if err != nil {
			return nil, err
		}
		out[r] = due
	}
	return out, nil
}

// Retrievability implements Service.Retrievability.
func (s *defaultService) Retrievability(state domain.MemoryState, at time.Time) float64 {
	if state.Stage == domain.StageNew || state.LastReview == nil || state.Stability <= 0 {
		return 0
	}
	return s.curve.retrievability(elapsedDays(*state.LastReview, at), state.Stability)
}
