package domain

import (
	"encoding/json"
	"fmt"
)

// Rating is the learner's self-assessed recall quality for a single review.
// The ordinals are fixed and appear on the wire as plain integers.
type Rating int

// The four ratings accepted by the memory model.
const (
	RatingAgain Rating = 1
	RatingHard  Rating = 2
	RatingGood  Rating = 3
	RatingEasy  Rating = 4
)

// AllRatings lists every rating in ordinal order.
var AllRatings = []Rating{RatingAgain, RatingHard, RatingGood, RatingEasy}

var ratingLabels = map[Rating]string{
	RatingAgain: "Again",
	RatingHard:  "Hard",
	RatingGood:  "Good",
	RatingEasy:  "Easy",
}

// ParseRating converts a raw ordinal into a Rating. Anything outside 1..4
// yields a ValidationError wrapping ErrInvalidRating.
func ParseRating(v int) (Rating, error) {
	r := Rating(v)
	if !r.IsValid() {
		return 0, NewValidationError(
			"rating",
			"must be 1 (Again), 2 (Hard), 3 (Good), or 4 (Easy)",
			ErrInvalidRating,
		)
	}
	return r, nil
}

// IsValid reports whether r is one of the four defined ratings.
func (r Rating) IsValid() bool {
	return r >= RatingAgain && r <= RatingEasy
}

// String returns the rating label, e.g. "Good".
func (r Rating) String() string {
	if label, ok := ratingLabels[r]; ok {
		return label
	}
	return fmt.Sprintf("Rating(%d)", int(r))
}

// MarshalJSON encodes the rating as its ordinal.
func (r Rating) MarshalJSON() ([]byte, error) {
	return json.Marshal(int(r))
}

// UnmarshalJSON decodes an ordinal and rejects anything outside 1..4.
func (r *Rating) UnmarshalJSON(data []byte) error {
	var v int
	if err := json.Unmarshal(data, &v); err != nil {
		return NewValidationError("rating", "must be an integer", ErrInvalidRating)
	}
	parsed, err := ParseRating(v)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}
