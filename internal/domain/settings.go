package domain

import "fmt"

// Bounds and default for the global retention target.
const (
	MinRetentionTarget     = 0.70
	MaxRetentionTarget     = 0.97
	DefaultRetentionTarget = 0.9
)

// Settings holds the process-wide scheduling configuration.
type Settings struct {
	RetentionTarget float64 `json:"request_retention"`
}

// DefaultSettings returns the settings used when nothing has been persisted.
func DefaultSettings() Settings {
	return Settings{RetentionTarget: DefaultRetentionTarget}
}

// Validate checks that the retention target lies in the inclusive range.
func (s Settings) Validate() error {
	return ValidateRetentionTarget(s.RetentionTarget)
}

// ValidateRetentionTarget checks a retention target in isolation.
func ValidateRetentionTarget(v float64) error {
	if v < MinRetentionTarget || v > MaxRetentionTarget {
		return NewValidationError(
			"request_retention",
			fmt.Sprintf("must be between %.2f and %.2f", MinRetentionTarget, MaxRetentionTarget),
			ErrRetentionOutOfRange,
		)
	}
	return nil
}
