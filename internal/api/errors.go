package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/phrazzld/revision-scheduler/internal/api/shared"
	"github.com/phrazzld/revision-scheduler/internal/domain"
	"github.com/phrazzld/revision-scheduler/internal/store"
)

// MapErrorToStatusCode maps internal errors to appropriate HTTP status codes
// based on the error type. This prevents leaking internal error types or
// messages to clients.
func MapErrorToStatusCode(err error) int {
	switch {
	// Bad request errors
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrInvalidID),
		errors.Is(err, store.ErrInvalidEntity):
		return http.StatusBadRequest

	// Not found errors
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound

	// Conflict errors: the card is not in a state that allows the operation,
	// or it changed between read and write.
	case errors.Is(err, domain.ErrInvalidState),
		errors.Is(err, store.ErrVersionConflict),
		errors.Is(err, store.ErrDuplicate):
		return http.StatusConflict

	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a sanitized, user-friendly error message
// based on the error type. This prevents leaking sensitive internal details.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	// Validation messages are written by the domain and name only the field.
	var validationErr *domain.ValidationError
	if errors.As(err, &validationErr) {
		return capitalize(validationErr.Error())
	}

	switch {
	case errors.Is(err, store.ErrCardNotFound):
		return "Card not found"
	case errors.Is(err, store.ErrTopicNotFound):
		return "Topic not found"
	case errors.Is(err, store.ErrNotFound):
		return "Not found"

	case errors.Is(err, domain.ErrNoReviewsToUndo):
		return "Card has no reviews to undo"
	case errors.Is(err, domain.ErrInvalidState):
		return "Review time is earlier than the card's last review"
	case errors.Is(err, store.ErrVersionConflict):
		return "Card was modified concurrently, please retry"
	case errors.Is(err, store.ErrDuplicate):
		return "Entity already exists"

	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, store.ErrInvalidEntity):
		return "Validation error"

	default:
		return "An unexpected error occurred"
	}
}

// HandleAPIError writes the status and safe message for err. fallback
// replaces the generic message of a 500 so clients learn which operation
// failed.
func HandleAPIError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	status := MapErrorToStatusCode(err)
	message := GetSafeErrorMessage(err)
	if status == http.StatusInternalServerError && fallback != "" {
		message = fallback
	}

	var opts []shared.ResponseOption
	if errors.Is(err, store.ErrVersionConflict) {
		opts = append(opts, shared.WithElevatedLogLevel())
	}
	shared.RespondWithErrorAndLog(w, r, status, message, err, opts...)
}

// SanitizeValidationError turns struct validation failures into a message
// naming the first offending field.
func SanitizeValidationError(err error) string {
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return fmt.Sprintf("Invalid %s: %s", fe.Field(), getValidationTagMessage(fe.Tag()))
	}
	return "Validation error"
}

// getValidationTagMessage maps validation tags to user-friendly error messages
func getValidationTagMessage(tag string) string {
	switch tag {
	case "required":
		return "required field"
	case "min", "gte":
		return "too small"
	case "max", "lte":
		return "too large"
	case "hexcolor", "iscolor":
		return "invalid color"
	case "oneof":
		return "invalid value"
	default:
		return "validation failed"
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
