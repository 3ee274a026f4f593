package api

import (
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/phrazzld/revision-scheduler/internal/api/shared"
	"github.com/phrazzld/revision-scheduler/internal/domain"
	"github.com/phrazzld/revision-scheduler/internal/redact"
)

// getPathUUID extracts a UUID from the URL path parameters.
//
// Returns:
//   - (uuid.UUID, nil): The parsed UUID if valid
//   - (uuid.Nil, ValidationError): the parameter is missing or malformed
func getPathUUID(r *http.Request, paramName string) (uuid.UUID, error) {
	pathParam := chi.URLParam(r, paramName)
	if pathParam == "" {
		return uuid.Nil, domain.NewValidationError(paramName, "is required", domain.ErrValidation)
	}

	id, err := uuid.Parse(pathParam)
	if err != nil {
		return uuid.Nil, domain.NewValidationError(paramName, "has invalid format", domain.ErrInvalidID)
	}

	return id, nil
}

// handlePathUUID extracts the card ID from the path, writing a 400 when it is
// missing or malformed.
func handlePathUUID(w http.ResponseWriter, r *http.Request, paramName string, log *slog.Logger) (uuid.UUID, bool) {
	id, err := getPathUUID(r, paramName)
	if err != nil {
		log.Warn("invalid "+paramName, slog.String("value", chi.URLParam(r, paramName)))
		HandleAPIError(w, r, err, "")
		return uuid.Nil, false
	}
	return id, true
}

// decodeAndValidate reads a JSON body into req and checks its tags. It writes
// a 400 and returns false on failure.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, req any, log *slog.Logger) bool {
	if err := shared.DecodeJSON(r, req); err != nil {
		log.Warn("invalid request format", slog.String("error", redact.Error(err)))
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return false
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, SanitizeValidationError(err), err)
		return false
	}
	return true
}

// parseLookahead reads the lookahead query parameter. It accepts a Go
// duration ("15m") or a whole number of minutes ("15"); absent means def.
func parseLookahead(r *http.Request, def time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("lookahead"))
	if raw == "" {
		return def, nil
	}

	if minutes, err := strconv.Atoi(raw); err == nil {
		if minutes < 0 {
			return 0, domain.NewValidationError("lookahead", "cannot be negative", domain.ErrValidation)
		}
		if int64(minutes) > math.MaxInt64/int64(time.Minute) {
			return 0, domain.NewValidationError("lookahead", "is too large", domain.ErrValidation)
		}
		return time.Duration(minutes) * time.Minute, nil
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, domain.NewValidationError("lookahead",
			`must be a duration such as "10m" or a number of minutes`, domain.ErrValidation)
	}
	if d < 0 {
		return 0, domain.NewValidationError("lookahead", "cannot be negative", domain.ErrValidation)
	}
	return d, nil
}
