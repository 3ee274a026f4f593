package shared

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/phrazzld/revision-scheduler/internal/platform/logger"
	"github.com/phrazzld/revision-scheduler/internal/redact"
)

// ErrorResponse is the body of every error the API returns.
type ErrorResponse struct {
	Error   string `json:"error"`
	TraceID string `json:"trace_id,omitempty"`
}

// ResponseOption adjusts how an error response is logged.
type ResponseOption func(*responseOptions)

type responseOptions struct {
	elevateLogLevel bool
}

// WithElevatedLogLevel logs a 4xx response at WARN instead of DEBUG. Use it
// for client errors an operator should notice, such as a review that lost a
// race with a concurrent write.
func WithElevatedLogLevel() ResponseOption {
	return func(opts *responseOptions) {
		opts.elevateLogLevel = true
	}
}

// RespondWithJSON writes data as JSON with the given status code.
func RespondWithJSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.FromContext(r.Context()).Error("failed to encode JSON response",
			slog.String("error", err.Error()))
	}
}

// RespondWithError writes an error body carrying message and the request's
// trace ID.
func RespondWithError(w http.ResponseWriter, r *http.Request, status int, message string) {
	RespondWithErrorAndLog(w, r, status, message, nil)
}

// RespondWithErrorAndLog writes userMessage to the client and logs err in
// redacted form. The raw error never reaches the response body.
//
// 5xx responses are logged at ERROR and everything else at DEBUG, unless
// WithElevatedLogLevel raises a 4xx to WARN.
func RespondWithErrorAndLog(
	w http.ResponseWriter,
	r *http.Request,
	status int,
	userMessage string,
	err error,
	opts ...ResponseOption,
) {
	var options responseOptions
	for _, opt := range opts {
		opt(&options)
	}

	traceID := GetTraceID(r.Context())
	attrs := []slog.Attr{
		slog.String("trace_id", traceID),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.Int("status_code", status),
		slog.String("user_message", userMessage),
	}
	if err != nil {
		attrs = append(attrs,
			slog.String("error", redact.Error(err)),
			slog.String("error_type", fmt.Sprintf("%T", err)))
	}

	logger.FromContext(r.Context()).LogAttrs(r.Context(), levelFor(status, options), "API error response", attrs...)

	RespondWithJSON(w, r, status, ErrorResponse{
		Error:   userMessage,
		TraceID: traceID,
	})
}

func levelFor(status int, options responseOptions) slog.Level {
	switch {
	case status >= http.StatusInternalServerError:
		return slog.LevelError
	case status >= http.StatusBadRequest && options.elevateLogLevel:
		return slog.LevelWarn
	default:
		return slog.LevelDebug
	}
}
