package shared

import (
	"context"
	"encoding/hex"

	"github.com/google/uuid"
)

type contextKey string

// TraceIDKey holds the request's trace ID in its context. Error responses
// echo it so clients can quote it when reporting a problem.
const TraceIDKey contextKey = "trace_id"

// SetTraceID adds a freshly generated trace ID to the context.
func SetTraceID(ctx context.Context) context.Context {
	return WithTraceID(ctx, "")
}

// WithTraceID stores traceID in the context. An empty traceID is replaced by
// a generated one.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	if traceID == "" {
		traceID = NewTraceID()
	}
	return context.WithValue(ctx, TraceIDKey, traceID)
}

// GetTraceID returns the trace ID of the context, or "" when there is none.
func GetTraceID(ctx context.Context) string {
	traceID, _ := ctx.Value(TraceIDKey).(string)
	return traceID
}

// NewTraceID returns a random 32-character hex ID, the same shape as an
// OpenTelemetry trace ID.
func NewTraceID() string {
	id := uuid.New()
	return hex.EncodeToString(id[:])
}
