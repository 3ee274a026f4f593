package events

import (
	"context"
	"log/slog"
)

// Publish builds an event and emits it. It is called after a change has been
// persisted, so failures are logged and never returned.
func Publish(
	ctx context.Context,
	emitter EventEmitter,
	log *slog.Logger,
	eventType string,
	payload interface{},
) {
	if emitter == nil {
		return
	}
	if log == nil {
		log = slog.Default()
	}
	event, err := NewEvent(eventType, payload)
	if err != nil {
		log.Error("failed to build event",
			slog.String("event_type", eventType),
			slog.String("error", err.Error()))
		return
	}
	if err := emitter.EmitEvent(ctx, event); err != nil {
		log.Warn("event handler failed",
			slog.String("event_type", eventType),
			slog.String("error", err.Error()))
	}
}
