package events

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
)

// InMemoryEventEmitter calls registered handlers synchronously on the
// emitting goroutine. Handlers that start long work must hand it off, as
// the task runner does.
type InMemoryEventEmitter struct {
	mu       sync.RWMutex
	handlers []EventHandler
	logger   *slog.Logger
}

func NewInMemoryEventEmitter(logger *slog.Logger) *InMemoryEventEmitter {
	if logger == nil {
		logger = slog.Default()
	}
	return &InMemoryEventEmitter{logger: logger.With(slog.String("component", "event_emitter"))}
}

func (e *InMemoryEventEmitter) RegisterHandler(handler EventHandler) {
	e.mu.Lock()
	e.handlers = append(e.handlers, handler)
	count := len(e.handlers)
	e.mu.Unlock()

	e.logger.Debug("handler registered",
		slog.String("handler", fmt.Sprintf("%T", handler)),
		slog.Int("handler_count", count))
}

// EmitEvent hands the event to each handler in registration order. A failing
// handler does not stop the rest; the returned error joins every failure.
func (e *InMemoryEventEmitter) EmitEvent(ctx context.Context, event *Event) error {
	e.mu.RLock()
	handlers := slices.Clone(e.handlers)
	e.mu.RUnlock()

	log := e.logger.With(
		slog.String("event_id", event.ID.String()),
		slog.String("event_type", event.Type))
	log.Debug("emitting event", slog.Int("handler_count", len(handlers)))

	var errs []error
	for _, handler := range handlers {
		if err := handler.HandleEvent(ctx, event); err != nil {
			log.Error("event handler failed",
				slog.String("handler", fmt.Sprintf("%T", handler)),
				slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

var _ EventEmitter = (*InMemoryEventEmitter)(nil)
