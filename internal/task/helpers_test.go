package task

import (
	"context"
	"io"
	"log/slog"

	"github.com/google/uuid"
)

// stubTask is a Task whose behavior is set by the test.
type stubTask struct {
	id        uuid.UUID
	executeFn func(ctx context.Context) error
}

func newStubTask(executeFn func(ctx context.Context) error) *stubTask {
	if executeFn == nil {
		executeFn = func(context.Context) error { return nil }
	}
	return &stubTask{id: uuid.New(), executeFn: executeFn}
}

func (t *stubTask) ID() uuid.UUID                     { return t.id }
func (t *stubTask) Type() string                      { return "stub" }
func (t *stubTask) Payload() []byte                   { return []byte(`{}`) }
func (t *stubTask) Status() TaskStatus                { return TaskStatusPending }
func (t *stubTask) Execute(ctx context.Context) error { return t.executeFn(ctx) }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelDebug}))
}
