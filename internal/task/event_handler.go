package task

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/phrazzld/revision-scheduler/internal/events"
)

// TaskFactory creates the task that follows up on a topic event.
type TaskFactory interface {
	CreateTask(topic string) (Task, error)
}

// TaskSubmitter queues a task for execution. *TaskRunner satisfies it.
type TaskSubmitter interface {
	Submit(ctx context.Context, task Task) error
}

// TaskFactoryEventHandler implements the events.EventHandler interface
// to turn topic color changes into tasks and submit them to the runner.
type TaskFactoryEventHandler struct {
	taskFactory TaskFactory
	taskRunner  TaskSubmitter
	logger      *slog.Logger
}

// NewTaskFactoryEventHandler creates a new event handler that uses the given task factory
// to create tasks, and submits them to the provided task runner.
func NewTaskFactoryEventHandler(
	taskFactory TaskFactory,
	taskRunner TaskSubmitter,
	logger *slog.Logger,
) *TaskFactoryEventHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &TaskFactoryEventHandler{
		taskFactory: taskFactory,
		taskRunner:  taskRunner,
		logger:      logger.With(slog.String("component", "task_factory_event_handler")),
	}
}

// HandleEvent creates and submits a sync task for topic.color_changed events
// and ignores every other type.
func (h *TaskFactoryEventHandler) HandleEvent(ctx context.Context, event *events.Event) error {
	if event.Type != events.TypeTopicColorChanged {
		return nil
	}

	log := h.logger.With(slog.String("event_id", event.ID.String()))

	var payload events.TopicColorChangedPayload
	if err := event.UnmarshalPayload(&payload); err != nil {
		log.Error("failed to unmarshal payload", slog.String("error", err.Error()))
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	task, err := h.taskFactory.CreateTask(payload.Topic)
	if err != nil {
		log.Error("failed to create task",
			slog.String("topic", payload.Topic),
			slog.String("error", err.Error()))
		return fmt.Errorf("failed to create task: %w", err)
	}

	if err := h.taskRunner.Submit(ctx, task); err != nil {
		log.Error("failed to submit task",
			slog.String("task_id", task.ID().String()),
			slog.String("topic", payload.Topic),
			slog.String("error", err.Error()))
		return fmt.Errorf("failed to submit task: %w", err)
	}

	log.Info("task created and submitted successfully",
		slog.String("task_id", task.ID().String()),
		slog.String("topic", payload.Topic))
	return nil
}

// Ensure TaskFactoryEventHandler implements events.EventHandler
var _ events.EventHandler = (*TaskFactoryEventHandler)(nil)
