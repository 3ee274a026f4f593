package task

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// TaskStatus is the lifecycle position of a submitted task. A task moves
// pending -> processing -> completed or failed; recovery and the stuck task
// monitor move processing back to pending.
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusProcessing TaskStatus = "processing"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusFailed     TaskStatus = "failed"
)

// Finished reports whether no further work happens for a task in status s.
func (s TaskStatus) Finished() bool {
	return s == TaskStatusCompleted || s == TaskStatusFailed
}

// TaskTypeTopicColorSync copies a topic's color onto its cards.
const TaskTypeTopicColorSync = "topic_color_sync"

// Task is a unit of background work. Execute may be called again after a
// restart or a stuck-task reset, so it must be safe to repeat.
type Task interface {
	ID() uuid.UUID
	Type() string

	// Payload is the JSON the task was created from, kept with its record.
	Payload() []byte

	Status() TaskStatus
	Execute(ctx context.Context) error
}

// TaskStore records submitted tasks and their status so unfinished work can
// be picked up again.
type TaskStore interface {
	// SaveTask records task as pending.
	SaveTask(ctx context.Context, task Task) error

	UpdateTaskStatus(ctx context.Context, taskID uuid.UUID, status TaskStatus, errorMsg string) error

	// GetPendingTasks returns pending tasks, oldest first.
	GetPendingTasks(ctx context.Context) ([]Task, error)

	// GetProcessingTasks returns tasks that have been processing for longer
	// than olderThan; a zero olderThan returns all of them.
	GetProcessingTasks(ctx context.Context, olderThan time.Duration) ([]Task, error)
}
