package task

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Common errors
var (
	ErrNilSyncer  = errors.New("topic color syncer cannot be nil")
	ErrEmptyTopic = errors.New("topic cannot be empty")
)

// TopicColorSyncer copies a topic's color onto every card of the topic and
// reports how many cards changed. service.TopicService satisfies it.
type TopicColorSyncer interface {
	SyncTopicColors(ctx context.Context, topic string) (int, error)
}

// topicColorSyncPayload is the serialized data stored with the task
type topicColorSyncPayload struct {
	Topic string `json:"topic"`
}

// TopicColorSyncTask brings the color of every card in a topic in line with
// the topic after the topic color changed.
type TopicColorSyncTask struct {
	id      uuid.UUID
	topic   string
	syncer  TopicColorSyncer
	logger  *slog.Logger
	mu      sync.Mutex
	status  TaskStatus
	updated int
}

// NewTopicColorSyncTask creates a pending sync task for topic.
func NewTopicColorSyncTask(topic string, syncer TopicColorSyncer, logger *slog.Logger) (*TopicColorSyncTask, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return nil, ErrEmptyTopic
	}
	if syncer == nil {
		return nil, ErrNilSyncer
	}
	if logger == nil {
		logger = slog.Default()
	}

	id := uuid.New()
	return &TopicColorSyncTask{
		id:     id,
		topic:  topic,
		syncer: syncer,
		logger: logger.With(
			slog.String("task_id", id.String()),
			slog.String("topic", topic),
		),
		status: TaskStatusPending,
	}, nil
}

// ID returns the task's unique identifier
func (t *TopicColorSyncTask) ID() uuid.UUID {
	return t.id
}

// Type returns TaskTypeTopicColorSync
func (t *TopicColorSyncTask) Type() string {
	return TaskTypeTopicColorSync
}

// Payload returns the topic as JSON
func (t *TopicColorSyncTask) Payload() []byte {
	data, err := json.Marshal(topicColorSyncPayload{Topic: t.topic})
	if err != nil {
		t.logger.Error("failed to marshal task payload", slog.String("error", err.Error()))
		return []byte("{}")
	}
	return data
}

// Status returns the current task status
func (t *TopicColorSyncTask) Status() TaskStatus {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status
}

// Updated returns the number of cards the last run changed.
func (t *TopicColorSyncTask) Updated() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.updated
}

// Execute runs the sync
func (t *TopicColorSyncTask) Execute(ctx context.Context) error {
	t.setStatus(TaskStatusProcessing, 0)

	updated, err := t.syncer.SyncTopicColors(ctx, t.topic)
	if err != nil {
		t.setStatus(TaskStatusFailed, 0)
		return fmt.Errorf("failed to sync colors of topic %q: %w", t.topic, err)
	}

	t.setStatus(TaskStatusCompleted, updated)
	t.logger.Info("topic colors synced", slog.Int("cards_updated", updated))
	return nil
}

func (t *TopicColorSyncTask) setStatus(status TaskStatus, updated int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.status = status
	t.updated = updated
}

// TopicColorSyncTaskFactory creates TopicColorSyncTask instances
type TopicColorSyncTaskFactory struct {
	syncer TopicColorSyncer
	logger *slog.Logger
}

// NewTopicColorSyncTaskFactory creates a new factory for TopicColorSyncTasks
func NewTopicColorSyncTaskFactory(syncer TopicColorSyncer, logger *slog.Logger) *TopicColorSyncTaskFactory {
	if logger == nil {
		logger = slog.Default()
	}
	return &TopicColorSyncTaskFactory{
		syncer: syncer,
		logger: logger.With(slog.String("component", "topic_color_sync_task")),
	}
}

// CreateTask creates a new TopicColorSyncTask for topic
func (f *TopicColorSyncTaskFactory) CreateTask(topic string) (Task, error) {
	task, err := NewTopicColorSyncTask(topic, f.syncer, f.logger)
	if err != nil {
		return nil, err
	}
	return task, nil
}

var _ Task = (*TopicColorSyncTask)(nil)
