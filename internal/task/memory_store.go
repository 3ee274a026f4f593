package task

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryTaskStore keeps task records in process memory. Tasks do not survive
// a restart; the work they do must be safe to redo by other means.
type MemoryTaskStore struct {
	mu      sync.RWMutex
	records map[uuid.UUID]*taskRecord
	now     func() time.Time
}

type taskRecord struct {
	task      Task
	status    TaskStatus
	errorMsg  string
	createdAt time.Time
	updatedAt time.Time
}

// TaskRecord is a snapshot of a stored task.
type TaskRecord struct {
	ID        uuid.UUID
	Type      string
	Payload   []byte
	Status    TaskStatus
	ErrorMsg  string
	UpdatedAt time.Time
}

// NewMemoryTaskStore creates an empty store.
func NewMemoryTaskStore() *MemoryTaskStore {
	return &MemoryTaskStore{
		records: make(map[uuid.UUID]*taskRecord),
		now:     time.Now,
	}
}

// SaveTask records a new task in the pending state.
func (s *MemoryTaskStore) SaveTask(_ context.Context, task Task) error {
	if task == nil {
		return fmt.Errorf("task cannot be nil")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.records[task.ID()]; exists {
		return fmt.Errorf("task %s already saved", task.ID())
	}
	now := s.now()
	s.records[task.ID()] = &taskRecord{
		task:      task,
		status:    TaskStatusPending,
		createdAt: now,
		updatedAt: now,
	}
	return nil
}

// UpdateTaskStatus implements TaskStore.UpdateTaskStatus.
func (s *MemoryTaskStore) UpdateTaskStatus(
	_ context.Context,
	taskID uuid.UUID,
	status TaskStatus,
	errorMsg string,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, exists := s.records[taskID]
	if !exists {
		return fmt.Errorf("task %s not found", taskID)
	}
	if rec.status.Finished() && !status.Finished() {
		return fmt.Errorf("task %s already %s", taskID, rec.status)
	}
	rec.status = status
	rec.errorMsg = errorMsg
	rec.updatedAt = s.now()
	return nil
}

// GetPendingTasks implements TaskStore.GetPendingTasks, oldest first.
func (s *MemoryTaskStore) GetPendingTasks(_ context.Context) ([]Task, error) {
	return s.withStatus(TaskStatusPending, 0), nil
}

// GetProcessingTasks implements TaskStore.GetProcessingTasks, oldest first.
func (s *MemoryTaskStore) GetProcessingTasks(_ context.Context, olderThan time.Duration) ([]Task, error) {
	return s.withStatus(TaskStatusProcessing, olderThan), nil
}

// Get returns a snapshot of one task record.
func (s *MemoryTaskStore) Get(taskID uuid.UUID) (TaskRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, exists := s.records[taskID]
	if !exists {
		return TaskRecord{}, false
	}
	return TaskRecord{
		ID:        taskID,
		Type:      rec.task.Type(),
		Payload:   rec.task.Payload(),
		Status:    rec.status,
		ErrorMsg:  rec.errorMsg,
		UpdatedAt: rec.updatedAt,
	}, true
}

func (s *MemoryTaskStore) withStatus(status TaskStatus, olderThan time.Duration) []Task {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := s.now()
	var matched []*taskRecord
	for _, rec := range s.records {
		if rec.status != status {
			continue
		}
		if olderThan > 0 && now.Sub(rec.updatedAt) <= olderThan {
			continue
		}
		matched = append(matched, rec)
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].createdAt.Before(matched[j].createdAt)
	})

	tasks := make([]Task, len(matched))
	for i, rec := range matched {
		tasks[i] = rec.task
	}
	return tasks
}

var _ TaskStore = (*MemoryTaskStore)(nil)
