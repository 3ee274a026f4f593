package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	ErrQueueFull     = errors.New("task queue is full, try again later")
	ErrRunnerStopped = errors.New("task runner is stopped")
)

const defaultStuckCheckInterval = 5 * time.Minute

// TaskRunnerConfig sizes the worker pool. A task left in processing for
// longer than StuckTaskAge is put back on the queue; the check runs every
// StuckTaskCheckInterval (5m when zero).
type TaskRunnerConfig struct {
	WorkerCount            int
	QueueSize              int
	StuckTaskAge           time.Duration
	StuckTaskCheckInterval time.Duration
}

func DefaultTaskRunnerConfig() TaskRunnerConfig {
	return TaskRunnerConfig{
		WorkerCount:            2,
		QueueSize:              100,
		StuckTaskAge:           30 * time.Minute,
		StuckTaskCheckInterval: defaultStuckCheckInterval,
	}
}

// TaskRunner executes submitted tasks on a fixed pool of goroutines and
// records their progress in a TaskStore.
type TaskRunner struct {
	store  TaskStore
	queue  chan Task
	config TaskRunnerConfig
	logger *slog.Logger
	onFail func(task Task, err error)

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	queued   map[uuid.UUID]struct{}
	started  bool
	stopped  bool
	stopOnce sync.Once
}

func NewTaskRunner(store TaskStore, config TaskRunnerConfig, logger *slog.Logger) *TaskRunner {
	if config.StuckTaskCheckInterval <= 0 {
		config.StuckTaskCheckInterval = defaultStuckCheckInterval
	}
	config.WorkerCount = max(config.WorkerCount, 1)
	config.QueueSize = max(config.QueueSize, 0)
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &TaskRunner{
		store:  store,
		queue:  make(chan Task, config.QueueSize),
		config: config,
		logger: logger.With(slog.String("component", "task_runner")),
		onFail: func(Task, error) {},
		ctx:    ctx,
		cancel: cancel,
		queued: make(map[uuid.UUID]struct{}),
	}
}

// SetErrorHandler registers a callback run after a task fails. The failure
// is logged and recorded in the store either way.
func (r *TaskRunner) SetErrorHandler(handler func(task Task, err error)) {
	r.onFail = handler
}

// Submit records a task and adds it to the queue
func (r *TaskRunner) Submit(ctx context.Context, task Task) error {
	r.mu.Lock()
	stopped := r.stopped
	r.mu.Unlock()
	if stopped {
		return ErrRunnerStopped
	}

	if err := r.store.SaveTask(ctx, task); err != nil {
		return fmt.Errorf("failed to save task: %w", err)
	}

	if !r.enqueue(task) {
		if err := r.store.UpdateTaskStatus(ctx, task.ID(), TaskStatusFailed, ErrQueueFull.Error()); err != nil {
			r.logger.Error("failed to mark rejected task",
				slog.String("task_id", task.ID().String()),
				slog.String("error", err.Error()))
		}
		return ErrQueueFull
	}
	return nil
}

// Start recovers unfinished tasks and starts the workers
func (r *TaskRunner) Start() error {
	r.mu.Lock()
	if r.started || r.stopped {
		r.mu.Unlock()
		return fmt.Errorf("task runner cannot be started twice")
	}
	r.started = true
	r.mu.Unlock()

	if err := r.Recover(); err != nil {
		return fmt.Errorf("failed to recover tasks: %w", err)
	}

	for i := 0; i < r.config.WorkerCount; i++ {
		r.wg.Add(1)
		go r.worker(i)
	}

	r.wg.Add(1)
	go r.stuckTaskMonitor()

	r.logger.Info("task runner started", slog.Int("workers", r.config.WorkerCount))
	return nil
}

// Stop cancels running tasks and waits for the workers to exit. Tasks still
// queued stay pending in the store.
func (r *TaskRunner) Stop() {
	r.stopOnce.Do(func() {
		r.mu.Lock()
		r.stopped = true
		r.mu.Unlock()

		r.cancel()
		r.wg.Wait()
		r.logger.Info("task runner stopped")
	})
}

// Recover requeues tasks left pending or processing in the store that this
// runner has not queued itself.
func (r *TaskRunner) Recover() error {
	ctx := context.Background()

	pendingTasks, err := r.store.GetPendingTasks(ctx)
	if err != nil {
		return fmt.Errorf("failed to get pending tasks: %w", err)
	}

	processingTasks, err := r.store.GetProcessingTasks(ctx, 0)
	if err != nil {
		return fmt.Errorf("failed to get processing tasks: %w", err)
	}

	r.logger.Info("recovering unfinished tasks",
		slog.Int("pending_count", len(pendingTasks)),
		slog.Int("processing_count", len(processingTasks)))

	for _, task := range pendingTasks {
		if r.isQueued(task.ID()) {
			continue
		}
		if !r.enqueue(task) {
			r.logger.Error("failed to requeue pending task, queue is full",
				slog.String("task_id", task.ID().String()),
				slog.String("task_type", task.Type()))
		}
	}

	for _, task := range processingTasks {
		if err := r.store.UpdateTaskStatus(ctx, task.ID(), TaskStatusPending, "Reset after recovery"); err != nil {
			r.logger.Error("failed to reset processing task status",
				slog.String("task_id", task.ID().String()),
				slog.String("task_type", task.Type()),
				slog.String("error", err.Error()))
			continue
		}
		if !r.enqueue(task) {
			r.logger.Error("failed to requeue processing task, queue is full",
				slog.String("task_id", task.ID().String()),
				slog.String("task_type", task.Type()))
		}
	}

	return nil
}

func (r *TaskRunner) enqueue(task Task) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	select {
	case r.queue <- task:
		r.queued[task.ID()] = struct{}{}
		return true
	default:
		return false
	}
}

func (r *TaskRunner) isQueued(id uuid.UUID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.queued[id]
	return ok
}

func (r *TaskRunner) dequeued(id uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.queued, id)
}

func (r *TaskRunner) worker(id int) {
	defer r.wg.Done()

	for {
		select {
		case <-r.ctx.Done():
			return

		case task := <-r.queue:
			r.dequeued(task.ID())
			r.processTask(task, id)
		}
	}
}

func (r *TaskRunner) processTask(task Task, workerID int) {
	ctx := r.ctx
	log := r.logger.With(
		slog.String("task_id", task.ID().String()),
		slog.String("task_type", task.Type()),
		slog.Int("worker_id", workerID),
	)

	if err := r.store.UpdateTaskStatus(ctx, task.ID(), TaskStatusProcessing, ""); err != nil {
		log.Error("failed to update task status to processing", slog.String("error", err.Error()))
		return
	}

	log.Info("processing task")
	started := time.Now()

	err := task.Execute(ctx)

	// The run context may be cancelled by Stop; status updates still go through.
	statusCtx := context.WithoutCancel(ctx)
	if err != nil {
		log.Error("task execution failed",
			slog.String("error", err.Error()),
			slog.Duration("duration", time.Since(started)))
		if updateErr := r.store.UpdateTaskStatus(statusCtx, task.ID(), TaskStatusFailed, err.Error()); updateErr != nil {
			log.Error("failed to update task status to failed", slog.String("error", updateErr.Error()))
		}
		r.onFail(task, err)
		return
	}

	log.Info("task completed successfully", slog.Duration("duration", time.Since(started)))
	if updateErr := r.store.UpdateTaskStatus(statusCtx, task.ID(), TaskStatusCompleted, ""); updateErr != nil {
		log.Error("failed to update task status to completed", slog.String("error", updateErr.Error()))
	}
}

// stuckTaskMonitor requeues tasks that stayed in processing past
// StuckTaskAge.
func (r *TaskRunner) stuckTaskMonitor() {
	defer r.wg.Done()

	ticker := time.NewTicker(r.config.StuckTaskCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.ctx.Done():
			return

		case <-ticker.C:
			r.resetStuckTasks(r.ctx)
		}
	}
}

func (r *TaskRunner) resetStuckTasks(ctx context.Context) {
	stuckTasks, err := r.store.GetProcessingTasks(ctx, r.config.StuckTaskAge)
	if err != nil {
		r.logger.Error("failed to check for stuck tasks", slog.String("error", err.Error()))
		return
	}
	if len(stuckTasks) == 0 {
		return
	}

	r.logger.Info("found stuck tasks", slog.Int("count", len(stuckTasks)))
	for _, task := range stuckTasks {
		if err := r.store.UpdateTaskStatus(ctx, task.ID(), TaskStatusPending,
			"Reset after being stuck in processing state"); err != nil {
			r.logger.Error("failed to reset stuck task status",
				slog.String("task_id", task.ID().String()),
				slog.String("task_type", task.Type()),
				slog.String("error", err.Error()))
			continue
		}

		if r.enqueue(task) {
			r.logger.Info("requeued stuck task",
				slog.String("task_id", task.ID().String()),
				slog.String("task_type", task.Type()))
		} else {
			r.logger.Error("failed to requeue stuck task, queue is full",
				slog.String("task_id", task.ID().String()),
				slog.String("task_type", task.Type()))
		}
	}
}
