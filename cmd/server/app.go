package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/revision-scheduler/internal/config"
	"github.com/phrazzld/revision-scheduler/internal/domain"
	"github.com/phrazzld/revision-scheduler/internal/domain/srs"
	"github.com/phrazzld/revision-scheduler/internal/events"
	"github.com/phrazzld/revision-scheduler/internal/platform/metrics"
	"github.com/phrazzld/revision-scheduler/internal/platform/sqlstore"
	"github.com/phrazzld/revision-scheduler/internal/service"
	"github.com/phrazzld/revision-scheduler/internal/service/card_review"
	"github.com/phrazzld/revision-scheduler/internal/store"
	"github.com/phrazzld/revision-scheduler/internal/task"
)

// stuckTaskAge is how long a color sync may run before the runner retries it.
const stuckTaskAge = 10 * time.Minute

// application holds all the shared application dependencies to simplify management
// and ensure proper cleanup on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *database

	// Stores
	cardStore     store.CardStore
	topicStore    store.TopicStore
	settingsStore store.SettingsStore

	// Services
	srsService      srs.Service
	settingsService *service.SettingsService
	topicService    *service.TopicService
	cardService     *service.CardService
	reviewService   card_review.Service

	// Event system; metrics is nil when disabled
	eventEmitter *events.InMemoryEventEmitter
	metrics      *metrics.Metrics

	// Task handling
	taskRunner *task.TaskRunner
}

// newApplication creates a new application instance with all dependencies initialized.
// The task runner is created but not started; Run starts it.
func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger, db *database) (*application, error) {
	app := &application{
		config: cfg,
		logger: logger,
		db:     db,
	}

	location, err := time.LoadLocation(cfg.Scheduler.Timezone)
	if err != nil {
		return nil, fmt.Errorf("failed to load timezone %q: %w", cfg.Scheduler.Timezone, err)
	}

	params, err := srs.NewParams(srs.ParamsConfig{
		Weights:     cfg.SRS.Weights,
		MinInterval: cfg.SRS.MinInterval,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build memory model parameters: %w", err)
	}
	app.srsService, err = srs.NewServiceWithParams(params)
	if err != nil {
		return nil, fmt.Errorf("failed to create SRS service: %w", err)
	}

	// Initialize stores
	app.cardStore = sqlstore.NewCardStore(db.DB, db.Dialect, logger)
	app.topicStore = sqlstore.NewTopicStore(db.DB, db.Dialect, logger)
	app.settingsStore = sqlstore.NewSettingsStore(db.DB, db.Dialect, logger)

	// Initialize event emitter; metrics observe every event
	app.eventEmitter = events.NewInMemoryEventEmitter(logger)
	if cfg.Telemetry.MetricsEnabled {
		app.metrics = metrics.New(logger)
		app.eventEmitter.RegisterHandler(app.metrics)
	}

	locks := service.NewCardLocks()

	app.settingsService, err = service.NewSettingsService(
		app.settingsStore,
		domain.Settings{RetentionTarget: cfg.Scheduler.DefaultRetention},
		app.eventEmitter,
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create settings service: %w", err)
	}
	if err := app.settingsService.Load(ctx); err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}
	if app.metrics != nil {
		app.metrics.SetRetentionTarget(app.settingsService.RetentionTarget())
	}

	app.topicService, err = service.NewTopicService(
		db.DB,
		app.topicStore,
		app.cardStore,
		locks,
		app.eventEmitter,
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create topic service: %w", err)
	}

	app.cardService, err = service.NewCardService(
		app.cardStore,
		app.topicService,
		locks,
		logger,
		service.WithLocation(location),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create card service: %w", err)
	}

	app.reviewService, err = card_review.NewService(
		app.cardStore,
		app.srsService,
		app.settingsService,
		locks,
		app.eventEmitter,
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create card review service: %w", err)
	}

	// Topic color changes are applied to cards in the background
	app.taskRunner = task.NewTaskRunner(task.NewMemoryTaskStore(), task.TaskRunnerConfig{
		QueueSize:    cfg.Task.QueueSize,
		WorkerCount:  cfg.Task.WorkerCount,
		StuckTaskAge: stuckTaskAge,
	}, logger)
	syncFactory := task.NewTopicColorSyncTaskFactory(app.topicService, logger)
	app.eventEmitter.RegisterHandler(task.NewTaskFactoryEventHandler(syncFactory, app.taskRunner, logger))

	logger.Info("application initialized",
		slog.String("database_driver", db.Dialect.Name()),
		slog.Float64("request_retention", app.settingsService.RetentionTarget()))
	return app, nil
}

// Run starts the task runner and the HTTP server, and blocks until ctx is
// cancelled or the server fails.
func (app *application) Run(ctx context.Context) error {
	if err := app.taskRunner.Start(); err != nil {
		app.cleanup()
		return fmt.Errorf("failed to start task runner: %w", err)
	}

	router := app.setupRouter()

	if err := app.startHTTPServer(ctx, router); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// cleanup handles graceful shutdown of application resources.
func (app *application) cleanup() {
	if app.taskRunner != nil {
		app.taskRunner.Stop()
	}

	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("error closing database connection", slog.String("error", err.Error()))
		}
	}

	app.logger.Info("application shutdown completed")
}
