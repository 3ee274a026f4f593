package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/phrazzld/revision-scheduler/internal/domain"
	"github.com/phrazzld/revision-scheduler/internal/events"
	"github.com/phrazzld/revision-scheduler/internal/platform/logger"
	"github.com/phrazzld/revision-scheduler/internal/store"
)

// SettingsService owns the process-wide settings. Reads are lock-free; an
// update is persisted before the in-memory value is swapped, so a failed
// write leaves the current value in place.
type SettingsService struct {
	store    store.SettingsStore
	defaults domain.Settings
	current  atomic.Pointer[domain.Settings]
	writeMu  sync.Mutex
	emitter  events.EventEmitter
	logger   *slog.Logger
}

// NewSettingsService creates a SettingsService holding defaults until Load
// is called. A nil emitter discards events.
func NewSettingsService(
	settingsStore store.SettingsStore,
	defaults domain.Settings,
	emitter events.EventEmitter,
	logger *slog.Logger,
) (*SettingsService, error) {
	if settingsStore == nil {
		return nil, domain.NewValidationError("settingsStore", "cannot be nil", domain.ErrValidation)
	}
	if err := defaults.Validate(); err != nil {
		return nil, err
	}
	if emitter == nil {
		emitter = events.NopEmitter{}
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &SettingsService{
		store:    settingsStore,
		defaults: defaults,
		emitter:  emitter,
		logger:   logger.With(slog.String("component", "settings_service")),
	}
	initial := defaults
	s.current.Store(&initial)
	return s, nil
}

// Load reads the persisted settings. When nothing has been saved yet the
// defaults stay in effect.
func (s *SettingsService) Load(ctx context.Context) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	settings, err := s.store.Get(ctx)
	if errors.Is(err, store.ErrNotFound) {
		log.Info("no persisted settings, using defaults",
			slog.Float64("request_retention", s.defaults.RetentionTarget))
		return nil
	}
	if err != nil {
		return NewServiceError("load_settings", "failed to read settings", err)
	}
	if err := settings.Validate(); err != nil {
		log.Warn("persisted settings invalid, using defaults",
			slog.Float64("request_retention", settings.RetentionTarget))
		return nil
	}

	s.current.Store(&settings)
	log.Info("settings loaded", slog.Float64("request_retention", settings.RetentionTarget))
	return nil
}

// Get returns a copy of the current settings.
func (s *SettingsService) Get() domain.Settings {
	return *s.current.Load()
}

// RetentionTarget returns the current target retention probability.
func (s *SettingsService) RetentionTarget() float64 {
	return s.current.Load().RetentionTarget
}

// Update validates and persists a new retention target, then makes it
// current. Existing cards keep their schedule until they are recalculated.
func (s *SettingsService) Update(ctx context.Context, retentionTarget float64) (domain.Settings, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	next := domain.Settings{RetentionTarget: retentionTarget}
	if err := next.Validate(); err != nil {
		return domain.Settings{}, err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	previous := s.Get()
	if err := s.store.Save(ctx, next); err != nil {
		log.Error("failed to persist settings",
			slog.Float64("request_retention", retentionTarget),
			slog.String("error", err.Error()))
		return domain.Settings{}, NewServiceError("update_settings", "failed to persist settings", err)
	}
	s.current.Store(&next)

	log.Info("retention target updated",
		slog.Float64("previous", previous.RetentionTarget),
		slog.Float64("request_retention", next.RetentionTarget))

	events.Publish(ctx, s.emitter, log, events.TypeSettingsChanged, events.SettingsChangedPayload{
		Previous:        previous.RetentionTarget,
		RetentionTarget: next.RetentionTarget,
	})
	return next, nil
}
