package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/phrazzld/revision-scheduler/internal/api/shared"
	"github.com/phrazzld/revision-scheduler/internal/domain"
	"github.com/phrazzld/revision-scheduler/internal/platform/logger"
)

// SettingsManager reads and changes the process-wide settings.
// service.SettingsService satisfies it.
type SettingsManager interface {
	Get() domain.Settings
	Update(ctx context.Context, retentionTarget float64) (domain.Settings, error)
}

// SettingsHandler serves /api/settings.
type SettingsHandler struct {
	settings SettingsManager
	logger   *slog.Logger
}

// NewSettingsHandler creates a SettingsHandler.
func NewSettingsHandler(settings SettingsManager, logger *slog.Logger) *SettingsHandler {
	if settings == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("settings service cannot be nil for SettingsHandler")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SettingsHandler{
		settings: settings,
		logger:   logger.With(slog.String("component", "settings_handler")),
	}
}

// GetSettings handles GET /api/settings requests.
func (h *SettingsHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	current := h.settings.Get()
	shared.RespondWithJSON(w, r, http.StatusOK, SettingsResponse{RetentionTarget: current.RetentionTarget})
}

// UpdateSettings handles POST and PUT /api/settings requests. Existing card
// schedules are untouched until the next recalculation.
func (h *SettingsHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	var req UpdateSettingsRequest
	if !decodeAndValidate(w, r, &req, log) {
		return
	}

	updated, err := h.settings.Update(r.Context(), *req.RetentionTarget)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to update settings")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, SettingsResponse{RetentionTarget: updated.RetentionTarget})
}
