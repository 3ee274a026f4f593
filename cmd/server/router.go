package main

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/phrazzld/revision-scheduler/internal/api"
	apiMiddleware "github.com/phrazzld/revision-scheduler/internal/api/middleware"
	"github.com/phrazzld/revision-scheduler/internal/api/shared"
)

// setupRouter creates and configures the application router with all routes and middleware.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	// Apply standard middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(apiMiddleware.TraceMiddleware(app.logger))
	if app.metrics != nil {
		r.Use(apiMiddleware.MetricsMiddleware(app.metrics))
	}
	r.Use(middleware.Recoverer)

	cardHandler := api.NewCardHandler(app.cardService, app.reviewService, app.config.Scheduler.Lookahead, app.logger)
	settingsHandler := api.NewSettingsHandler(app.settingsService, app.logger)
	topicHandler := api.NewTopicHandler(app.topicService, app.logger)

	r.Route("/api", func(r chi.Router) {
		// Card management endpoints
		r.Post("/cards", cardHandler.CreateCard)
		r.Get("/cards/due", cardHandler.ListDueCards)
		r.Get("/cards/all", cardHandler.ListAllCards)
		r.Post("/cards/recalculate", cardHandler.Recalculate)
		r.Get("/cards/{id}", cardHandler.GetCard)
		r.Put("/cards/{id}", cardHandler.UpdateCard)
		r.Delete("/cards/{id}", cardHandler.DeleteCard)

		// Review endpoints
		r.Post("/cards/{id}/review", cardHandler.SubmitReview)
		r.Post("/cards/{id}/undo", cardHandler.UndoReview)
		r.Get("/cards/{id}/scheduling", cardHandler.PreviewScheduling)

		r.Get("/stats", cardHandler.Stats)

		r.Get("/settings", settingsHandler.GetSettings)
		r.Post("/settings", settingsHandler.UpdateSettings)
		r.Put("/settings", settingsHandler.UpdateSettings)

		r.Get("/topics", topicHandler.ListTopics)
		r.Post("/topics", topicHandler.UpsertTopic)
	})

	// Health check endpoint
	r.Get("/health", app.health)

	if app.metrics != nil {
		r.Method(http.MethodGet, "/metrics", app.metrics.Handler())
	}

	return r
}

// health reports liveness together with database reachability.
func (app *application) health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := app.db.PingContext(ctx); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusServiceUnavailable, "Database unavailable", err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}
