package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/phrazzld/revision-scheduler/internal/api/shared"
	"github.com/phrazzld/revision-scheduler/internal/domain"
	"github.com/phrazzld/revision-scheduler/internal/platform/logger"
)

// TopicManager lists topics and sets their colors.
// service.TopicService satisfies it.
type TopicManager interface {
	List(ctx context.Context) ([]*domain.Topic, error)
	Upsert(ctx context.Context, name, color string) (*domain.Topic, bool, error)
}

// TopicHandler serves /api/topics.
type TopicHandler struct {
	topics TopicManager
	logger *slog.Logger
}

// NewTopicHandler creates a TopicHandler.
func NewTopicHandler(topics TopicManager, logger *slog.Logger) *TopicHandler {
	if topics == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("topic service cannot be nil for TopicHandler")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &TopicHandler{
		topics: topics,
		logger: logger.With(slog.String("component", "topic_handler")),
	}
}

// ListTopics handles GET /api/topics requests.
func (h *TopicHandler) ListTopics(w http.ResponseWriter, r *http.Request) {
	topics, err := h.topics.List(r.Context())
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list topics")
		return
	}

	out := make([]TopicResponse, 0, len(topics))
	for _, t := range topics {
		out = append(out, topicToResponse(t))
	}
	shared.RespondWithJSON(w, r, http.StatusOK, out)
}

// UpsertTopic handles POST /api/topics requests. It answers 201 when the
// topic is new and 200 when an existing topic changed color; cards of the
// topic pick up the color in the background.
func (h *TopicHandler) UpsertTopic(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	var req UpsertTopicRequest
	if !decodeAndValidate(w, r, &req, log) {
		return
	}

	topic, created, err := h.topics.Upsert(r.Context(), req.Name, req.Color)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to save topic")
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	shared.RespondWithJSON(w, r, status, topicToResponse(topic))
}
