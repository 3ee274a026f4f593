package service

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/phrazzld/revision-scheduler/internal/domain"
	"github.com/phrazzld/revision-scheduler/internal/events"
	"github.com/phrazzld/revision-scheduler/internal/platform/logger"
	"github.com/phrazzld/revision-scheduler/internal/store"
)

// TopicService manages topics and keeps the topic color copied onto each
// card in line with its topic.
type TopicService struct {
	db      *sql.DB
	topics  store.TopicStore
	cards   store.CardStore
	locks   *CardLocks
	emitter events.EventEmitter
	logger  *slog.Logger
	now     func() time.Time
}

// NewTopicService creates a TopicService. db is the database both stores run
// on; color syncs use it for their transaction.
func NewTopicService(
	db *sql.DB,
	topics store.TopicStore,
	cards store.CardStore,
	locks *CardLocks,
	emitter events.EventEmitter,
	logger *slog.Logger,
) (*TopicService, error) {
	if db == nil {
		return nil, domain.NewValidationError("db", "cannot be nil", domain.ErrValidation)
	}
	if topics == nil {
		return nil, domain.NewValidationError("topics", "cannot be nil", domain.ErrValidation)
	}
	if cards == nil {
		return nil, domain.NewValidationError("cards", "cannot be nil", domain.ErrValidation)
	}
	if locks == nil {
		locks = NewCardLocks()
	}
	if emitter == nil {
		emitter = events.NopEmitter{}
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &TopicService{
		db:      db,
		topics:  topics,
		cards:   cards,
		locks:   locks,
		emitter: emitter,
		logger:  logger.With(slog.String("component", "topic_service")),
		now:     time.Now,
	}, nil
}

// List returns every topic ordered by name.
func (s *TopicService) List(ctx context.Context) ([]*domain.Topic, error) {
	topics, err := s.topics.List(ctx)
	if err != nil {
		return nil, NewServiceError("list_topics", "failed to list topics", err)
	}
	return topics, nil
}

// Upsert creates a topic or changes the color of an existing one. It reports
// whether the topic was created. A new or changed color emits
// topic.color_changed so the cards of the topic can be brought in line.
func (s *TopicService) Upsert(ctx context.Context, name, color string) (*domain.Topic, bool, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	topic, err := domain.NewTopic(name, color, s.now())
	if err != nil {
		return nil, false, err
	}

	existing, err := s.topics.Get(ctx, topic.Name)
	if err != nil && !errors.Is(err, store.ErrTopicNotFound) {
		return nil, false, NewServiceError("upsert_topic", "failed to read topic", err)
	}
	created := existing == nil

	stored, err := s.topics.Upsert(ctx, topic)
	if err != nil {
		log.Error("failed to upsert topic",
			slog.String("topic", topic.Name),
			slog.String("error", err.Error()))
		return nil, false, NewServiceError("upsert_topic", "failed to store topic", err)
	}

	if created || existing.Color != stored.Color {
		log.Info("topic color set",
			slog.String("topic", stored.Name),
			slog.String("color", stored.Color),
			slog.Bool("created", created))
		events.Publish(ctx, s.emitter, log, events.TypeTopicColorChanged, events.TopicColorChangedPayload{
			Topic: stored.Name,
			Color: stored.Color,
		})
	}
	return stored, created, nil
}

// ResolveColor picks the color for a card in topic: the stored topic color,
// else supplied (creating the topic with it), else the default color.
func (s *TopicService) ResolveColor(ctx context.Context, topic, supplied string) (string, error) {
	existing, err := s.topics.Get(ctx, topic)
	if err == nil {
		return existing.Color, nil
	}
	if !errors.Is(err, store.ErrTopicNotFound) {
		return "", NewServiceError("resolve_topic_color", "failed to read topic", err)
	}

	supplied = strings.TrimSpace(supplied)
	if supplied == "" {
		return domain.DefaultTopicColor, nil
	}

	created, err := domain.NewTopic(topic, supplied, s.now())
	if err != nil {
		return "", err
	}
	stored, err := s.topics.Upsert(ctx, created)
	if err != nil {
		return "", NewServiceError("resolve_topic_color", "failed to create topic", err)
	}
	return stored.Color, nil
}

// ColorFor returns the stored color of topic, or the default color when the
// topic does not exist.
func (s *TopicService) ColorFor(ctx context.Context, topic string) (string, error) {
	existing, err := s.topics.Get(ctx, topic)
	switch {
	case err == nil:
		return existing.Color, nil
	case errors.Is(err, store.ErrTopicNotFound):
		return domain.DefaultTopicColor, nil
	default:
		return "", NewServiceError("topic_color", "failed to read topic", err)
	}
}

// SyncTopicColors sets the color of every card in the named topic to the
// topic's color and returns the number of cards changed.
func (s *TopicService) SyncTopicColors(ctx context.Context, name string) (int, error) {
	return s.sync(ctx, "sync_topic_colors", func(ctx context.Context, topics store.TopicStore) ([]*domain.Topic, error) {
		topic, err := topics.Get(ctx, name)
		if err != nil {
			return nil, err
		}
		return []*domain.Topic{topic}, nil
	})
}

// SyncAllTopicColors runs SyncTopicColors for every topic in one transaction.
func (s *TopicService) SyncAllTopicColors(ctx context.Context) (int, error) {
	return s.sync(ctx, "sync_all_topic_colors", func(ctx context.Context, topics store.TopicStore) ([]*domain.Topic, error) {
		return topics.List(ctx)
	})
}

func (s *TopicService) sync(
	ctx context.Context,
	operation string,
	selectTopics func(context.Context, store.TopicStore) ([]*domain.Topic, error),
) (int, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	// Color updates bump card versions; keep single-card writers out.
	unlock := s.locks.LockAll()
	defer unlock()

	updated := 0
	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		topics, err := selectTopics(ctx, s.topics.WithTx(tx))
		if err != nil {
			return err
		}
		txCards := s.cards.WithTx(tx)
		for _, topic := range topics {
			n, err := txCards.SetTopicColor(ctx, topic.Name, topic.Color)
			if err != nil {
				return err
			}
			if n > 0 {
				log.Debug("synced topic color",
					slog.String("topic", topic.Name),
					slog.Int("cards_updated", n))
			}
			updated += n
		}
		return nil
	})
	if err != nil {
		if store.IsNotFoundError(err) {
			return 0, err
		}
		return 0, NewServiceError(operation, "failed to sync topic colors", err)
	}

	log.Info("topic colors synced", slog.String("operation", operation), slog.Int("cards_updated", updated))
	return updated, nil
}
