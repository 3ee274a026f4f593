package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/revision-scheduler/internal/domain"
	"github.com/phrazzld/revision-scheduler/internal/platform/logger"
	"github.com/phrazzld/revision-scheduler/internal/store"
)

const cardColumns = `id, topic, topic_color, title, content, created_at,
	stage, stability, difficulty, reps, lapses, last_review,
	due, last_reviewed, review_log, version`

// CardStore implements store.CardStore on a SQL database.
type CardStore struct {
	db      store.DBTX
	dialect Dialect
	logger  *slog.Logger
}

// NewCardStore creates a CardStore running on db. It panics if db or dialect
// is nil. If logger is nil, slog.Default() is used.
func NewCardStore(db store.DBTX, dialect Dialect, logger *slog.Logger) *CardStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if dialect == nil {
		panic("dialect cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CardStore{
		db:      db,
		dialect: dialect,
		logger:  logger.With(slog.String("component", "card_store")),
	}
}

var _ store.CardStore = (*CardStore)(nil)

// WithTx implements store.CardStore.WithTx.
func (s *CardStore) WithTx(tx *sql.Tx) store.CardStore {
	return &CardStore{db: tx, dialect: s.dialect, logger: s.logger}
}

// Find implements store.CardStore.Find.
func (s *CardStore) Find(
	ctx context.Context,
	filter store.CardFilter,
	sort store.CardSort,
) ([]*domain.Card, error) {
	return s.find(ctx, filter, sort, 0)
}

// FindOne implements store.CardStore.FindOne.
func (s *CardStore) FindOne(ctx context.Context, filter store.CardFilter) (*domain.Card, error) {
	cards, err := s.find(ctx, filter, store.SortNone, 1)
	if err != nil {
		return nil, err
	}
	if len(cards) == 0 {
		return nil, store.ErrCardNotFound
	}
	return cards[0], nil
}

func (s *CardStore) find(
	ctx context.Context,
	filter store.CardFilter,
	sort store.CardSort,
	limit int,
) ([]*domain.Card, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	where, args := s.where(filter)
	var q strings.Builder
	q.WriteString("SELECT ")
	q.WriteString(cardColumns)
	q.WriteString(" FROM cards")
	q.WriteString(where)
	switch sort {
	case store.SortCreatedDesc:
		q.WriteString(" ORDER BY created_at DESC, id")
	case store.SortDueAsc:
		q.WriteString(" ORDER BY due ASC, id")
	}
	if limit > 0 {
		fmt.Fprintf(&q, " LIMIT %d", limit)
	}

	rows, err := s.db.QueryContext(ctx, s.dialect.Rebind(q.String()), args...)
	if err != nil {
		log.Error("failed to query cards", slog.String("error", err.Error()))
		return nil, storeError(s.dialect, "card", "find", "query failed", err)
	}
	defer func() { _ = rows.Close() }()

	cards := make([]*domain.Card, 0)
	for rows.Next() {
		card, err := scanCard(rows)
		if err != nil {
			log.Error("failed to scan card row", slog.String("error", err.Error()))
			return nil, fmt.Errorf("failed to scan card row: %w", err)
		}
		cards = append(cards, card)
	}
	if err := rows.Err(); err != nil {
		log.Error("error iterating card rows", slog.String("error", err.Error()))
		return nil, storeError(s.dialect, "card", "find", "row iteration failed", err)
	}
	return cards, nil
}

// Insert implements store.CardStore.Insert.
func (s *CardStore) Insert(ctx context.Context, card *domain.Card) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if card == nil {
		return fmt.Errorf("%w: card is nil", store.ErrInvalidEntity)
	}
	if err := card.Validate(); err != nil {
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}

	logJSON, err := encodeReviewLog(card.ReviewLog)
	if err != nil {
		return err
	}

	query := s.dialect.Rebind(`
		INSERT INTO cards (` + cardColumns + `, review_count)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)

	_, err = s.db.ExecContext(ctx, query,
		card.ID,
		card.Topic,
		card.TopicColor,
		card.Title,
		card.Content,
		s.dialect.TimeValue(card.CreatedAt),
		string(card.Memory.Stage),
		card.Memory.Stability,
		card.Memory.Difficulty,
		card.Memory.Reps,
		card.Memory.Lapses,
		nullTimeArg(s.dialect, card.Memory.LastReview),
		s.dialect.TimeValue(card.Due),
		nullTimeArg(s.dialect, card.LastReviewed),
		logJSON,
		int64(1),
		len(card.ReviewLog),
	)
	if err != nil {
		log.Error("failed to insert card",
			slog.String("card_id", card.ID.String()),
			slog.String("error", err.Error()))
		return storeError(s.dialect, "card", "insert", "statement failed", err)
	}

	card.Version = 1
	log.Debug("card inserted", slog.String("card_id", card.ID.String()))
	return nil
}

// UpdateByID implements store.CardStore.UpdateByID.
func (s *CardStore) UpdateByID(
	ctx context.Context,
	id uuid.UUID,
	expectedVersion int64,
	patch store.CardPatch,
) (*domain.Card, error) {
	log := logger.FromContextOrDefault(ctx, s.logger).With(slog.String("card_id", id.String()))

	card, err := s.FindOne(ctx, store.ByID(id))
	if err != nil {
		return nil, err
	}
	if card.Version != expectedVersion {
		log.Debug("version mismatch before update",
			slog.Int64("expected", expectedVersion),
			slog.Int64("actual", card.Version))
		return nil, store.ErrVersionConflict
	}

	patch.Apply(card)
	if err := card.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}

	logJSON, err := encodeReviewLog(card.ReviewLog)
	if err != nil {
		return nil, err
	}

	query := s.dialect.Rebind(`
		UPDATE cards
		SET topic = ?, topic_color = ?, title = ?, content = ?,
			stage = ?, stability = ?, difficulty = ?, reps = ?, lapses = ?, last_review = ?,
			due = ?, last_reviewed = ?, review_log = ?, review_count = ?,
			version = version + 1
		WHERE id = ? AND version = ?`)

	result, err := s.db.ExecContext(ctx, query,
		card.Topic,
		card.TopicColor,
		card.Title,
		card.Content,
		string(card.Memory.Stage),
		card.Memory.Stability,
		card.Memory.Difficulty,
		card.Memory.Reps,
		card.Memory.Lapses,
		nullTimeArg(s.dialect, card.Memory.LastReview),
		s.dialect.TimeValue(card.Due),
		nullTimeArg(s.dialect, card.LastReviewed),
		logJSON,
		len(card.ReviewLog),
		id,
		expectedVersion,
	)
	if err != nil {
		log.Error("failed to update card", slog.String("error", err.Error()))
		return nil, storeError(s.dialect, "card", "update", "statement failed", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		// Either deleted or rewritten since the read above.
		if _, findErr := s.FindOne(ctx, store.ByID(id)); findErr != nil {
			return nil, findErr
		}
		log.Debug("version changed during update", slog.Int64("expected", expectedVersion))
		return nil, store.ErrVersionConflict
	}

	card.Version = expectedVersion + 1
	return card, nil
}

// DeleteByID implements store.CardStore.DeleteByID.
func (s *CardStore) DeleteByID(ctx context.Context, id uuid.UUID) (bool, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	result, err := s.db.ExecContext(ctx, s.dialect.Rebind(`DELETE FROM cards WHERE id = ?`), id)
	if err != nil {
		log.Error("failed to delete card",
			slog.String("card_id", id.String()),
			slog.String("error", err.Error()))
		return false, storeError(s.dialect, "card", "delete", "statement failed", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return affected > 0, nil
}

// Count implements store.CardStore.Count.
func (s *CardStore) Count(ctx context.Context, filter store.CardFilter) (int, error) {
	where, args := s.where(filter)
	var n int
	err := s.db.QueryRowContext(ctx, s.dialect.Rebind("SELECT COUNT(*) FROM cards"+where), args...).Scan(&n)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to count cards",
			slog.String("error", err.Error()))
		return 0, storeError(s.dialect, "card", "count", "query failed", err)
	}
	return n, nil
}

// SetTopicColor implements store.CardStore.SetTopicColor.
func (s *CardStore) SetTopicColor(ctx context.Context, topic, color string) (int, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	result, err := s.db.ExecContext(ctx, s.dialect.Rebind(`
		UPDATE cards
		SET topic_color = ?, version = version + 1
		WHERE LOWER(topic) = LOWER(CAST(? AS TEXT)) AND topic_color <> ?`),
		color, topic, color)
	if err != nil {
		log.Error("failed to set topic color",
			slog.String("topic", topic),
			slog.String("error", err.Error()))
		return 0, storeError(s.dialect, "card", "set_topic_color", "statement failed", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return int(affected), nil
}

func (s *CardStore) where(f store.CardFilter) (string, []any) {
	var conds []string
	var args []any

	if f.ID != nil {
		conds = append(conds, "id = ?")
		args = append(args, *f.ID)
	}
	if f.DueBefore != nil {
		conds = append(conds, "due <= ?")
		args = append(args, s.dialect.TimeValue(*f.DueBefore))
	}
	if f.ReviewedSince != nil {
		conds = append(conds, "last_reviewed >= ?")
		args = append(args, s.dialect.TimeValue(*f.ReviewedSince))
	}
	if f.Topic != "" {
		conds = append(conds, "LOWER(topic) = LOWER(CAST(? AS TEXT))")
		args = append(args, f.Topic)
	}
	if f.HasReviews {
		conds = append(conds, "review_count > 0")
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCard(row rowScanner) (*domain.Card, error) {
	var (
		card         domain.Card
		stage        string
		lastReview   time.Time
		lastReviewed time.Time
		logJSON      []byte
	)
	lastReviewScan := &timeScanner{dst: &lastReview}
	lastReviewedScan := &timeScanner{dst: &lastReviewed}

	err := row.Scan(
		&card.ID,
		&card.Topic,
		&card.TopicColor,
		&card.Title,
		&card.Content,
		&timeScanner{dst: &card.CreatedAt},
		&stage,
		&card.Memory.Stability,
		&card.Memory.Difficulty,
		&card.Memory.Reps,
		&card.Memory.Lapses,
		lastReviewScan,
		&timeScanner{dst: &card.Due},
		lastReviewedScan,
		&logJSON,
		&card.Version,
	)
	if err != nil {
		return nil, err
	}

	parsed, err := domain.ParseStage(stage)
	if err != nil {
		return nil, err
	}
	card.Memory.Stage = parsed
	if lastReviewScan.valid {
		card.Memory.LastReview = &lastReview
	}
	if lastReviewedScan.valid {
		card.LastReviewed = &lastReviewed
	}

	card.ReviewLog, err = decodeReviewLog(logJSON)
	if err != nil {
		return nil, err
	}
	return &card, nil
}

func encodeReviewLog(log []domain.ReviewEvent) (string, error) {
	if log == nil {
		log = []domain.ReviewEvent{}
	}
	data, err := json.Marshal(log)
	if err != nil {
		return "", fmt.Errorf("failed to encode review log: %w", err)
	}
	return string(data), nil
}

func decodeReviewLog(data []byte) ([]domain.ReviewEvent, error) {
	log := make([]domain.ReviewEvent, 0)
	if len(data) == 0 {
		return log, nil
	}
	if err := json.Unmarshal(data, &log); err != nil {
		return nil, fmt.Errorf("failed to decode review log: %w", err)
	}
	for i := range log {
		log[i].ReviewedAt = domain.NormalizeTime(log[i].ReviewedAt)
	}
	return log, nil
}
