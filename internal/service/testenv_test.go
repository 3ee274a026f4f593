package service

import (
	"context"
	"database/sql"
	"sync"
	"testing"

	"github.com/phrazzld/revision-scheduler/internal/events"
	"github.com/phrazzld/revision-scheduler/internal/platform/sqlite"
	"github.com/phrazzld/revision-scheduler/internal/platform/sqlstore"
	"github.com/stretchr/testify/require"
)

// recorder collects emitted events.
type recorder struct {
	mu     sync.Mutex
	events []*events.Event
}

func (r *recorder) HandleEvent(_ context.Context, event *events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *recorder) ofType(eventType string) []*events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*events.Event
	for _, e := range r.events {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

type testEnv struct {
	db       *sql.DB
	cards    *sqlstore.CardStore
	topics   *sqlstore.TopicStore
	settings *sqlstore.SettingsStore
	locks    *CardLocks
	emitter  *events.InMemoryEventEmitter
	recorded *recorder
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := sqlite.Open(context.Background(), ":memory:", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	d := sqlite.Dialect{}
	rec := &recorder{}
	emitter := events.NewInMemoryEventEmitter(nil)
	emitter.RegisterHandler(rec)

	return &testEnv{
		db:       db,
		cards:    sqlstore.NewCardStore(db, d, nil),
		topics:   sqlstore.NewTopicStore(db, d, nil),
		settings: sqlstore.NewSettingsStore(db, d, nil),
		locks:    NewCardLocks(),
		emitter:  emitter,
		recorded: rec,
	}
}

func (e *testEnv) topicService(t *testing.T) *TopicService {
	t.Helper()
	svc, err := NewTopicService(e.db, e.topics, e.cards, e.locks, e.emitter, nil)
	require.NoError(t, err)
	return svc
}

func (e *testEnv) cardService(t *testing.T, opts ...CardServiceOption) *CardService {
	t.Helper()
	svc, err := NewCardService(e.cards, e.topicService(t), e.locks, nil, opts...)
	require.NoError(t, err)
	return svc
}
