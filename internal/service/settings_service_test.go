package service

import (
	"context"
	"errors"
	"testing"

	"github.com/phrazzld/revision-scheduler/internal/domain"
	"github.com/phrazzld/revision-scheduler/internal/events"
	"github.com/phrazzld/revision-scheduler/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockSettingsStore struct {
	mock.Mock
}

func (m *mockSettingsStore) Get(ctx context.Context) (domain.Settings, error) {
	args := m.Called(ctx)
	return args.Get(0).(domain.Settings), args.Error(1)
}

func (m *mockSettingsStore) Save(ctx context.Context, settings domain.Settings) error {
	args := m.Called(ctx, settings)
	return args.Error(0)
}

func TestNewSettingsService(t *testing.T) {
	t.Run("nil store", func(t *testing.T) {
		svc, err := NewSettingsService(nil, domain.DefaultSettings(), nil, nil)
		assert.Nil(t, svc)
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("invalid defaults", func(t *testing.T) {
		svc, err := NewSettingsService(&mockSettingsStore{}, domain.Settings{RetentionTarget: 0.5}, nil, nil)
		assert.Nil(t, svc)
		assert.ErrorIs(t, err, domain.ErrRetentionOutOfRange)
	})

	t.Run("starts with defaults", func(t *testing.T) {
		svc, err := NewSettingsService(&mockSettingsStore{}, domain.DefaultSettings(), nil, nil)
		require.NoError(t, err)
		assert.Equal(t, domain.DefaultRetentionTarget, svc.RetentionTarget())
	})
}

func TestSettingsServiceLoad(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name     string
		stored   domain.Settings
		storeErr error
		want     float64
		wantErr  bool
	}{
		{name: "nothing persisted", storeErr: store.ErrNotFound, want: 0.9},
		{name: "persisted value", stored: domain.Settings{RetentionTarget: 0.85}, want: 0.85},
		{name: "persisted value out of range", stored: domain.Settings{RetentionTarget: 0.2}, want: 0.9},
		{name: "store failure", storeErr: errors.New("disk gone"), want: 0.9, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := &mockSettingsStore{}
			st.On("Get", mock.Anything).Return(tt.stored, tt.storeErr)

			svc, err := NewSettingsService(st, domain.DefaultSettings(), nil, nil)
			require.NoError(t, err)

			err = svc.Load(ctx)
			if tt.wantErr {
				var serviceErr *ServiceError
				assert.ErrorAs(t, err, &serviceErr)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.want, svc.Get().RetentionTarget)
			st.AssertExpectations(t)
		})
	}
}

func TestSettingsServiceUpdate(t *testing.T) {
	ctx := context.Background()

	t.Run("out of range is rejected before persisting", func(t *testing.T) {
		st := &mockSettingsStore{}
		svc, err := NewSettingsService(st, domain.DefaultSettings(), nil, nil)
		require.NoError(t, err)

		for _, v := range []float64{0.69, 0.98, 0, 1} {
			_, err := svc.Update(ctx, v)
			assert.ErrorIs(t, err, domain.ErrRetentionOutOfRange, "value %v", v)
		}
		st.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
		assert.Equal(t, 0.9, svc.RetentionTarget())
	})

	t.Run("bounds are inclusive", func(t *testing.T) {
		st := &mockSettingsStore{}
		st.On("Save", mock.Anything, mock.Anything).Return(nil)
		svc, err := NewSettingsService(st, domain.DefaultSettings(), nil, nil)
		require.NoError(t, err)

		_, err = svc.Update(ctx, domain.MinRetentionTarget)
		require.NoError(t, err)
		assert.Equal(t, domain.MinRetentionTarget, svc.RetentionTarget())

		_, err = svc.Update(ctx, domain.MaxRetentionTarget)
		require.NoError(t, err)
		assert.Equal(t, domain.MaxRetentionTarget, svc.RetentionTarget())
	})

	t.Run("failed write keeps the current value", func(t *testing.T) {
		st := &mockSettingsStore{}
		st.On("Save", mock.Anything, domain.Settings{RetentionTarget: 0.8}).Return(errors.New("read-only"))
		svc, err := NewSettingsService(st, domain.DefaultSettings(), nil, nil)
		require.NoError(t, err)

		_, err = svc.Update(ctx, 0.8)
		var serviceErr *ServiceError
		require.ErrorAs(t, err, &serviceErr)
		assert.Equal(t, "update_settings", serviceErr.Operation)
		assert.Equal(t, 0.9, svc.RetentionTarget())
		st.AssertExpectations(t)
	})

	t.Run("success persists and publishes", func(t *testing.T) {
		st := &mockSettingsStore{}
		st.On("Save", mock.Anything, domain.Settings{RetentionTarget: 0.8}).Return(nil)

		rec := &recorder{}
		emitter := events.NewInMemoryEventEmitter(nil)
		emitter.RegisterHandler(rec)

		svc, err := NewSettingsService(st, domain.DefaultSettings(), emitter, nil)
		require.NoError(t, err)

		got, err := svc.Update(ctx, 0.8)
		require.NoError(t, err)
		assert.Equal(t, 0.8, got.RetentionTarget)
		assert.Equal(t, 0.8, svc.RetentionTarget())

		changed := rec.ofType(events.TypeSettingsChanged)
		require.Len(t, changed, 1)
		var payload events.SettingsChangedPayload
		require.NoError(t, changed[0].UnmarshalPayload(&payload))
		assert.Equal(t, 0.9, payload.Previous)
		assert.Equal(t, 0.8, payload.RetentionTarget)
		st.AssertExpectations(t)
	})
}

func TestSettingsServiceWithSQLite(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	svc, err := NewSettingsService(env.settings, domain.DefaultSettings(), nil, nil)
	require.NoError(t, err)
	require.NoError(t, svc.Load(ctx))
	_, err = svc.Update(ctx, 0.93)
	require.NoError(t, err)

	reloaded, err := NewSettingsService(env.settings, domain.DefaultSettings(), nil, nil)
	require.NoError(t, err)
	require.NoError(t, reloaded.Load(ctx))
	assert.Equal(t, 0.93, reloaded.RetentionTarget())
}
