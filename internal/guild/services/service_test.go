package services

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"loot-tracker/internal/guild/models"
	"loot-tracker/pkg/apperrors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryStore struct {
	mu       sync.Mutex
	settings map[string]models.Setting
}

func newMemoryStore() *memoryStore {
	return &memoryStore{settings: make(map[string]models.Setting)}
}

func (m *memoryStore) GetByKey(ctx context.Context, key string) (*models.Setting, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	setting, ok := m.settings[key]
	if !ok {
		return nil, apperrors.NotFound("setting %q not found", key)
	}
	return &setting, nil
}

func (m *memoryStore) List(ctx context.Context) ([]models.Setting, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Setting, 0, len(m.settings))
	for _, setting := range m.settings {
		out = append(out, setting)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (m *memoryStore) Upsert(ctx context.Context, setting models.Setting, at time.Time) (*models.Setting, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.settings[setting.Key]
	if ok {
		setting.CreatedAt = existing.CreatedAt
	} else {
		setting.CreatedAt = at
	}
	setting.UpdatedAt = at
	m.settings[setting.Key] = setting
	return &setting, nil
}

func (m *memoryStore) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.settings[key]; !ok {
		return apperrors.NotFound("setting %q not found", key)
	}
	delete(m.settings, key)
	return nil
}

func (m *memoryStore) InitializeDefaults(ctx context.Context, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, setting := range models.DefaultSettings {
		if _, ok := m.settings[setting.Key]; !ok {
			setting.CreatedAt = at
			m.settings[setting.Key] = setting
		}
	}
	return nil
}

func TestGetIntDefaults(t *testing.T) {
	service := NewService(newMemoryStore())
	ctx := context.Background()

	tests := map[string]int{
		models.KeyApplyDeadlineHours:  48,
		models.KeyAuctionMinPrice:     100,
		models.KeyAuctionMaxPrice:     9999,
		models.KeyAuctionDefaultHours: 24,
		models.KeyInactiveUserDays:    90,
		models.KeyDKPPerKill:          0,
	}
	for key, want := range tests {
		got, err := service.GetInt(ctx, key)
		require.NoError(t, err, key)
		assert.Equal(t, want, got, key)
	}

	_, err := service.GetInt(ctx, "unknown_key")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestUpdateAndRead(t *testing.T) {
	store := newMemoryStore()
	service := NewService(store)
	ctx := context.Background()

	// JSON bodies decode numbers as float64
	_, err := service.Update(ctx, models.KeyApplyDeadlineHours, float64(72), "", "admin")
	require.NoError(t, err)

	hours, err := service.GetInt(ctx, models.KeyApplyDeadlineHours)
	require.NoError(t, err)
	assert.Equal(t, 72, hours)

	require.NoError(t, service.Delete(ctx, models.KeyApplyDeadlineHours))
	hours, err = service.GetInt(ctx, models.KeyApplyDeadlineHours)
	require.NoError(t, err)
	assert.Equal(t, 48, hours)
}

func TestUpdateValidation(t *testing.T) {
	service := NewService(newMemoryStore())
	ctx := context.Background()

	_, err := service.Update(ctx, models.KeyAuctionMinPrice, "cheap", "", "admin")
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = service.Update(ctx, models.KeyAuctionMinPrice, float64(-5), "", "admin")
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = service.Update(ctx, models.KeyAuctionMinPrice, 12.5, "", "admin")
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = service.Update(ctx, "motd", map[string]string{"a": "b"}, "", "admin")
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	setting, err := service.Update(ctx, "motd", "Raid at 8", "Message of the day", "admin")
	require.NoError(t, err)
	assert.Equal(t, models.SettingTypeString, setting.Type)
}

func TestInitializeKeepsStoredValues(t *testing.T) {
	store := newMemoryStore()
	service := NewService(store)
	ctx := context.Background()

	_, err := service.Update(ctx, models.KeyDKPPerKill, 5, "", "admin")
	require.NoError(t, err)
	require.NoError(t, service.Initialize(ctx))

	dkp, err := service.GetInt(ctx, models.KeyDKPPerKill)
	require.NoError(t, err)
	assert.Equal(t, 5, dkp)

	settings, err := service.List(ctx)
	require.NoError(t, err)
	assert.Len(t, settings, len(models.DefaultSettings))
}
