package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"loot-tracker/internal/guild/models"
	"loot-tracker/pkg/apperrors"
)

// Store is the persistence the settings service needs
type Store interface {
	GetByKey(ctx context.Context, key string) (*models.Setting, error)
	List(ctx context.Context) ([]models.Setting, error)
	Upsert(ctx context.Context, setting models.Setting, at time.Time) (*models.Setting, error)
	Delete(ctx context.Context, key string) error
	InitializeDefaults(ctx context.Context, at time.Time) error
}

// Service handles business logic for guild settings
type Service struct {
	store Store
	now   func() time.Time
}

// NewService creates a new service instance
func NewService(store Store) *Service {
	return &Service{store: store, now: time.Now}
}

// Initialize seeds missing default settings
func (s *Service) Initialize(ctx context.Context) error {
	if err := s.store.InitializeDefaults(ctx, s.now()); err != nil {
		return fmt.Errorf("failed to initialize default settings: %w", err)
	}
	return nil
}

// GetInt returns an integer setting, falling back to the default when the key is not
// stored or holds a non-integer value
func (s *Service) GetInt(ctx context.Context, key string) (int, error) {
	fallback, hasDefault := models.DefaultValue(key)

	setting, err := s.store.GetByKey(ctx, key)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) && hasDefault {
			value, _ := toInt(fallback)
			return value, nil
		}
		return 0, err
	}

	value, ok := toInt(setting.Value)
	if !ok {
		if hasDefault {
			slog.Warn("Guild setting is not an integer, using default", "key", key, "value", setting.Value)
			value, _ = toInt(fallback)
			return value, nil
		}
		return 0, apperrors.InvalidState("setting %q is not an integer", key)
	}
	return value, nil
}

// List returns every stored setting
func (s *Service) List(ctx context.Context) ([]models.Setting, error) {
	return s.store.List(ctx)
}

// Get returns one setting
func (s *Service) Get(ctx context.Context, key string) (*models.Setting, error) {
	return s.store.GetByKey(ctx, key)
}

// Update validates and stores a setting value. Known lifecycle keys must be non-negative integers.
func (s *Service) Update(ctx context.Context, key string, value interface{}, description, updatedBy string) (*models.Setting, error) {
	if key == "" {
		return nil, apperrors.Validation("key is required")
	}

	settingType, err := typeOf(value)
	if err != nil {
		return nil, err
	}

	if _, known := models.DefaultValue(key); known {
		number, ok := toInt(value)
		if !ok || number < 0 {
			return nil, apperrors.Validation("setting %q must be a non-negative integer", key)
		}
		value = number
	}

	setting, err := s.store.Upsert(ctx, models.Setting{
		Key:         key,
		Value:       value,
		Type:        settingType,
		Description: description,
		UpdatedBy:   updatedBy,
	}, s.now())
	if err != nil {
		return nil, err
	}

	slog.Info("Guild setting updated", "key", key, "updated_by", updatedBy)
	return setting, nil
}

// Delete removes a setting. Lifecycle keys then read their default again.
func (s *Service) Delete(ctx context.Context, key string) error {
	return s.store.Delete(ctx, key)
}

func typeOf(value interface{}) (models.SettingType, error) {
	switch value.(type) {
	case string:
		return models.SettingTypeString, nil
	case bool:
		return models.SettingTypeBoolean, nil
	case int, int32, int64, float64:
		return models.SettingTypeNumber, nil
	default:
		return "", apperrors.Validation("value must be a string, number or boolean")
	}
}

func toInt(value interface{}) (int, bool) {
	switch v := value.(type) {
	case int:
		return v, true
	case int32:
		return int(v), true
	case int64:
		return int(v), true
	case float64:
		if v != math.Trunc(v) {
			return 0, false
		}
		return int(v), true
	default:
		return 0, false
	}
}
