package services

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"loot-tracker/internal/bosses/dto"
	"loot-tracker/internal/bosses/models"
	"loot-tracker/pkg/apperrors"

	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Store is the persistence the boss catalogue needs
type Store interface {
	Create(ctx context.Context, boss *models.Boss) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Boss, error)
	List(ctx context.Context) ([]models.Boss, error)
	Update(ctx context.Context, boss *models.Boss) (*models.Boss, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
}

// KillCounter counts recorded kills of a boss
type KillCounter interface {
	CountByBoss(ctx context.Context, bossID primitive.ObjectID) (int64, error)
}

// Service handles the boss catalogue
type Service struct {
	store    Store
	kills    KillCounter
	validate *validator.Validate
	now      func() time.Time
}

// NewService creates a new service instance
func NewService(store Store) *Service {
	return &Service{store: store, validate: validator.New(), now: time.Now}
}

// SetKillCounter wires the boss kills repository used to guard deletes
func (s *Service) SetKillCounter(kills KillCounter) {
	s.kills = kills
}

// List returns the catalogue
func (s *Service) List(ctx context.Context) ([]models.Boss, error) {
	return s.store.List(ctx)
}

// Get returns one boss
func (s *Service) Get(ctx context.Context, id primitive.ObjectID) (*models.Boss, error) {
	return s.store.GetByID(ctx, id)
}

// Create adds a boss to the catalogue
func (s *Service) Create(ctx context.Context, req dto.BossRequest) (*models.Boss, error) {
	req.Name = strings.TrimSpace(req.Name)
	if err := s.validate.Struct(req); err != nil {
		return nil, apperrors.FromValidator(err)
	}

	now := s.now()
	boss := &models.Boss{
		Name:         req.Name,
		Level:        req.Level,
		RespawnHours: req.RespawnHours,
		Description:  req.Description,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.Create(ctx, boss); err != nil {
		return nil, err
	}
	slog.Info("Boss created", "boss_id", boss.ID.Hex(), "name", boss.Name)
	return boss, nil
}

// Update replaces a boss's editable fields
func (s *Service) Update(ctx context.Context, id primitive.ObjectID, req dto.BossRequest) (*models.Boss, error) {
	req.Name = strings.TrimSpace(req.Name)
	if err := s.validate.Struct(req); err != nil {
		return nil, apperrors.FromValidator(err)
	}
	return s.store.Update(ctx, &models.Boss{
		ID:           id,
		Name:         req.Name,
		Level:        req.Level,
		RespawnHours: req.RespawnHours,
		Description:  req.Description,
		UpdatedAt:    s.now(),
	})
}

// Delete removes a boss no kill references
func (s *Service) Delete(ctx context.Context, id primitive.ObjectID) error {
	if s.kills != nil {
		count, err := s.kills.CountByBoss(ctx, id)
		if err != nil {
			return err
		}
		if count > 0 {
			return apperrors.Conflict("boss has %d recorded kills", count)
		}
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	slog.Info("Boss deleted", "boss_id", id.Hex())
	return nil
}
