package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	authModels "loot-tracker/internal/auth/models"
	guildModels "loot-tracker/internal/guild/models"
	"loot-tracker/internal/users/models"
	"loot-tracker/pkg/apperrors"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Store is the persistence the users service needs
type Store interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	List(ctx context.Context, filter models.ListFilter) ([]models.User, int64, error)
	SetRole(ctx context.Context, id primitive.ObjectID, role authModels.Role, at time.Time) (*models.User, error)
	SetDisabled(ctx context.Context, id primitive.ObjectID, disabled bool, at time.Time) (*models.User, error)
	FindInactive(ctx context.Context, cutoff time.Time) ([]models.User, error)
}

// ApplicationWithdrawer withdraws the pending loot applications of a user
type ApplicationWithdrawer interface {
	WithdrawPendingForUser(ctx context.Context, userID primitive.ObjectID) (int64, error)
}

// SettingsReader reads integer guild settings
type SettingsReader interface {
	GetInt(ctx context.Context, key string) (int, error)
}

// Service handles user administration
type Service struct {
	store        Store
	settings     SettingsReader
	applications ApplicationWithdrawer
	now          func() time.Time
}

// NewService creates a new service instance
func NewService(store Store, settings SettingsReader) *Service {
	return &Service{store: store, settings: settings, now: time.Now}
}

// SetApplications wires the applications service once it exists
func (s *Service) SetApplications(applications ApplicationWithdrawer) {
	s.applications = applications
}

// ListUsers returns a page of users
func (s *Service) ListUsers(ctx context.Context, filter models.ListFilter) ([]models.User, int64, error) {
	if filter.Role != "" && !filter.Role.Valid() {
		return nil, 0, apperrors.Validation("unknown role %q", filter.Role)
	}
	return s.store.List(ctx, filter)
}

// GetUser returns one user
func (s *Service) GetUser(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	return s.store.GetByID(ctx, id)
}

// SetRole changes the role of another user
func (s *Service) SetRole(ctx context.Context, actor *authModels.AuthenticatedUser, id primitive.ObjectID, role authModels.Role) (*models.User, error) {
	if !role.Valid() {
		return nil, apperrors.Validation("unknown role %q", role)
	}
	if actor.UserID == id.Hex() {
		return nil, apperrors.Conflict("you cannot change your own role")
	}

	user, err := s.store.SetRole(ctx, id, role, s.now())
	if err != nil {
		return nil, err
	}
	slog.Info("User role changed", "user_id", id.Hex(), "role", role, "by", actor.UserID)
	return user, nil
}

// SetDisabled disables or re-enables another user. Disabling withdraws their pending applications.
func (s *Service) SetDisabled(ctx context.Context, actor *authModels.AuthenticatedUser, id primitive.ObjectID, disabled bool) (*models.User, error) {
	if disabled && actor.UserID == id.Hex() {
		return nil, apperrors.Conflict("you cannot disable your own account")
	}

	user, err := s.store.SetDisabled(ctx, id, disabled, s.now())
	if err != nil {
		return nil, err
	}
	if disabled {
		s.withdraw(ctx, user.ID)
	}
	slog.Info("User account updated", "user_id", id.Hex(), "disabled", disabled, "by", actor.UserID)
	return user, nil
}

// DisableInactive disables every non-admin account idle for longer than the inactive_user_days
// setting and withdraws their pending applications. A value of 0 turns the sweep off.
func (s *Service) DisableInactive(ctx context.Context, now time.Time) (int, error) {
	days, err := s.settings.GetInt(ctx, guildModels.KeyInactiveUserDays)
	if err != nil {
		return 0, fmt.Errorf("failed to read inactive_user_days: %w", err)
	}
	if days <= 0 {
		return 0, nil
	}

	cutoff := now.Add(-time.Duration(days) * 24 * time.Hour)
	users, err := s.store.FindInactive(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	disabled := 0
	for _, user := range users {
		if _, err := s.store.SetDisabled(ctx, user.ID, true, now); err != nil {
			slog.Error("Failed to disable inactive user", "user_id", user.ID.Hex(), "error", err)
			continue
		}
		s.withdraw(ctx, user.ID)
		disabled++
	}

	if disabled > 0 {
		slog.Info("Disabled inactive users", "count", disabled, "cutoff", cutoff)
	}
	return disabled, nil
}

func (s *Service) withdraw(ctx context.Context, userID primitive.ObjectID) {
	if s.applications == nil {
		return
	}
	count, err := s.applications.WithdrawPendingForUser(ctx, userID)
	if err != nil {
		slog.Error("Failed to withdraw applications of disabled user", "user_id", userID.Hex(), "error", err)
		return
	}
	if count > 0 {
		slog.Info("Withdrew applications of disabled user", "user_id", userID.Hex(), "count", count)
	}
}
