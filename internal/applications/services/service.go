package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"loot-tracker/internal/applications/models"
	authModels "loot-tracker/internal/auth/models"
	killModels "loot-tracker/internal/bosskills/models"
	notifModels "loot-tracker/internal/notifications/models"
	userModels "loot-tracker/internal/users/models"
	"loot-tracker/pkg/apperrors"
	"loot-tracker/pkg/database"
	"loot-tracker/pkg/metrics"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Store is the application persistence the service needs
type Store interface {
	Create(ctx context.Context, app *models.Application) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Application, error)
	List(ctx context.Context, filter models.ListFilter) ([]models.Application, int64, error)
	Transition(ctx context.Context, id primitive.ObjectID, from, to models.Status, resolvedBy string, at time.Time) (*models.Application, error)
	RejectPendingForItem(ctx context.Context, killID primitive.ObjectID, itemID string, exceptID primitive.ObjectID, resolvedBy string, at time.Time) ([]models.Application, error)
	RejectPendingForKill(ctx context.Context, killID primitive.ObjectID, resolvedBy string, at time.Time) (int64, error)
	CountApprovedForKill(ctx context.Context, killID primitive.ObjectID) (int64, error)
	WithdrawPendingForUser(ctx context.Context, userID primitive.ObjectID, at time.Time) (int64, error)
}

// KillStore is the slice of the boss kill repository used to resolve items
type KillStore interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (*killModels.BossKill, error)
	AssignItem(ctx context.Context, killID primitive.ObjectID, itemID string, recipient primitive.ObjectID, recipientName string, at time.Time) (*killModels.BossKill, error)
}

// UserReader looks up manual assignment recipients
type UserReader interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (*userModels.User, error)
}

// Notifier sends in-app notifications
type Notifier interface {
	Notify(ctx context.Context, msg notifModels.Message) error
}

// ResolveResult is the outcome of giving an item to a member
type ResolveResult struct {
	// Application is nil for manual assignments
	Application *models.Application
	Kill        *killModels.BossKill
	Item        killModels.DroppedItem
	Rejected    []models.Application
}

// Service handles loot applications and item resolution
type Service struct {
	apps     Store
	kills    KillStore
	users    UserReader
	tx       database.TxRunner
	notifier Notifier
	now      func() time.Time
}

// NewService creates a new service instance
func NewService(apps Store, kills KillStore, users UserReader, tx database.TxRunner, notifier Notifier) *Service {
	return &Service{
		apps:     apps,
		kills:    kills,
		users:    users,
		tx:       tx,
		notifier: notifier,
		now:      time.Now,
	}
}

// Submit applies the caller for a pending item of a kill they attended
func (s *Service) Submit(ctx context.Context, user *authModels.AuthenticatedUser, killID primitive.ObjectID, itemID, reason string) (*models.Application, error) {
	if user == nil {
		return nil, apperrors.Unauthenticated("authentication required")
	}
	userID, err := primitive.ObjectIDFromHex(user.UserID)
	if err != nil {
		return nil, apperrors.Unauthenticated("invalid session")
	}

	kill, err := s.kills.GetByID(ctx, killID)
	if err != nil {
		return nil, err
	}
	item, ok := kill.Item(itemID)
	if !ok {
		return nil, apperrors.InvalidItem("item %s is not part of this kill", itemID)
	}

	now := s.now()
	if item.Status != killModels.ItemPending {
		return nil, apperrors.Conflict("item %q is %s", item.Name, item.Status)
	}
	if !now.Before(item.ApplyDeadline) {
		return nil, apperrors.Conflict("applications for %q closed at %s", item.Name, item.ApplyDeadline.Format(time.RFC3339))
	}
	if !kill.HasAttendee(user.CharacterName) {
		return nil, apperrors.Forbidden("%s did not attend this kill", user.CharacterName)
	}

	app := &models.Application{
		UserID:        userID,
		Username:      user.Username,
		CharacterName: user.CharacterName,
		KillID:        kill.ID,
		BossName:      kill.BossName,
		ItemID:        item.ID,
		ItemName:      item.Name,
		Status:        models.StatusPending,
		Reason:        strings.TrimSpace(reason),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.apps.Create(ctx, app); err != nil {
		return nil, err
	}

	slog.Info("Application submitted",
		"application_id", app.ID.Hex(),
		"kill_id", kill.ID.Hex(),
		"item_id", item.ID,
		"user_id", user.UserID)
	return app, nil
}

// Approve gives the item to the applicant and rejects every competing application
func (s *Service) Approve(ctx context.Context, actor *authModels.AuthenticatedUser, id primitive.ObjectID) (*ResolveResult, error) {
	app, err := s.apps.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if app.Status != models.StatusPending {
		return nil, apperrors.InvalidState("application is %s", app.Status)
	}

	result, err := s.ResolveItem(ctx, actor, app.KillID, app.ItemID, app.UserID, app.CharacterName, app)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// AssignManually gives a pending item to any member without an application
func (s *Service) AssignManually(ctx context.Context, actor *authModels.AuthenticatedUser, killID primitive.ObjectID, itemID string, recipientID primitive.ObjectID) (*ResolveResult, error) {
	recipient, err := s.users.GetByID(ctx, recipientID)
	if err != nil {
		return nil, err
	}
	if recipient.Disabled {
		return nil, apperrors.InvalidState("%s is disabled", recipient.Username)
	}
	return s.ResolveItem(ctx, actor, killID, itemID, recipient.ID, recipient.CharacterName, nil)
}

// ResolveItem assigns an item and settles its applications in one transaction. When app is
// set it is approved; every other pending application for the item is rejected. A second
// resolution of the same item fails on the item CAS with Conflict.
func (s *Service) ResolveItem(ctx context.Context, actor *authModels.AuthenticatedUser, killID primitive.ObjectID, itemID string, recipient primitive.ObjectID, recipientName string, app *models.Application) (*ResolveResult, error) {
	result := &ResolveResult{}
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		now := s.now()

		// app may be stale by the time the transaction starts
		if app != nil {
			current, err := s.apps.GetByID(ctx, app.ID)
			if err != nil {
				return err
			}
			if current.Status != models.StatusPending {
				return apperrors.InvalidState("application is %s", current.Status)
			}
			if current.KillID != killID || current.ItemID != itemID {
				return apperrors.InvalidItem("application is for a different item")
			}
		}

		kill, err := s.kills.AssignItem(ctx, killID, itemID, recipient, recipientName, now)
		if err != nil {
			return err
		}
		item, ok := kill.Item(itemID)
		if !ok {
			return apperrors.InvalidItem("item %s is not part of this kill", itemID)
		}

		var exceptID primitive.ObjectID
		if app != nil {
			approved, err := s.apps.Transition(ctx, app.ID, models.StatusPending, models.StatusApproved, actor.UserID, now)
			if err != nil {
				return err
			}
			exceptID = approved.ID
			result.Application = approved
		}

		rejected, err := s.apps.RejectPendingForItem(ctx, killID, itemID, exceptID, actor.UserID, now)
		if err != nil {
			return err
		}

		result.Kill = kill
		result.Item = *item
		result.Rejected = rejected
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.Application != nil {
		metrics.ApplicationsResolved.WithLabelValues(string(models.StatusApproved)).Inc()
	}
	if n := len(result.Rejected); n > 0 {
		metrics.ApplicationsResolved.WithLabelValues(string(models.StatusRejected)).Add(float64(n))
	}

	slog.Info("Item assigned",
		"kill_id", killID.Hex(),
		"item_id", itemID,
		"recipient", recipient.Hex(),
		"rejected", len(result.Rejected),
		"by", actor.UserID)

	s.notifyResolved(ctx, result, recipient)
	return result, nil
}

func (s *Service) notifyResolved(ctx context.Context, result *ResolveResult, recipient primitive.ObjectID) {
	meta := map[string]string{"kill_id": result.Kill.ID.Hex(), "item_id": result.Item.ID}

	err := s.notifier.Notify(ctx, notifModels.Message{
		Recipients: []primitive.ObjectID{recipient},
		Type:       notifModels.TypeApplicationApproved,
		Priority:   notifModels.PriorityHigh,
		Title:      fmt.Sprintf("You received %s", result.Item.Name),
		Body:       fmt.Sprintf("%s from %s is yours", result.Item.Name, result.Kill.BossName),
		Metadata:   meta,
		DedupeKey:  "assigned:" + result.Kill.ID.Hex() + ":" + result.Item.ID,
	})
	if err != nil {
		slog.Error("Failed to notify item recipient", "kill_id", result.Kill.ID.Hex(), "error", err)
	}

	if len(result.Rejected) == 0 {
		return
	}
	losers := make([]primitive.ObjectID, len(result.Rejected))
	for i, app := range result.Rejected {
		losers[i] = app.UserID
	}
	err = s.notifier.Notify(ctx, notifModels.Message{
		Recipients: losers,
		Type:       notifModels.TypeApplicationRejected,
		Title:      fmt.Sprintf("%s went to another member", result.Item.Name),
		Metadata:   meta,
	})
	if err != nil {
		slog.Error("Failed to notify rejected applicants", "kill_id", result.Kill.ID.Hex(), "error", err)
	}
}

// Reject refuses one pending application
func (s *Service) Reject(ctx context.Context, actor *authModels.AuthenticatedUser, id primitive.ObjectID) (*models.Application, error) {
	var app *models.Application
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		var err error
		app, err = s.apps.Transition(ctx, id, models.StatusPending, models.StatusRejected, actor.UserID, s.now())
		return err
	})
	if err != nil {
		return nil, err
	}
	metrics.ApplicationsResolved.WithLabelValues(string(models.StatusRejected)).Inc()

	err = s.notifier.Notify(ctx, notifModels.Message{
		Recipients: []primitive.ObjectID{app.UserID},
		Type:       notifModels.TypeApplicationRejected,
		Title:      fmt.Sprintf("Your application for %s was rejected", app.ItemName),
		Metadata:   map[string]string{"kill_id": app.KillID.Hex(), "item_id": app.ItemID},
	})
	if err != nil {
		slog.Error("Failed to notify rejected applicant", "application_id", id.Hex(), "error", err)
	}
	return app, nil
}

// Withdraw takes back the caller's own pending application
func (s *Service) Withdraw(ctx context.Context, user *authModels.AuthenticatedUser, id primitive.ObjectID) (*models.Application, error) {
	var withdrawn *models.Application
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		app, err := s.apps.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if app.UserID.Hex() != user.UserID {
			return apperrors.Forbidden("application belongs to another member")
		}
		withdrawn, err = s.apps.Transition(ctx, id, models.StatusPending, models.StatusWithdrawn, user.UserID, s.now())
		return err
	})
	if err != nil {
		return nil, err
	}
	metrics.ApplicationsResolved.WithLabelValues(string(models.StatusWithdrawn)).Inc()
	return withdrawn, nil
}

// Get returns one application. Members only see their own.
func (s *Service) Get(ctx context.Context, user *authModels.AuthenticatedUser, canResolve bool, id primitive.ObjectID) (*models.Application, error) {
	app, err := s.apps.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canResolve && app.UserID.Hex() != user.UserID {
		return nil, apperrors.NotFound("application not found")
	}
	return app, nil
}

// List returns a page of applications
func (s *Service) List(ctx context.Context, filter models.ListFilter) ([]models.Application, int64, error) {
	switch filter.Status {
	case "", models.StatusPending, models.StatusApproved, models.StatusRejected, models.StatusWithdrawn:
	default:
		return nil, 0, apperrors.Validation("unknown application status %q", filter.Status)
	}
	return s.apps.List(ctx, filter)
}

// Mine returns the caller's applications
func (s *Service) Mine(ctx context.Context, user *authModels.AuthenticatedUser, filter models.ListFilter) ([]models.Application, int64, error) {
	userID, err := primitive.ObjectIDFromHex(user.UserID)
	if err != nil {
		return nil, 0, apperrors.Unauthenticated("invalid session")
	}
	filter.UserID = &userID
	return s.List(ctx, filter)
}

// CountApprovedForKill counts approved applications of a kill
func (s *Service) CountApprovedForKill(ctx context.Context, killID primitive.ObjectID) (int64, error) {
	return s.apps.CountApprovedForKill(ctx, killID)
}

// RejectPendingForKill rejects the pending applications of a kill being deleted
func (s *Service) RejectPendingForKill(ctx context.Context, killID primitive.ObjectID, resolvedBy string, at time.Time) (int64, error) {
	n, err := s.apps.RejectPendingForKill(ctx, killID, resolvedBy, at)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		metrics.ApplicationsResolved.WithLabelValues(string(models.StatusRejected)).Add(float64(n))
	}
	return n, nil
}

// RejectPendingForItem closes the pending applications of an item that left the pending
// state without a recipient, such as an item expiring into the auction pool
func (s *Service) RejectPendingForItem(ctx context.Context, killID primitive.ObjectID, itemID string, resolvedBy string, at time.Time) (int, error) {
	rejected, err := s.apps.RejectPendingForItem(ctx, killID, itemID, primitive.NilObjectID, resolvedBy, at)
	if err != nil {
		return 0, err
	}
	if len(rejected) == 0 {
		return 0, nil
	}
	metrics.ApplicationsResolved.WithLabelValues(string(models.StatusRejected)).Add(float64(len(rejected)))

	applicants := make([]primitive.ObjectID, len(rejected))
	for i, app := range rejected {
		applicants[i] = app.UserID
	}
	err = s.notifier.Notify(ctx, notifModels.Message{
		Recipients: applicants,
		Type:       notifModels.TypeApplicationRejected,
		Title:      fmt.Sprintf("Applications for %s closed", rejected[0].ItemName),
		Body:       fmt.Sprintf("%s was not assigned before its deadline", rejected[0].ItemName),
		Metadata:   map[string]string{"kill_id": killID.Hex(), "item_id": itemID},
		DedupeKey:  "item_closed:" + killID.Hex() + ":" + itemID,
	})
	if err != nil {
		slog.Error("Failed to notify applicants of closed item", "kill_id", killID.Hex(), "item_id", itemID, "error", err)
	}
	return len(rejected), nil
}

// WithdrawPendingForUser withdraws the pending applications of a disabled account
func (s *Service) WithdrawPendingForUser(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	n, err := s.apps.WithdrawPendingForUser(ctx, userID, s.now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		metrics.ApplicationsResolved.WithLabelValues(string(models.StatusWithdrawn)).Add(float64(n))
		slog.Info("Withdrew pending applications", "user_id", userID.Hex(), "count", n)
	}
	return n, nil
}

