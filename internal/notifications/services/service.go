package services

import (
	"context"
	"log/slog"
	"time"

	"loot-tracker/internal/notifications/models"
	"loot-tracker/pkg/apperrors"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// retention keeps read notifications around for this long
const retention = 30 * 24 * time.Hour

// Store is the persistence the notifications service needs
type Store interface {
	InsertMany(ctx context.Context, notifications []models.Notification) (int, error)
	ListForRecipient(ctx context.Context, recipient primitive.ObjectID, unreadOnly bool, now time.Time, skip, limit int64) ([]models.Notification, int64, error)
	UnreadCount(ctx context.Context, recipient primitive.ObjectID, now time.Time) (int64, error)
	MarkRead(ctx context.Context, recipient primitive.ObjectID, notificationID string, at time.Time) (*models.Notification, error)
	MarkAllRead(ctx context.Context, recipient primitive.ObjectID, at time.Time) (int64, error)
	DeleteExpired(ctx context.Context, now, readBefore time.Time) (int64, error)
}

// Service handles notification delivery and inbox operations
type Service struct {
	store Store
	now   func() time.Time
}

// NewService creates a new service instance
func NewService(store Store) *Service {
	return &Service{store: store, now: time.Now}
}

// Notify writes one notification per recipient
func (s *Service) Notify(ctx context.Context, msg models.Message) error {
	if len(msg.Recipients) == 0 {
		return nil
	}
	if msg.Title == "" {
		return apperrors.Validation("notification title is required")
	}

	priority := msg.Priority
	if priority == "" {
		priority = models.PriorityNormal
	}

	now := s.now()
	seen := make(map[primitive.ObjectID]bool, len(msg.Recipients))
	notifications := make([]models.Notification, 0, len(msg.Recipients))
	for _, recipient := range msg.Recipients {
		if recipient.IsZero() || seen[recipient] {
			continue
		}
		seen[recipient] = true

		notification := models.Notification{
			NotificationID: uuid.New().String(),
			Recipient:      recipient,
			Type:           msg.Type,
			Priority:       priority,
			Title:          msg.Title,
			Message:        msg.Body,
			Metadata:       msg.Metadata,
			CreatedAt:      now,
		}
		if msg.DedupeKey != "" {
			notification.DedupeKey = msg.DedupeKey + ":" + recipient.Hex()
		}
		notifications = append(notifications, notification)
	}

	written, err := s.store.InsertMany(ctx, notifications)
	if err != nil {
		return err
	}
	slog.Debug("Notifications sent", "type", msg.Type, "recipients", len(notifications), "written", written)
	return nil
}

// List returns a page of the user's inbox
func (s *Service) List(ctx context.Context, recipient primitive.ObjectID, unreadOnly bool, skip, limit int64) ([]models.Notification, int64, error) {
	return s.store.ListForRecipient(ctx, recipient, unreadOnly, s.now(), skip, limit)
}

// UnreadCount returns the number of unread notifications
func (s *Service) UnreadCount(ctx context.Context, recipient primitive.ObjectID) (int64, error) {
	return s.store.UnreadCount(ctx, recipient, s.now())
}

// MarkRead marks one notification read
func (s *Service) MarkRead(ctx context.Context, recipient primitive.ObjectID, notificationID string) (*models.Notification, error) {
	return s.store.MarkRead(ctx, recipient, notificationID, s.now())
}

// MarkAllRead marks the whole inbox read
func (s *Service) MarkAllRead(ctx context.Context, recipient primitive.ObjectID) (int64, error) {
	return s.store.MarkAllRead(ctx, recipient, s.now())
}

// Cleanup deletes expired notifications and read ones past retention
func (s *Service) Cleanup(ctx context.Context) (int64, error) {
	now := s.now()
	return s.store.DeleteExpired(ctx, now, now.Add(-retention))
}
