package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"loot-tracker/internal/notifications/models"
	"loot-tracker/pkg/apperrors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const duplicateKeyCode = 11000

// Repository handles database operations for notifications
type Repository struct {
	collection *mongo.Collection
}

// NewRepository creates a new repository instance
func NewRepository(db *mongo.Database) *Repository {
	return &Repository{
		collection: db.Collection(models.NotificationsCollection),
	}
}

// InsertMany stores notifications, skipping rows whose dedupe key already exists. It
// returns how many rows were written.
func (r *Repository) InsertMany(ctx context.Context, notifications []models.Notification) (int, error) {
	if len(notifications) == 0 {
		return 0, nil
	}

	docs := make([]interface{}, len(notifications))
	for i := range notifications {
		docs[i] = notifications[i]
	}

	result, err := r.collection.InsertMany(ctx, docs, options.InsertMany().SetOrdered(false))
	if err == nil {
		return len(result.InsertedIDs), nil
	}

	var bulkErr mongo.BulkWriteException
	if !errors.As(err, &bulkErr) || bulkErr.WriteConcernError != nil {
		return 0, fmt.Errorf("failed to create notifications: %w", err)
	}
	for _, writeErr := range bulkErr.WriteErrors {
		if writeErr.Code != duplicateKeyCode {
			return 0, fmt.Errorf("failed to create notifications: %w", err)
		}
	}
	return len(notifications) - len(bulkErr.WriteErrors), nil
}

// ListForRecipient returns a page of the recipient's notifications, newest first
func (r *Repository) ListForRecipient(ctx context.Context, recipient primitive.ObjectID, unreadOnly bool, now time.Time, skip, limit int64) ([]models.Notification, int64, error) {
	filter := visibleTo(recipient, now)
	if unreadOnly {
		filter["read"] = false
	}

	total, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count notifications: %w", err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(skip).
		SetLimit(limit)
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to find notifications: %w", err)
	}
	defer cursor.Close(ctx)

	notifications := []models.Notification{}
	if err := cursor.All(ctx, &notifications); err != nil {
		return nil, 0, fmt.Errorf("failed to decode notifications: %w", err)
	}
	return notifications, total, nil
}

// UnreadCount counts the recipient's unread notifications
func (r *Repository) UnreadCount(ctx context.Context, recipient primitive.ObjectID, now time.Time) (int64, error) {
	filter := visibleTo(recipient, now)
	filter["read"] = false
	count, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}
	return count, nil
}

// MarkRead marks one of the recipient's notifications read
func (r *Repository) MarkRead(ctx context.Context, recipient primitive.ObjectID, notificationID string, at time.Time) (*models.Notification, error) {
	var notification models.Notification
	err := r.collection.FindOneAndUpdate(ctx,
		bson.M{"recipient": recipient, "notification_id": notificationID},
		bson.M{"$set": bson.M{"read": true, "read_at": at}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&notification)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperrors.NotFound("notification not found")
		}
		return nil, fmt.Errorf("failed to mark notification read: %w", err)
	}
	return &notification, nil
}

// MarkAllRead marks every unread notification of the recipient read
func (r *Repository) MarkAllRead(ctx context.Context, recipient primitive.ObjectID, at time.Time) (int64, error) {
	result, err := r.collection.UpdateMany(ctx,
		bson.M{"recipient": recipient, "read": false},
		bson.M{"$set": bson.M{"read": true, "read_at": at}},
	)
	if err != nil {
		return 0, fmt.Errorf("failed to mark notifications read: %w", err)
	}
	return result.ModifiedCount, nil
}

// DeleteExpired removes expired notifications and read ones older than readBefore
func (r *Repository) DeleteExpired(ctx context.Context, now, readBefore time.Time) (int64, error) {
	result, err := r.collection.DeleteMany(ctx, bson.M{
		"$or": []bson.M{
			{"expires_at": bson.M{"$lte": now}},
			{"read": true, "read_at": bson.M{"$lt": readBefore}},
		},
	})
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired notifications: %w", err)
	}
	return result.DeletedCount, nil
}

func visibleTo(recipient primitive.ObjectID, now time.Time) bson.M {
	return bson.M{
		"recipient": recipient,
		"$or": []bson.M{
			{"expires_at": bson.M{"$exists": false}},
			{"expires_at": bson.M{"$gt": now}},
		},
	}
}
