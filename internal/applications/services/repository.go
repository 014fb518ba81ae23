package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"loot-tracker/internal/applications/models"
	"loot-tracker/pkg/apperrors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Repository handles database operations for applications
type Repository struct {
	collection *mongo.Collection
}

// NewRepository creates a new repository instance
func NewRepository(db *mongo.Database) *Repository {
	return &Repository{collection: db.Collection(models.ApplicationsCollection)}
}

// Create inserts a pending application. An active application of the same user for the
// same item is a Conflict.
func (r *Repository) Create(ctx context.Context, app *models.Application) error {
	app.Active = app.Status.Active()
	result, err := r.collection.InsertOne(ctx, app)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return apperrors.Conflict("you already applied for this item")
		}
		return fmt.Errorf("failed to create application: %w", err)
	}
	app.ID = result.InsertedID.(primitive.ObjectID)
	return nil
}

// GetByID retrieves an application
func (r *Repository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Application, error) {
	var app models.Application
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&app); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperrors.NotFound("application not found")
		}
		return nil, fmt.Errorf("failed to get application: %w", err)
	}
	return &app, nil
}

// List returns a page of applications, newest first
func (r *Repository) List(ctx context.Context, filter models.ListFilter) ([]models.Application, int64, error) {
	query := bson.M{}
	if filter.Status != "" {
		query["status"] = filter.Status
	}
	if filter.KillID != nil {
		query["kill_id"] = *filter.KillID
	}
	if filter.UserID != nil {
		query["user_id"] = *filter.UserID
	}

	total, err := r.collection.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count applications: %w", err)
	}

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}).SetSkip(filter.Skip)
	if filter.Limit > 0 {
		opts.SetLimit(filter.Limit)
	}
	apps, err := r.find(ctx, query, opts)
	if err != nil {
		return nil, 0, err
	}
	return apps, total, nil
}

func (r *Repository) find(ctx context.Context, query bson.M, opts ...*options.FindOptions) ([]models.Application, error) {
	cursor, err := r.collection.Find(ctx, query, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to find applications: %w", err)
	}
	defer cursor.Close(ctx)

	apps := []models.Application{}
	if err := cursor.All(ctx, &apps); err != nil {
		return nil, fmt.Errorf("failed to decode applications: %w", err)
	}
	return apps, nil
}

func resolution(to models.Status, resolvedBy string, at time.Time) bson.M {
	return bson.M{
		"status":      to,
		"active":      to.Active(),
		"resolved_by": resolvedBy,
		"resolved_at": at,
		"updated_at":  at,
	}
}

// Transition moves an application out of from. An application in another state is
// InvalidState; a second approval for the same item is a Conflict.
func (r *Repository) Transition(ctx context.Context, id primitive.ObjectID, from, to models.Status, resolvedBy string, at time.Time) (*models.Application, error) {
	var app models.Application
	err := r.collection.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "status": from},
		bson.M{"$set": resolution(to, resolvedBy, at)},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&app)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			existing, getErr := r.GetByID(ctx, id)
			if getErr != nil {
				return nil, getErr
			}
			return nil, apperrors.InvalidState("application is %s", existing.Status)
		}
		if mongo.IsDuplicateKeyError(err) {
			return nil, apperrors.Conflict("item already has an approved application")
		}
		return nil, fmt.Errorf("failed to update application: %w", err)
	}
	return &app, nil
}

// RejectPendingForItem rejects every pending application for an item except exceptID and
// returns the rejected applications
func (r *Repository) RejectPendingForItem(ctx context.Context, killID primitive.ObjectID, itemID string, exceptID primitive.ObjectID, resolvedBy string, at time.Time) ([]models.Application, error) {
	query := bson.M{"kill_id": killID, "item_id": itemID, "status": models.StatusPending}
	if !exceptID.IsZero() {
		query["_id"] = bson.M{"$ne": exceptID}
	}

	pending, err := r.find(ctx, query)
	if err != nil {
		return nil, err
	}
	if len(pending) == 0 {
		return pending, nil
	}

	ids := make([]primitive.ObjectID, len(pending))
	for i := range pending {
		ids[i] = pending[i].ID
	}
	if _, err := r.collection.UpdateMany(ctx,
		bson.M{"_id": bson.M{"$in": ids}, "status": models.StatusPending},
		bson.M{"$set": resolution(models.StatusRejected, resolvedBy, at)},
	); err != nil {
		return nil, fmt.Errorf("failed to reject applications: %w", err)
	}

	for i := range pending {
		pending[i].Status = models.StatusRejected
		pending[i].Active = false
		pending[i].ResolvedBy = resolvedBy
		pending[i].ResolvedAt = &at
		pending[i].UpdatedAt = at
	}
	return pending, nil
}

// RejectPendingForKill rejects every pending application of a kill
func (r *Repository) RejectPendingForKill(ctx context.Context, killID primitive.ObjectID, resolvedBy string, at time.Time) (int64, error) {
	result, err := r.collection.UpdateMany(ctx,
		bson.M{"kill_id": killID, "status": models.StatusPending},
		bson.M{"$set": resolution(models.StatusRejected, resolvedBy, at)},
	)
	if err != nil {
		return 0, fmt.Errorf("failed to reject applications: %w", err)
	}
	return result.ModifiedCount, nil
}

// CountApprovedForKill counts approved applications of a kill
func (r *Repository) CountApprovedForKill(ctx context.Context, killID primitive.ObjectID) (int64, error) {
	count, err := r.collection.CountDocuments(ctx, bson.M{"kill_id": killID, "status": models.StatusApproved})
	if err != nil {
		return 0, fmt.Errorf("failed to count applications: %w", err)
	}
	return count, nil
}

// WithdrawPendingForUser withdraws every pending application of a user
func (r *Repository) WithdrawPendingForUser(ctx context.Context, userID primitive.ObjectID, at time.Time) (int64, error) {
	result, err := r.collection.UpdateMany(ctx,
		bson.M{"user_id": userID, "status": models.StatusPending},
		bson.M{"$set": resolution(models.StatusWithdrawn, "system", at)},
	)
	if err != nil {
		return 0, fmt.Errorf("failed to withdraw applications: %w", err)
	}
	return result.ModifiedCount, nil
}
