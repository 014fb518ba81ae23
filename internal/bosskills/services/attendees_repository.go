package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"loot-tracker/internal/bosskills/models"
	"loot-tracker/pkg/apperrors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// AttendeeRepository handles database operations for attendance requests
type AttendeeRepository struct {
	collection *mongo.Collection
}

// NewAttendeeRepository creates a new repository instance
func NewAttendeeRepository(db *mongo.Database) *AttendeeRepository {
	return &AttendeeRepository{collection: db.Collection(models.AttendeeRequestsCollection)}
}

// Create inserts a request. A second pending request for the same kill and user is a Conflict.
func (r *AttendeeRepository) Create(ctx context.Context, req *models.AttendeeRequest) error {
	result, err := r.collection.InsertOne(ctx, req)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return apperrors.Conflict("an attendance request for this kill is already pending")
		}
		return fmt.Errorf("failed to create attendance request: %w", err)
	}
	req.ID = result.InsertedID.(primitive.ObjectID)
	return nil
}

// GetByID retrieves a request
func (r *AttendeeRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.AttendeeRequest, error) {
	var req models.AttendeeRequest
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&req); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperrors.NotFound("attendance request not found")
		}
		return nil, fmt.Errorf("failed to get attendance request: %w", err)
	}
	return &req, nil
}

// List returns requests, oldest first
func (r *AttendeeRepository) List(ctx context.Context, status models.AttendeeStatus, killID *primitive.ObjectID) ([]models.AttendeeRequest, error) {
	query := bson.M{}
	if status != "" {
		query["status"] = status
	}
	if killID != nil {
		query["kill_id"] = *killID
	}

	cursor, err := r.collection.Find(ctx, query, options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to list attendance requests: %w", err)
	}
	defer cursor.Close(ctx)

	requests := []models.AttendeeRequest{}
	if err := cursor.All(ctx, &requests); err != nil {
		return nil, fmt.Errorf("failed to decode attendance requests: %w", err)
	}
	return requests, nil
}

// Resolve moves a pending request to status
func (r *AttendeeRepository) Resolve(ctx context.Context, id primitive.ObjectID, status models.AttendeeStatus, resolvedBy string, at time.Time) (*models.AttendeeRequest, error) {
	var req models.AttendeeRequest
	err := r.collection.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "status": models.AttendeePending},
		bson.M{"$set": bson.M{
			"status":      status,
			"resolved_by": resolvedBy,
			"resolved_at": at,
			"updated_at":  at,
		}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&req)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			existing, getErr := r.GetByID(ctx, id)
			if getErr != nil {
				return nil, getErr
			}
			return nil, apperrors.InvalidState("attendance request is already %s", existing.Status)
		}
		return nil, fmt.Errorf("failed to resolve attendance request: %w", err)
	}
	return &req, nil
}

// DeleteForKill removes every request of a kill
func (r *AttendeeRepository) DeleteForKill(ctx context.Context, killID primitive.ObjectID) error {
	if _, err := r.collection.DeleteMany(ctx, bson.M{"kill_id": killID}); err != nil {
		return fmt.Errorf("failed to delete attendance requests: %w", err)
	}
	return nil
}
