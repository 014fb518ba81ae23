package services

import (
	"context"
	"errors"
	"fmt"

	"loot-tracker/internal/bosses/models"
	"loot-tracker/pkg/apperrors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Repository handles database operations for bosses
type Repository struct {
	collection *mongo.Collection
}

// NewRepository creates a new repository instance
func NewRepository(db *mongo.Database) *Repository {
	return &Repository{collection: db.Collection(models.BossesCollection)}
}

// Create inserts a boss
func (r *Repository) Create(ctx context.Context, boss *models.Boss) error {
	result, err := r.collection.InsertOne(ctx, boss)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return apperrors.Conflict("boss %q already exists", boss.Name)
		}
		return fmt.Errorf("failed to create boss: %w", err)
	}
	boss.ID = result.InsertedID.(primitive.ObjectID)
	return nil
}

// GetByID retrieves a boss
func (r *Repository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Boss, error) {
	var boss models.Boss
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&boss); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperrors.NotFound("boss not found")
		}
		return nil, fmt.Errorf("failed to get boss: %w", err)
	}
	return &boss, nil
}

// List returns the whole catalogue sorted by level then name
func (r *Repository) List(ctx context.Context) ([]models.Boss, error) {
	opts := options.Find().SetSort(bson.D{{Key: "level", Value: 1}, {Key: "name", Value: 1}})
	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list bosses: %w", err)
	}
	defer cursor.Close(ctx)

	bosses := []models.Boss{}
	if err := cursor.All(ctx, &bosses); err != nil {
		return nil, fmt.Errorf("failed to decode bosses: %w", err)
	}
	return bosses, nil
}

// Update replaces the editable fields of a boss
func (r *Repository) Update(ctx context.Context, boss *models.Boss) (*models.Boss, error) {
	var updated models.Boss
	err := r.collection.FindOneAndUpdate(ctx,
		bson.M{"_id": boss.ID},
		bson.M{"$set": bson.M{
			"name":          boss.Name,
			"level":         boss.Level,
			"respawn_hours": boss.RespawnHours,
			"description":   boss.Description,
			"updated_at":    boss.UpdatedAt,
		}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&updated)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperrors.NotFound("boss not found")
		}
		if mongo.IsDuplicateKeyError(err) {
			return nil, apperrors.Conflict("boss %q already exists", boss.Name)
		}
		return nil, fmt.Errorf("failed to update boss: %w", err)
	}
	return &updated, nil
}

// Delete removes a boss
func (r *Repository) Delete(ctx context.Context, id primitive.ObjectID) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete boss: %w", err)
	}
	if result.DeletedCount == 0 {
		return apperrors.NotFound("boss not found")
	}
	return nil
}
