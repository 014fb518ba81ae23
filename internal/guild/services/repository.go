package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"loot-tracker/internal/guild/models"
	"loot-tracker/pkg/apperrors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Repository handles database operations for guild settings
type Repository struct {
	collection *mongo.Collection
}

// NewRepository creates a new repository instance
func NewRepository(db *mongo.Database) *Repository {
	return &Repository{
		collection: db.Collection(models.GuildSettingsCollection),
	}
}

// GetByKey retrieves a setting by its key
func (r *Repository) GetByKey(ctx context.Context, key string) (*models.Setting, error) {
	var setting models.Setting
	err := r.collection.FindOne(ctx, bson.M{"key": key}).Decode(&setting)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperrors.NotFound("setting %q not found", key)
		}
		return nil, fmt.Errorf("failed to get setting: %w", err)
	}
	return &setting, nil
}

// List returns every stored setting ordered by key
func (r *Repository) List(ctx context.Context) ([]models.Setting, error) {
	cursor, err := r.collection.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "key", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to list settings: %w", err)
	}
	defer cursor.Close(ctx)

	settings := []models.Setting{}
	if err := cursor.All(ctx, &settings); err != nil {
		return nil, fmt.Errorf("failed to decode settings: %w", err)
	}
	return settings, nil
}

// Upsert writes a setting, creating it when missing
func (r *Repository) Upsert(ctx context.Context, setting models.Setting, at time.Time) (*models.Setting, error) {
	set := bson.M{
		"value":      setting.Value,
		"type":       setting.Type,
		"updated_by": setting.UpdatedBy,
		"updated_at": at,
	}
	if setting.Description != "" {
		set["description"] = setting.Description
	}

	var updated models.Setting
	err := r.collection.FindOneAndUpdate(ctx,
		bson.M{"key": setting.Key},
		bson.M{"$set": set, "$setOnInsert": bson.M{"key": setting.Key, "created_at": at}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&updated)
	if err != nil {
		return nil, fmt.Errorf("failed to save setting: %w", err)
	}
	return &updated, nil
}

// Delete deletes a guild setting by key
func (r *Repository) Delete(ctx context.Context, key string) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"key": key})
	if err != nil {
		return fmt.Errorf("failed to delete setting: %w", err)
	}
	if result.DeletedCount == 0 {
		return apperrors.NotFound("setting %q not found", key)
	}
	return nil
}

// InitializeDefaults inserts every default setting that is not stored yet
func (r *Repository) InitializeDefaults(ctx context.Context, at time.Time) error {
	for _, setting := range models.DefaultSettings {
		_, err := r.collection.UpdateOne(ctx,
			bson.M{"key": setting.Key},
			bson.M{"$setOnInsert": bson.M{
				"key":         setting.Key,
				"value":       setting.Value,
				"type":        setting.Type,
				"description": setting.Description,
				"created_at":  at,
				"updated_at":  at,
			}},
			options.Update().SetUpsert(true),
		)
		if err != nil {
			return fmt.Errorf("failed to seed setting %s: %w", setting.Key, err)
		}
	}
	return nil
}
