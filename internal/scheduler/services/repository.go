package services

import (
	"context"
	"fmt"

	"loot-tracker/internal/scheduler/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Repository stores job execution history
type Repository struct {
	executions *mongo.Collection
}

// NewRepository creates a new repository instance
func NewRepository(db *mongo.Database) *Repository {
	return &Repository{executions: db.Collection(models.ExecutionsCollection)}
}

// CreateExecution records the start of a run
func (r *Repository) CreateExecution(ctx context.Context, execution *models.Execution) error {
	if _, err := r.executions.InsertOne(ctx, execution); err != nil {
		return fmt.Errorf("failed to create execution: %w", err)
	}
	return nil
}

// FinishExecution stores the outcome of a run
func (r *Repository) FinishExecution(ctx context.Context, execution *models.Execution) error {
	_, err := r.executions.UpdateOne(ctx,
		bson.M{"_id": execution.ID},
		bson.M{"$set": bson.M{
			"status":       execution.Status,
			"completed_at": execution.CompletedAt,
			"duration":     execution.Duration,
			"output":       execution.Output,
			"error":        execution.Error,
		}},
	)
	if err != nil {
		return fmt.Errorf("failed to update execution: %w", err)
	}
	return nil
}

// ListExecutions returns the latest runs of job, newest first
func (r *Repository) ListExecutions(ctx context.Context, job string, limit int64) ([]models.Execution, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "started_at", Value: -1}}).
		SetLimit(limit)
	cursor, err := r.executions.Find(ctx, bson.M{"job": job}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list executions: %w", err)
	}
	defer cursor.Close(ctx)

	executions := []models.Execution{}
	if err := cursor.All(ctx, &executions); err != nil {
		return nil, fmt.Errorf("failed to decode executions: %w", err)
	}
	return executions, nil
}
