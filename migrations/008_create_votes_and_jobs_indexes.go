package migrations

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// jobExecutionRetention is how long scheduler history is kept
const jobExecutionRetention int32 = 30 * 24 * 60 * 60

func init() {
	Register(Migration{
		Version:     "008_create_votes_and_jobs_indexes",
		Description: "Vote closing sweep and scheduler execution history with retention",
		Up:          up008,
		Down:        down008,
	})
}

func up008(ctx context.Context, db *mongo.Database) error {
	if err := createIndexes(ctx, db, "votes", []mongo.IndexModel{{
		Keys:    bson.D{{Key: "status", Value: 1}, {Key: "deadline", Value: 1}},
		Options: options.Index().SetName("idx_status_deadline"),
	}}); err != nil {
		return err
	}

	return createIndexes(ctx, db, "job_executions", []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "job", Value: 1}, {Key: "started_at", Value: -1}},
			Options: options.Index().SetName("idx_job_started"),
		},
		{
			Keys:    bson.D{{Key: "started_at", Value: 1}},
			Options: options.Index().SetName("idx_started_ttl").SetExpireAfterSeconds(jobExecutionRetention),
		},
	})
}

func down008(ctx context.Context, db *mongo.Database) error {
	if err := dropIndexes(ctx, db, "votes", "idx_status_deadline"); err != nil {
		return err
	}
	return dropIndexes(ctx, db, "job_executions", "idx_job_started", "idx_started_ttl")
}
