package migrations

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func init() {
	Register(Migration{
		Version:     "003_create_boss_kills_indexes",
		Description: "Kill listing, expiry sweep and one pending attendance request per user and kill",
		Up:          up003,
		Down:        down003,
	})
}

func up003(ctx context.Context, db *mongo.Database) error {
	if err := createIndexes(ctx, db, "boss_kills", []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "status", Value: 1}, {Key: "kill_time", Value: -1}},
			Options: options.Index().SetName("idx_status_kill_time"),
		},
		{
			Keys:    bson.D{{Key: "boss_id", Value: 1}, {Key: "kill_time", Value: -1}},
			Options: options.Index().SetName("idx_boss_kill_time"),
		},
		{
			Keys:    bson.D{{Key: "dropped_items.status", Value: 1}, {Key: "dropped_items.apply_deadline", Value: 1}},
			Options: options.Index().SetName("idx_item_status_deadline"),
		},
	}); err != nil {
		return err
	}

	return createIndexes(ctx, db, "attendee_requests", []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "kill_id", Value: 1}, {Key: "user_id", Value: 1}},
			Options: options.Index().
				SetName("idx_pending_request_unique").
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"status": "pending"}),
		},
		{
			Keys:    bson.D{{Key: "status", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_status_created"),
		},
	})
}

func down003(ctx context.Context, db *mongo.Database) error {
	if err := dropIndexes(ctx, db, "boss_kills", "idx_status_kill_time", "idx_boss_kill_time", "idx_item_status_deadline"); err != nil {
		return err
	}
	return dropIndexes(ctx, db, "attendee_requests", "idx_pending_request_unique", "idx_status_created")
}
