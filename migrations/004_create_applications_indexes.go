package migrations

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func init() {
	Register(Migration{
		Version:     "004_create_applications_indexes",
		Description: "One active application per user and item, one approved application per item",
		Up:          up004,
		Down:        down004,
	})
}

func up004(ctx context.Context, db *mongo.Database) error {
	return createIndexes(ctx, db, "applications", []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "kill_id", Value: 1}, {Key: "item_id", Value: 1}},
			Options: options.Index().
				SetName("idx_active_application_unique").
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"active": true}),
		},
		{
			Keys: bson.D{{Key: "kill_id", Value: 1}, {Key: "item_id", Value: 1}},
			Options: options.Index().
				SetName("idx_approved_item_unique").
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"status": "approved"}),
		},
		{
			Keys:    bson.D{{Key: "status", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_status_created"),
		},
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_user_created"),
		},
	})
}

func down004(ctx context.Context, db *mongo.Database) error {
	return dropIndexes(ctx, db, "applications",
		"idx_active_application_unique", "idx_approved_item_unique", "idx_status_created", "idx_user_created")
}
