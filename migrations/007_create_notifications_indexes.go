package migrations

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func init() {
	Register(Migration{
		Version:     "007_create_notifications_indexes",
		Description: "Per recipient dedupe keys and inbox listing",
		Up:          up007,
		Down:        down007,
	})
}

func up007(ctx context.Context, db *mongo.Database) error {
	return createIndexes(ctx, db, "notifications", []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "recipient", Value: 1}, {Key: "dedupe_key", Value: 1}},
			Options: options.Index().
				SetName("idx_recipient_dedupe_unique").
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"dedupe_key": bson.M{"$exists": true}}),
		},
		{
			Keys:    bson.D{{Key: "recipient", Value: 1}, {Key: "read", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_recipient_read_created"),
		},
		{
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetName("idx_expires_at").SetSparse(true),
		},
	})
}

func down007(ctx context.Context, db *mongo.Database) error {
	return dropIndexes(ctx, db, "notifications", "idx_recipient_dedupe_unique", "idx_recipient_read_created", "idx_expires_at")
}
