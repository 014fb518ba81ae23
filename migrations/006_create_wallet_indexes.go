package migrations

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func init() {
	Register(Migration{
		Version:     "006_create_wallet_indexes",
		Description: "One wallet per user and idempotent ledger rows",
		Up:          up006,
		Down:        down006,
	})
}

func up006(ctx context.Context, db *mongo.Database) error {
	if err := createIndexes(ctx, db, "wallets", []mongo.IndexModel{{
		Keys:    bson.D{{Key: "user_id", Value: 1}},
		Options: options.Index().SetName("idx_user_unique").SetUnique(true),
	}}); err != nil {
		return err
	}

	return createIndexes(ctx, db, "wallet_transactions", []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "idempotency_key", Value: 1}},
			Options: options.Index().
				SetName("idx_idempotency_key_unique").
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"idempotency_key": bson.M{"$exists": true}}),
		},
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_user_created"),
		},
	})
}

func down006(ctx context.Context, db *mongo.Database) error {
	if err := dropIndexes(ctx, db, "wallets", "idx_user_unique"); err != nil {
		return err
	}
	return dropIndexes(ctx, db, "wallet_transactions", "idx_idempotency_key_unique", "idx_user_created")
}
