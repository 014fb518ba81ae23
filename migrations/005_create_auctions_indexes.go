package migrations

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func init() {
	Register(Migration{
		Version:     "005_create_auctions_indexes",
		Description: "One open auction per item, settlement sweep and bid idempotency",
		Up:          up005,
		Down:        down005,
	})
}

func up005(ctx context.Context, db *mongo.Database) error {
	if err := createIndexes(ctx, db, "auctions", []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "kill_id", Value: 1}, {Key: "item_id", Value: 1}},
			Options: options.Index().
				SetName("idx_open_item_unique").
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"open": true}),
		},
		{
			Keys:    bson.D{{Key: "status", Value: 1}, {Key: "end_time", Value: 1}},
			Options: options.Index().SetName("idx_status_end_time"),
		},
	}); err != nil {
		return err
	}

	return createIndexes(ctx, db, "bids", []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "auction_id", Value: 1}, {Key: "amount", Value: -1}},
			Options: options.Index().SetName("idx_auction_amount"),
		},
		{
			Keys: bson.D{{Key: "idempotency_key", Value: 1}},
			Options: options.Index().
				SetName("idx_idempotency_key_unique").
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"idempotency_key": bson.M{"$exists": true}}),
		},
	})
}

func down005(ctx context.Context, db *mongo.Database) error {
	if err := dropIndexes(ctx, db, "auctions", "idx_open_item_unique", "idx_status_end_time"); err != nil {
		return err
	}
	return dropIndexes(ctx, db, "bids", "idx_auction_amount", "idx_idempotency_key_unique")
}
