package migrations

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func init() {
	Register(Migration{
		Version:     "002_create_guild_indexes",
		Description: "Unique guild setting keys and boss names",
		Up:          up002,
		Down:        down002,
	})
}

func up002(ctx context.Context, db *mongo.Database) error {
	if err := createIndexes(ctx, db, "guild_settings", []mongo.IndexModel{{
		Keys:    bson.D{{Key: "key", Value: 1}},
		Options: options.Index().SetName("idx_key_unique").SetUnique(true),
	}}); err != nil {
		return err
	}
	return createIndexes(ctx, db, "bosses", []mongo.IndexModel{{
		Keys:    bson.D{{Key: "name", Value: 1}},
		Options: options.Index().SetName("idx_name_unique").SetUnique(true),
	}})
}

func down002(ctx context.Context, db *mongo.Database) error {
	if err := dropIndexes(ctx, db, "guild_settings", "idx_key_unique"); err != nil {
		return err
	}
	return dropIndexes(ctx, db, "bosses", "idx_name_unique")
}
