package migrations

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func init() {
	Register(Migration{
		Version:     "001_create_users_indexes",
		Description: "Unique usernames and character names, last login for the inactivity sweep",
		Up:          up001,
		Down:        down001,
	})
}

func up001(ctx context.Context, db *mongo.Database) error {
	return createIndexes(ctx, db, "users", []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "username", Value: 1}},
			Options: options.Index().SetName("idx_username_unique").SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "character_name", Value: 1}},
			Options: options.Index().SetName("idx_character_name_unique").SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "last_login", Value: 1}},
			Options: options.Index().SetName("idx_last_login"),
		},
	})
}

func down001(ctx context.Context, db *mongo.Database) error {
	return dropIndexes(ctx, db, "users", "idx_username_unique", "idx_character_name_unique", "idx_last_login")
}
