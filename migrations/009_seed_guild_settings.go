package migrations

import (
	"context"
	"fmt"
	"time"

	guildModels "loot-tracker/internal/guild/models"
	guildServices "loot-tracker/internal/guild/services"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

func init() {
	Register(Migration{
		Version:     "009_seed_guild_settings",
		Description: "Insert default guild settings that are not stored yet",
		Up:          up009,
		Down:        down009,
	})
}

func up009(ctx context.Context, db *mongo.Database) error {
	return guildServices.NewRepository(db).InitializeDefaults(ctx, time.Now().UTC())
}

// down009 removes seeded settings nobody has edited since
func down009(ctx context.Context, db *mongo.Database) error {
	keys := make([]string, 0, len(guildModels.DefaultSettings))
	for _, setting := range guildModels.DefaultSettings {
		keys = append(keys, setting.Key)
	}
	_, err := db.Collection(guildModels.GuildSettingsCollection).DeleteMany(ctx, bson.M{
		"key":        bson.M{"$in": keys},
		"updated_by": bson.M{"$exists": false},
	})
	if err != nil {
		return fmt.Errorf("failed to remove seeded guild settings: %w", err)
	}
	return nil
}
