package migrations

import (
	"context"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/mongo"
)

// isIndexExistsError checks if error is due to index already existing
func isIndexExistsError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return mongo.IsDuplicateKeyError(err) ||
		strings.Contains(errStr, "already exists") ||
		strings.Contains(errStr, "IndexKeySpecsConflict") ||
		strings.Contains(errStr, "IndexOptionsConflict") ||
		strings.Contains(errStr, "equivalent index already exists")
}

func createIndexes(ctx context.Context, db *mongo.Database, collection string, indexes []mongo.IndexModel) error {
	if _, err := db.Collection(collection).Indexes().CreateMany(ctx, indexes); err != nil && !isIndexExistsError(err) {
		return fmt.Errorf("failed to create %s indexes: %w", collection, err)
	}
	return nil
}

func dropIndexes(ctx context.Context, db *mongo.Database, collection string, names ...string) error {
	indexes := db.Collection(collection).Indexes()
	for _, name := range names {
		if _, err := indexes.DropOne(ctx, name); err != nil && !strings.Contains(err.Error(), "not found") {
			return fmt.Errorf("failed to drop %s.%s: %w", collection, name, err)
		}
	}
	return nil
}
