// Package migrations applies versioned MongoDB changes recorded in the _migrations collection.
package migrations

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const collectionName = "_migrations"

// Migration is the record of an applied migration
type Migration struct {
	Version     string    `bson:"version"`
	Description string    `bson:"description"`
	AppliedAt   time.Time `bson:"applied_at"`
	Checksum    string    `bson:"checksum"`
}

// MigrationFunc defines a migration function signature
type MigrationFunc func(ctx context.Context, db *mongo.Database) error

// RegisteredMigration holds migration metadata and functions
type RegisteredMigration struct {
	Version     string
	Description string
	Up          MigrationFunc
	Down        MigrationFunc
}

// StatusEntry describes one registered migration
type StatusEntry struct {
	Version     string
	Description string
	Applied     bool
	AppliedAt   *time.Time
}

// Runner manages database migrations
type Runner struct {
	db         *mongo.Database
	collection *mongo.Collection
	migrations []RegisteredMigration
}

// NewRunner creates a new migration runner
func NewRunner(db *mongo.Database) *Runner {
	return &Runner{
		db:         db,
		collection: db.Collection(collectionName),
	}
}

// Register adds a migration to the runner
func (r *Runner) Register(migration RegisteredMigration) {
	r.migrations = append(r.migrations, migration)
	sort.SliceStable(r.migrations, func(i, j int) bool { return r.migrations[i].Version < r.migrations[j].Version })
}

// Run applies every pending migration in version order and returns how many it applied
func (r *Runner) Run(ctx context.Context) (int, error) {
	if err := r.ensureMigrationsIndex(ctx); err != nil {
		return 0, fmt.Errorf("failed to create migrations index: %w", err)
	}

	applied, err := r.appliedVersions(ctx)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, migration := range r.migrations {
		if _, done := applied[migration.Version]; done {
			continue
		}

		slog.Info("Running migration", "version", migration.Version, "description", migration.Description)
		if err := migration.Up(ctx, r.db); err != nil {
			return count, fmt.Errorf("migration %s failed: %w", migration.Version, err)
		}

		record := Migration{
			Version:     migration.Version,
			Description: migration.Description,
			AppliedAt:   time.Now().UTC(),
			Checksum:    checksum(migration),
		}
		if _, err := r.collection.InsertOne(ctx, record); err != nil {
			return count, fmt.Errorf("failed to record migration %s: %w", migration.Version, err)
		}
		count++
	}
	return count, nil
}

// Rollback reverts the last steps applied migrations, newest first
func (r *Runner) Rollback(ctx context.Context, steps int) (int, error) {
	applied, err := r.appliedList(ctx)
	if err != nil {
		return 0, err
	}
	if steps > len(applied) {
		steps = len(applied)
	}

	registered := make(map[string]RegisteredMigration, len(r.migrations))
	for _, m := range r.migrations {
		registered[m.Version] = m
	}

	count := 0
	for i := len(applied) - 1; i >= len(applied)-steps; i-- {
		version := applied[i].Version
		migration, ok := registered[version]
		if !ok {
			return count, fmt.Errorf("migration %s is applied but not registered", version)
		}
		if migration.Down == nil {
			slog.Warn("Migration has no rollback, skipping", "version", version)
			continue
		}

		slog.Info("Rolling back migration", "version", version)
		if err := migration.Down(ctx, r.db); err != nil {
			return count, fmt.Errorf("rollback %s failed: %w", version, err)
		}
		if _, err := r.collection.DeleteOne(ctx, bson.M{"version": version}); err != nil {
			return count, fmt.Errorf("failed to remove migration record %s: %w", version, err)
		}
		count++
	}
	return count, nil
}

// Status lists every registered migration and whether it is applied
func (r *Runner) Status(ctx context.Context) ([]StatusEntry, error) {
	applied, err := r.appliedVersions(ctx)
	if err != nil {
		return nil, err
	}

	entries := make([]StatusEntry, 0, len(r.migrations))
	for _, migration := range r.migrations {
		entry := StatusEntry{Version: migration.Version, Description: migration.Description}
		if record, ok := applied[migration.Version]; ok {
			entry.Applied = true
			appliedAt := record.AppliedAt
			entry.AppliedAt = &appliedAt
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func (r *Runner) ensureMigrationsIndex(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "version", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}

func (r *Runner) appliedList(ctx context.Context) ([]Migration, error) {
	cursor, err := r.collection.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "version", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to get applied migrations: %w", err)
	}
	defer cursor.Close(ctx)

	var applied []Migration
	if err := cursor.All(ctx, &applied); err != nil {
		return nil, fmt.Errorf("failed to decode applied migrations: %w", err)
	}
	return applied, nil
}

func (r *Runner) appliedVersions(ctx context.Context) (map[string]Migration, error) {
	list, err := r.appliedList(ctx)
	if err != nil {
		return nil, err
	}
	applied := make(map[string]Migration, len(list))
	for _, m := range list {
		applied[m.Version] = m
	}
	return applied, nil
}

func checksum(migration RegisteredMigration) string {
	sum := sha256.Sum256([]byte(migration.Version + ":" + migration.Description))
	return hex.EncodeToString(sum[:])
}
