package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"text/tabwriter"
	"time"

	localMigrations "loot-tracker/migrations"
	"loot-tracker/pkg/app"
	pkgMigrations "loot-tracker/pkg/migrations"
)

func main() {
	var (
		command = flag.String("command", "up", "Migration command: up, down, status, create")
		steps   = flag.Int("steps", 1, "Number of migrations to roll back (for down command)")
		name    = flag.String("name", "", "Migration name (for create command)")
		dryRun  = flag.Bool("dry-run", false, "Show pending migrations without executing")
	)
	flag.Parse()

	if *command == "create" {
		if *name == "" {
			log.Fatal("Migration name is required for create command")
		}
		filename, err := createMigration(*name)
		if err != nil {
			log.Fatalf("Failed to create migration: %v", err)
		}
		fmt.Printf("Created %s. Fill in the description, up and down functions.\n", filename)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	appCtx, err := app.InitializeApp(ctx, "migrate")
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}
	defer appCtx.Shutdown(ctx)

	runner := pkgMigrations.NewRunner(appCtx.MongoDB.Database)
	localMigrations.RegisterAll(runner)

	switch *command {
	case "up":
		if *dryRun {
			printStatus(ctx, runner)
			return
		}
		applied, err := runner.Run(ctx)
		if err != nil {
			log.Fatalf("Migration failed: %v", err)
		}
		fmt.Printf("Applied %d migration(s)\n", applied)

	case "down":
		if *dryRun {
			printStatus(ctx, runner)
			return
		}
		reverted, err := runner.Rollback(ctx, *steps)
		if err != nil {
			log.Fatalf("Rollback failed: %v", err)
		}
		fmt.Printf("Rolled back %d migration(s)\n", reverted)

	case "status":
		printStatus(ctx, runner)

	default:
		log.Fatalf("Unknown command: %s", *command)
	}
}

func printStatus(ctx context.Context, runner *pkgMigrations.Runner) {
	entries, err := runner.Status(ctx)
	if err != nil {
		log.Fatalf("Failed to get migration status: %v", err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "VERSION\tSTATUS\tAPPLIED AT\tDESCRIPTION")
	pending := 0
	for _, entry := range entries {
		status, appliedAt := "pending", "-"
		if entry.Applied {
			status = "applied"
			appliedAt = entry.AppliedAt.Format(time.RFC3339)
		} else {
			pending++
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", entry.Version, status, appliedAt, entry.Description)
	}
	w.Flush()
	fmt.Printf("\n%d registered, %d pending\n", len(entries), pending)
}

const migrationTemplate = `package migrations

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo"
)

func init() {
	Register(Migration{
		Version:     "%[1]s_%[2]s",
		Description: "",
		Up:          up%[1]s,
		Down:        down%[1]s,
	})
}

func up%[1]s(ctx context.Context, db *mongo.Database) error {
	return nil
}

func down%[1]s(ctx context.Context, db *mongo.Database) error {
	return nil
}
`

// createMigration writes an empty migration with the next free version number
func createMigration(name string) (string, error) {
	version := fmt.Sprintf("%03d", nextVersionNumber())
	filename := fmt.Sprintf("migrations/%s_%s.go", version, name)

	if err := os.MkdirAll("migrations", 0755); err != nil {
		return "", err
	}
	if _, err := os.Stat(filename); err == nil {
		return "", fmt.Errorf("migration file %s already exists", filename)
	}
	if err := os.WriteFile(filename, []byte(fmt.Sprintf(migrationTemplate, version, name)), 0644); err != nil {
		return "", err
	}
	return filename, nil
}

func nextVersionNumber() int {
	entries, err := os.ReadDir("migrations")
	if err != nil {
		return 1
	}

	maxVersion := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		var version int
		if _, err := fmt.Sscanf(entry.Name(), "%03d_", &version); err == nil && version > maxVersion {
			maxVersion = version
		}
	}
	return maxVersion + 1
}
