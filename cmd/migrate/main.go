// Package main applies the hubwatch schema and seeds the hub catalogue.
//
// Usage:
//
//	go run ./cmd/migrate
//	go run ./cmd/migrate -seed=false
//	go run ./cmd/migrate -print > schema.sql
//
// Every statement is idempotent and seeding never overwrites existing hubs,
// so the tool is safe to run before each deploy.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"hubwatch/internal/app"
	"hubwatch/internal/config"
	"hubwatch/internal/db"
	"hubwatch/internal/types"
)

// hubSeeder is the part of *db.HubRepository used here.
type hubSeeder interface {
	Seed(ctx context.Context, hubs []types.Hub) (int, error)
}

func main() {
	seed := flag.Bool("seed", true, "insert catalogue hubs that are missing")
	printOnly := flag.Bool("print", false, "write the schema to stdout and exit")
	flag.Parse()

	if *printOnly {
		if _, err := io.WriteString(os.Stdout, db.Schema()); err != nil {
			os.Exit(1)
		}
		return
	}

	if err := run(*seed); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run(seed bool) error {
	cfg, err := config.LoadConfig(config.NewSecretProvider(os.Getenv("AWS_REGION"), os.Getenv("AWS_ENDPOINT_URL")))
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}
	logger := app.NewLogger(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()

	var seeder hubSeeder
	if seed {
		seeder = db.NewHubRepository(pool)
	}
	hubs, err := cfg.HubCatalogue()
	if err != nil {
		return fmt.Errorf("hub catalogue: %w", err)
	}
	return migrate(ctx, pool, seeder, hubs, logger)
}

// migrate applies the schema, then seeds hubs when seeder is non-nil.
func migrate(ctx context.Context, conn db.DBTX, seeder hubSeeder, hubs []types.Hub, logger *slog.Logger) error {
	if err := db.Migrate(ctx, conn); err != nil {
		return err
	}
	logger.Info("schema applied")

	if seeder == nil {
		return nil
	}
	if err := config.ValidateHubs(hubs); err != nil {
		return fmt.Errorf("hub catalogue: %w", err)
	}
	n, err := seeder.Seed(ctx, hubs)
	if err != nil {
		return err
	}
	logger.Info("hub catalogue seeded", "inserted", n, "catalogue", len(hubs))
	return nil
}
