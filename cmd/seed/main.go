// seed embeds the movie catalog and stores every entry in the movies table. Run it once before
// serving recommendations, and again with -reset after changing the catalog or embedding model.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/formbricks/popchoice/internal/catalog"
	"github.com/formbricks/popchoice/internal/config"
	"github.com/formbricks/popchoice/internal/observability"
	"github.com/formbricks/popchoice/internal/providers"
	"github.com/formbricks/popchoice/internal/repository"
	"github.com/formbricks/popchoice/internal/service"
	"github.com/formbricks/popchoice/pkg/database"
)

const (
	exitSuccess = 0
	exitFailure = 1
)

func main() {
	os.Exit(run())
}

func run() int {
	catalogPath := flag.String("catalog", "", "path to a catalog file (blank-line separated entries); default is the built-in catalog")
	reset := flag.Bool("reset", false, "replace the stored catalog instead of appending (old rows survive a failed run)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)

		return exitFailure
	}

	slog.SetDefault(observability.NewLogger(os.Stdout, cfg.LogLevel))

	entries := catalog.Default()
	if *catalogPath != "" {
		entries, err = catalog.Load(*catalogPath)
		if err != nil {
			slog.Error("Failed to load catalog", "path", *catalogPath, "error", err)

			return exitFailure
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := database.EnsureVectorExtension(ctx, cfg.DatabaseURL); err != nil {
		slog.Error("Failed to prepare database", "error", err)

		return exitFailure
	}

	db, err := database.NewPostgresPool(ctx, cfg.DatabaseURL, database.WithVectorTypes())
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)

		return exitFailure
	}
	defer db.Close()

	repo := repository.NewMoviesRepository(db, cfg.EmbeddingDimensions)
	if err := repo.EnsureSchema(ctx); err != nil {
		slog.Error("Failed to apply schema", "error", err)

		return exitFailure
	}

	embedder, err := providers.NewEmbeddingClient(ctx, cfg)
	if err != nil {
		slog.Error("Failed to create embedding client", "error", err)

		return exitFailure
	}

	seeder := service.NewSeedService(service.SeedServiceParams{
		Embedder:      embedder,
		Writer:        repo,
		MaxConcurrent: cfg.SeedMaxConcurrent,
		RatePerSecond: cfg.SeedRateLimit,
	})

	slog.Info("Seeding movies",
		"entries", len(entries),
		"reset", *reset,
		"embedding_provider", cfg.EmbeddingProvider,
		"embedding_model", cfg.EmbeddingModel,
	)

	report, err := seeder.Seed(ctx, entries, service.SeedOptions{Reset: *reset})
	if err != nil {
		slog.Error("Seeding failed", "error", err)

		return exitFailure
	}

	total, err := repo.Count(ctx)
	if err != nil {
		slog.Warn("Failed to count movies", "error", err)
	}

	fmt.Printf("Seeded %d movie(s) in %s; %d stored.\n", report.Inserted, report.Duration.Round(time.Millisecond), total)

	return exitSuccess
}
