// recommend asks the three PopChoice questions in the terminal and prints a movie recommendation.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"

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
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)

		return exitFailure
	}

	// Logs go to stderr so they do not interleave with the questions.
	logger := observability.NewLogger(os.Stderr, cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgresPool(ctx, cfg.DatabaseURL, database.WithVectorTypes())
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)

		return exitFailure
	}
	defer db.Close()

	repo := repository.NewMoviesRepository(db, cfg.EmbeddingDimensions)

	recommender, err := providers.NewRecommendationService(ctx, cfg, repo, nil)
	if err != nil {
		slog.Error("Failed to create recommendation pipeline", "error", err)

		return exitFailure
	}

	session := service.NewSession(uuid.Must(uuid.NewV7()), recommender, logger)

	if err := interact(ctx, session, newPrompter(os.Stdin, os.Stdout)); err != nil {
		slog.Error("Session ended with error", "error", err)

		return exitFailure
	}

	return exitSuccess
}

// interact runs questions -> output -> try again until the user stops or input ends.
func interact(ctx context.Context, session *service.Session, p *prompter) error {
	fmt.Fprintf(p.out, "%s\n\n", service.TitleQuestions)

	for {
		prefs, err := p.askPreferences()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}

			return err
		}

		if prefs.IsZero() {
			proceed, err := p.confirm(ConfirmAllBlank)
			if err != nil {
				return err
			}

			if !proceed {
				fmt.Fprintln(p.out)

				continue
			}
		}

		fmt.Fprintf(p.out, "\n%s\n%s\n", service.TitleWorking, service.DescriptionWorking)

		view, err := session.Submit(ctx, prefs)
		if err != nil {
			return fmt.Errorf("submit: %w", err)
		}

		p.showView(view)

		if ctx.Err() != nil {
			return nil
		}

		again, err := p.confirm("Try again?")
		if err != nil {
			return err
		}

		if !again {
			return nil
		}

		if _, err := session.TryAgain(); err != nil {
			return fmt.Errorf("try again: %w", err)
		}

		fmt.Fprintln(p.out)
	}
}
