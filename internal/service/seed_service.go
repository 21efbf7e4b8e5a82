package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/formbricks/popchoice/internal/models"
	"github.com/formbricks/popchoice/internal/observability"
)

// Seeding errors.
var (
	ErrEmptyCatalog      = errors.New("catalog has no entries")
	ErrBlankCatalogEntry = errors.New("catalog entry is blank")
	ErrSeedEmbedding     = errors.New("embedding catalog entry failed")
)

// DefaultSeedMaxConcurrent bounds in-flight embedding calls when no limit is configured.
const DefaultSeedMaxConcurrent = 8

// SeedOptions controls one seeding run.
type SeedOptions struct {
	// Reset replaces the stored catalog instead of appending to it. The old rows survive a failed run.
	Reset bool
}

// SeedReport summarizes a successful seeding run.
type SeedReport struct {
	Inserted int64
	Duration time.Duration
}

// SeedService embeds a catalog and stores every entry with its vector.
type SeedService struct {
	embedder      EmbeddingClient
	writer        MovieWriter
	maxConcurrent int
	limiter       *rate.Limiter
	metrics       observability.PipelineMetrics
	logger        *slog.Logger
}

// SeedServiceParams configures SeedService. RatePerSecond <= 0 disables rate limiting.
type SeedServiceParams struct {
	Embedder      EmbeddingClient
	Writer        MovieWriter
	MaxConcurrent int
	RatePerSecond float64
	Metrics       observability.PipelineMetrics
	Logger        *slog.Logger
}

// NewSeedService creates a SeedService.
func NewSeedService(p SeedServiceParams) *SeedService {
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}

	maxConcurrent := p.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultSeedMaxConcurrent
	}

	var limiter *rate.Limiter
	if p.RatePerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(p.RatePerSecond), 1)
	}

	return &SeedService{
		embedder:      p.Embedder,
		writer:        p.Writer,
		maxConcurrent: maxConcurrent,
		limiter:       limiter,
		metrics:       p.Metrics,
		logger:        logger,
	}
}

// Seed embeds every entry concurrently, then inserts them all in one batch. The first embedding
// failure cancels the remaining calls and nothing is written.
func (s *SeedService) Seed(ctx context.Context, entries []string, opts SeedOptions) (SeedReport, error) {
	start := time.Now()

	if len(entries) == 0 {
		return SeedReport{}, ErrEmptyCatalog
	}

	for i, entry := range entries {
		if strings.TrimSpace(entry) == "" {
			return SeedReport{}, fmt.Errorf("%w: entry %d", ErrBlankCatalogEntry, i)
		}
	}

	movies, err := s.embedAll(ctx, entries)
	if err != nil {
		s.logger.ErrorContext(ctx, "seed: embedding failed, nothing inserted", "error", err)

		return SeedReport{}, err
	}

	inserted, err := s.store(ctx, movies, opts)
	if err != nil {
		return SeedReport{}, err
	}

	if s.metrics != nil {
		s.metrics.RecordMoviesSeeded(ctx, inserted)
	}

	report := SeedReport{Inserted: inserted, Duration: time.Since(start)}
	s.logger.InfoContext(ctx, "Movies seeded", "inserted", report.Inserted, "duration", report.Duration)

	return report, nil
}

func (s *SeedService) store(ctx context.Context, movies []models.Movie, opts SeedOptions) (int64, error) {
	if !opts.Reset {
		inserted, err := s.writer.BulkInsert(ctx, movies)
		if err != nil {
			return 0, fmt.Errorf("insert movies: %w", err)
		}

		return inserted, nil
	}

	inserted, err := s.writer.ReplaceAll(ctx, movies)
	if err != nil {
		return 0, fmt.Errorf("replace movies: %w", err)
	}

	s.logger.InfoContext(ctx, "seed: movies table replaced")

	return inserted, nil
}

func (s *SeedService) embedAll(ctx context.Context, entries []string) ([]models.Movie, error) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.maxConcurrent)

	movies := make([]models.Movie, len(entries))

	for i, entry := range entries {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err //nolint:wrapcheck // group already failed
			}

			if s.limiter != nil {
				if err := s.limiter.Wait(gctx); err != nil {
					return fmt.Errorf("%w: entry %d: %w", ErrSeedEmbedding, i, err)
				}
			}

			vec, err := s.embedder.CreateEmbedding(gctx, entry)
			if err == nil && len(vec) == 0 {
				err = errEmptyVector
			}

			if err != nil {
				return fmt.Errorf("%w: entry %d: %w", ErrSeedEmbedding, i, err)
			}

			movies[i] = models.Movie{Content: entry, Embedding: vec}

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err //nolint:wrapcheck // already wrapped with ErrSeedEmbedding
	}

	return movies, nil
}
