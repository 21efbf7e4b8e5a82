package service

import (
	"context"
	"sync"
	"time"

	"github.com/formbricks/popchoice/internal/models"
)

type mockEmbeddingClient struct {
	createFunc func(ctx context.Context, input string) ([]float32, error)
}

func (m *mockEmbeddingClient) CreateEmbedding(ctx context.Context, input string) ([]float32, error) {
	if m.createFunc != nil {
		return m.createFunc(ctx, input)
	}

	return []float32{0.1, 0.2, 0.3}, nil
}

type mockMovieStore struct {
	matchFunc func(ctx context.Context, embedding []float32, threshold float64, count int) ([]models.Match, error)
}

func (m *mockMovieStore) MatchMovies(
	ctx context.Context, embedding []float32, threshold float64, count int,
) ([]models.Match, error) {
	if m.matchFunc != nil {
		return m.matchFunc(ctx, embedding, threshold, count)
	}

	return nil, nil
}

type mockChatClient struct {
	createFunc func(ctx context.Context, req models.ChatRequest) (string, error)
}

func (m *mockChatClient) CreateChatCompletion(ctx context.Context, req models.ChatRequest) (string, error) {
	if m.createFunc != nil {
		return m.createFunc(ctx, req)
	}

	return "Watch Heat (1995).", nil
}

type mockMovieWriter struct {
	mu          sync.Mutex
	inserted    []models.Movie
	replaced    int
	insertFunc  func(ctx context.Context, movies []models.Movie) (int64, error)
	replaceFunc func(ctx context.Context, movies []models.Movie) (int64, error)
}

func (m *mockMovieWriter) BulkInsert(ctx context.Context, movies []models.Movie) (int64, error) {
	if m.insertFunc != nil {
		return m.insertFunc(ctx, movies)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.inserted = append(m.inserted, movies...)

	return int64(len(movies)), nil
}

// ReplaceAll leaves inserted untouched when replaceFunc fails, like a rolled-back transaction.
func (m *mockMovieWriter) ReplaceAll(ctx context.Context, movies []models.Movie) (int64, error) {
	m.mu.Lock()
	m.replaced++
	m.mu.Unlock()

	if m.replaceFunc != nil {
		if _, err := m.replaceFunc(ctx, movies); err != nil {
			return 0, err
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.inserted = append([]models.Movie(nil), movies...)

	return int64(len(movies)), nil
}

type mockPipelineMetrics struct {
	mu       sync.Mutex
	steps    []string
	outcomes []string
	seeded   int64
}

func (m *mockPipelineMetrics) RecordStep(_ context.Context, step, status string, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.steps = append(m.steps, step+":"+status)
}

func (m *mockPipelineMetrics) RecordOutcome(_ context.Context, outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.outcomes = append(m.outcomes, outcome)
}

func (m *mockPipelineMetrics) RecordMoviesSeeded(_ context.Context, count int64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.seeded += count
}

type mockCacheMetrics struct {
	mu     sync.Mutex
	hits   int
	misses int
}

func (m *mockCacheMetrics) RecordHit(context.Context, string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.hits++
}

func (m *mockCacheMetrics) RecordMiss(context.Context, string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.misses++
}

type mockPipeline struct {
	runFunc func(ctx context.Context, prefs models.Preferences, progress ProgressFunc) (Outcome, error)
}

func (m *mockPipeline) Run(ctx context.Context, prefs models.Preferences, progress ProgressFunc) (Outcome, error) {
	if m.runFunc != nil {
		return m.runFunc(ctx, prefs, progress)
	}

	return Outcome{Query: prefs.Query(), Recommendation: "Watch Heat (1995)."}, nil
}
