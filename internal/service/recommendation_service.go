package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/formbricks/popchoice/internal/models"
	"github.com/formbricks/popchoice/internal/observability"
	"github.com/formbricks/popchoice/pkg/cache"
)

// Pipeline failure kinds. Each wraps the underlying cause.
var (
	ErrEmbeddingFailure      = errors.New("embedding failure")
	ErrSearchFailure         = errors.New("search failure")
	ErrRecommendationFailure = errors.New("recommendation failure")
)

var errEmptyVector = errors.New("provider returned an empty vector")

// Default pipeline tuning.
const (
	DefaultMatchThreshold   = 0.50
	DefaultMatchCount       = 4
	DefaultTemperature      = 0.5
	DefaultFrequencyPenalty = 0.5
)

// Outcome is the result of one successful pipeline run.
type Outcome struct {
	Query          string
	Matches        []models.Match
	Context        string
	Recommendation string
	NoMatches      bool
}

// ProgressFunc is told which working state the pipeline has entered.
type ProgressFunc func(state models.SessionState)

// RecommendationService runs embed, search, assemble and recommend for one set of preferences.
type RecommendationService struct {
	embedder         EmbeddingClient
	store            MovieStore
	chat             ChatClient
	chatModel        string
	temperature      float64
	frequencyPenalty float64
	threshold        float64
	count            int
	timeout          time.Duration
	queryCache       *cache.LoaderCache[string, []float32]
	metrics          observability.PipelineMetrics
	cacheMetrics     observability.CacheMetrics
	logger           *slog.Logger
}

// RecommendationServiceParams configures RecommendationService. QueryCache and metrics may be nil.
// Zero MatchCount means DefaultMatchCount.
type RecommendationServiceParams struct {
	Embedder         EmbeddingClient
	Store            MovieStore
	Chat             ChatClient
	ChatModel        string
	Temperature      float64
	FrequencyPenalty float64
	MatchThreshold   float64
	MatchCount       int
	Timeout          time.Duration // bounds one Run; zero means no bound
	QueryCache       *cache.LoaderCache[string, []float32]
	Metrics          observability.PipelineMetrics
	CacheMetrics     observability.CacheMetrics
	Logger           *slog.Logger
}

// NewRecommendationService creates a RecommendationService.
func NewRecommendationService(p RecommendationServiceParams) *RecommendationService {
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}

	count := p.MatchCount
	if count <= 0 {
		count = DefaultMatchCount
	}

	return &RecommendationService{
		embedder:         p.Embedder,
		store:            p.Store,
		chat:             p.Chat,
		chatModel:        p.ChatModel,
		temperature:      p.Temperature,
		frequencyPenalty: p.FrequencyPenalty,
		threshold:        p.MatchThreshold,
		count:            count,
		timeout:          p.Timeout,
		queryCache:       p.QueryCache,
		metrics:          p.Metrics,
		cacheMetrics:     p.CacheMetrics,
		logger:           logger,
	}
}

// Run executes the pipeline for prefs. progress may be nil. The returned error wraps exactly one of
// ErrEmbeddingFailure, ErrSearchFailure or ErrRecommendationFailure.
func (s *RecommendationService) Run(ctx context.Context, prefs models.Preferences, progress ProgressFunc) (Outcome, error) {
	out := Outcome{Query: prefs.Query()}

	if s.timeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	report := func(state models.SessionState) {
		if progress != nil {
			progress(state)
		}
	}

	report(models.SessionStateEmbedding)

	vec, err := s.Embed(ctx, out.Query)
	if err != nil {
		s.recordOutcome(ctx, observability.OutcomeEmbeddingFailure)

		return out, err
	}

	report(models.SessionStateSearching)

	out.Matches, err = s.Search(ctx, vec)
	if err != nil {
		s.recordOutcome(ctx, observability.OutcomeSearchFailure)

		return out, err
	}

	out.NoMatches = len(out.Matches) == 0
	out.Context = AssembleContext(out.Matches)

	report(models.SessionStateRecommending)

	out.Recommendation, err = s.Recommend(ctx, out.Context, out.Query)
	if err != nil {
		s.recordOutcome(ctx, observability.OutcomeRecommendationFailure)

		return out, err
	}

	if out.NoMatches {
		s.recordOutcome(ctx, observability.OutcomeNoMatches)
	} else {
		s.recordOutcome(ctx, observability.OutcomeSuccess)
	}

	s.logger.InfoContext(ctx, "recommendation: done", "matches", len(out.Matches), "no_matches", out.NoMatches)

	return out, nil
}

// Embed returns the vector for query, from the query cache when configured.
func (s *RecommendationService) Embed(ctx context.Context, query string) ([]float32, error) {
	start := time.Now()

	vec, err := s.embed(ctx, query)
	s.recordStep(ctx, observability.StepEmbed, err, start)

	if err != nil {
		s.logger.ErrorContext(ctx, "recommendation: create embedding failed", "error", err)

		return nil, fmt.Errorf("%w: %w", ErrEmbeddingFailure, err)
	}

	return vec, nil
}

func (s *RecommendationService) embed(ctx context.Context, query string) ([]float32, error) {
	if s.queryCache == nil {
		return s.createEmbedding(ctx, query)
	}

	vec, hit, err := s.queryCache.GetWithStats(ctx, query, s.createEmbedding)
	if err == nil && s.cacheMetrics != nil {
		if hit {
			s.cacheMetrics.RecordHit(ctx, observability.CacheQueryEmbedding)
		} else {
			s.cacheMetrics.RecordMiss(ctx, observability.CacheQueryEmbedding)
		}
	}

	return vec, err //nolint:wrapcheck // wrapped by Embed
}

func (s *RecommendationService) createEmbedding(ctx context.Context, query string) ([]float32, error) {
	vec, err := s.embedder.CreateEmbedding(ctx, query)
	if err != nil {
		return nil, err //nolint:wrapcheck // wrapped by Embed
	}

	if len(vec) == 0 {
		return nil, errEmptyVector
	}

	return vec, nil
}

// Search returns the stored movies most similar to vec. Rows below the threshold are dropped and the
// result is capped at the match count whatever the store returns.
func (s *RecommendationService) Search(ctx context.Context, vec []float32) ([]models.Match, error) {
	start := time.Now()

	rows, err := s.store.MatchMovies(ctx, vec, s.threshold, s.count)
	s.recordStep(ctx, observability.StepSearch, err, start)

	if err != nil {
		s.logger.ErrorContext(ctx, "recommendation: match movies failed", "error", err)

		return nil, fmt.Errorf("%w: %w", ErrSearchFailure, err)
	}

	matches := make([]models.Match, 0, len(rows))
	for _, m := range rows {
		if m.Similarity < s.threshold {
			continue
		}

		matches = append(matches, m)
		if len(matches) == s.count {
			break
		}
	}

	if dropped := len(rows) - len(matches); dropped > 0 {
		s.logger.WarnContext(ctx, "recommendation: store returned rows outside the match contract", "dropped", dropped)
	}

	return matches, nil
}

// Recommend asks the chat model for a recommendation grounded in movieContext.
func (s *RecommendationService) Recommend(ctx context.Context, movieContext, query string) (string, error) {
	start := time.Now()

	reply, err := s.chat.CreateChatCompletion(ctx, models.ChatRequest{
		Model:            s.chatModel,
		Messages:         BuildMessages(movieContext, query),
		Temperature:      s.temperature,
		FrequencyPenalty: s.frequencyPenalty,
	})
	if err == nil && strings.TrimSpace(reply) == "" {
		err = errEmptyReply
	}

	s.recordStep(ctx, observability.StepRecommend, err, start)

	if err != nil {
		s.logger.ErrorContext(ctx, "recommendation: chat completion failed", "error", err, "model", s.chatModel)

		return "", fmt.Errorf("%w: %w", ErrRecommendationFailure, err)
	}

	return reply, nil
}

var errEmptyReply = errors.New("model returned an empty reply")

func (s *RecommendationService) recordStep(ctx context.Context, step string, err error, start time.Time) {
	if s.metrics == nil {
		return
	}

	status := observability.StatusSuccess
	if err != nil {
		status = observability.StatusFailure
	}

	s.metrics.RecordStep(ctx, step, status, time.Since(start))
}

func (s *RecommendationService) recordOutcome(ctx context.Context, outcome string) {
	if s.metrics != nil {
		s.metrics.RecordOutcome(ctx, outcome)
	}
}
