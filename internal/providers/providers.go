// Package providers builds the embedding and chat clients named by configuration.
package providers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/formbricks/popchoice/internal/config"
	"github.com/formbricks/popchoice/internal/embeddings"
	"github.com/formbricks/popchoice/internal/googleai"
	"github.com/formbricks/popchoice/internal/observability"
	"github.com/formbricks/popchoice/internal/openai"
	"github.com/formbricks/popchoice/internal/openaicompat"
	"github.com/formbricks/popchoice/internal/service"
	"github.com/formbricks/popchoice/pkg/cache"
)

var errUnsupportedProvider = errors.New("unsupported provider")

// queryCacheTTL bounds how long a cached query embedding is reused.
const queryCacheTTL = time.Hour

// NewEmbeddingClient returns the client for cfg.EmbeddingProvider.
func NewEmbeddingClient(ctx context.Context, cfg *config.Config) (service.EmbeddingClient, error) {
	switch cfg.EmbeddingProvider {
	case config.ProviderOpenAI:
		return openai.NewClient(cfg.EmbeddingProviderAPIKey,
			openai.WithEmbeddingModel(cfg.EmbeddingModel),
			openai.WithDimensions(cfg.EmbeddingDimensions),
		), nil
	case config.ProviderGoogle:
		client, err := googleai.NewClient(ctx, cfg.EmbeddingProviderAPIKey,
			googleai.WithModel(cfg.EmbeddingModel),
			googleai.WithDimensions(cfg.EmbeddingDimensions),
		)
		if err != nil {
			return nil, fmt.Errorf("create google embedding client: %w", err)
		}

		return client, nil
	case config.ProviderCompat:
		client, err := openaicompat.NewClient(cfg.OpenAICompatBaseURL, cfg.EmbeddingProviderAPIKey,
			openaicompat.WithEmbeddingModel(cfg.EmbeddingModel),
			openaicompat.WithDimensions(cfg.EmbeddingDimensions),
		)
		if err != nil {
			return nil, fmt.Errorf("create compat embedding client: %w", err)
		}

		return client, nil
	case config.ProviderMock:
		return embeddings.NewMockClientWithDimensions(cfg.EmbeddingDimensions), nil
	default:
		return nil, fmt.Errorf("%w: EMBEDDING_PROVIDER=%q", errUnsupportedProvider, cfg.EmbeddingProvider)
	}
}

// NewChatClient returns the client for cfg.ChatProvider.
func NewChatClient(cfg *config.Config) (service.ChatClient, error) {
	switch cfg.ChatProvider {
	case config.ProviderOpenAI:
		return openai.NewClient(cfg.ChatProviderAPIKey, openai.WithChatModel(cfg.ChatModel)), nil
	case config.ProviderCompat:
		client, err := openaicompat.NewClient(cfg.OpenAICompatBaseURL, cfg.ChatProviderAPIKey,
			openaicompat.WithChatModel(cfg.ChatModel),
		)
		if err != nil {
			return nil, fmt.Errorf("create compat chat client: %w", err)
		}

		return client, nil
	default:
		return nil, fmt.Errorf("%w: CHAT_PROVIDER=%q", errUnsupportedProvider, cfg.ChatProvider)
	}
}

// NewQueryCache returns the query-embedding cache, or nil when EMBEDDING_CACHE_SIZE is 0.
func NewQueryCache(cfg *config.Config) (*cache.LoaderCache[string, []float32], error) {
	if cfg.EmbeddingCacheSize == 0 {
		return nil, nil //nolint:nilnil // nil cache means caching is disabled
	}

	// The key includes the model so switching models never serves stale vectors.
	model := cfg.EmbeddingProvider + "/" + cfg.EmbeddingModel

	c, err := cache.NewLoaderCache[string, []float32](cfg.EmbeddingCacheSize, queryCacheTTL, func(q string) string {
		return model + "\x00" + q
	}, cache.WithLoadTimeout(cfg.RequestTimeout))
	if err != nil {
		return nil, fmt.Errorf("create query cache: %w", err)
	}

	return c, nil
}

// NewRecommendationService wires the recommendation pipeline from cfg. metrics may be nil.
func NewRecommendationService(
	ctx context.Context, cfg *config.Config, store service.MovieStore, metrics *observability.Metrics,
) (*service.RecommendationService, error) {
	embedder, err := NewEmbeddingClient(ctx, cfg)
	if err != nil {
		return nil, err
	}

	chat, err := NewChatClient(cfg)
	if err != nil {
		return nil, err
	}

	queryCache, err := NewQueryCache(cfg)
	if err != nil {
		return nil, err
	}

	params := service.RecommendationServiceParams{
		Embedder:         embedder,
		Store:            store,
		Chat:             chat,
		ChatModel:        cfg.ChatModel,
		Temperature:      cfg.ChatTemperature,
		FrequencyPenalty: cfg.ChatFrequencyPenalty,
		MatchThreshold:   cfg.MatchThreshold,
		MatchCount:       cfg.MatchCount,
		Timeout:          cfg.RequestTimeout,
		QueryCache:       queryCache,
	}
	if metrics != nil {
		params.Metrics = metrics.Pipeline
		params.CacheMetrics = metrics.Cache
	}

	return service.NewRecommendationService(params), nil
}
