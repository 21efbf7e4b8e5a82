package service

import (
	"context"

	"github.com/formbricks/popchoice/internal/models"
)

// EmbeddingClient generates embedding vectors for text.
// Implemented by provider-specific clients (OpenAI, Google Gemini, OpenAI-compatible, mock).
type EmbeddingClient interface {
	CreateEmbedding(ctx context.Context, input string) ([]float32, error)
}

// ChatClient returns the assistant reply for a chat-completion request.
type ChatClient interface {
	CreateChatCompletion(ctx context.Context, req models.ChatRequest) (string, error)
}

// MovieStore is the similarity store used by the recommendation pipeline.
type MovieStore interface {
	MatchMovies(ctx context.Context, embedding []float32, threshold float64, count int) ([]models.Match, error)
}

// MovieWriter persists embedded catalog entries for the seeding job.
type MovieWriter interface {
	BulkInsert(ctx context.Context, movies []models.Movie) (int64, error)
	// ReplaceAll swaps the stored catalog for movies atomically.
	ReplaceAll(ctx context.Context, movies []models.Movie) (int64, error)
}
