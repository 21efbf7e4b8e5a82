// Package embeddings provides an offline embedding client for local development and tests.
package embeddings

import (
	"context"
	"crypto/sha256"
	"errors"

	vecutil "github.com/formbricks/popchoice/pkg/embeddings"
)

// MockModelName is reported as the embedding model of MockClient.
const MockModelName = "mock-sha256"

// ErrEmptyText is returned when CreateEmbedding is called with empty text.
var ErrEmptyText = errors.New("embeddings: text cannot be empty")

// MockClient generates deterministic unit vectors from a hash of the input text.
// Identical texts always map to identical vectors; it has no notion of meaning.
type MockClient struct {
	dimensions int
}

// NewMockClient creates a new mock embedding client.
// Default dimensions is 1536 to match text-embedding-ada-002.
func NewMockClient() *MockClient {
	return &MockClient{dimensions: 1536}
}

// NewMockClientWithDimensions creates a mock client with custom dimensions.
func NewMockClientWithDimensions(dimensions int) *MockClient {
	return &MockClient{dimensions: dimensions}
}

// EmbeddingModel returns MockModelName.
func (c *MockClient) EmbeddingModel() string {
	return MockModelName
}

// CreateEmbedding generates a deterministic embedding based on the text hash.
func (c *MockClient) CreateEmbedding(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if text == "" {
		return nil, ErrEmptyText
	}

	return c.generateDeterministicEmbedding(text), nil
}

// generateDeterministicEmbedding creates a normalized embedding vector from text hash.
func (c *MockClient) generateDeterministicEmbedding(text string) []float32 {
	hash := sha256.Sum256([]byte(text))
	embedding := make([]float32, c.dimensions)

	for i := range c.dimensions {
		// hash bytes reused cyclically, mapped to [-1, 1]
		embedding[i] = (float32(hash[i%len(hash)]) / 127.5) - 1.0
	}

	vecutil.NormalizeL2(embedding)

	return embedding
}
