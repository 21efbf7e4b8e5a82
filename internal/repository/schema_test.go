package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMoviesRepository_Schema(t *testing.T) {
	schema := NewMoviesRepository(nil, 1536).Schema()

	assert.Contains(t, schema, "embedding  vector(1536) NOT NULL")
	assert.Contains(t, schema, "query_embedding vector(1536)")
	assert.Contains(t, schema, ">= match_threshold")
	assert.NotContains(t, schema, "{{DIMENSIONS}}")
}

func TestMoviesRepository_checkVector(t *testing.T) {
	repo := NewMoviesRepository(nil, 3)

	assert.NoError(t, repo.checkVector([]float32{1, 2, 3}))
	assert.ErrorIs(t, repo.checkVector(nil), ErrEmptyEmbedding)
	assert.ErrorIs(t, repo.checkVector([]float32{1, 2}), ErrDimensionMismatch)
}
