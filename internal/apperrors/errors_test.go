package apperrors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNotFoundError(t *testing.T) {
	t.Run("message wins over resource", func(t *testing.T) {
		err := NewNotFoundError("session", "session expired")
		assert.Equal(t, "session expired", err.Error())
	})

	t.Run("resource only", func(t *testing.T) {
		err := NewNotFoundError("session", "")
		assert.Equal(t, "session not found", err.Error())
	})

	t.Run("matches sentinel through wrapping", func(t *testing.T) {
		err := fmt.Errorf("get session: %w", NewNotFoundError("session", ""))
		assert.ErrorIs(t, err, ErrNotFound)
		assert.NotErrorIs(t, err, ErrConflict)
	})
}

func TestConflictError(t *testing.T) {
	assert.Equal(t, "conflict", (&ConflictError{}).Error())

	inFlight := NewConflictError("request already in flight")
	finished := NewConflictError("already has a result")

	err := fmt.Errorf("submit: %w", inFlight)
	assert.ErrorIs(t, err, ErrConflict)
	assert.ErrorIs(t, err, inFlight)
	assert.NotErrorIs(t, err, finished, "distinct conflicts stay distinguishable")
	assert.NotErrorIs(t, err, ErrNotFound)
}
