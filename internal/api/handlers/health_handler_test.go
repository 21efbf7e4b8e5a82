package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

type mockPinger struct {
	err error
}

func (m *mockPinger) Ping(context.Context) error {
	return m.err
}

func TestHealthHandler(t *testing.T) {
	t.Run("check", func(t *testing.T) {
		rec := httptest.NewRecorder()
		NewHealthHandler(nil).Check(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "OK", rec.Body.String())
	})

	t.Run("ready", func(t *testing.T) {
		rec := httptest.NewRecorder()
		NewHealthHandler(&mockPinger{}).Ready(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("not ready when database is down", func(t *testing.T) {
		rec := httptest.NewRecorder()
		NewHealthHandler(&mockPinger{err: errors.New("dial tcp: connection refused")}).
			Ready(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}
