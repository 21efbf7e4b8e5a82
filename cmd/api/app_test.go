package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/formbricks/popchoice/internal/api/handlers"
	"github.com/formbricks/popchoice/internal/api/middleware"
	"github.com/formbricks/popchoice/internal/config"
	"github.com/formbricks/popchoice/internal/models"
	"github.com/formbricks/popchoice/internal/observability"
	"github.com/formbricks/popchoice/internal/service"
)

type stubPipeline struct{}

func (stubPipeline) Run(context.Context, models.Preferences, service.ProgressFunc) (service.Outcome, error) {
	return service.Outcome{Recommendation: "Watch Heat (1995)."}, nil
}

func newTestHandler(t *testing.T, metricsEnabled bool) http.Handler {
	t.Helper()

	cfg := &config.Config{Port: "0", MaxRequestBodyBytes: 1024, RequestTimeout: time.Second}
	store := service.NewSessionStore(service.SessionStoreParams{Pipeline: stubPipeline{}})

	r := routes{
		health:   handlers.NewHealthHandler(nil),
		sessions: handlers.NewSessionHandler(store),
	}

	var metrics *observability.Metrics

	if metricsEnabled {
		mp, metricsHandler, m, err := setupMetrics()
		require.NoError(t, err)
		t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

		r.metrics = metricsHandler
		metrics = m
	}

	return newHTTPServer(cfg, r, metrics, nil).Handler
}

func serve(h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	return rec
}

func TestServerRoutes(t *testing.T) {
	h := newTestHandler(t, false)

	rec := serve(h, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(middleware.RequestIDHeader))

	rec = serve(h, http.MethodPost, "/v1/recommendations", `{"favorite":"Heat","newOrClassic":"classic","tone":"serious"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Watch Heat (1995).")

	rec = serve(h, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusNotFound, rec.Code, "metrics route is absent when metrics are disabled")

	rec = serve(h, http.MethodPost, "/v1/recommendations", `{"favorite":"`+strings.Repeat("a", 2048)+`"}`)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

// TestMetricsEndpointExposesExpectedMetrics checks that /metrics serves the popchoice metrics
// in Prometheus format once each has been recorded.
func TestMetricsEndpointExposesExpectedMetrics(t *testing.T) {
	ctx := context.Background()

	mp, metricsHandler, metrics, err := setupMetrics()
	require.NoError(t, err)

	defer func() { _ = mp.Shutdown(ctx) }()

	metrics.API.RecordRequest(ctx, http.MethodPost, "/v1/recommendations", "2xx", 10*time.Millisecond)
	metrics.API.RecordRequestBodyTooLarge(ctx)
	metrics.Pipeline.RecordStep(ctx, observability.StepEmbed, observability.StatusSuccess, 50*time.Millisecond)
	metrics.Pipeline.RecordOutcome(ctx, observability.OutcomeSuccess)
	metrics.Pipeline.RecordMoviesSeeded(ctx, 14)
	metrics.Cache.RecordHit(ctx, observability.CacheQueryEmbedding)
	metrics.Cache.RecordMiss(ctx, observability.CacheQueryEmbedding)

	rec := httptest.NewRecorder()
	metricsHandler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()

	for _, stem := range []string{
		"popchoice_http_requests",
		"popchoice_http_request_duration_seconds",
		"popchoice_http_request_body_too_large",
		"popchoice_pipeline_step_duration_seconds",
		"popchoice_recommendations",
		"popchoice_movies_seeded",
		"popchoice_cache_hits",
		"popchoice_cache_misses",
	} {
		require.Contains(t, body, stem, "metrics response should contain %q", stem)
	}
}

func TestServerRecordsRequestMetrics(t *testing.T) {
	h := newTestHandler(t, true)

	rec := serve(h, http.MethodPost, "/v1/sessions", "")
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = serve(h, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `route="/v1/sessions"`)
}
