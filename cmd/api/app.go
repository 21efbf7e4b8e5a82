package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/formbricks/popchoice/internal/api/handlers"
	"github.com/formbricks/popchoice/internal/api/middleware"
	"github.com/formbricks/popchoice/internal/config"
	"github.com/formbricks/popchoice/internal/observability"
	"github.com/formbricks/popchoice/internal/providers"
	"github.com/formbricks/popchoice/internal/repository"
	"github.com/formbricks/popchoice/internal/service"
)

// App holds all server dependencies and coordinates startup and shutdown.
type App struct {
	cfg            *config.Config
	server         *http.Server
	meterProvider  observability.MeterProviderShutdown
	tracerProvider *sdktrace.TracerProvider
}

// setupMetrics creates the meter provider, the /metrics handler and popchoice metrics.
func setupMetrics() (observability.MeterProviderShutdown, http.Handler, *observability.Metrics, error) {
	mp, metricsHandler, meter, err := observability.NewMeterProvider(observability.MeterProviderConfig{})
	if err != nil {
		return nil, nil, nil, fmt.Errorf("create meter provider: %w", err)
	}

	metrics, err := observability.NewMetrics(meter)
	if err != nil {
		if err2 := mp.Shutdown(context.Background()); err2 != nil {
			slog.Error("shutdown meter provider after metrics error", "error", err2)
		}

		return nil, nil, nil, fmt.Errorf("create metrics: %w", err)
	}

	return mp, metricsHandler, metrics, nil
}

// NewApp builds and wires all components. It does not start the HTTP server; call Run.
func NewApp(ctx context.Context, cfg *config.Config, db *pgxpool.Pool) (*App, error) {
	var (
		err            error
		meterProvider  observability.MeterProviderShutdown
		metricsHandler http.Handler
		metrics        *observability.Metrics
	)

	if cfg.MetricsEnabled {
		meterProvider, metricsHandler, metrics, err = setupMetrics()
		if err != nil {
			return nil, err
		}
	} else {
		slog.Warn("metrics not enabled (METRICS_ENABLED=false)")
	}

	var tracerProvider *sdktrace.TracerProvider

	if cfg.OtelTracesExporter == "" {
		slog.Info("tracing not enabled (OTEL_TRACES_EXPORTER empty or unset)")
	} else {
		tracerProvider, err = observability.NewTracerProvider(ctx, cfg.OtelTracesExporter, "")
		if err != nil {
			shutdownObservability(context.Background(), nil, meterProvider)

			return nil, fmt.Errorf("create tracer provider: %w", err)
		}

		if tracerProvider == nil {
			slog.Warn("tracing not enabled: unsupported OTEL_TRACES_EXPORTER", "exporter", cfg.OtelTracesExporter)
		} else {
			otel.SetTracerProvider(tracerProvider)
		}
	}

	moviesRepo := repository.NewMoviesRepository(db, cfg.EmbeddingDimensions)

	recommender, err := providers.NewRecommendationService(ctx, cfg, moviesRepo, metrics)
	if err != nil {
		shutdownObservability(context.Background(), tracerProvider, meterProvider)

		return nil, err
	}

	sessions := service.NewSessionStore(service.SessionStoreParams{
		Pipeline:    recommender,
		TTL:         cfg.SessionTTL,
		MaxSessions: cfg.SessionMax,
	})

	slog.Info("recommendation pipeline ready",
		"embedding_provider", cfg.EmbeddingProvider,
		"embedding_model", cfg.EmbeddingModel,
		"chat_provider", cfg.ChatProvider,
		"chat_model", cfg.ChatModel,
		"match_threshold", cfg.MatchThreshold,
		"match_count", cfg.MatchCount,
	)

	server := newHTTPServer(cfg, routes{
		health:   handlers.NewHealthHandler(db),
		sessions: handlers.NewSessionHandler(sessions),
		metrics:  metricsHandler,
	}, metrics, tracerProvider)

	return &App{
		cfg:            cfg,
		server:         server,
		meterProvider:  meterProvider,
		tracerProvider: tracerProvider,
	}, nil
}

type routes struct {
	health   *handlers.HealthHandler
	sessions *handlers.SessionHandler
	metrics  http.Handler // nil when metrics are disabled
}

// newHTTPServer builds the mux and middleware chain:
// RequestID -> otelhttp -> Logging -> MaxBody -> Metrics -> mux.
func newHTTPServer(
	cfg *config.Config,
	r routes,
	metrics *observability.Metrics,
	tracerProvider *sdktrace.TracerProvider,
) *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", r.health.Check)
	mux.HandleFunc("GET /ready", r.health.Ready)

	if r.metrics != nil {
		mux.Handle("GET /metrics", r.metrics)
	}

	mux.HandleFunc("POST /v1/sessions", r.sessions.Create)
	mux.HandleFunc("GET /v1/sessions/{id}", r.sessions.Get)
	mux.HandleFunc("POST /v1/sessions/{id}/submit", r.sessions.Submit)
	mux.HandleFunc("POST /v1/sessions/{id}/reset", r.sessions.Reset)
	mux.HandleFunc("POST /v1/recommendations", r.sessions.Recommend)

	var (
		apiMetrics observability.APIMetrics
		tooLarge   middleware.RequestBodyTooLargeRecorder
	)

	if metrics != nil {
		apiMetrics = metrics.API
		tooLarge = metrics.API
	}

	var handler http.Handler = mux
	handler = middleware.Metrics(apiMetrics)(handler)
	handler = middleware.MaxBody(cfg.MaxRequestBodyBytes, tooLarge)(handler)
	handler = middleware.Logging(handler)

	otelOpts := []otelhttp.Option{
		otelhttp.WithFilter(func(r *http.Request) bool {
			return r.URL.Path != "/health" && r.URL.Path != "/metrics"
		}),
	}
	if tracerProvider != nil {
		otelOpts = append(otelOpts, otelhttp.WithTracerProvider(tracerProvider))
	}

	handler = otelhttp.NewHandler(handler, "popchoice-api", otelOpts...)
	handler = middleware.RequestID(handler)

	const (
		readTimeout = 15 * time.Second
		idleTimeout = 60 * time.Second
	)

	return &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     handler,
		ReadTimeout: readTimeout,
		// Submissions run the whole pipeline within the request.
		WriteTimeout: cfg.RequestTimeout + readTimeout,
		IdleTimeout:  idleTimeout,
	}
}

// Run starts the HTTP server and blocks until ctx is cancelled or the server fails.
// Caller should then call Shutdown.
func (a *App) Run(ctx context.Context) error {
	runErr := make(chan error, 1)

	go func() {
		slog.Info("Starting server", "port", a.cfg.Port)

		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			runErr <- fmt.Errorf("server: %w", err)
		}
	}()

	select {
	case err := <-runErr:
		return err
	case <-ctx.Done():
		return nil
	}
}

// shutdownObservability flushes the tracer and meter providers, logging failures.
func shutdownObservability(ctx context.Context, tracer *sdktrace.TracerProvider, meter observability.MeterProviderShutdown) {
	if err := observability.ShutdownTracerProvider(ctx, tracer); err != nil {
		slog.Error("shutdown tracer provider", "error", err)
	}

	if meter != nil {
		if err := meter.Shutdown(ctx); err != nil {
			slog.Error("shutdown meter provider", "error", err)
		}
	}
}

// Shutdown stops the server, waiting for in-flight submissions, then flushes observability.
func (a *App) Shutdown(ctx context.Context) error {
	defer shutdownObservability(ctx, a.tracerProvider, a.meterProvider)

	if err := a.server.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server shutdown: %w", err)
	}

	return nil
}
