package observability

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/trace"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		got  string
		want string
	}{
		{"known step", NormalizeStep(StepSearch), StepSearch},
		{"unknown step", NormalizeStep("rerank"), "unknown"},
		{"known status", NormalizeStatus(StatusFailure), StatusFailure},
		{"unknown status", NormalizeStatus("timeout"), "other"},
		{"known outcome", NormalizeOutcome(OutcomeNoMatches), OutcomeNoMatches},
		{"unknown outcome", NormalizeOutcome(""), "unknown"},
		{"known cache", NormalizeCacheName(CacheQueryEmbedding), CacheQueryEmbedding},
		{"unknown cache", NormalizeCacheName("sessions"), "other"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.got)
		})
	}
}

func TestNewMetrics_NilMeter(t *testing.T) {
	m, err := NewMetrics(nil)
	require.NoError(t, err)
	assert.Nil(t, m)
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	out := map[string]metricdata.Metrics{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m
		}
	}

	return out
}

func TestMetrics_Record(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := newMeterProvider(resource.Empty(), reader)
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m, err := NewMetrics(mp.Meter(meterScope))
	require.NoError(t, err)
	require.NotNil(t, m)

	ctx := context.Background()
	m.Pipeline.RecordOutcome(ctx, OutcomeSuccess)
	m.Pipeline.RecordOutcome(ctx, OutcomeSuccess)
	m.Pipeline.RecordOutcome(ctx, "bogus")
	m.Pipeline.RecordStep(ctx, StepEmbed, StatusSuccess, 120*time.Millisecond)
	m.Pipeline.RecordMoviesSeeded(ctx, 12)
	m.Cache.RecordHit(ctx, CacheQueryEmbedding)
	m.Cache.RecordMiss(ctx, CacheQueryEmbedding)
	m.API.RecordRequest(ctx, "POST", "/v1/sessions/{id}/submit", "2xx", time.Second)
	m.API.RecordRequestBodyTooLarge(ctx)

	got := collect(t, reader)

	outcomes, ok := got[MetricNameRecommendations].Data.(metricdata.Sum[int64])
	require.True(t, ok)

	byOutcome := map[string]int64{}
	for _, dp := range outcomes.DataPoints {
		v, _ := dp.Attributes.Value(AttrOutcome)
		byOutcome[v.AsString()] = dp.Value
	}

	assert.Equal(t, int64(2), byOutcome[OutcomeSuccess])
	assert.Equal(t, int64(1), byOutcome["unknown"])

	seeded, ok := got[MetricNameMoviesSeeded].Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, seeded.DataPoints, 1)
	assert.Equal(t, int64(12), seeded.DataPoints[0].Value)

	steps, ok := got[MetricNamePipelineStepDuration].Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, steps.DataPoints, 1)
	assert.Equal(t, uint64(1), steps.DataPoints[0].Count)
	assert.Equal(t, latencyHistogramBoundaries, steps.DataPoints[0].Bounds)

	for _, name := range []string{MetricNameCacheHits, MetricNameCacheMisses, MetricNameRequestCount, MetricNameRequestBodyTooLarge} {
		assert.Contains(t, got, name)
	}
}

func TestNewMeterProvider(t *testing.T) {
	provider, handler, meter, err := NewMeterProvider(MeterProviderConfig{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	assert.NotNil(t, handler)
	assert.NotNil(t, meter)
}

func TestNewTracerProvider_Disabled(t *testing.T) {
	tp, err := NewTracerProvider(context.Background(), "", "")
	require.NoError(t, err)
	assert.Nil(t, tp)
	assert.NoError(t, ShutdownTracerProvider(context.Background(), tp))
}

func TestTraceContextHandler(t *testing.T) {
	var buf bytes.Buffer

	logger := slog.New(NewTraceContextHandler(slog.NewTextHandler(&buf, nil)))

	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	sc := trace.NewSpanContext(trace.SpanContextConfig{TraceID: traceID, SpanID: spanID, TraceFlags: trace.FlagsSampled})

	ctx := trace.ContextWithSpanContext(WithRequestID(context.Background(), "req-1"), sc)
	logger.InfoContext(ctx, "recommendation done")

	out := buf.String()
	assert.Contains(t, out, "request_id=req-1")
	assert.Contains(t, out, "trace_id=4bf92f3577b34da6a3ce929d0e0e4736")
	assert.Contains(t, out, "span_id=00f067aa0ba902b7")

	buf.Reset()
	logger.Info("no context")
	assert.NotContains(t, buf.String(), "request_id")
}

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLogLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLogLevel("warn"))
	assert.Equal(t, slog.LevelError, ParseLogLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLogLevel("verbose"))
}
