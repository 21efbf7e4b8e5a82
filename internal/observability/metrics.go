package observability

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	prometheusexporter "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

const (
	meterScope         = "github.com/formbricks/popchoice/internal/observability"
	defaultServiceName = "popchoice-api"
	cardinalityLimit   = 2000
)

// latencyHistogramBoundaries are second-based buckets; provider calls dominate, so they reach 30s.
var latencyHistogramBoundaries = []float64{0.005, 0.025, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30}

// MeterProviderShutdown is the subset of the SDK MeterProvider needed for shutdown.
type MeterProviderShutdown interface {
	Shutdown(ctx context.Context) error
}

// MeterProviderConfig holds configuration for creating the MeterProvider.
type MeterProviderConfig struct {
	// ServiceName is used in the resource (default: popchoice-api).
	ServiceName string
}

// NewMeterProvider creates a MeterProvider backed by a Prometheus exporter on a private registry.
// It returns the provider (caller must Shutdown), the /metrics handler and a Meter for instruments.
func NewMeterProvider(cfg MeterProviderConfig) (MeterProviderShutdown, http.Handler, metric.Meter, error) {
	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = defaultServiceName
	}

	// A single resource avoids schema URL conflicts with resource.Default().
	res := resource.NewWithAttributes(semconv.SchemaURL, semconv.ServiceName(serviceName))

	reg := prometheus.NewRegistry()

	exporter, err := prometheusexporter.New(prometheusexporter.WithRegisterer(reg))
	if err != nil {
		return nil, nil, nil, fmt.Errorf("create prometheus exporter: %w", err)
	}

	mp := newMeterProvider(res, exporter)

	return mp, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), mp.Meter(meterScope), nil
}

func newMeterProvider(res *resource.Resource, reader sdkmetric.Reader) *sdkmetric.MeterProvider {
	histogram := sdkmetric.Stream{
		Aggregation: sdkmetric.AggregationExplicitBucketHistogram{Boundaries: latencyHistogramBoundaries},
	}

	return sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(reader),
		sdkmetric.WithCardinalityLimit(cardinalityLimit),
		sdkmetric.WithView(
			sdkmetric.NewView(sdkmetric.Instrument{Name: MetricNameRequestDuration}, histogram),
			sdkmetric.NewView(sdkmetric.Instrument{Name: MetricNamePipelineStepDuration}, histogram),
		),
	)
}

// Metrics holds every popchoice collector. When metrics are disabled the whole value is nil.
type Metrics struct {
	API      APIMetrics
	Pipeline PipelineMetrics
	Cache    CacheMetrics
}

// NewMetrics creates all collectors from meter. Returns (nil, nil) when meter is nil (metrics disabled).
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	if meter == nil {
		//nolint:nilnil // intentional: callers use "if metrics != nil" when metrics disabled
		return nil, nil
	}

	api, err := NewAPIMetrics(meter)
	if err != nil {
		return nil, fmt.Errorf("api metrics: %w", err)
	}

	pipeline, err := NewPipelineMetrics(meter)
	if err != nil {
		return nil, fmt.Errorf("pipeline metrics: %w", err)
	}

	cache, err := NewCacheMetrics(meter)
	if err != nil {
		return nil, fmt.Errorf("cache metrics: %w", err)
	}

	return &Metrics{API: api, Pipeline: pipeline, Cache: cache}, nil
}
