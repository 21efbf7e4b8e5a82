package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// PipelineMetrics records recommendation pipeline and seeding metrics.
type PipelineMetrics interface {
	RecordStep(ctx context.Context, step, status string, duration time.Duration)
	RecordOutcome(ctx context.Context, outcome string)
	RecordMoviesSeeded(ctx context.Context, count int64)
}

type pipelineMetrics struct {
	stepDuration metric.Float64Histogram
	outcomes     metric.Int64Counter
	seeded       metric.Int64Counter
}

// NewPipelineMetrics creates PipelineMetrics. Returns (nil, nil) when meter is nil (metrics disabled).
func NewPipelineMetrics(meter metric.Meter) (PipelineMetrics, error) {
	if meter == nil {
		//nolint:nilnil // intentional: callers use "if metrics != nil" when metrics disabled
		return nil, nil
	}

	stepDuration, err := meter.Float64Histogram(
		MetricNamePipelineStepDuration,
		metric.WithDescription("Duration of each recommendation step (embed, search, recommend) in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("create pipeline step duration histogram: %w", err)
	}

	outcomes, err := meter.Int64Counter(
		MetricNameRecommendations,
		metric.WithDescription("Recommendation runs by outcome"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("create recommendations counter: %w", err)
	}

	seeded, err := meter.Int64Counter(
		MetricNameMoviesSeeded,
		metric.WithDescription("Movies embedded and inserted by the seeding job"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("create movies seeded counter: %w", err)
	}

	return &pipelineMetrics{stepDuration: stepDuration, outcomes: outcomes, seeded: seeded}, nil
}

func (p *pipelineMetrics) RecordStep(ctx context.Context, step, status string, duration time.Duration) {
	p.stepDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String(AttrStep, NormalizeStep(step)),
		attribute.String(AttrStatus, NormalizeStatus(status)),
	))
}

func (p *pipelineMetrics) RecordOutcome(ctx context.Context, outcome string) {
	p.outcomes.Add(ctx, 1, metric.WithAttributes(attribute.String(AttrOutcome, NormalizeOutcome(outcome))))
}

func (p *pipelineMetrics) RecordMoviesSeeded(ctx context.Context, count int64) {
	p.seeded.Add(ctx, count)
}
