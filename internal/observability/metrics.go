package observability

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MetricsRecorder records analyzer metrics.
// Use NewMetricsRecorder() for OTel metrics or NoopMetrics{} when disabled.
type MetricsRecorder interface {
	// RecordAnalysis records a finished analysis request.
	RecordAnalysis(ctx context.Context, operation string, success bool, duration time.Duration)

	// RecordBranchError records a failed derivative or integral branch.
	RecordBranchError(ctx context.Context, branch string, kind string)

	// RecordQuadrature records the number of quadrature calls made.
	RecordQuadrature(ctx context.Context, calls int)
}

type otelMetrics struct {
	runs           metric.Int64Counter
	latency        metric.Float64Histogram
	branchErrors   metric.Int64Counter
	quadratureRuns metric.Int64Counter
}

var (
	defaultMetrics     *otelMetrics
	defaultMetricsOnce sync.Once
	defaultMetricsErr  error
)

func getDefaultMetrics() (*otelMetrics, error) {
	defaultMetricsOnce.Do(func() {
		defaultMetrics, defaultMetricsErr = newOtelMetrics()
	})
	return defaultMetrics, defaultMetricsErr
}

func newOtelMetrics() (*otelMetrics, error) {
	meter := otel.Meter("funcan")

	runs, err := meter.Int64Counter("funcan.analysis.runs",
		metric.WithDescription("Number of analysis requests"),
	)
	if err != nil {
		return nil, err
	}

	latency, err := meter.Float64Histogram("funcan.analysis.latency_ms",
		metric.WithDescription("Analysis latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	branchErrors, err := meter.Int64Counter("funcan.branch.errors",
		metric.WithDescription("Number of failed derivative or integral branches"),
	)
	if err != nil {
		return nil, err
	}

	quadratureRuns, err := meter.Int64Counter("funcan.quadrature.calls",
		metric.WithDescription("Number of adaptive quadrature evaluations"),
	)
	if err != nil {
		return nil, err
	}

	return &otelMetrics{
		runs:           runs,
		latency:        latency,
		branchErrors:   branchErrors,
		quadratureRuns: quadratureRuns,
	}, nil
}

// NewMetricsRecorder returns a MetricsRecorder backed by the global OTel
// meter provider, or a no-op recorder if the instruments cannot be built.
// Set the provider with otel.SetMeterProvider before the first call.
func NewMetricsRecorder() MetricsRecorder {
	m, err := getDefaultMetrics()
	if err != nil {
		slog.Warn("metrics initialization failed, using no-op recorder",
			slog.String("error", err.Error()))
		return NoopMetrics{}
	}
	return m
}

func (m *otelMetrics) RecordAnalysis(ctx context.Context, operation string, success bool, duration time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.Bool("success", success),
	)
	m.runs.Add(ctx, 1, attrs)
	m.latency.Record(ctx, float64(duration.Microseconds())/1000, attrs)
}

func (m *otelMetrics) RecordBranchError(ctx context.Context, branch string, kind string) {
	m.branchErrors.Add(ctx, 1, metric.WithAttributes(
		attribute.String("branch", branch),
		attribute.String("kind", kind),
	))
}

func (m *otelMetrics) RecordQuadrature(ctx context.Context, calls int) {
	if calls <= 0 {
		return
	}
	m.quadratureRuns.Add(ctx, int64(calls))
}
