package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &m))
		out = append(out, m)
	}
	return out
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(&buf, "warn", "json")
	require.NoError(t, err)
	logger.Info("hidden")
	logger.Warn("shown")
	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "shown", lines[0]["msg"])

	buf.Reset()
	logger, err = NewLogger(&buf, "DEBUG", "")
	require.NoError(t, err)
	logger.Debug("text line", slog.Int("n", 3))
	assert.Contains(t, buf.String(), "msg=\"text line\" n=3")

	_, err = NewLogger(&buf, "loud", "text")
	assert.Error(t, err)
	_, err = NewLogger(&buf, "info", "xml")
	assert.Error(t, err)
}

func TestLogHelpers(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(&buf, "debug", "json")
	require.NoError(t, err)

	LogAnalysisStart(logger, "a1", "x**2", "both")
	LogBranchError(logger, "a1", "integral", errors.New("no closed form"))
	LogQuadrature(logger, "a1", 501, 1.5)
	LogAnalysisComplete(logger, "a1", 2.5, 500, 1)
	LogAnalysisError(logger, "a2", errors.New("bad range"), 0.1)
	EnrichLogger(logger, "a3").Info("enriched")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 6)

	assert.Equal(t, "analysis starting", lines[0]["msg"])
	assert.Equal(t, "x**2", lines[0]["function"])
	assert.Equal(t, "both", lines[0]["operation"])

	assert.Equal(t, "WARN", lines[1]["level"])
	assert.Equal(t, "integral", lines[1]["branch"])
	assert.Equal(t, "no closed form", lines[1]["error"])

	assert.Equal(t, "DEBUG", lines[2]["level"])
	assert.EqualValues(t, 501, lines[2]["calls"])

	assert.EqualValues(t, 500, lines[3]["points"])
	assert.EqualValues(t, 1, lines[3]["branch_errors"])

	assert.Equal(t, "analysis rejected", lines[4]["msg"])
	assert.Equal(t, "a2", lines[4]["analysis_id"])

	assert.Equal(t, "a3", lines[5]["analysis_id"])
}

func TestLogHelpers_NilLogger(t *testing.T) {
	assert.NotPanics(t, func() {
		LogAnalysisStart(nil, "a", "x", "diff")
		LogAnalysisComplete(nil, "a", 0, 0, 0)
		LogAnalysisError(nil, "a", errors.New("x"), 0)
		LogBranchError(nil, "a", "derivative", errors.New("x"))
		LogQuadrature(nil, "a", 1, 0)
	})
	assert.Nil(t, EnrichLogger(nil, "a"))
}

func TestTimedOperation(t *testing.T) {
	done := TimedOperation()
	time.Sleep(2 * time.Millisecond)
	assert.GreaterOrEqual(t, done(), 2.0)
}

func findMetric(rm metricdata.ResourceMetrics, name string) (metricdata.Metrics, bool) {
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name == name {
				return m, true
			}
		}
	}
	return metricdata.Metrics{}, false
}

func TestOtelMetrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	m, err := newOtelMetrics()
	require.NoError(t, err)

	ctx := context.Background()
	m.RecordAnalysis(ctx, "both", true, 12*time.Millisecond)
	m.RecordAnalysis(ctx, "both", true, 8*time.Millisecond)
	m.RecordAnalysis(ctx, "diff", false, time.Millisecond)
	m.RecordBranchError(ctx, "integral", "symbolic")
	m.RecordQuadrature(ctx, 501)
	m.RecordQuadrature(ctx, 0)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))

	runs, ok := findMetric(rm, "funcan.analysis.runs")
	require.True(t, ok)
	sum := runs.Data.(metricdata.Sum[int64])
	counts := map[bool]int64{}
	for _, dp := range sum.DataPoints {
		v, _ := dp.Attributes.Value("success")
		counts[v.AsBool()] += dp.Value
	}
	assert.Equal(t, map[bool]int64{true: 2, false: 1}, counts)

	latency, ok := findMetric(rm, "funcan.analysis.latency_ms")
	require.True(t, ok)
	var observations uint64
	for _, dp := range latency.Data.(metricdata.Histogram[float64]).DataPoints {
		observations += dp.Count
	}
	assert.EqualValues(t, 3, observations)

	branch, ok := findMetric(rm, "funcan.branch.errors")
	require.True(t, ok)
	bdp := branch.Data.(metricdata.Sum[int64]).DataPoints
	require.Len(t, bdp, 1)
	assert.EqualValues(t, 1, bdp[0].Value)
	kind, _ := bdp[0].Attributes.Value("kind")
	assert.Equal(t, "symbolic", kind.AsString())

	quad, ok := findMetric(rm, "funcan.quadrature.calls")
	require.True(t, ok)
	qdp := quad.Data.(metricdata.Sum[int64]).DataPoints
	require.Len(t, qdp, 1)
	assert.EqualValues(t, 501, qdp[0].Value)

	assert.NotNil(t, NewMetricsRecorder())
}

func TestSpanManager(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	otel.SetTracerProvider(provider)
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	sm := NewSpanManager()
	ctx, root := sm.StartAnalysisSpan(context.Background(), "a1", "both")
	sm.AddSpanEvent(ctx, "base_curve_sampled", attribute.Int("points", 500))

	_, d := sm.StartBranchSpan(ctx, "derivative")
	sm.EndSpanWithError(d, nil)
	_, in := sm.StartBranchSpan(ctx, "integral")
	sm.EndSpanWithError(in, errors.New("no closed form"))
	sm.EndSpanWithError(root, nil)

	ended := recorder.Ended()
	require.Len(t, ended, 3)
	byName := map[string]sdktrace.ReadOnlySpan{}
	for _, s := range ended {
		byName[s.Name()] = s
	}

	analysis := byName["funcan.analyze"]
	require.NotNil(t, analysis)
	assert.Equal(t, codes.Ok, analysis.Status().Code)
	assert.Contains(t, analysis.Attributes(), attribute.String("analysis.id", "a1"))
	require.Len(t, analysis.Events(), 1)
	assert.Equal(t, "base_curve_sampled", analysis.Events()[0].Name)

	integral := byName["funcan.branch.integral"]
	require.NotNil(t, integral)
	assert.Equal(t, codes.Error, integral.Status().Code)
	assert.Equal(t, "no closed form", integral.Status().Description)
	assert.Equal(t, analysis.SpanContext().SpanID(), integral.Parent().SpanID())

	derivative := byName["funcan.branch.derivative"]
	require.NotNil(t, derivative)
	assert.Equal(t, codes.Ok, derivative.Status().Code)
}

func TestNoop(t *testing.T) {
	var m MetricsRecorder = NoopMetrics{}
	var s SpanManager = NoopSpanManager{}
	ctx := context.Background()
	assert.NotPanics(t, func() {
		m.RecordAnalysis(ctx, "diff", true, time.Second)
		m.RecordBranchError(ctx, "integral", "symbolic")
		m.RecordQuadrature(ctx, 10)

		got, span := s.StartAnalysisSpan(ctx, "a", "diff")
		assert.Equal(t, ctx, got)
		assert.False(t, span.IsRecording())
		s.AddSpanEvent(ctx, "event")
		s.EndSpanWithError(span, errors.New("x"))
		EndSpanWithError(nil, nil)
	})
}
