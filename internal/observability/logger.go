// Package observability carries the logging, metrics and tracing hooks
// used by the analyzer and the binaries. Logging is log/slog; metrics and
// spans go through the global OpenTelemetry providers. Every piece has a
// no-op form so the core runs silent by default.
package observability

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"
)

// NewLogger builds a text or JSON slog logger writing to w at the named
// level (debug, info, warn, error).
func NewLogger(w io.Writer, level, format string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	opts := &slog.HandlerOptions{Level: lvl}
	switch strings.ToLower(format) {
	case "", "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return nil, fmt.Errorf("log format %q: want text or json", format)
}

// EnrichLogger tags a logger with the analysis ID.
func EnrichLogger(logger *slog.Logger, analysisID string) *slog.Logger {
	if logger == nil {
		return nil
	}
	return logger.With(slog.String("analysis_id", analysisID))
}

// LogAnalysisStart logs the start of an analysis request.
func LogAnalysisStart(logger *slog.Logger, analysisID, funcText, operation string) {
	if logger == nil {
		return
	}
	logger.Info("analysis starting",
		slog.String("analysis_id", analysisID),
		slog.String("function", funcText),
		slog.String("operation", operation),
	)
}

// LogAnalysisComplete logs a finished analysis. Branch failures do not make
// an analysis fail; they are counted in branch_errors.
func LogAnalysisComplete(logger *slog.Logger, analysisID string, durationMs float64, points, branchErrors int) {
	if logger == nil {
		return
	}
	logger.Info("analysis completed",
		slog.String("analysis_id", analysisID),
		slog.Float64("duration_ms", durationMs),
		slog.Int("points", points),
		slog.Int("branch_errors", branchErrors),
	)
}

// LogAnalysisError logs an analysis rejected before any result was built.
func LogAnalysisError(logger *slog.Logger, analysisID string, err error, durationMs float64) {
	if logger == nil {
		return
	}
	logger.Warn("analysis rejected",
		slog.String("analysis_id", analysisID),
		slog.String("error", err.Error()),
		slog.Float64("duration_ms", durationMs),
	)
}

// LogBranchError logs a derivative or integral branch failure.
func LogBranchError(logger *slog.Logger, analysisID, branch string, err error) {
	if logger == nil {
		return
	}
	logger.Warn("branch failed",
		slog.String("analysis_id", analysisID),
		slog.String("branch", branch),
		slog.String("error", err.Error()),
	)
}

// LogQuadrature logs the quadrature work done for one curve.
func LogQuadrature(logger *slog.Logger, analysisID string, calls int, durationMs float64) {
	if logger == nil {
		return
	}
	logger.Debug("quadrature finished",
		slog.String("analysis_id", analysisID),
		slog.Int("calls", calls),
		slog.Float64("duration_ms", durationMs),
	)
}

// TimedOperation returns a function reporting the elapsed milliseconds.
func TimedOperation() func() float64 {
	start := time.Now()
	return func() float64 {
		return float64(time.Since(start).Microseconds()) / 1000
	}
}
