package funcan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/njchilds90/funcan/internal/observability"
)

// ============================================================
// Analysis — validate, sample, differentiate, integrate
// ============================================================

// Operation selects which calculus branches an analysis computes.
type Operation int

const (
	OpDerivative Operation = iota
	OpIntegral
	OpBoth
)

func (o Operation) String() string {
	switch o {
	case OpDerivative:
		return "derivative"
	case OpIntegral:
		return "integral"
	case OpBoth:
		return "both"
	}
	return fmt.Sprintf("Operation(%d)", int(o))
}

// ParseOperation accepts diff/derivative, int/integral and both. The empty
// string selects OpDerivative.
func ParseOperation(s string) (Operation, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "diff", "derivative":
		return OpDerivative, nil
	case "int", "integral":
		return OpIntegral, nil
	case "both":
		return OpBoth, nil
	}
	return OpDerivative, fmt.Errorf("funcan: unknown operation %q (want diff, int or both)", s)
}

func (o Operation) wantsDerivative() bool { return o == OpDerivative || o == OpBoth }
func (o Operation) wantsIntegral() bool   { return o == OpIntegral || o == OpBoth }

// Request is one analysis as typed by a user: formula and range bounds are
// raw text.
type Request struct {
	Func string
	XMin string
	XMax string
	Op   Operation
}

// DerivativeResult holds the derivative branch. Err joins the failures of
// whichever parts could not be computed; the other fields stay valid.
type DerivativeResult struct {
	Symbolic Expr
	Values   []float64
	AtMin    float64
	AtMax    float64
	Err      error
}

// IntegralResult holds the integral branch. Values is the cumulative
// integral from XMin; Definite is the integral over [XMin, XMax].
type IntegralResult struct {
	Symbolic Expr
	Values   []float64
	Definite float64
	Err      error
}

// Result is the bundle produced by one successful analysis. It shares no
// state with other results.
type Result struct {
	ID         string
	Func       string
	Expr       Expr
	XMin, XMax float64
	Op         Operation
	X, Y       []float64
	Derivative *DerivativeResult
	Integral   *IntegralResult
}

// Analyzer runs analyses. The zero value is not usable; use NewAnalyzer.
type Analyzer struct {
	samples    int
	maxSamples int
	quad    Quadrature
	logger  *slog.Logger
	metrics observability.MetricsRecorder
	spans   observability.SpanManager
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithLogger sets the structured logger. nil disables logging.
func WithLogger(l *slog.Logger) Option { return func(a *Analyzer) { a.logger = l } }

// WithMetrics sets the metrics recorder.
func WithMetrics(m observability.MetricsRecorder) Option {
	return func(a *Analyzer) {
		if m != nil {
			a.metrics = m
		}
	}
}

// WithSpans sets the span manager.
func WithSpans(s observability.SpanManager) Option {
	return func(a *Analyzer) {
		if s != nil {
			a.spans = s
		}
	}
}

// WithSamples sets the grid size. Values below 2 are ignored.
func WithSamples(n int) Option {
	return func(a *Analyzer) {
		if n >= 2 {
			a.samples = n
		}
	}
}

// WithMaxSamples caps the grid size a caller may request. Values below 2
// are ignored.
func WithMaxSamples(n int) Option {
	return func(a *Analyzer) {
		if n >= 2 {
			a.maxSamples = n
		}
	}
}

// WithQuadrature sets the quadrature tolerances.
func WithQuadrature(q Quadrature) Option { return func(a *Analyzer) { a.quad = q } }

func NewAnalyzer(opts ...Option) *Analyzer {
	a := &Analyzer{
		samples:    DefaultSamples,
		maxSamples: DefaultMaxSamples,
		quad:       DefaultQuadrature,
		metrics:    observability.NoopMetrics{},
		spans:      observability.NoopSpanManager{},
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.samples > a.maxSamples {
		a.samples = a.maxSamples
	}
	return a
}

var defaultAnalyzer = NewAnalyzer()

// Analyze runs req with the default analyzer.
func Analyze(funcText, xMin, xMax string, op Operation) (*Result, error) {
	return defaultAnalyzer.Analyze(context.Background(), Request{Func: funcText, XMin: xMin, XMax: xMax, Op: op})
}

// Analyze validates req and computes its result. Input errors (empty
// formula, parse failure, bad or inverted range, a base curve that cannot
// be evaluated) return a nil Result. Once the base curve exists, branch
// failures are recorded on the branch and the Result is still returned.
//
// ctx carries the trace span only; an analysis always runs to completion.
func (a *Analyzer) Analyze(ctx context.Context, req Request) (*Result, error) {
	id := uuid.New().String()
	done := observability.TimedOperation()
	start := time.Now()
	ctx, span := a.spans.StartAnalysisSpan(ctx, id, req.Op.String())
	observability.LogAnalysisStart(a.logger, id, req.Func, req.Op.String())

	res, err := a.run(ctx, id, req)

	a.metrics.RecordAnalysis(ctx, req.Op.String(), err == nil, time.Since(start))
	if err != nil {
		observability.LogAnalysisError(a.logger, id, err, done())
		a.spans.EndSpanWithError(span, err)
		return nil, err
	}
	branchErrs := 0
	if res.Derivative != nil && res.Derivative.Err != nil {
		branchErrs++
	}
	if res.Integral != nil && res.Integral.Err != nil {
		branchErrs++
	}
	observability.LogAnalysisComplete(a.logger, id, done(), len(res.X), branchErrs)
	a.spans.EndSpanWithError(span, nil)
	return res, nil
}

func (a *Analyzer) run(ctx context.Context, id string, req Request) (*Result, error) {
	parsed, err := Parse(req.Func)
	if err != nil {
		return nil, err
	}
	xMin, err := parseBound("min", req.XMin)
	if err != nil {
		return nil, err
	}
	xMax, err := parseBound("max", req.XMax)
	if err != nil {
		return nil, err
	}
	if xMax <= xMin {
		return nil, newError(KindRangeOrder, "analyze", "max x must be greater than min x", nil)
	}
	grid, err := NewGrid(xMin, xMax, a.samples)
	if err != nil {
		return nil, err
	}
	ys, err := Sample(parsed.Evaluator, grid)
	if err != nil {
		return nil, err
	}
	observability.AddSpanEvent(ctx, "base_curve_sampled", attribute.Int("points", grid.Len()))

	res := &Result{
		ID:   id,
		Func: parsed.Text,
		Expr: parsed.Expr,
		XMin: xMin,
		XMax: xMax,
		Op:   req.Op,
		X:    grid.X,
		Y:    ys,
	}
	if req.Op.wantsDerivative() {
		res.Derivative = a.derivativeBranch(ctx, id, parsed, grid, ys)
	}
	if req.Op.wantsIntegral() {
		res.Integral = a.integralBranch(ctx, id, parsed, grid)
	}
	return res, nil
}

func parseBound(name, s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, newError(KindRangeFormat, "analyze", fmt.Sprintf("invalid numeric input for range %s %q", name, s), nil)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, newError(KindRangeFormat, "analyze", fmt.Sprintf("range %s must be finite, got %q", name, s), nil)
	}
	return v, nil
}

func (a *Analyzer) derivativeBranch(ctx context.Context, id string, p *Parsed, grid Grid, ys []float64) *DerivativeResult {
	ctx, span := a.spans.StartBranchSpan(ctx, "derivative")
	d := &DerivativeResult{Symbolic: Derivative(p.Expr)}

	vals, err := NumericDerivative(ys, grid)
	if err != nil {
		d.Err = err
	} else {
		d.Values = vals
		d.AtMin = vals[0]
		d.AtMax = vals[len(vals)-1]
	}
	a.finishBranch(ctx, id, "derivative", span, d.Err)
	return d
}

func (a *Analyzer) integralBranch(ctx context.Context, id string, p *Parsed, grid Grid) *IntegralResult {
	ctx, span := a.spans.StartBranchSpan(ctx, "integral")
	r := &IntegralResult{Definite: math.NaN()}
	var errs []error

	done := observability.TimedOperation()
	vals, calls, err := cumulativeIntegral(p.Evaluator, grid, a.quad)
	if err != nil {
		errs = append(errs, err)
	} else {
		r.Values = vals
	}
	if sym, err := Antiderivative(p.Expr); err != nil {
		errs = append(errs, err)
	} else {
		r.Symbolic = sym
	}
	if v, err := DefiniteIntegral(p.Evaluator, grid.Min(), grid.Max(), a.quad); err != nil {
		errs = append(errs, err)
	} else {
		r.Definite = v
	}
	calls++ // the definite integral
	a.metrics.RecordQuadrature(ctx, calls)
	observability.LogQuadrature(a.logger, id, calls, done())

	r.Err = errors.Join(errs...)
	a.finishBranch(ctx, id, "integral", span, r.Err)
	return r
}

func (a *Analyzer) finishBranch(ctx context.Context, id, branch string, span trace.Span, err error) {
	if err != nil {
		observability.LogBranchError(a.logger, id, branch, err)
		a.metrics.RecordBranchError(ctx, branch, KindOf(err).String())
	}
	a.spans.EndSpanWithError(span, err)
}
