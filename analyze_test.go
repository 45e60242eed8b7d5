package funcan_test

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/njchilds90/funcan"
)

func TestAnalyze_Both(t *testing.T) {
	res, err := funcan.Analyze("x**2 + 3*x + 5", "-5", "5", funcan.OpBoth)
	if err != nil {
		t.Fatal(err)
	}
	if res.ID == "" {
		t.Error("missing analysis id")
	}
	if len(res.X) != funcan.DefaultSamples || len(res.Y) != funcan.DefaultSamples {
		t.Fatalf("curve has %d/%d points", len(res.X), len(res.Y))
	}
	if res.X[0] != -5 || res.X[len(res.X)-1] != 5 {
		t.Errorf("grid = [%g, %g]", res.X[0], res.X[len(res.X)-1])
	}
	for i, x := range res.X {
		if want := x*x + 3*x + 5; math.Abs(res.Y[i]-want) > 1e-9 {
			t.Fatalf("y[%d] = %g, want %g", i, res.Y[i], want)
		}
	}

	d := res.Derivative
	if d == nil || d.Err != nil {
		t.Fatalf("derivative branch = %+v", d)
	}
	if got := d.Symbolic.String(); got != "2*x + 3" {
		t.Errorf("f'(x) = %q", got)
	}
	if len(d.Values) != len(res.X) {
		t.Errorf("derivative has %d values", len(d.Values))
	}
	// One-sided end differences carry an error of about h.
	h := res.X[1] - res.X[0]
	if math.Abs(d.AtMin-(-7)) > 2*h || math.Abs(d.AtMax-13) > 2*h {
		t.Errorf("endpoint slopes = %g, %g", d.AtMin, d.AtMax)
	}

	in := res.Integral
	if in == nil || in.Err != nil {
		t.Fatalf("integral branch = %+v", in)
	}
	if got := in.Symbolic.String(); got != "x**3/3 + 3*x**2/2 + 5*x" {
		t.Errorf("∫f(x)dx = %q", got)
	}
	if !closeTo(in.Definite, 500.0/3, 1e-9) {
		t.Errorf("definite = %.12g, want %.12g", in.Definite, 500.0/3)
	}
	if in.Values[0] != 0 {
		t.Errorf("cumulative starts at %g", in.Values[0])
	}
	diff(t, in.Definite, in.Values[len(in.Values)-1], cmpopts.EquateApprox(1e-9, 0))
}

func TestAnalyze_SelectsBranches(t *testing.T) {
	res, err := funcan.Analyze("sin(x)", "0", "3", funcan.OpDerivative)
	if err != nil {
		t.Fatal(err)
	}
	if res.Derivative == nil || res.Integral != nil {
		t.Errorf("derivative only: got derivative=%v integral=%v", res.Derivative != nil, res.Integral != nil)
	}

	res, err = funcan.Analyze("sin(x)", "0", "3", funcan.OpIntegral)
	if err != nil {
		t.Fatal(err)
	}
	if res.Derivative != nil || res.Integral == nil {
		t.Errorf("integral only: got derivative=%v integral=%v", res.Derivative != nil, res.Integral != nil)
	}
	if got := res.Integral.Symbolic.String(); got != "-cos(x)" {
		t.Errorf("∫sin = %q", got)
	}
}

func TestAnalyze_InputErrors(t *testing.T) {
	cases := []struct {
		name           string
		fn, xMin, xMax string
		want           error
	}{
		{"empty", "", "-5", "5", funcan.ErrEmptyInput},
		{"blank", "   ", "-5", "5", funcan.ErrEmptyInput},
		{"parse", "x**2 +", "-5", "5", funcan.ErrParse},
		{"unknown symbol", "x + y", "-5", "5", funcan.ErrParse},
		{"min text", "x", "abc", "5", funcan.ErrRangeFormat},
		{"max empty", "x", "0", "", funcan.ErrRangeFormat},
		{"infinite", "x", "-inf", "5", funcan.ErrRangeFormat},
		{"nan", "x", "0", "NaN", funcan.ErrRangeFormat},
		{"inverted", "x", "5", "-5", funcan.ErrRangeOrder},
		{"equal", "x", "2", "2", funcan.ErrRangeOrder},
		{"undefined curve", "log(x)", "-5", "5", funcan.ErrEvaluation},
		{"negative sqrt", "sqrt(x)", "-5", "5", funcan.ErrEvaluation},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			res, err := funcan.Analyze(c.fn, c.xMin, c.xMax, funcan.OpBoth)
			if !errors.Is(err, c.want) {
				t.Fatalf("error = %v, want %v", err, c.want)
			}
			if res != nil {
				t.Errorf("result returned alongside error")
			}
		})
	}
}

func TestAnalyze_FormulaCheckedFirst(t *testing.T) {
	// A bad formula wins over a bad range.
	_, err := funcan.Analyze("", "abc", "5", funcan.OpBoth)
	if !errors.Is(err, funcan.ErrEmptyInput) {
		t.Errorf("error = %v, want ErrEmptyInput", err)
	}
	_, err = funcan.Analyze("x", "abc", "-10", funcan.OpBoth)
	if !errors.Is(err, funcan.ErrRangeFormat) {
		t.Errorf("error = %v, want ErrRangeFormat", err)
	}
}

func TestAnalyze_NoClosedFormKeepsNumerics(t *testing.T) {
	res, err := funcan.Analyze("exp(x**2)", "-1", "1", funcan.OpBoth)
	if err != nil {
		t.Fatal(err)
	}
	if res.Derivative.Err != nil {
		t.Errorf("derivative failed: %v", res.Derivative.Err)
	}
	in := res.Integral
	if !errors.Is(in.Err, funcan.ErrSymbolic) {
		t.Fatalf("integral error = %v, want ErrSymbolic", in.Err)
	}
	if in.Symbolic != nil {
		t.Errorf("symbolic = %s", in.Symbolic)
	}
	if len(in.Values) != len(res.X) {
		t.Errorf("cumulative has %d values", len(in.Values))
	}
	// ∫_{-1}^{1} e^{x²} dx
	if !closeTo(in.Definite, 2.925303491814, 1e-9) {
		t.Errorf("definite = %.13g", in.Definite)
	}
}

func TestAnalyze_QuadratureFailureKeepsSymbolic(t *testing.T) {
	res, err := funcan.Analyze("1/(x - 0.3)", "0", "1", funcan.OpIntegral)
	if err != nil {
		t.Fatal(err)
	}
	in := res.Integral
	if !errors.Is(in.Err, funcan.ErrEvaluation) {
		t.Fatalf("integral error = %v, want ErrEvaluation", in.Err)
	}
	if errors.Is(in.Err, funcan.ErrSymbolic) {
		t.Errorf("symbolic part should have succeeded: %v", in.Err)
	}
	if in.Symbolic == nil {
		t.Error("symbolic antiderivative missing")
	}
	if in.Values != nil || !math.IsNaN(in.Definite) {
		t.Errorf("numeric parts should be absent: values=%d definite=%g", len(in.Values), in.Definite)
	}
}

func TestAnalyze_CaretAndWhitespace(t *testing.T) {
	res, err := funcan.Analyze("  x^2 ", " -1 ", "1", funcan.OpDerivative)
	if err != nil {
		t.Fatal(err)
	}
	if res.Func != "x**2" {
		t.Errorf("func = %q", res.Func)
	}
	if got := res.Derivative.Symbolic.String(); got != "2*x" {
		t.Errorf("f'(x) = %q", got)
	}
}

func TestAnalyze_ResultsAreIndependent(t *testing.T) {
	a, err := funcan.Analyze("x", "0", "1", funcan.OpBoth)
	if err != nil {
		t.Fatal(err)
	}
	b, err := funcan.Analyze("x", "0", "1", funcan.OpBoth)
	if err != nil {
		t.Fatal(err)
	}
	if a.ID == b.ID {
		t.Error("ids collide")
	}
	a.Y[0] = 42
	if b.Y[0] == 42 {
		t.Error("results share storage")
	}
}

func TestParseOperation(t *testing.T) {
	cases := map[string]funcan.Operation{
		"":           funcan.OpDerivative,
		"diff":       funcan.OpDerivative,
		"Derivative": funcan.OpDerivative,
		"int":        funcan.OpIntegral,
		"integral":   funcan.OpIntegral,
		" both ":     funcan.OpBoth,
	}
	for in, want := range cases {
		got, err := funcan.ParseOperation(in)
		if err != nil || got != want {
			t.Errorf("ParseOperation(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := funcan.ParseOperation("laplace"); err == nil {
		t.Error("expected error for unknown operation")
	}
}

type countingMetrics struct {
	mu           sync.Mutex
	runs         map[bool]int
	branchErrors map[string]int
	quadCalls    int
}

func (m *countingMetrics) RecordAnalysis(_ context.Context, _ string, success bool, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs[success]++
}

func (m *countingMetrics) RecordBranchError(_ context.Context, branch, kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.branchErrors[branch+"/"+kind]++
}

func (m *countingMetrics) RecordQuadrature(_ context.Context, calls int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.quadCalls += calls
}

func TestAnalyzer_Options(t *testing.T) {
	m := &countingMetrics{runs: map[bool]int{}, branchErrors: map[string]int{}}
	a := funcan.NewAnalyzer(funcan.WithSamples(11), funcan.WithMetrics(m), funcan.WithLogger(nil))
	ctx := context.Background()

	res, err := a.Analyze(ctx, funcan.Request{Func: "sin(x)/x", XMin: "1", XMax: "2", Op: funcan.OpBoth})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.X) != 11 {
		t.Errorf("grid has %d points, want 11", len(res.X))
	}
	if _, err := a.Analyze(ctx, funcan.Request{Func: "x", XMin: "1", XMax: "0"}); err == nil {
		t.Fatal("expected range error")
	}

	diff(t, map[bool]int{true: 1, false: 1}, m.runs)
	diff(t, map[string]int{"integral/symbolic": 1}, m.branchErrors)
	if m.quadCalls != 12 {
		t.Errorf("quadrature calls = %d, want 12", m.quadCalls)
	}
}

func TestAnalyzer_CountsQuadratureThatRan(t *testing.T) {
	m := &countingMetrics{runs: map[bool]int{}, branchErrors: map[string]int{}}
	a := funcan.NewAnalyzer(funcan.WithSamples(10), funcan.WithMetrics(m))

	// Grid points are k/9; the pole at 0.3 is first crossed by the fourth
	// cumulative quadrature, which stops the curve.
	res, err := a.Analyze(context.Background(), funcan.Request{Func: "1/(x - 0.3)", XMin: "0", XMax: "1", Op: funcan.OpIntegral})
	if err != nil {
		t.Fatal(err)
	}
	if !errors.Is(res.Integral.Err, funcan.ErrEvaluation) {
		t.Fatalf("integral error = %v", res.Integral.Err)
	}
	if m.quadCalls != 5 {
		t.Errorf("quadrature calls = %d, want 5", m.quadCalls)
	}
	diff(t, map[string]int{"integral/evaluation": 1}, m.branchErrors)
}

func TestNewAnalyzer_SamplesCapped(t *testing.T) {
	a := funcan.NewAnalyzer(funcan.WithSamples(50), funcan.WithMaxSamples(20))
	res, err := a.Analyze(context.Background(), funcan.Request{Func: "x", XMin: "0", XMax: "1"})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.X) != 20 {
		t.Errorf("grid has %d points, want 20", len(res.X))
	}
}

func TestAnalyzer_Concurrent(t *testing.T) {
	a := funcan.NewAnalyzer(funcan.WithSamples(50))
	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := a.Analyze(context.Background(), funcan.Request{Func: "x**2", XMin: "0", XMax: "3", Op: funcan.OpBoth})
			if err != nil {
				errs <- err
				return
			}
			if !closeTo(res.Integral.Definite, 9, 1e-9) {
				errs <- errors.New("wrong definite integral")
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}
