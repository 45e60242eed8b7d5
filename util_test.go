package funcan_test

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"gonum.org/v1/gonum/diff/fd"

	"github.com/njchilds90/funcan"
)

func diff(t *testing.T, want, got any, opts ...cmp.Option) {
	t.Helper()
	if d := cmp.Diff(want, got, opts...); d != "" {
		t.Error(d)
	}
}

func mustParse(t *testing.T, src string) *funcan.Parsed {
	t.Helper()
	p, err := funcan.Parse(src)
	if err != nil {
		t.Fatalf("Parse(%q): %v", src, err)
	}
	return p
}

func mustCompile(t *testing.T, e funcan.Expr) *funcan.Evaluator {
	t.Helper()
	ev, err := funcan.Compile(e)
	if err != nil {
		t.Fatalf("Compile(%s): %v", e, err)
	}
	return ev
}

// centralDiff is an independent numeric derivative used as an oracle.
func centralDiff(f func(float64) float64, x float64) float64 {
	return fd.Derivative(f, x, &fd.Settings{Formula: fd.Central, Step: 1e-5})
}

func closeTo(got, want, tol float64) bool {
	if math.IsNaN(got) || math.IsNaN(want) {
		return false
	}
	return math.Abs(got-want) <= tol*math.Max(1, math.Abs(want))
}
