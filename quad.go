package funcan

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/integrate/quad"
)

// ============================================================
// Adaptive quadrature
// ============================================================

// Quadrature configures DefiniteIntegral. The zero value is not usable;
// start from DefaultQuadrature.
type Quadrature struct {
	AbsTol float64
	RelTol float64
	// Limit caps the number of subintervals.
	Limit int
}

// DefaultQuadrature mirrors the tolerances of QUADPACK's qags driver.
var DefaultQuadrature = Quadrature{AbsTol: 1.49e-8, RelTol: 1.49e-8, Limit: 200}

const gaussPoints = 10

// Nodes and weights of the Gauss–Legendre rule on [-1, 1].
var gaussX, gaussW = legendreRule(gaussPoints)

func legendreRule(n int) ([]float64, []float64) {
	x := make([]float64, n)
	w := make([]float64, n)
	quad.Legendre{}.FixedLocations(x, w, -1, 1)
	return x, w
}

type panel struct {
	a, b     float64
	val, err float64
}

// DefiniteIntegral integrates ev from a to b by global adaptive bisection:
// the panel with the largest error estimate is split until the summed
// estimate meets the tolerance. A panel's estimate is the difference
// between the rule on the whole panel and on its two halves.
func DefiniteIntegral(ev *Evaluator, a, b float64, q Quadrature) (float64, error) {
	if math.IsNaN(a) || math.IsInf(a, 0) || math.IsNaN(b) || math.IsInf(b, 0) {
		return math.NaN(), newError(KindRangeFormat, "integrate", fmt.Sprintf("bounds must be finite, got [%g, %g]", a, b), nil)
	}
	if a == b {
		return 0, nil
	}
	if a > b {
		v, err := DefiniteIntegral(ev, b, a, q)
		return -v, err
	}
	if q.Limit < 1 {
		q.Limit = DefaultQuadrature.Limit
	}

	first, err := estimate(ev, a, b)
	if err != nil {
		return math.NaN(), err
	}
	panels := []panel{first}
	for {
		total, totalErr := 0.0, 0.0
		worst := 0
		for i, p := range panels {
			total += p.val
			totalErr += p.err
			if p.err > panels[worst].err {
				worst = i
			}
		}
		if math.IsNaN(total) || math.IsInf(total, 0) {
			return math.NaN(), newError(KindEvaluation, "integrate", fmt.Sprintf("integral over [%g, %g] diverges", a, b), nil)
		}
		if totalErr <= math.Max(q.AbsTol, q.RelTol*math.Abs(total)) {
			return total, nil
		}
		if len(panels) >= q.Limit {
			return math.NaN(), newError(KindEvaluation, "integrate",
				fmt.Sprintf("no convergence over [%g, %g] after %d subintervals (error estimate %.3g)", a, b, len(panels), totalErr), nil)
		}

		w := panels[worst]
		m := w.a + (w.b-w.a)/2
		if m <= w.a || m >= w.b {
			return math.NaN(), newError(KindEvaluation, "integrate",
				fmt.Sprintf("subinterval near x=%g cannot be refined", w.a), nil)
		}
		left, err := estimate(ev, w.a, m)
		if err != nil {
			return math.NaN(), err
		}
		right, err := estimate(ev, m, w.b)
		if err != nil {
			return math.NaN(), err
		}
		panels[worst] = left
		panels = append(panels, right)
	}
}

func estimate(ev *Evaluator, a, b float64) (panel, error) {
	whole, err := gauss(ev, a, b)
	if err != nil {
		return panel{}, err
	}
	m := a + (b-a)/2
	l, err := gauss(ev, a, m)
	if err != nil {
		return panel{}, err
	}
	r, err := gauss(ev, m, b)
	if err != nil {
		return panel{}, err
	}
	return panel{a: a, b: b, val: l + r, err: math.Abs(whole - (l + r))}, nil
}

func gauss(ev *Evaluator, a, b float64) (float64, error) {
	c, h := (a+b)/2, (b-a)/2
	s := 0.0
	for i, x := range gaussX {
		v, err := ev.Eval(c + h*x)
		if err != nil {
			return 0, newError(KindEvaluation, "integrate", "integrand is undefined on the interval", err)
		}
		s += gaussW[i] * v
	}
	return s * h, nil
}
