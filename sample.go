package funcan

import "fmt"

// Sample evaluates ev at every grid point. One bad point fails the whole
// curve.
func Sample(ev *Evaluator, grid Grid) ([]float64, error) {
	ys, err := ev.EvalSlice(grid.X)
	if err != nil {
		return nil, newError(KindEvaluation, "sample", "function is undefined on the range", err)
	}
	return ys, nil
}

// NumericDerivative is the finite-difference gradient of values over the
// grid spacing: central differences inside, one-sided at both ends.
func NumericDerivative(values []float64, grid Grid) ([]float64, error) {
	n := len(values)
	if n != grid.Len() {
		return nil, fmt.Errorf("funcan: gradient of %d values over %d grid points", n, grid.Len())
	}
	if n < 2 {
		return nil, fmt.Errorf("funcan: gradient needs at least 2 values, got %d", n)
	}
	dx := grid.Step()
	out := make([]float64, n)
	out[0] = (values[1] - values[0]) / dx
	for i := 1; i < n-1; i++ {
		out[i] = (values[i+1] - values[i-1]) / (2 * dx)
	}
	out[n-1] = (values[n-1] - values[n-2]) / dx
	return out, nil
}

// CumulativeIntegral returns ∫ ev from grid[0] to each grid point. Every
// point is an independent quadrature, so the curve carries no accumulated
// round-off; the first value is 0.
func CumulativeIntegral(ev *Evaluator, grid Grid, q Quadrature) ([]float64, error) {
	out, _, err := cumulativeIntegral(ev, grid, q)
	return out, err
}

// cumulativeIntegral also reports how many quadratures ran, the failing
// one included.
func cumulativeIntegral(ev *Evaluator, grid Grid, q Quadrature) ([]float64, int, error) {
	out := make([]float64, grid.Len())
	a := grid.Min()
	for i, b := range grid.X {
		v, err := DefiniteIntegral(ev, a, b, q)
		if err != nil {
			return nil, i + 1, err
		}
		out[i] = v
	}
	return out, grid.Len(), nil
}
