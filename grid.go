package funcan

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// DefaultSamples is the number of grid points used when none is given.
const DefaultSamples = 500

// DefaultMaxSamples bounds the grid size accepted from tool callers.
const DefaultMaxSamples = 100000

// Grid is an evenly spaced, strictly increasing sequence of x values.
type Grid struct {
	X []float64
}

// NewGrid returns n evenly spaced points from min to max inclusive.
func NewGrid(min, max float64, n int) (Grid, error) {
	if math.IsNaN(min) || math.IsInf(min, 0) || math.IsNaN(max) || math.IsInf(max, 0) {
		return Grid{}, newError(KindRangeFormat, "grid", fmt.Sprintf("bounds must be finite, got [%g, %g]", min, max), nil)
	}
	if max <= min {
		return Grid{}, newError(KindRangeOrder, "grid", fmt.Sprintf("max %g must exceed min %g", max, min), nil)
	}
	if n < 2 {
		return Grid{}, newError(KindRangeFormat, "grid", fmt.Sprintf("need at least 2 samples, got %d", n), nil)
	}
	return Grid{X: floats.Span(make([]float64, n), min, max)}, nil
}

func (g Grid) Len() int      { return len(g.X) }
func (g Grid) Min() float64  { return g.X[0] }
func (g Grid) Max() float64  { return g.X[len(g.X)-1] }
func (g Grid) Step() float64 { return g.X[1] - g.X[0] }
