// Package render draws analysis results as PNG charts.
package render

import (
	"errors"
	"io"
	"math"
	"strings"

	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/njchilds90/funcan"
	"github.com/njchilds90/funcan/internal/config"
)

// Chart writes r as a PNG: the function curve, plus the derivative and
// integral curves when their values were computed. Points whose value is
// not finite are left out of their curve.
func Chart(w io.Writer, r *funcan.Result, theme config.Theme, width, height int) error {
	if r == nil || len(r.X) == 0 {
		return errors.New("render: empty result")
	}
	series := []chart.Series{
		curve("f(x) = "+r.Expr.String(), r.X, r.Y, color(theme.Function)),
	}
	if d := r.Derivative; d != nil && d.Values != nil {
		series = append(series, curve("Derivative", r.X, d.Values, color(theme.Derivative)))
	}
	if in := r.Integral; in != nil && in.Values != nil {
		series = append(series, curve("Integral", r.X, in.Values, color(theme.Integral)))
	}

	fg := color(theme.Text)
	bg := color(theme.Background)
	axis := chart.Style{FontColor: fg, StrokeColor: fg}
	ch := chart.Chart{
		Title:      "Function Analysis",
		TitleStyle: chart.Style{FontColor: fg},
		Width:      width,
		Height:     height,
		Background: chart.Style{
			FillColor: bg,
			Padding:   chart.Box{Top: 24, Left: 16, Right: 16, Bottom: 16},
		},
		Canvas: chart.Style{FillColor: bg},
		XAxis:  chart.XAxis{Name: "x", NameStyle: axis, Style: axis},
		YAxis:  chart.YAxis{Name: "y", NameStyle: axis, Style: axis},
		Series: series,
	}
	ch.Elements = []chart.Renderable{chart.Legend(&ch)}
	return ch.Render(chart.PNG, w)
}

func curve(name string, xs, ys []float64, col drawing.Color) chart.ContinuousSeries {
	fx := make([]float64, 0, len(xs))
	fy := make([]float64, 0, len(ys))
	for i, x := range xs {
		if i >= len(ys) {
			break
		}
		y := ys[i]
		if math.IsNaN(y) || math.IsInf(y, 0) {
			continue
		}
		fx = append(fx, x)
		fy = append(fy, y)
	}
	return chart.ContinuousSeries{
		Name:    name,
		XValues: fx,
		YValues: fy,
		Style:   chart.Style{StrokeColor: col, StrokeWidth: 2},
	}
}

func color(hex string) drawing.Color {
	return drawing.ColorFromHex(strings.TrimPrefix(hex, "#"))
}
