package funcan

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// WriteReport writes the text summary of r: the function, then a section
// per computed branch. A failed branch prints its error after whatever
// parts did succeed.
func WriteReport(w io.Writer, r *Result) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "f(x) = %s\n\n", r.Expr)

	if d := r.Derivative; d != nil {
		fmt.Fprintln(bw, "=== DERIVATIVE ===")
		if d.Symbolic != nil {
			fmt.Fprintf(bw, "f'(x) = %s\n", d.Symbolic)
		}
		if d.Values != nil {
			fmt.Fprintf(bw, "At x=%s: %.4f\n", formatBound(r.XMin), d.AtMin)
			fmt.Fprintf(bw, "At x=%s: %.4f\n", formatBound(r.XMax), d.AtMax)
		}
		if d.Err != nil {
			fmt.Fprintf(bw, "Derivative Error: %s\n", oneLine(d.Err))
		}
		fmt.Fprintln(bw)
	}

	if in := r.Integral; in != nil {
		fmt.Fprintln(bw, "=== INTEGRAL ===")
		if in.Symbolic != nil {
			fmt.Fprintf(bw, "∫f(x)dx = %s + C\n", in.Symbolic)
		}
		if !math.IsNaN(in.Definite) {
			fmt.Fprintf(bw, "Definite integral (%s to %s): %.4f\n", formatBound(r.XMin), formatBound(r.XMax), in.Definite)
		}
		if in.Err != nil {
			fmt.Fprintf(bw, "Integral Error: %s\n", oneLine(in.Err))
		}
		fmt.Fprintln(bw)
	}
	return bw.Flush()
}

// formatBound prints a range bound the way it was most likely typed:
// integral values keep a trailing ".0".
func formatBound(v float64) string {
	s := strconv.FormatFloat(v, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eEnN") {
		s += ".0"
	}
	return s
}

// oneLine flattens an errors.Join chain onto a single line.
func oneLine(err error) string {
	return strings.ReplaceAll(err.Error(), "\n", "; ")
}
