package funcan_test

import (
	"bytes"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/njchilds90/funcan"
)

func TestWriteReport(t *testing.T) {
	res, err := funcan.Analyze("x**2 + 3*x + 5", "-5", "5", funcan.OpBoth)
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if err := funcan.WriteReport(&buf, res); err != nil {
		t.Fatal(err)
	}
	want := `f(x) = x**2 + 3*x + 5

=== DERIVATIVE ===
f'(x) = 2*x + 3
At x=-5.0: -6.9800
At x=5.0: 12.9800

=== INTEGRAL ===
∫f(x)dx = x**3/3 + 3*x**2/2 + 5*x + C
Definite integral (-5.0 to 5.0): 166.6667

`
	diff(t, want, buf.String())
}

func TestWriteReport_BranchErrors(t *testing.T) {
	res := &funcan.Result{
		Expr: mustParse(t, "exp(x**2)").Expr,
		XMin: -1.5,
		XMax: 2,
		Integral: &funcan.IntegralResult{
			Definite: math.NaN(),
			Err:      errors.Join(errors.New("no closed form"), errors.New("integrand is undefined")),
		},
	}
	var buf bytes.Buffer
	if err := funcan.WriteReport(&buf, res); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if strings.Contains(out, "DERIVATIVE") {
		t.Error("derivative section printed for integral-only result")
	}
	if strings.Contains(out, "Definite integral") || strings.Contains(out, "+ C") {
		t.Errorf("missing parts printed:\n%s", out)
	}
	if !strings.Contains(out, "Integral Error: no closed form; integrand is undefined\n") {
		t.Errorf("error line not flattened:\n%s", out)
	}
}

func TestWriteReport_PartialIntegral(t *testing.T) {
	res, err := funcan.Analyze("exp(x**2)", "0", "1", funcan.OpIntegral)
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if err := funcan.WriteReport(&buf, res); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, line := range []string{
		"f(x) = exp(x**2)\n",
		"Definite integral (0.0 to 1.0): 1.4627\n",
		"Integral Error: ",
	} {
		if !strings.Contains(out, line) {
			t.Errorf("report lacks %q:\n%s", line, out)
		}
	}
}
