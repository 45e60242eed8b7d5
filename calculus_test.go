package funcan_test

import (
	"errors"
	"math"
	"testing"

	"github.com/njchilds90/funcan"
)

// ============================================================
// Differentiation
// ============================================================

func TestDerivative_String(t *testing.T) {
	cases := []struct{ in, want string }{
		{"x**2 + 3*x + 5", "2*x + 3"},
		{"sin(x)", "cos(x)"},
		{"cos(x)", "-sin(x)"},
		{"exp(2*x)", "2*exp(2*x)"},
		{"5", "0"},
		{"x", "1"},
		{"log(x)", "1/x"},
		{"abs(x)", "sign(x)"},
		{"floor(x)", "0"},
	}
	for _, c := range cases {
		p := mustParse(t, c.in)
		if got := funcan.Derivative(p.Expr).String(); got != c.want {
			t.Errorf("d/dx %s = %s, want %s", c.in, got, c.want)
		}
	}
}

// Every derivative must agree with a finite-difference estimate of the
// original function.
func TestDerivative_MatchesFiniteDifference(t *testing.T) {
	cases := []string{
		"x**3 - 2*x",
		"sin(x)*cos(x)",
		"exp(-x**2)",
		"log(x**2 + 1)",
		"sqrt(x + 10)",
		"x**x",
		"atan(2*x)",
		"1/(x**2 + 4)",
		"tanh(x)*x",
		"2**x",
		"asin(x/10)",
	}
	points := []float64{-2.5, -1, 0.3, 1.7, 3}
	for _, src := range cases {
		p := mustParse(t, src)
		d := mustCompile(t, funcan.Derivative(p.Expr))
		f := p.Evaluator.Func()
		for _, x := range points {
			if src == "x**x" && x <= 0 {
				continue
			}
			got, err := d.Eval(x)
			if err != nil {
				t.Errorf("d/dx %s at %g: %v", src, x, err)
				continue
			}
			if want := centralDiff(f, x); !closeTo(got, want, 1e-6) {
				t.Errorf("d/dx %s at %g = %.10g, finite difference %.10g", src, x, got, want)
			}
		}
	}
}

func TestDiffN(t *testing.T) {
	p := mustParse(t, "x**4")
	if got := funcan.DiffN(p.Expr, funcan.Var, 4).String(); got != "24" {
		t.Errorf("d4/dx4 x**4 = %s, want 24", got)
	}
}

// ============================================================
// Integration
// ============================================================

func TestAntiderivative_String(t *testing.T) {
	cases := []struct{ in, want string }{
		{"x**2 + 3*x + 5", "x**3/3 + 3*x**2/2 + 5*x"},
		{"1/x", "log(abs(x))"},
		{"cos(3*x + 1)", "sin(3*x + 1)/3"},
		{"5", "5*x"},
		{"1/(x**2 + 1)", "atan(x)"},
	}
	for _, c := range cases {
		p := mustParse(t, c.in)
		got, err := funcan.Antiderivative(p.Expr)
		if err != nil {
			t.Errorf("∫ %s: %v", c.in, err)
			continue
		}
		if got.String() != c.want {
			t.Errorf("∫ %s = %s, want %s", c.in, got, c.want)
		}
	}
}

// d/dx of each antiderivative, estimated numerically, must give back the
// integrand.
func TestAntiderivative_DifferentiatesBack(t *testing.T) {
	cases := []string{
		"x**2 + 3*x + 5",
		"sin(x)",
		"cos(2*x)",
		"exp(3*x - 1)",
		"x*exp(x)",
		"x**2*sin(x)",
		"x*cos(2*x + 1)",
		"(2*x + 1)**3",
		"1/(2*x + 7)",
		"1/(x**2 + 4)",
		"1/(3*x**2 + 2)",
		"sqrt(x + 10)",
		"tan(x/4)",
		"sinh(x) + cosh(x)",
		"tanh(x)",
		"log(x + 10)",
		"atan(x)",
		"asin(x/4)",
		"acos(x/4)",
		"abs(x)",
		"2**x",
		"(x + 1)*(x - 2)",
		"(x**2 + 1)**2",
		"pi*x",
	}
	points := []float64{-2.5, -0.7, 0.4, 1.9, 3.1}
	for _, src := range cases {
		p := mustParse(t, src)
		anti, err := funcan.Antiderivative(p.Expr)
		if err != nil {
			t.Errorf("∫ %s: %v", src, err)
			continue
		}
		F := mustCompile(t, anti).Func()
		for _, x := range points {
			want, err := p.Evaluator.Eval(x)
			if err != nil {
				t.Fatalf("%s at %g: %v", src, x, err)
			}
			if got := centralDiff(F, x); !closeTo(got, want, 1e-5) {
				t.Errorf("d/dx ∫ %s at %g = %.10g, want %.10g (antiderivative %s)", src, x, got, want, anti)
			}
		}
	}
}

func TestAntiderivative_NoClosedForm(t *testing.T) {
	for _, src := range []string{"exp(x**2)", "sin(x)/x", "sin(x**2)", "x**x"} {
		p := mustParse(t, src)
		_, err := funcan.Antiderivative(p.Expr)
		if !errors.Is(err, funcan.ErrSymbolic) {
			t.Errorf("∫ %s error = %v, want ErrSymbolic", src, err)
		}
	}
}

// The printed form of a symbolic result must parse back to the same
// function.
func TestRoundTrip_Reparse(t *testing.T) {
	cases := []string{
		"x**2 + 3*x + 5",
		"x*exp(-x)",
		"sin(x)**2",
		"1/(x**2 + 1)",
		"sqrt(x**2 + 1)",
		"x**3/7 - 2*x",
		"cos(pi*x)",
	}
	points := []float64{-1.5, 0.25, 2}
	for _, src := range cases {
		p := mustParse(t, src)
		exprs := []funcan.Expr{funcan.Derivative(p.Expr)}
		if anti, err := funcan.Antiderivative(p.Expr); err == nil {
			exprs = append(exprs, anti)
		}
		for _, e := range exprs {
			direct := mustCompile(t, e)
			back := mustParse(t, e.String())
			for _, x := range points {
				a, errA := direct.Eval(x)
				b, errB := back.Evaluator.Eval(x)
				if errA != nil || errB != nil {
					t.Errorf("%s at %g: %v / %v", e, x, errA, errB)
					continue
				}
				if !closeTo(a, b, 1e-12) {
					t.Errorf("re-parsed %s at %g = %g, direct %g", e, x, b, a)
				}
			}
		}
	}
}

func TestExpand(t *testing.T) {
	p := mustParse(t, "(x + 1)**2")
	got := funcan.Expand(p.Expr).String()
	if got != "x**2 + 2*x + 1" {
		t.Errorf("Expand((x + 1)**2) = %s", got)
	}
}

func TestDegree(t *testing.T) {
	cases := []struct {
		in   string
		want int
	}{
		{"x**3 + x", 3},
		{"5", 0},
		{"(x + 1)*x", 2},
		{"sin(x)", -1},
		{"1/x", -1},
	}
	for _, c := range cases {
		if got := funcan.Degree(mustParse(t, c.in).Expr, funcan.Var); got != c.want {
			t.Errorf("Degree(%s) = %d, want %d", c.in, got, c.want)
		}
	}
}

func TestConstantSimplification(t *testing.T) {
	e := funcan.SqrtOf(funcan.F(9, 4))
	if e.String() != "3/2" {
		t.Errorf("sqrt(9/4) = %s", e)
	}
	if got := funcan.LogOf(funcan.Euler).String(); got != "1" {
		t.Errorf("log(e) = %s", got)
	}
	if got := funcan.CosOf(funcan.N(0)).String(); got != "1" {
		t.Errorf("cos(0) = %s", got)
	}
	v, err := mustCompile(t, funcan.SqrtOf(funcan.N(2))).Eval(0)
	if err != nil || !closeTo(v, math.Sqrt2, 1e-15) {
		t.Errorf("sqrt(2) = %g, %v", v, err)
	}
}

func TestDerivative_EveryFunction(t *testing.T) {
	for _, name := range []string{
		"sin", "cos", "tan", "exp", "log", "ln", "sqrt", "abs", "asin", "acos",
		"atan", "sinh", "cosh", "tanh", "floor", "ceil", "sign",
	} {
		e := mustParse(t, name+"(x/2)").Expr
		d := funcan.Derivative(e)
		if _, err := funcan.Compile(d); err != nil {
			t.Errorf("d/dx %s = %s does not compile: %v", e, d, err)
		}
	}
}
