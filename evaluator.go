package funcan

import (
	"fmt"
	"math"
)

// ============================================================
// Evaluator — compiled numeric form of an Expr
// ============================================================

type evalFunc func(x float64) (float64, error)

// Evaluator is a pure numeric function compiled from an Expr. It holds no
// mutable state and may be shared and reused across grids.
type Evaluator struct {
	expr Expr
	fn   evalFunc
}

// Compile turns e into an Evaluator over the variable x. Symbols other than
// x are rejected.
func Compile(e Expr) (*Evaluator, error) {
	for name := range FreeSymbols(e) {
		if name != Var {
			return nil, newError(KindParse, "compile", fmt.Sprintf("undefined symbol %q", name), nil)
		}
	}
	return &Evaluator{expr: e, fn: compileExpr(e)}, nil
}

func (ev *Evaluator) Expr() Expr { return ev.expr }

// Eval evaluates at a single point. A domain failure anywhere in the tree
// is an evaluation error naming the offending operation.
func (ev *Evaluator) Eval(x float64) (float64, error) {
	v, err := ev.fn(x)
	if err != nil {
		return math.NaN(), newError(KindEvaluation, "eval", fmt.Sprintf("at x=%g", x), err)
	}
	return v, nil
}

// EvalSlice evaluates every element of xs and returns a slice of the same
// length. It stops at the first failing point.
func (ev *Evaluator) EvalSlice(xs []float64) ([]float64, error) {
	out := make([]float64, len(xs))
	for i, x := range xs {
		v, err := ev.Eval(x)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// Func adapts the evaluator to a plain float function; failures yield NaN.
func (ev *Evaluator) Func() func(float64) float64 {
	return func(x float64) float64 {
		v, err := ev.fn(x)
		if err != nil {
			return math.NaN()
		}
		return v
	}
}

// domainError reports a non-finite result produced from finite inputs.
type domainError struct {
	op   string
	args []float64
	res  float64
}

func (e *domainError) Error() string {
	switch {
	case math.IsNaN(e.res), e.op == "log":
		return fmt.Sprintf("%s undefined for %v", e.op, e.args)
	case e.op == "pow" && len(e.args) == 2 && e.args[0] == 0:
		return "division by zero"
	default:
		return fmt.Sprintf("%s overflows for %v", e.op, e.args)
	}
}

func checked(op string, res float64, args ...float64) (float64, error) {
	if !math.IsNaN(res) && !math.IsInf(res, 0) {
		return res, nil
	}
	for _, a := range args {
		if math.IsNaN(a) || math.IsInf(a, 0) {
			return res, nil
		}
	}
	return res, &domainError{op: op, args: args, res: res}
}

func compileExpr(e Expr) evalFunc {
	switch v := e.(type) {
	case *Num:
		c := v.Float64()
		return func(float64) (float64, error) { return c, nil }
	case *Const:
		c := v.val
		return func(float64) (float64, error) { return c, nil }
	case *Sym:
		return func(x float64) (float64, error) { return x, nil }
	case *Add:
		terms := make([]evalFunc, len(v.terms))
		for i, t := range v.terms {
			terms[i] = compileExpr(t)
		}
		return func(x float64) (float64, error) {
			acc := 0.0
			for _, t := range terms {
				tv, err := t(x)
				if err != nil {
					return 0, err
				}
				prev := acc
				acc += tv
				if _, err := checked("add", acc, prev, tv); err != nil {
					return 0, err
				}
			}
			return acc, nil
		}
	case *Mul:
		factors := make([]evalFunc, len(v.factors))
		for i, f := range v.factors {
			factors[i] = compileExpr(f)
		}
		return func(x float64) (float64, error) {
			acc := 1.0
			for _, f := range factors {
				fv, err := f(x)
				if err != nil {
					return 0, err
				}
				prev := acc
				acc *= fv
				if _, err := checked("mul", acc, prev, fv); err != nil {
					return 0, err
				}
			}
			return acc, nil
		}
	case *Pow:
		return compilePow(v)
	case *Func:
		return compileFunc(v)
	}
	return func(float64) (float64, error) {
		return 0, fmt.Errorf("cannot evaluate %s", e.exprType())
	}
}

func compilePow(p *Pow) evalFunc {
	base := compileExpr(p.base)
	if en, ok := p.exp.(*Num); ok {
		if n, ok2 := en.smallInt(); ok2 && n == 2 {
			return func(x float64) (float64, error) {
				b, err := base(x)
				if err != nil {
					return 0, err
				}
				return checked("pow", b*b, b, 2)
			}
		}
		if en.Equal(F(1, 2)) {
			return func(x float64) (float64, error) {
				b, err := base(x)
				if err != nil {
					return 0, err
				}
				return checked("sqrt", math.Sqrt(b), b)
			}
		}
	}
	exp := compileExpr(p.exp)
	return func(x float64) (float64, error) {
		b, err := base(x)
		if err != nil {
			return 0, err
		}
		e, err := exp(x)
		if err != nil {
			return 0, err
		}
		return checked("pow", math.Pow(b, e), b, e)
	}
}

var unary = map[string]func(float64) float64{
	"sin":   math.Sin,
	"cos":   math.Cos,
	"tan":   math.Tan,
	"exp":   math.Exp,
	"asin":  math.Asin,
	"acos":  math.Acos,
	"atan":  math.Atan,
	"sinh":  math.Sinh,
	"cosh":  math.Cosh,
	"tanh":  math.Tanh,
	"abs":   math.Abs,
	"floor": math.Floor,
	"ceil":  math.Ceil,
	"sign": func(v float64) float64 {
		switch {
		case v > 0:
			return 1
		case v < 0:
			return -1
		}
		return 0
	},
	// math.Log returns -Inf at 0 and NaN below; both are domain errors.
	"log": math.Log,
}

func compileFunc(f *Func) evalFunc {
	arg := compileExpr(f.arg)
	fn, ok := unary[f.name]
	if !ok {
		name := f.name
		return func(float64) (float64, error) {
			return 0, fmt.Errorf("unknown function %s", name)
		}
	}
	name := f.name
	return func(x float64) (float64, error) {
		a, err := arg(x)
		if err != nil {
			return 0, err
		}
		return checked(name, fn(a), a)
	}
}
