package funcan

import "fmt"

// ============================================================
// Symbolic differentiation and integration
// ============================================================

// Derivative returns d/dx of e.
func Derivative(e Expr) Expr { return Diff(e, Var) }

// Antiderivative returns an antiderivative of e in x without the constant
// of integration. A form outside the rule set yields a KindSymbolic error.
func Antiderivative(e Expr) (Expr, error) {
	r, ok := Integrate(e, Var)
	if !ok {
		return nil, newError(KindSymbolic, "integrate", fmt.Sprintf("no closed form found for %s", e), nil)
	}
	return r, nil
}

// maxByParts bounds the polynomial degree handled by repeated integration
// by parts.
const maxByParts = 12

// Integrate is rule-based: linearity, constant factors, the power rule,
// linear substitution for the elementary functions, expansion of products
// and integration by parts for polynomial times sin/cos/exp. The boolean
// is false when no rule applies.
func Integrate(expr Expr, varName string) (Expr, bool) {
	expr = expr.Simplify()
	if isFree(expr, varName) {
		return MulOf(expr, S(varName)), true
	}
	switch v := expr.(type) {
	case *Sym:
		// v.name == varName, otherwise it was free.
		return MulOf(F(1, 2), PowOf(S(varName), N(2))), true
	case *Add:
		terms := make([]Expr, len(v.terms))
		for i, t := range v.terms {
			intT, ok := Integrate(t, varName)
			if !ok {
				return nil, false
			}
			terms[i] = intT
		}
		return AddOf(terms...), true
	case *Mul:
		return integrateProduct(v, varName)
	case *Pow:
		return integratePow(v, varName)
	case *Func:
		return integrateFunc(v, varName)
	}
	return nil, false
}

func integrateProduct(m *Mul, varName string) (Expr, bool) {
	coeff := []Expr{}
	rest := []Expr{}
	for _, f := range m.factors {
		if isFree(f, varName) {
			coeff = append(coeff, f)
		} else {
			rest = append(rest, f)
		}
	}
	if len(coeff) > 0 {
		inner, ok := Integrate(MulOf(rest...), varName)
		if !ok {
			return nil, false
		}
		return MulOf(append(coeff, inner)...), true
	}

	if expanded := Expand(m); !expanded.Equal(m) {
		return Integrate(expanded, varName)
	}
	return integrateByParts(rest, varName)
}

// integrateByParts handles p(x)*g(x) with p a polynomial and g a
// sin/cos/exp of a linear argument:
//
//	∫p·g = p·G1 − p'·G2 + p''·G3 − …
//
// where Gk is the k-th repeated antiderivative of g.
func integrateByParts(factors []Expr, varName string) (Expr, bool) {
	if len(factors) < 2 {
		return nil, false
	}
	var poly []Expr
	var g Expr
	for _, f := range factors {
		if fn, ok := f.(*Func); ok && g == nil {
			switch fn.name {
			case "sin", "cos", "exp":
				if _, _, lin := linearCoeffs(fn.arg, varName); lin {
					g = fn
					continue
				}
			}
		}
		poly = append(poly, f)
	}
	if g == nil {
		return nil, false
	}
	p := MulOf(poly...)
	deg := Degree(p, varName)
	if deg < 1 || deg > maxByParts {
		return nil, false
	}

	terms := []Expr{}
	sign := int64(1)
	G := g
	for i := 0; i <= deg; i++ {
		next, ok := Integrate(G, varName)
		if !ok {
			return nil, false
		}
		G = next
		terms = append(terms, MulOf(N(sign), p, G))
		p = Diff(p, varName)
		sign = -sign
	}
	return Expand(AddOf(terms...)), true
}

func integratePow(v *Pow, varName string) (Expr, bool) {
	// (a*x + b)**n
	if isFree(v.exp, varName) {
		a, _, lin := linearCoeffs(v.base, varName)
		if !lin {
			if r, ok := integrateInverseQuadratic(v, varName); ok {
				return r, true
			}
			return integrateExpanded(v, varName)
		}
		if n, ok := v.exp.(*Num); ok && n.IsNegOne() {
			return MulOf(PowOf(a, N(-1)), LogOf(AbsOf(v.base))), true
		}
		newExp := AddOf(v.exp, N(1))
		return MulOf(PowOf(MulOf(a, newExp), N(-1)), PowOf(v.base, newExp)), true
	}
	// c**(a*x + b)
	if isFree(v.base, varName) {
		a, _, lin := linearCoeffs(v.exp, varName)
		if !lin {
			return nil, false
		}
		return MulOf(v, PowOf(MulOf(a, LogOf(v.base)), N(-1))), true
	}
	return nil, false
}

// integrateInverseQuadratic covers 1/(x**2 + c) with c > 0.
func integrateInverseQuadratic(v *Pow, varName string) (Expr, bool) {
	n, ok := v.exp.(*Num)
	if !ok || !n.IsNegOne() || Degree(v.base, varName) != 2 {
		return nil, false
	}
	c := Sub(v.base, varName, N(0))
	lead := Sub(Diff(Diff(v.base, varName), varName), varName, N(0))
	lin := Sub(Diff(v.base, varName), varName, N(0))
	cn, ok1 := c.(*Num)
	ln, ok2 := lead.(*Num)
	if !ok1 || !ok2 || !isNumZero(lin) || !cn.IsPositive() || !ln.IsPositive() {
		return nil, false
	}
	// base = k*x**2 + c with k = lead/2
	k := numMul(ln, F(1, 2))
	// ∫ 1/(k x² + c) = atan(x·sqrt(k/c)) / sqrt(k·c)
	ratio := numMul(k, numRecip(cn))
	prod := numMul(k, cn)
	return MulOf(PowOf(SqrtOf(prod), N(-1)), AtanOf(MulOf(SqrtOf(ratio), S(varName)))), true
}

func integrateExpanded(e Expr, varName string) (Expr, bool) {
	expanded := Expand(e)
	if expanded.Equal(e) {
		return nil, false
	}
	return Integrate(expanded, varName)
}

func integrateFunc(v *Func, varName string) (Expr, bool) {
	a, _, lin := linearCoeffs(v.arg, varName)
	if !lin {
		return nil, false
	}
	inv := PowOf(a, N(-1))
	u := v.arg
	switch v.name {
	case "sin":
		return MulOf(N(-1), inv, CosOf(u)), true
	case "cos":
		return MulOf(inv, SinOf(u)), true
	case "exp":
		return MulOf(inv, ExpOf(u)), true
	case "tan":
		return MulOf(N(-1), inv, LogOf(AbsOf(CosOf(u)))), true
	case "sinh":
		return MulOf(inv, CoshOf(u)), true
	case "cosh":
		return MulOf(inv, SinhOf(u)), true
	case "tanh":
		return MulOf(inv, LogOf(CoshOf(u))), true
	case "log":
		return MulOf(inv, AddOf(MulOf(u, LogOf(u)), MulOf(N(-1), u))), true
	case "asin":
		return MulOf(inv, AddOf(
			MulOf(u, AsinOf(u)),
			SqrtOf(AddOf(N(1), MulOf(N(-1), PowOf(u, N(2))))),
		)), true
	case "acos":
		return MulOf(inv, AddOf(
			MulOf(u, AcosOf(u)),
			MulOf(N(-1), SqrtOf(AddOf(N(1), MulOf(N(-1), PowOf(u, N(2)))))),
		)), true
	case "atan":
		return MulOf(inv, AddOf(
			MulOf(u, AtanOf(u)),
			MulOf(F(-1, 2), LogOf(AddOf(N(1), PowOf(u, N(2))))),
		)), true
	case "abs":
		return MulOf(F(1, 2), inv, u, AbsOf(u)), true
	}
	return nil, false
}

func isNumZero(e Expr) bool {
	n, ok := e.(*Num)
	return ok && n.IsZero()
}
