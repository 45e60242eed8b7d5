package funcan

import (
	"errors"
	"fmt"
	"math/big"
	"strings"
	"text/scanner"
)

// ============================================================
// Parser — formula text to Expr
// ============================================================

// Parsed is the result of parsing a formula: its symbolic form and the
// evaluator compiled from it.
type Parsed struct {
	Text      string
	Expr      Expr
	Evaluator *Evaluator
}

// Parse reads a formula in the single variable x. The caret is accepted as
// a synonym for **. Arithmetic follows Python precedence: ** binds tighter
// than unary minus, which binds tighter than * and /.
func Parse(text string) (*Parsed, error) {
	src := strings.TrimSpace(text)
	if src == "" {
		return nil, newError(KindEmptyInput, "parse", "formula is empty", nil)
	}
	src = strings.ReplaceAll(src, "^", "**")

	e, err := ParseExpr(src)
	if err != nil {
		return nil, err
	}
	ev, err := Compile(e)
	if err != nil {
		return nil, err
	}
	return &Parsed{Text: src, Expr: e, Evaluator: ev}, nil
}

// ParseExpr parses src into a simplified Expr without compiling it.
func ParseExpr(src string) (e Expr, err error) {
	p := &parser{}
	p.s.Init(strings.NewReader(src))
	p.s.Mode = scanner.ScanIdents | scanner.ScanInts | scanner.ScanFloats
	p.s.Error = func(s *scanner.Scanner, msg string) {
		if p.err == nil {
			p.err = p.errorf(s.Pos().Offset, "%s", msg)
		}
	}
	p.next()

	e = p.expression()
	if p.err == nil && p.tok != scanner.EOF {
		p.fail("unexpected %q", p.text)
	}
	if p.err != nil {
		return nil, p.err
	}
	return e.Simplify(), nil
}

type parser struct {
	s    scanner.Scanner
	tok  rune
	text string
	pos  int
	err  *Error
}

// starstar stands in for the two-character power operator.
const starstar rune = -100

func (p *parser) next() {
	p.tok = p.s.Scan()
	p.text = p.s.TokenText()
	p.pos = p.s.Position.Offset
	if p.tok == '*' && p.s.Peek() == '*' {
		p.s.Next()
		p.tok = starstar
		p.text = "**"
	}
}

func (p *parser) errorf(pos int, format string, args ...any) *Error {
	return &Error{Kind: KindParse, Op: "parse", Pos: pos, Msg: fmt.Sprintf(format, args...)}
}

func (p *parser) fail(format string, args ...any) {
	if p.err == nil {
		p.err = p.errorf(p.pos, format, args...)
	}
}

func (p *parser) expect(tok rune, what string) {
	if p.tok != tok {
		if p.tok == scanner.EOF {
			p.fail("expected %s, got end of input", what)
		} else {
			p.fail("expected %s, got %q", what, p.text)
		}
		return
	}
	p.next()
}

// expression := term (('+' | '-') term)*
func (p *parser) expression() Expr {
	terms := []Expr{p.term()}
	for p.err == nil && (p.tok == '+' || p.tok == '-') {
		op := p.tok
		p.next()
		t := p.term()
		if op == '-' {
			t = MulOf(N(-1), t)
		}
		terms = append(terms, t)
	}
	if len(terms) == 1 {
		return terms[0]
	}
	return AddOf(terms...)
}

// term := unary (('*' | '/') unary)*
func (p *parser) term() Expr {
	left := p.unary()
	for p.err == nil && (p.tok == '*' || p.tok == '/') {
		op := p.tok
		p.next()
		right := p.unary()
		if p.err != nil {
			return left
		}
		if op == '/' {
			// 1/0 survives as 0**(-1) and fails when evaluated.
			right = PowOf(right, N(-1))
		}
		left = MulOf(left, right)
	}
	return left
}

// unary := ('+' | '-') unary | power
func (p *parser) unary() Expr {
	switch p.tok {
	case '-':
		p.next()
		return MulOf(N(-1), p.unary())
	case '+':
		p.next()
		return p.unary()
	}
	return p.power()
}

// power := atom ('**' unary)?
func (p *parser) power() Expr {
	base := p.atom()
	if p.err == nil && p.tok == starstar {
		p.next()
		exp := p.unary()
		return PowOf(base, exp)
	}
	return base
}

// atom := number | name | name '(' expression ')' | '(' expression ')'
func (p *parser) atom() Expr {
	if p.err != nil {
		return N(0)
	}
	switch p.tok {
	case scanner.Int, scanner.Float:
		r, ok := new(big.Rat).SetString(p.text)
		if !ok {
			p.fail("invalid number %q", p.text)
			return N(0)
		}
		p.next()
		return &Num{val: r}
	case scanner.Ident:
		name, pos := p.text, p.pos
		p.next()
		if p.tok == '(' {
			return p.call(name, pos)
		}
		if name == Var {
			return S(Var)
		}
		if c, ok := constNamed(name); ok {
			return c
		}
		if _, ok := builders[name]; ok {
			p.err = p.errorf(pos, "function %s needs an argument", name)
			return N(0)
		}
		p.err = p.errorf(pos, "undefined symbol %q", name)
		return N(0)
	case '(':
		p.next()
		e := p.expression()
		p.expect(')', "')'")
		return e
	case scanner.EOF:
		p.fail("unexpected end of input")
	default:
		p.fail("unexpected %q", p.text)
	}
	return N(0)
}

func (p *parser) call(name string, pos int) Expr {
	build, ok := builders[name]
	if !ok {
		p.err = p.errorf(pos, "unknown function %q", name)
		return N(0)
	}
	p.next() // '('
	arg := p.expression()
	if p.err == nil && p.tok == ',' {
		p.fail("%s takes exactly one argument", name)
		return N(0)
	}
	p.expect(')', "')'")
	if p.err != nil {
		return N(0)
	}
	return build(arg)
}

// IsParseError reports whether err is a parse failure.
func IsParseError(err error) bool { return errors.Is(err, ErrParse) }
