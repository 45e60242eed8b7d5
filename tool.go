package funcan

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"math/big"
	"sort"
	"strings"
)

// ============================================================
// JSON Serialization
// ============================================================

func ToJSON(e Expr) (string, error) {
	b, err := json.Marshal(e.toJSON())
	return string(b), err
}

// FromJSON rebuilds an Expr from the tree produced by ToJSON.
func FromJSON(data map[string]interface{}) (Expr, error) {
	if data == nil {
		return nil, fmt.Errorf("expression must be an object")
	}
	typ, ok := data["type"].(string)
	if !ok || typ == "" {
		return nil, fmt.Errorf("field 'type' must be a non-empty string")
	}

	str := func(field string) (string, error) {
		s, ok := data[field].(string)
		if !ok || s == "" {
			return "", fmt.Errorf("%s: %q must be a non-empty string", typ, field)
		}
		return s, nil
	}
	child := func(field string) (Expr, error) {
		m, ok := data[field].(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("%s: %q must be an object", typ, field)
		}
		e, err := FromJSON(m)
		if err != nil {
			return nil, fmt.Errorf("%s: %s: %w", typ, field, err)
		}
		return e, nil
	}
	children := func(field string) ([]Expr, error) {
		raw, ok := data[field].([]interface{})
		if !ok {
			return nil, fmt.Errorf("%s: %q must be an array", typ, field)
		}
		out := make([]Expr, len(raw))
		for i, it := range raw {
			m, ok := it.(map[string]interface{})
			if !ok {
				return nil, fmt.Errorf("%s: %q[%d] must be an object", typ, field, i)
			}
			e, err := FromJSON(m)
			if err != nil {
				return nil, fmt.Errorf("%s: %s[%d]: %w", typ, field, i, err)
			}
			out[i] = e
		}
		return out, nil
	}

	switch typ {
	case "num":
		val, err := str("value")
		if err != nil {
			return nil, err
		}
		r, ok := new(big.Rat).SetString(val)
		if !ok {
			return nil, fmt.Errorf("invalid num value: %s", val)
		}
		return &Num{val: r}, nil
	case "sym":
		name, err := str("name")
		if err != nil {
			return nil, err
		}
		return S(name), nil
	case "const":
		name, err := str("name")
		if err != nil {
			return nil, err
		}
		c, ok := constNamed(name)
		if !ok {
			return nil, fmt.Errorf("unknown constant: %s", name)
		}
		return c, nil
	case "add":
		terms, err := children("terms")
		if err != nil {
			return nil, err
		}
		return AddOf(terms...), nil
	case "mul":
		factors, err := children("factors")
		if err != nil {
			return nil, err
		}
		return MulOf(factors...), nil
	case "pow":
		base, err := child("base")
		if err != nil {
			return nil, err
		}
		exp, err := child("exp")
		if err != nil {
			return nil, err
		}
		return PowOf(base, exp), nil
	case "func":
		name, err := str("name")
		if err != nil {
			return nil, err
		}
		build, ok := builders[name]
		if !ok {
			return nil, fmt.Errorf("unknown function: %s", name)
		}
		arg, err := child("arg")
		if err != nil {
			return nil, err
		}
		return build(arg), nil
	}
	return nil, fmt.Errorf("unknown expression type: %s", typ)
}

// ============================================================
// Result JSON
// ============================================================

type derivativeJSON struct {
	Symbolic string    `json:"symbolic,omitempty"`
	Values   []float64 `json:"values,omitempty"`
	AtMin    *float64  `json:"at_min,omitempty"`
	AtMax    *float64  `json:"at_max,omitempty"`
	Error    string    `json:"error,omitempty"`
}

type integralJSON struct {
	Symbolic string    `json:"symbolic,omitempty"`
	Values   []float64 `json:"values,omitempty"`
	Definite *float64  `json:"definite,omitempty"`
	Error    string    `json:"error,omitempty"`
}

type resultJSON struct {
	ID         string          `json:"id"`
	Function   string          `json:"function"`
	Expr       string          `json:"expr"`
	LaTeX      string          `json:"latex"`
	XMin       float64         `json:"x_min"`
	XMax       float64         `json:"x_max"`
	Operation  string          `json:"operation"`
	X          []float64       `json:"x"`
	Y          []float64       `json:"y"`
	Derivative *derivativeJSON `json:"derivative,omitempty"`
	Integral   *integralJSON   `json:"integral,omitempty"`
}

func finitePtr(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func exprString(e Expr) string {
	if e == nil {
		return ""
	}
	return e.String()
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return oneLine(err)
}

// MarshalJSON encodes the bundle with expressions as strings. Values that
// could not be computed are omitted.
func (r *Result) MarshalJSON() ([]byte, error) {
	out := resultJSON{
		ID:        r.ID,
		Function:  r.Func,
		Expr:      exprString(r.Expr),
		XMin:      r.XMin,
		XMax:      r.XMax,
		Operation: r.Op.String(),
		X:         r.X,
		Y:         r.Y,
	}
	if r.Expr != nil {
		out.LaTeX = r.Expr.LaTeX()
	}
	if d := r.Derivative; d != nil {
		dj := &derivativeJSON{Symbolic: exprString(d.Symbolic), Values: d.Values, Error: errString(d.Err)}
		if d.Values != nil {
			dj.AtMin, dj.AtMax = finitePtr(d.AtMin), finitePtr(d.AtMax)
		}
		out.Derivative = dj
	}
	if in := r.Integral; in != nil {
		out.Integral = &integralJSON{
			Symbolic: exprString(in.Symbolic),
			Values:   in.Values,
			Definite: finitePtr(in.Definite),
			Error:    errString(in.Err),
		}
	}
	return json.Marshal(out)
}

// ============================================================
// MCP Tool Interface
// ============================================================

type ToolRequest struct {
	Tool   string                 `json:"tool"`
	Params map[string]interface{} `json:"params"`
}

type ToolResponse struct {
	Result interface{} `json:"result,omitempty"`
	LaTeX  string      `json:"latex,omitempty"`
	String string      `json:"string,omitempty"`
	Error  string      `json:"error,omitempty"`
}

// HandleToolCall dispatches req with the default analyzer.
func HandleToolCall(req ToolRequest) ToolResponse {
	return defaultAnalyzer.HandleToolCall(context.Background(), req)
}

// HandleToolCall runs one tool. Expression params may be formula strings
// or expression trees as produced by ToJSON.
func (a *Analyzer) HandleToolCall(ctx context.Context, req ToolRequest) ToolResponse {
	getExpr := func(key string) (Expr, error) {
		v, ok := req.Params[key]
		if !ok {
			return nil, fmt.Errorf("missing param: %s", key)
		}
		switch val := v.(type) {
		case string:
			p, err := Parse(val)
			if err != nil {
				return nil, err
			}
			return p.Expr, nil
		case map[string]interface{}:
			return FromJSON(val)
		}
		return nil, fmt.Errorf("param %s must be a formula string or expression object", key)
	}
	getString := func(key, def string) (string, error) {
		v, ok := req.Params[key]
		if !ok {
			return def, nil
		}
		s, ok := v.(string)
		if !ok {
			return "", fmt.Errorf("param %s must be a string", key)
		}
		return s, nil
	}
	getNumber := func(key string) (float64, error) {
		v, ok := req.Params[key]
		if !ok {
			return 0, fmt.Errorf("missing param: %s", key)
		}
		f, ok := v.(float64)
		if !ok {
			return 0, fmt.Errorf("param %s must be a number", key)
		}
		return f, nil
	}
	// Range bounds arrive as numbers from JSON clients and as text from
	// form-style clients; both are accepted.
	getBound := func(key string) (string, error) {
		switch v := req.Params[key].(type) {
		case string:
			return v, nil
		case float64:
			return fmt.Sprint(v), nil
		case nil:
			return "", fmt.Errorf("missing param: %s", key)
		}
		return "", fmt.Errorf("param %s must be a number", key)
	}
	fail := func(err error) ToolResponse { return ToolResponse{Error: err.Error()} }
	respond := func(e Expr) ToolResponse {
		return ToolResponse{Result: e.toJSON(), LaTeX: LaTeX(e), String: String(e)}
	}

	switch req.Tool {
	case "parse":
		e, err := getExpr("expr")
		if err != nil {
			return fail(err)
		}
		return respond(e)

	case "diff":
		e, err := getExpr("expr")
		if err != nil {
			return fail(err)
		}
		v, err := getString("var", Var)
		if err != nil {
			return fail(err)
		}
		return respond(Diff(e, v))

	case "integrate":
		e, err := getExpr("expr")
		if err != nil {
			return fail(err)
		}
		v, err := getString("var", Var)
		if err != nil {
			return fail(err)
		}
		r, ok := Integrate(e, v)
		if !ok {
			return fail(newError(KindSymbolic, "integrate", fmt.Sprintf("no closed form found for %s", e), nil))
		}
		return respond(r)

	case "definite_integrate":
		e, err := getExpr("expr")
		if err != nil {
			return fail(err)
		}
		lo, err := getNumber("a")
		if err != nil {
			return fail(err)
		}
		hi, err := getNumber("b")
		if err != nil {
			return fail(err)
		}
		ev, err := Compile(e)
		if err != nil {
			return fail(err)
		}
		val, err := DefiniteIntegral(ev, lo, hi, a.quad)
		a.metrics.RecordQuadrature(ctx, 1)
		if err != nil {
			return fail(err)
		}
		return ToolResponse{Result: val, String: fmt.Sprintf("%.10g", val)}

	case "sample":
		e, err := getExpr("expr")
		if err != nil {
			return fail(err)
		}
		lo, err := getNumber("min")
		if err != nil {
			return fail(err)
		}
		hi, err := getNumber("max")
		if err != nil {
			return fail(err)
		}
		n := a.samples
		if _, ok := req.Params["n"]; ok {
			nv, err := getNumber("n")
			if err != nil {
				return fail(err)
			}
			if nv != math.Trunc(nv) || nv < 2 || nv > float64(a.maxSamples) {
				return fail(newError(KindRangeFormat, "sample",
					fmt.Sprintf("n must be a whole number in [2, %d], got %g", a.maxSamples, nv), nil))
			}
			n = int(nv)
		}
		ev, err := Compile(e)
		if err != nil {
			return fail(err)
		}
		grid, err := NewGrid(lo, hi, n)
		if err != nil {
			return fail(err)
		}
		ys, err := Sample(ev, grid)
		if err != nil {
			return fail(err)
		}
		return ToolResponse{Result: map[string]interface{}{"x": grid.X, "y": ys}, String: String(e)}

	case "analyze":
		text, err := getString("function", "")
		if err != nil {
			return fail(err)
		}
		lo, err := getBound("min")
		if err != nil {
			return fail(err)
		}
		hi, err := getBound("max")
		if err != nil {
			return fail(err)
		}
		opText, err := getString("operation", "diff")
		if err != nil {
			return fail(err)
		}
		op, err := ParseOperation(opText)
		if err != nil {
			return fail(err)
		}
		res, err := a.Analyze(ctx, Request{Func: text, XMin: lo, XMax: hi, Op: op})
		if err != nil {
			return fail(err)
		}
		var sb strings.Builder
		if err := WriteReport(&sb, res); err != nil {
			return fail(err)
		}
		return ToolResponse{Result: res, LaTeX: res.Expr.LaTeX(), String: sb.String()}

	case "to_latex":
		e, err := getExpr("expr")
		if err != nil {
			return fail(err)
		}
		return ToolResponse{Result: LaTeX(e), LaTeX: LaTeX(e), String: String(e)}

	case "free_symbols":
		e, err := getExpr("expr")
		if err != nil {
			return fail(err)
		}
		names := make([]string, 0)
		for name := range FreeSymbols(e) {
			names = append(names, name)
		}
		sort.Strings(names)
		return ToolResponse{Result: names, String: strings.Join(names, ", ")}

	case "mcp_spec":
		return ToolResponse{Result: MCPToolSpec()}
	}
	return ToolResponse{Error: fmt.Sprintf("unknown tool: %s", req.Tool)}
}

// MCPToolSpec returns the JSON tool schema served at /schema.
func MCPToolSpec() string {
	tools := []map[string]interface{}{
		ts("parse", "Parse a formula in x into an expression tree", []string{"expr"}, map[string]string{"expr": "string"}),
		ts("diff", "Symbolic derivative d/dx", []string{"expr"}, map[string]string{"expr": "string", "var": "string"}),
		ts("integrate", "Symbolic antiderivative (rule-based, no constant)", []string{"expr"}, map[string]string{"expr": "string", "var": "string"}),
		ts("definite_integrate", "Adaptive quadrature of expr from a to b", []string{"expr", "a", "b"}, map[string]string{"expr": "string", "a": "number", "b": "number"}),
		ts("sample", "Evaluate expr on n evenly spaced points over [min, max]", []string{"expr", "min", "max"}, map[string]string{"expr": "string", "min": "number", "max": "number", "n": "integer"}),
		ts("analyze", "Full analysis: curve, derivative and/or integral. operation is diff, int or both", []string{"function", "min", "max"}, map[string]string{"function": "string", "min": "number", "max": "number", "operation": "string"}),
		ts("to_latex", "Convert to LaTeX", []string{"expr"}, map[string]string{"expr": "string"}),
		ts("free_symbols", "Return free symbol names", []string{"expr"}, map[string]string{"expr": "string"}),
		ts("mcp_spec", "Return this tool schema", []string{}, map[string]string{}),
	}
	spec := map[string]interface{}{"tools": tools}
	b, _ := json.MarshalIndent(spec, "", "  ")
	return string(b)
}

func ts(name, description string, required []string, props map[string]string) map[string]interface{} {
	properties := map[string]interface{}{}
	for k, typ := range props {
		properties[k] = map[string]interface{}{"type": typ}
	}
	return map[string]interface{}{
		"name":        name,
		"description": description,
		"inputSchema": map[string]interface{}{
			"type":       "object",
			"properties": properties,
			"required":   required,
		},
	}
}
