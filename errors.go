package funcan

import (
	"errors"
	"fmt"
)

// Kind classifies a failure of the computational core.
type Kind int

const (
	KindEmptyInput Kind = iota + 1
	KindParse
	KindRangeFormat
	KindRangeOrder
	KindEvaluation
	KindSymbolic
)

func (k Kind) String() string {
	switch k {
	case KindEmptyInput:
		return "empty_input"
	case KindParse:
		return "parse"
	case KindRangeFormat:
		return "range_format"
	case KindRangeOrder:
		return "range_order"
	case KindEvaluation:
		return "evaluation"
	case KindSymbolic:
		return "symbolic"
	}
	return "unknown"
}

// Sentinels for errors.Is. Every *Error matches the sentinel of its Kind.
var (
	ErrEmptyInput  = errors.New("funcan: empty input")
	ErrParse       = errors.New("funcan: parse error")
	ErrRangeFormat = errors.New("funcan: invalid range")
	ErrRangeOrder  = errors.New("funcan: range out of order")
	ErrEvaluation  = errors.New("funcan: evaluation error")
	ErrSymbolic    = errors.New("funcan: no closed form")
)

func (k Kind) sentinel() error {
	switch k {
	case KindEmptyInput:
		return ErrEmptyInput
	case KindParse:
		return ErrParse
	case KindRangeFormat:
		return ErrRangeFormat
	case KindRangeOrder:
		return ErrRangeOrder
	case KindEvaluation:
		return ErrEvaluation
	case KindSymbolic:
		return ErrSymbolic
	}
	return nil
}

// Error is the tagged error value returned by the core. Op names the
// operation that failed; Pos is a byte offset into the input for parse
// errors and -1 otherwise.
type Error struct {
	Kind Kind
	Op   string
	Pos  int
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	msg := e.Msg
	if e.Err != nil {
		if msg == "" {
			msg = e.Err.Error()
		} else {
			msg = msg + ": " + e.Err.Error()
		}
	}
	if e.Pos >= 0 && e.Kind == KindParse {
		return fmt.Sprintf("%s: %s at offset %d", e.Op, msg, e.Pos)
	}
	return e.Op + ": " + msg
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	return target != nil && target == e.Kind.sentinel()
}

func newError(kind Kind, op, msg string, cause error) *Error {
	return &Error{Kind: kind, Op: op, Pos: -1, Msg: msg, Err: cause}
}

// KindOf reports the Kind of the first *Error in err's chain, or 0.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}
