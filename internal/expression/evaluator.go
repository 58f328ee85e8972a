// Package expression adapts general purpose expression engines to rows.
//
// An Evaluator compiles expression source once; the resulting Compiled
// expression is evaluated per row against Variables built from that row. Two
// backends are provided: expr-lang/expr ("expr", the default) and goja ("js").
//
// Failures are reported as *EvalError with an explicit Kind so callers can tell
// bad data apart from bad expressions. A per-row marker (*errhandling.ErrorRow)
// raised inside an expression is returned unchanged instead of being wrapped.
package expression

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/cannectors/wrangler/internal/errhandling"
	"github.com/cannectors/wrangler/pkg/row"
)

// Supported expression languages.
const (
	LangExpr = "expr"
	LangJS   = "js"
)

// ThisBinding is the reserved variable bound to the row itself.
const ThisBinding = "this"

// Evaluator compiles expression source into reusable programs.
type Evaluator interface {
	// Language returns the language name of the evaluator.
	Language() string

	// Compile parses source once. Errors are *CompileError.
	Compile(source string) (Compiled, error)
}

// Compiled is an immutable compiled expression owned by one directive instance.
// Evaluate must not be called concurrently on the same Compiled.
type Compiled interface {
	// Source returns the original expression text.
	Source() string

	// Evaluate runs the expression against vars.
	Evaluate(vars Variables) (row.Value, error)

	// Close releases engine resources. It is safe to call more than once.
	Close()
}

// New returns the evaluator for lang. An empty lang selects LangExpr.
func New(lang string) (Evaluator, error) {
	switch strings.ToLower(lang) {
	case "", LangExpr:
		return NewExprEvaluator(), nil
	case LangJS, "javascript":
		return NewJSEvaluator(), nil
	default:
		return nil, fmt.Errorf("unsupported expression language: %s", lang)
	}
}

// Variables is the variable context of one evaluation.
type Variables map[string]any

// Bind maps every column of r to its native value and binds ThisBinding to r.
// When a column name repeats, the first occurrence wins. A column named like
// ThisBinding does not replace the row binding.
func Bind(r *row.Row) Variables {
	vars := make(Variables, r.Length()+1)
	vars[ThisBinding] = r
	for i := 0; i < r.Length(); i++ {
		name := r.Column(i)
		if _, exists := vars[name]; exists {
			continue
		}
		vars[name] = Native(r.Value(i))
	}
	return vars
}

// Native converts a row value into the representation handed to engines.
// Decimals become float64 and nested rows become maps.
func Native(v row.Value) any {
	switch v.Kind() {
	case row.KindDecimal:
		d, _ := v.AsDecimal()
		return d.InexactFloat64()
	case row.KindRow:
		r, _ := v.AsRow()
		return r.ToMap()
	default:
		return v.Interface()
	}
}

// CompileError reports an expression that could not be compiled.
type CompileError struct {
	Source  string
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *CompileError) Error() string {
	return fmt.Sprintf("invalid expression '%s': %s", e.Source, e.Message)
}

// Unwrap returns the engine error.
func (e *CompileError) Unwrap() error {
	return e.Cause
}

// EvalErrorKind classifies evaluation failures.
type EvalErrorKind int

// Evaluation failure kinds.
const (
	// EvalFailed is a general evaluation failure.
	EvalFailed EvalErrorKind = iota

	// EvalTypeMismatch means operands of incompatible types were combined.
	EvalTypeMismatch

	// EvalNumberFormat means text could not be converted to a number.
	EvalNumberFormat

	// EvalUnsupportedResult means the result does not fit the row value model.
	EvalUnsupportedResult
)

// String returns the name of the kind.
func (k EvalErrorKind) String() string {
	switch k {
	case EvalTypeMismatch:
		return "type mismatch"
	case EvalNumberFormat:
		return "number format"
	case EvalUnsupportedResult:
		return "unsupported result"
	default:
		return "evaluation failure"
	}
}

// EvalError reports a failed evaluation. Cause holds the original engine or
// function error when one exists.
type EvalError struct {
	Kind    EvalErrorKind
	Source  string
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *EvalError) Error() string {
	return e.Message
}

// Unwrap returns the underlying cause.
func (e *EvalError) Unwrap() error {
	return e.Cause
}

// NumberFormatError is raised by conversion functions when text is not numeric.
type NumberFormatError struct {
	Input string
	Err   error
}

// Error implements the error interface.
func (e *NumberFormatError) Error() string {
	return fmt.Sprintf("for input string: %q", e.Input)
}

// Unwrap returns the strconv error.
func (e *NumberFormatError) Unwrap() error {
	return e.Err
}

// classify turns an engine failure into the error returned by Evaluate.
// raised is the first error returned by a built-in function during the
// evaluation, which takes precedence over the engine's own wrapping.
func classify(source string, engineErr, raised error) error {
	for _, err := range []error{raised, engineErr} {
		if err == nil {
			continue
		}
		if marker, ok := errhandling.AsErrorRow(err); ok {
			return marker
		}
	}

	cause := engineErr
	if raised != nil {
		cause = raised
	}

	var nf *NumberFormatError
	var numErr *strconv.NumError
	switch {
	case errors.As(cause, &nf), errors.As(cause, &numErr):
		return &EvalError{Kind: EvalNumberFormat, Source: source, Message: cause.Error(), Cause: cause}
	case isTypeMismatch(engineErr):
		return &EvalError{Kind: EvalTypeMismatch, Source: source, Message: engineErr.Error(), Cause: engineErr}
	default:
		return &EvalError{Kind: EvalFailed, Source: source, Message: cause.Error(), Cause: cause}
	}
}

// isTypeMismatch recognises operand type errors from either engine.
func isTypeMismatch(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "invalid operation") ||
		strings.Contains(msg, "mismatched types") ||
		strings.HasPrefix(msg, "TypeError")
}

// result converts an engine result into a row value.
func result(source string, out any) (row.Value, error) {
	v, err := row.FromInterface(out)
	if err != nil {
		return row.Null(), &EvalError{
			Kind:    EvalUnsupportedResult,
			Source:  source,
			Message: fmt.Sprintf("expression '%s' returned %T: %v", source, out, err),
			Cause:   err,
		}
	}
	return v, nil
}
