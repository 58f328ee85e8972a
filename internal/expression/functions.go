package expression

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/cannectors/wrangler/internal/errhandling"
)

// scope records the first error raised by a built-in during one evaluation.
type scope struct {
	raised error
}

func (s *scope) reset() { s.raised = nil }

func (s *scope) fail(err error) error {
	if s.raised == nil {
		s.raised = err
	}
	return err
}

// function is a built-in callable from expressions.
type function func(args ...any) (any, error)

// builtins returns the functions available in every expression, bound to s.
//
//	toDouble(x)        converts text or numbers to float, NumberFormatError on bad text
//	toInt(x)           converts text or numbers to integer, NumberFormatError on bad text
//	isNull(x)          true when x is null/undefined
//	rowError(message)  rejects the current row with a per-row error
func builtins(s *scope) map[string]function {
	return map[string]function{
		"toDouble": func(args ...any) (any, error) {
			if err := arity("toDouble", args, 1); err != nil {
				return nil, s.fail(err)
			}
			f, err := toDouble(args[0])
			if err != nil {
				return nil, s.fail(err)
			}
			return f, nil
		},
		"toInt": func(args ...any) (any, error) {
			if err := arity("toInt", args, 1); err != nil {
				return nil, s.fail(err)
			}
			i, err := toInt(args[0])
			if err != nil {
				return nil, s.fail(err)
			}
			return i, nil
		},
		"isNull": func(args ...any) (any, error) {
			if err := arity("isNull", args, 1); err != nil {
				return nil, s.fail(err)
			}
			return args[0] == nil, nil
		},
		"rowError": func(args ...any) (any, error) {
			message := "rejected by expression"
			if len(args) > 0 && args[0] != nil {
				message = fmt.Sprint(args[0])
			}
			return nil, s.fail(errhandling.NewErrorRow(message, errhandling.CodeExpressionRejected))
		},
	}
}

func arity(name string, args []any, want int) error {
	if len(args) != want {
		return fmt.Errorf("%s() expects %d argument(s), got %d", name, want, len(args))
	}
	return nil
}

func toDouble(x any) (float64, error) {
	switch t := x.(type) {
	case float64:
		return t, nil
	case float32:
		return float64(t), nil
	case int:
		return float64(t), nil
	case int64:
		return float64(t), nil
	case int32:
		return float64(t), nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, &NumberFormatError{Input: t, Err: err}
		}
		return f, nil
	case nil:
		return 0, &NumberFormatError{Input: "null"}
	default:
		return 0, fmt.Errorf("cannot convert %T to double", x)
	}
}

func toInt(x any) (int64, error) {
	switch t := x.(type) {
	case int:
		return int64(t), nil
	case int64:
		return t, nil
	case int32:
		return int64(t), nil
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return 0, fmt.Errorf("cannot convert %v to int", t)
		}
		return int64(t), nil
	case string:
		i, err := strconv.ParseInt(strings.TrimSpace(t), 10, 64)
		if err != nil {
			return 0, &NumberFormatError{Input: t, Err: err}
		}
		return i, nil
	case nil:
		return 0, &NumberFormatError{Input: "null"}
	default:
		return 0, fmt.Errorf("cannot convert %T to int", x)
	}
}
