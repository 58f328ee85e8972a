// Package directives provides the built-in row directives.
//
// Every directive follows the directive.Directive lifecycle. Directives mutate
// rows in place and return the (possibly filtered) batch. Errors returned from
// Execute carry no recipe identity; the runtime attaches directive name and line.
package directives

import (
	"errors"
	"fmt"

	"github.com/cannectors/wrangler/internal/directive"
	"github.com/cannectors/wrangler/internal/errhandling"
	"github.com/cannectors/wrangler/internal/expression"
	"github.com/cannectors/wrangler/internal/grammar"
	"github.com/cannectors/wrangler/pkg/row"
)

// numberFormatHint prefixes fatal numeric-format failures.
const numberFormatHint = "type mismatch. Change type of constant or convert to right data type " +
	"using conversion functions available. Reason : "

// compile compiles the expression bound to argument with the configured
// evaluator. Compilation failures are reported as parse errors of argument.
func compile(opts directive.Options, args *grammar.Arguments, argument string) (expression.Compiled, error) {
	source, err := args.Expression(argument)
	if err != nil {
		return nil, err
	}
	program, err := opts.EvaluatorOrDefault().Compile(source)
	if err != nil {
		return nil, &errhandling.ParseError{
			Directive: args.Directive(),
			Argument:  argument,
			Line:      args.Line(),
			Message:   err.Error(),
			Cause:     err,
		}
	}
	return program, nil
}

// evaluate runs program against r.
func evaluate(program expression.Compiled, r *row.Row) (row.Value, error) {
	v, err := program.Evaluate(expression.Bind(r))
	if err != nil {
		return row.Null(), evaluationError(err)
	}
	return v, nil
}

// condition runs program against r and requires a boolean result.
func condition(program expression.Compiled, r *row.Row) (bool, error) {
	v, err := evaluate(program, r)
	if err != nil {
		return false, err
	}
	b, ok := v.AsBool()
	if !ok {
		return false, errhandling.NewExecutionError(
			fmt.Sprintf("condition '%s' returned %s %s, expected a boolean", program.Source(), v.Kind(), v), nil)
	}
	return b, nil
}

// evaluationError maps evaluator failures onto the error tiers. Per-row
// markers are returned unchanged; everything else is fatal.
func evaluationError(err error) error {
	if marker, ok := errhandling.AsErrorRow(err); ok {
		return marker
	}

	var evalErr *expression.EvalError
	if !errors.As(err, &evalErr) {
		return errhandling.NewExecutionError("expression evaluation failure: "+err.Error(), err)
	}
	switch evalErr.Kind {
	case expression.EvalNumberFormat:
		return errhandling.NewExecutionError(numberFormatHint+evalErr.Message, evalErr)
	case expression.EvalTypeMismatch:
		return errhandling.NewExecutionError("type coercion failure: "+evalErr.Message, evalErr)
	default:
		return errhandling.NewExecutionError("expression evaluation failure: "+evalErr.Message, evalErr)
	}
}

// count records a metric when the host supplies a metrics capability.
func count(ctx directive.ExecutorContext, name string, delta int) {
	if ctx == nil || delta == 0 {
		return
	}
	if m := ctx.Metrics(); m != nil {
		m.Count(name, delta)
	}
}

// closeProgram releases a compiled expression once.
func closeProgram(program *expression.Compiled) {
	if *program != nil {
		(*program).Close()
		*program = nil
	}
}
