package expression

import (
	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/cannectors/wrangler/pkg/row"
)

// ExprEvaluator compiles expressions with expr-lang/expr.
type ExprEvaluator struct{}

// NewExprEvaluator returns the expr-lang evaluator.
func NewExprEvaluator() *ExprEvaluator {
	return &ExprEvaluator{}
}

// Language implements Evaluator.
func (e *ExprEvaluator) Language() string { return LangExpr }

// Compile implements Evaluator. Unknown variables evaluate to nil so that
// expressions can reference columns missing from some rows.
func (e *ExprEvaluator) Compile(source string) (Compiled, error) {
	s := &scope{}
	options := []expr.Option{expr.AllowUndefinedVariables()}
	for name, fn := range builtins(s) {
		options = append(options, expr.Function(name, fn))
	}

	program, err := expr.Compile(source, options...)
	if err != nil {
		return nil, &CompileError{Source: source, Message: err.Error(), Cause: err}
	}
	return &exprProgram{source: source, program: program, scope: s}, nil
}

type exprProgram struct {
	source  string
	program *vm.Program
	scope   *scope
}

func (p *exprProgram) Source() string { return p.source }

func (p *exprProgram) Evaluate(vars Variables) (row.Value, error) {
	if p.program == nil {
		return row.Null(), &EvalError{Source: p.source, Message: "expression is closed"}
	}
	p.scope.reset()

	out, err := expr.Run(p.program, map[string]any(vars))
	if err != nil {
		return row.Null(), classify(p.source, err, p.scope.raised)
	}
	return result(p.source, out)
}

func (p *exprProgram) Close() {
	p.program = nil
}
