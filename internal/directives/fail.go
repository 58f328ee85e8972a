package directives

import (
	"fmt"

	"github.com/cannectors/wrangler/internal/directive"
	"github.com/cannectors/wrangler/internal/errhandling"
	"github.com/cannectors/wrangler/internal/expression"
	"github.com/cannectors/wrangler/internal/grammar"
	"github.com/cannectors/wrangler/internal/logger"
	"github.com/cannectors/wrangler/pkg/row"
)

// FailName is the recipe name of the fail directive.
const FailName = "fail"

// Fail terminates the pipeline when its condition is true for any row.
//
//	fail <condition>
type Fail struct {
	opts      directive.Options
	condition string
	program   expression.Compiled
}

// NewFail returns an uninitialized fail directive.
func NewFail(opts directive.Options) directive.Directive {
	return &Fail{opts: opts}
}

// Define implements directive.Directive.
func (d *Fail) Define() *grammar.UsageDefinition {
	return grammar.NewUsage(FailName).
		Define("condition", grammar.Expression).
		Build()
}

// Initialize implements directive.Directive.
func (d *Fail) Initialize(args *grammar.Arguments) error {
	program, err := compile(d.opts, args, "condition")
	if err != nil {
		return err
	}
	d.program = program
	d.condition = program.Source()

	logger.Debug("fail directive initialized", "condition", d.condition, "line", args.Line())
	return nil
}

// Execute implements directive.Directive. Rows pass through unchanged while
// the condition is false.
func (d *Fail) Execute(rows []*row.Row, _ directive.ExecutorContext) ([]*row.Row, error) {
	for _, r := range rows {
		matched, err := condition(d.program, r)
		if err != nil {
			return nil, err
		}
		if matched {
			return nil, errhandling.NewExecutionError(
				fmt.Sprintf("Condition '%s' evaluated to true. Terminating processing.", d.condition), nil)
		}
	}
	return rows, nil
}

// Destroy implements directive.Directive.
func (d *Fail) Destroy() {
	closeProgram(&d.program)
}
