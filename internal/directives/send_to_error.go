package directives

import (
	"fmt"

	"github.com/cannectors/wrangler/internal/directive"
	"github.com/cannectors/wrangler/internal/errhandling"
	"github.com/cannectors/wrangler/internal/expression"
	"github.com/cannectors/wrangler/internal/grammar"
	"github.com/cannectors/wrangler/pkg/row"
)

// SendToErrorName is the recipe name of the send-to-error directive.
const SendToErrorName = "send-to-error"

// SendToError rejects rows for which the condition holds. A message is only
// accepted after an exp:{...} condition.
//
//	send-to-error <condition> [<message>]
type SendToError struct {
	opts    directive.Options
	message string
	program expression.Compiled
}

// NewSendToError returns an uninitialized send-to-error directive.
func NewSendToError(opts directive.Options) directive.Directive {
	return &SendToError{opts: opts}
}

// Define implements directive.Directive.
func (d *SendToError) Define() *grammar.UsageDefinition {
	return grammar.NewUsage(SendToErrorName).
		Define("condition", grammar.Expression).
		DefineOptional("message", grammar.Text).
		Build()
}

// Initialize implements directive.Directive.
func (d *SendToError) Initialize(args *grammar.Arguments) error {
	program, err := compile(d.opts, args, "condition")
	if err != nil {
		return err
	}

	message := fmt.Sprintf("Condition '%s' evaluated to true", program.Source())
	if args.Contains("message") {
		if message, err = args.Text("message"); err != nil {
			program.Close()
			return err
		}
	}
	d.program, d.message = program, message
	return nil
}

// Execute implements directive.Directive.
func (d *SendToError) Execute(rows []*row.Row, ctx directive.ExecutorContext) ([]*row.Row, error) {
	for _, r := range rows {
		matched, err := condition(d.program, r)
		if err != nil {
			return nil, err
		}
		if matched {
			count(ctx, SendToErrorName+".matched", 1)
			return nil, errhandling.NewErrorRow(d.message, errhandling.CodeConditionMatched)
		}
	}
	return rows, nil
}

// Destroy implements directive.Directive.
func (d *SendToError) Destroy() {
	closeProgram(&d.program)
}
