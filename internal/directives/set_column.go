package directives

import (
	"github.com/cannectors/wrangler/internal/directive"
	"github.com/cannectors/wrangler/internal/expression"
	"github.com/cannectors/wrangler/internal/grammar"
	"github.com/cannectors/wrangler/pkg/row"
)

// SetColumnName is the recipe name of the set-column directive.
const SetColumnName = "set-column"

// SetColumn writes the result of an expression into a column.
//
//	set-column <column> <expression>
type SetColumn struct {
	opts    directive.Options
	column  string
	program expression.Compiled
}

// NewSetColumn returns an uninitialized set-column directive.
func NewSetColumn(opts directive.Options) directive.Directive {
	return &SetColumn{opts: opts}
}

// Define implements directive.Directive.
func (d *SetColumn) Define() *grammar.UsageDefinition {
	return grammar.NewUsage(SetColumnName).
		Define("column", grammar.ColumnName).
		Define("expression", grammar.Expression).
		Build()
}

// Initialize implements directive.Directive.
func (d *SetColumn) Initialize(args *grammar.Arguments) error {
	column, err := args.ColumnName("column")
	if err != nil {
		return err
	}
	program, err := compile(d.opts, args, "expression")
	if err != nil {
		return err
	}
	d.column, d.program = column, program
	return nil
}

// Execute implements directive.Directive.
func (d *SetColumn) Execute(rows []*row.Row, _ directive.ExecutorContext) ([]*row.Row, error) {
	for _, r := range rows {
		v, err := evaluate(d.program, r)
		if err != nil {
			return nil, err
		}
		r.AddOrSet(d.column, v)
	}
	return rows, nil
}

// Destroy implements directive.Directive.
func (d *SetColumn) Destroy() {
	closeProgram(&d.program)
}
