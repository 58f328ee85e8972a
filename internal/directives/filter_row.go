package directives

import (
	"github.com/cannectors/wrangler/internal/directive"
	"github.com/cannectors/wrangler/internal/expression"
	"github.com/cannectors/wrangler/internal/grammar"
	"github.com/cannectors/wrangler/pkg/row"
)

// FilterRowIfTrueName is the recipe name of the filter-row-if-true directive.
const FilterRowIfTrueName = "filter-row-if-true"

// FilterRowIfTrue removes rows for which the condition holds.
//
//	filter-row-if-true <condition>
type FilterRowIfTrue struct {
	opts    directive.Options
	program expression.Compiled
}

// NewFilterRowIfTrue returns an uninitialized filter-row-if-true directive.
func NewFilterRowIfTrue(opts directive.Options) directive.Directive {
	return &FilterRowIfTrue{opts: opts}
}

// Define implements directive.Directive.
func (d *FilterRowIfTrue) Define() *grammar.UsageDefinition {
	return grammar.NewUsage(FilterRowIfTrueName).
		Define("condition", grammar.Expression).
		Build()
}

// Initialize implements directive.Directive.
func (d *FilterRowIfTrue) Initialize(args *grammar.Arguments) error {
	program, err := compile(d.opts, args, "condition")
	if err != nil {
		return err
	}
	d.program = program
	return nil
}

// Execute implements directive.Directive.
func (d *FilterRowIfTrue) Execute(rows []*row.Row, ctx directive.ExecutorContext) ([]*row.Row, error) {
	kept := rows[:0:0]
	for _, r := range rows {
		drop, err := condition(d.program, r)
		if err != nil {
			return nil, err
		}
		if !drop {
			kept = append(kept, r)
		}
	}
	count(ctx, FilterRowIfTrueName+".filtered", len(rows)-len(kept))
	return kept, nil
}

// Destroy implements directive.Directive.
func (d *FilterRowIfTrue) Destroy() {
	closeProgram(&d.program)
}
