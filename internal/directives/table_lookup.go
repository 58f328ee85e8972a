package directives

import (
	"fmt"

	"github.com/cannectors/wrangler/internal/directive"
	"github.com/cannectors/wrangler/internal/errhandling"
	"github.com/cannectors/wrangler/internal/grammar"
	"github.com/cannectors/wrangler/pkg/row"
)

// TableLookupName is the recipe name of the table-lookup directive.
const TableLookupName = "table-lookup"

// TableLookup enriches rows from a dataset provided by the execution context.
// Each field of the matched dataset row is added as <column>_<field>.
//
//	table-lookup <column> <dataset>
type TableLookup struct {
	column  string
	dataset string
}

// NewTableLookup returns an uninitialized table-lookup directive.
func NewTableLookup(directive.Options) directive.Directive {
	return &TableLookup{}
}

// Define implements directive.Directive.
func (d *TableLookup) Define() *grammar.UsageDefinition {
	return grammar.NewUsage(TableLookupName).
		Define("column", grammar.ColumnName).
		Define("dataset", grammar.Text).
		Build()
}

// Initialize implements directive.Directive.
func (d *TableLookup) Initialize(args *grammar.Arguments) error {
	column, err := args.ColumnName("column")
	if err != nil {
		return err
	}
	dataset, err := args.Text("dataset")
	if err != nil {
		return err
	}
	d.column, d.dataset = column, dataset
	return nil
}

// Execute implements directive.Directive. Rows with a null or missing key, or
// without a match, pass through unchanged. A failing lookup rejects the row.
func (d *TableLookup) Execute(rows []*row.Row, ctx directive.ExecutorContext) ([]*row.Row, error) {
	if ctx == nil {
		return nil, errhandling.NewExecutionError("table-lookup requires an execution context", nil)
	}
	table, err := ctx.Provide(d.dataset, map[string]string{"column": d.column})
	if err != nil {
		return nil, errhandling.NewExecutionError(fmt.Sprintf("dataset '%s' unavailable", d.dataset), err)
	}

	for _, r := range rows {
		key, ok := r.Get(d.column)
		if !ok || key.IsNull() {
			continue
		}
		match, err := table.Lookup(key.String())
		if err != nil {
			return nil, &errhandling.ErrorRow{
				Code:    errhandling.CodeLookupFailure,
				Message: fmt.Sprintf("lookup of '%s' in dataset '%s' failed: %v", key, d.dataset, err),
				Cause:   err,
			}
		}
		if match == nil {
			count(ctx, TableLookupName+".misses", 1)
			continue
		}
		for i := 0; i < match.Length(); i++ {
			r.AddOrSet(d.column+"_"+match.Column(i), match.Value(i))
		}
	}
	return rows, nil
}

// Destroy implements directive.Directive.
func (d *TableLookup) Destroy() {}
