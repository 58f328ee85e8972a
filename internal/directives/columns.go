package directives

import (
	"fmt"

	"github.com/cannectors/wrangler/internal/directive"
	"github.com/cannectors/wrangler/internal/errhandling"
	"github.com/cannectors/wrangler/internal/grammar"
	"github.com/cannectors/wrangler/pkg/row"
)

// Column manipulation directives.
const (
	DropName   = "drop"
	RenameName = "rename"
)

// Drop removes columns. Missing columns are ignored.
//
//	drop <column>[,<column>...]
type Drop struct {
	columns []string
}

// NewDrop returns an uninitialized drop directive.
func NewDrop(directive.Options) directive.Directive {
	return &Drop{}
}

// Define implements directive.Directive.
func (d *Drop) Define() *grammar.UsageDefinition {
	return grammar.NewUsage(DropName).
		Define("columns", grammar.ColumnNameList).
		Build()
}

// Initialize implements directive.Directive.
func (d *Drop) Initialize(args *grammar.Arguments) error {
	columns, err := args.ColumnNames("columns")
	if err != nil {
		return err
	}
	d.columns = columns
	return nil
}

// Execute implements directive.Directive.
func (d *Drop) Execute(rows []*row.Row, _ directive.ExecutorContext) ([]*row.Row, error) {
	for _, r := range rows {
		for _, column := range d.columns {
			if idx := r.Find(column); idx != -1 {
				r.Remove(idx)
			}
		}
	}
	return rows, nil
}

// Destroy implements directive.Directive.
func (d *Drop) Destroy() {}

// Rename renames the first column matching old. Renaming onto an existing
// column is a fatal error.
//
//	rename <old> <new>
type Rename struct {
	from, to string
}

// NewRename returns an uninitialized rename directive.
func NewRename(directive.Options) directive.Directive {
	return &Rename{}
}

// Define implements directive.Directive.
func (d *Rename) Define() *grammar.UsageDefinition {
	return grammar.NewUsage(RenameName).
		Define("old", grammar.ColumnName).
		Define("new", grammar.ColumnName).
		Build()
}

// Initialize implements directive.Directive.
func (d *Rename) Initialize(args *grammar.Arguments) error {
	from, err := args.ColumnName("old")
	if err != nil {
		return err
	}
	to, err := args.ColumnName("new")
	if err != nil {
		return err
	}
	d.from, d.to = from, to
	return nil
}

// Execute implements directive.Directive.
func (d *Rename) Execute(rows []*row.Row, _ directive.ExecutorContext) ([]*row.Row, error) {
	if d.from == d.to {
		return rows, nil
	}
	for _, r := range rows {
		idx := r.Find(d.from)
		if idx == -1 {
			continue
		}
		if r.Find(d.to) != -1 {
			return nil, errhandling.NewExecutionError(
				fmt.Sprintf("column '%s' already exists. Apply the 'drop' directive before 'rename'", d.to), nil)
		}
		r.SetColumn(idx, d.to)
	}
	return rows, nil
}

// Destroy implements directive.Directive.
func (d *Rename) Destroy() {}
