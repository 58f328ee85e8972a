// Package registry maps recipe directive names to directive constructors.
// This file registers all built-in directives during initialization.
package registry

import (
	"github.com/cannectors/wrangler/internal/directives"
)

func init() {
	RegisterBuiltins()
}

// RegisterBuiltins registers every built-in directive. It is called from init
// and may be called again after ClearRegistry.
func RegisterBuiltins() {
	// Control
	Register(directives.FailName, directives.NewFail)
	Register(directives.SendToErrorName, directives.NewSendToError)
	Register(directives.FilterRowIfTrueName, directives.NewFilterRowIfTrue)

	// Parsing
	Register(directives.ParseAsCurrencyName, directives.NewParseAsCurrency)

	// Columns
	Register(directives.SetColumnName, directives.NewSetColumn)
	Register(directives.DropName, directives.NewDrop)
	Register(directives.RenameName, directives.NewRename)

	// Enrichment
	Register(directives.TableLookupName, directives.NewTableLookup)
}
