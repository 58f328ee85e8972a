// Package registry maps recipe directive names to directive constructors.
//
// # Overview
//
// Instead of a hard-coded switch, directives register their constructor by
// name. The recipe compiler resolves each recipe line through Get, so adding a
// directive never requires changes to the compiler.
//
// # Adding a New Directive
//
//  1. Implement directive.Directive
//  2. Write a constructor matching Constructor
//  3. Register it in an init() function
//
// Example:
//
//	package mask
//
//	import (
//	    "github.com/cannectors/wrangler/internal/directive"
//	    "github.com/cannectors/wrangler/internal/registry"
//	)
//
//	func init() {
//	    registry.Register("mask-number", NewMaskNumber)
//	}
//
// # Built-in Directives
//
// fail, parse-as-currency, set-column, filter-row-if-true, send-to-error, drop,
// rename and table-lookup are registered automatically via init().
package registry

import (
	"fmt"
	"sort"
	"sync"

	"github.com/cannectors/wrangler/internal/directive"
	"github.com/cannectors/wrangler/internal/errhandling"
	"github.com/cannectors/wrangler/internal/grammar"
)

// Constructor creates a fresh, uninitialized directive instance. Every call
// must return a new instance; instances are never shared between workers.
type Constructor func(opts directive.Options) directive.Directive

var (
	mu           sync.RWMutex
	constructors = make(map[string]Constructor)
)

// Register registers a directive constructor by name. Registering an existing
// name overwrites the previous constructor.
//
// This function is safe for concurrent use and is typically called from
// init() functions.
func Register(name string, constructor Constructor) {
	mu.Lock()
	defer mu.Unlock()
	constructors[name] = constructor
}

// Get returns the constructor registered for name, or nil.
func Get(name string) Constructor {
	mu.RLock()
	defer mu.RUnlock()
	return constructors[name]
}

// New creates an uninitialized instance of the named directive. Unknown names
// are reported as a parse error.
func New(name string, opts directive.Options) (directive.Directive, error) {
	constructor := Get(name)
	if constructor == nil {
		return nil, &errhandling.ParseError{
			Directive: name,
			Message:   fmt.Sprintf("unknown directive '%s'", name),
		}
	}
	return constructor(opts), nil
}

// List returns all registered directive names in sorted order.
func List() []string {
	mu.RLock()
	defer mu.RUnlock()
	names := make([]string, 0, len(constructors))
	for name := range constructors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Usage returns the argument grammar of the named directive.
func Usage(name string) (*grammar.UsageDefinition, bool) {
	constructor := Get(name)
	if constructor == nil {
		return nil, false
	}
	d := constructor(directive.Options{})
	defer d.Destroy()
	return d.Define(), true
}

// ClearRegistry removes all registered constructors, built-ins included.
// This is intended for testing purposes only; see RegisterBuiltins.
func ClearRegistry() {
	mu.Lock()
	constructors = make(map[string]Constructor)
	mu.Unlock()
}
