// Package directive defines the contract between row transformation steps and
// the runtime that hosts them.
//
// A directive goes through Define, Initialize, any number of Execute calls and
// finally Destroy. Instances are not reentrant: a host running batches in
// parallel creates one instance per worker.
package directive

import (
	"net/url"

	"github.com/cannectors/wrangler/internal/expression"
	"github.com/cannectors/wrangler/internal/grammar"
	"github.com/cannectors/wrangler/pkg/row"
)

// Directive is one typed row transformation.
type Directive interface {
	// Define returns the argument grammar. It is pure and may be called
	// before Initialize.
	Define() *grammar.UsageDefinition

	// Initialize binds parsed arguments and compiles any expression or
	// locale. A failed Initialize leaves the instance unusable.
	Initialize(args *grammar.Arguments) error

	// Execute transforms a batch. The returned slice may be shorter than
	// rows when the directive filters. Errors are either fatal or a
	// per-row *errhandling.ErrorRow.
	Execute(rows []*row.Row, ctx ExecutorContext) ([]*row.Row, error)

	// Destroy releases resources. It is idempotent.
	Destroy()
}

// Environment identifies where a pipeline runs.
type Environment string

// Known environments.
const (
	EnvironmentTransform Environment = "transform"
	EnvironmentService   Environment = "service"
	EnvironmentTesting   Environment = "testing"
)

// ExecutorContext is the host capability object borrowed by Execute.
// Directives must not retain it beyond the call.
type ExecutorContext interface {
	Environment() Environment
	Metrics() Metrics
	ContextName() string
	Properties() map[string]string

	// ServiceURL resolves the base URL of a service exposed by an
	// application, or nil when it is unknown.
	ServiceURL(applicationID, serviceID string) *url.URL

	// Provide opens a dataset for lookups. props carries directive
	// specific options such as the key column.
	Provide(dataset string, props map[string]string) (Lookup, error)
}

// Metrics records counters and gauges emitted by directives.
type Metrics interface {
	Count(name string, delta int)
	Gauge(name string, value float64)
}

// Lookup fetches rows from a provided dataset by key.
type Lookup interface {
	// Lookup returns the row stored under key, or nil when there is none.
	Lookup(key string) (*row.Row, error)
}

// Options carries host services shared by directive constructors.
type Options struct {
	// Evaluator compiles embedded expressions. Nil selects the default
	// expression language.
	Evaluator expression.Evaluator
}

// EvaluatorOrDefault returns o.Evaluator or the expr-lang evaluator.
func (o Options) EvaluatorOrDefault() expression.Evaluator {
	if o.Evaluator != nil {
		return o.Evaluator
	}
	return expression.NewExprEvaluator()
}
