// Package wrangler provides public types for directive pipelines.
// This package is intended to be importable by external projects that need
// to interact with the wrangler runtime.
package wrangler

import (
	"time"

	"github.com/cannectors/wrangler/pkg/row"
)

// Run statuses reported in ExecutionResult.Status.
const (
	StatusSuccess = "success"
	StatusPartial = "partial"
	StatusError   = "error"
)

// Pipeline represents a complete wrangling pipeline configuration.
// It contains the recipe, the context handed to directives and the
// locations rows are read from and written to.
type Pipeline struct {
	// Name is the human-readable name of the pipeline
	Name string `json:"name"`

	// Description provides additional context about the pipeline
	Description string `json:"description,omitempty"`

	// Recipe is the ordered list of directive lines
	Recipe []string `json:"recipe"`

	// ExpressionLanguage selects the expression backend ("expr" or "js")
	ExpressionLanguage string `json:"expressionLanguage,omitempty"`

	// Context configures the executor context exposed to directives
	Context ContextConfig `json:"context"`

	// Datasets are the named lookup tables available to table-lookup
	Datasets map[string]DatasetConfig `json:"datasets,omitempty"`

	// Input is where rows are read from
	Input *InputConfig `json:"input,omitempty"`

	// Output is where result rows and error records are written
	Output *OutputConfig `json:"output,omitempty"`

	// Execution tunes batching and parallelism
	Execution ExecutionConfig `json:"execution"`

	// Metrics configures metric export
	Metrics *MetricsConfig `json:"metrics,omitempty"`
}

// ContextConfig is the static part of the executor context.
type ContextConfig struct {
	// Name identifies the context (defaults to the pipeline name)
	Name string `json:"name,omitempty"`

	// Environment is one of "transform", "service" or "testing"
	Environment string `json:"environment,omitempty"`

	// Properties are free-form key/value settings
	Properties map[string]string `json:"properties,omitempty"`

	// Services maps "application/service" to a base URL
	Services map[string]string `json:"services,omitempty"`
}

// DatasetConfig describes an SQLite table used for lookups.
type DatasetConfig struct {
	// Path is the SQLite database file
	Path string `json:"path"`

	// Table is the table holding the dataset
	Table string `json:"table"`

	// Key is the column matched against lookup keys
	Key string `json:"key"`
}

// InputConfig describes the row source.
type InputConfig struct {
	Path   string `json:"path"`
	Format string `json:"format,omitempty"`
}

// OutputConfig describes the row sinks.
type OutputConfig struct {
	// Path receives rows that completed the recipe ("-" or empty for stdout)
	Path string `json:"path,omitempty"`

	// Errors receives error records (empty to discard)
	Errors string `json:"errors,omitempty"`

	// Format is json, jsonl or csv
	Format string `json:"format,omitempty"`
}

// ExecutionConfig tunes the runner.
type ExecutionConfig struct {
	// BatchSize is the number of rows handed to the recipe at once
	BatchSize int `json:"batchSize,omitempty"`

	// Workers is the number of batches processed concurrently
	Workers int `json:"workers,omitempty"`
}

// MetricsConfig configures metric export.
type MetricsConfig struct {
	// File receives metrics in the Prometheus text format after a run
	File string `json:"file,omitempty"`

	// Pushgateway is a Prometheus Pushgateway base URL metrics are pushed to
	Pushgateway string `json:"pushgateway,omitempty"`

	// Job is the Pushgateway job name (defaults to "wrangler")
	Job string `json:"job,omitempty"`
}

// ErrorRecord is a row that left the success stream, with the reason.
type ErrorRecord struct {
	// Row is the row as it was when the directive failed it
	Row *row.Row `json:"row"`

	// Index is the 0-based position of the row in the input
	Index int `json:"index"`

	// Code is the stable reason code
	Code int `json:"code"`

	// Reason is the human-readable form of Code
	Reason string `json:"reason"`

	// Message describes the failure
	Message string `json:"message"`

	// Directive is the directive that failed the row
	Directive string `json:"directive"`

	// Line is the recipe line of Directive
	Line int `json:"line"`
}

// ExecutionResult represents the result of a pipeline run.
type ExecutionResult struct {
	// RunID uniquely identifies the run
	RunID string `json:"runId"`

	// PipelineName is the name of the executed pipeline
	PipelineName string `json:"pipelineName,omitempty"`

	// Status is the run status ("success", "partial", "error")
	Status string `json:"status"`

	// StartedAt is when the run started
	StartedAt time.Time `json:"startedAt"`

	// CompletedAt is when the run completed
	CompletedAt time.Time `json:"completedAt"`

	// RowsIn is the number of input rows
	RowsIn int `json:"rowsIn"`

	// RowsOut is the number of rows that completed the recipe
	RowsOut int `json:"rowsOut"`

	// RowsErrored is the number of error records
	RowsErrored int `json:"rowsErrored"`

	// RowsFiltered is the number of rows removed by filtering directives
	RowsFiltered int `json:"rowsFiltered"`

	// Error contains error details if the run failed
	Error *ExecutionError `json:"error,omitempty"`
}

// Duration returns the wall time of the run.
func (r *ExecutionResult) Duration() time.Duration {
	return r.CompletedAt.Sub(r.StartedAt)
}

// ExecutionError contains details about a run failure.
type ExecutionError struct {
	// Code is the error code
	Code string `json:"code"`

	// Message is the human-readable error message
	Message string `json:"message"`

	// Directive is the directive where the error occurred
	Directive string `json:"directive,omitempty"`

	// Line is the recipe line of Directive
	Line int `json:"line,omitempty"`

	// Details contains additional error context
	Details map[string]interface{} `json:"details,omitempty"`
}
