// Package logger provides structured logging functionality.
// It wraps the standard log/slog package for consistent logging across the runtime.
//
// This package provides execution context helpers for consistent pipeline logging,
// including helpers for run start/end, recipe stage start/end, metrics and errors.
// All helpers use structured logging with consistent field names (snake_case).
//
// Logs are written to stderr so that row output can use stdout. Two formats
// are supported:
//   - JSON (default): Machine-readable structured logging
//   - Human: Human-readable console output with colors and prefixes
package logger

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"
)

// Logger is the default logger instance.
var Logger *slog.Logger

// console is where console handlers write.
var console io.Writer = os.Stderr

func init() {
	Logger = slog.New(slog.NewJSONHandler(console, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}

// SetOutput redirects console logging to w with the given level and format.
func SetOutput(w io.Writer, level slog.Level, format OutputFormat) {
	console = w
	SetLevelAndFormat(level, format)
}

// Info logs an informational message.
func Info(msg string, args ...any) {
	Logger.Info(msg, args...)
}

// Debug logs a debug message.
func Debug(msg string, args ...any) {
	Logger.Debug(msg, args...)
}

// Warn logs a warning message.
func Warn(msg string, args ...any) {
	Logger.Warn(msg, args...)
}

// Error logs an error message.
func Error(msg string, args ...any) {
	Logger.Error(msg, args...)
}

// =============================================================================
// Execution Context Types
// =============================================================================

// ExecutionContext contains context information for pipeline run logging.
type ExecutionContext struct {
	// RunID identifies one pipeline run (required)
	RunID string
	// PipelineName is the human-readable name of the pipeline
	PipelineName string
	// Stage is the current stage (read, recipe, write)
	Stage string
	// Directive is the directive being executed, if any
	Directive string
	// Line is the recipe line of Directive
	Line int
	// Batch is the batch index; negative when not applicable
	Batch int
}

// ExecutionError contains structured error information for logging.
type ExecutionError struct {
	// Code is the error code (e.g., PARSE_FAILED, DIRECTIVE_FAILED)
	Code string
	// Message is the human-readable error message
	Message string
}

// ErrorContext contains structured context for error logging.
// Use this with LogError() for consistent, actionable error logs.
type ErrorContext struct {
	RunID        string
	PipelineName string
	Stage        string
	Directive    string
	Line         int

	ErrorCode    string
	ErrorMessage string
	Err          error // underlying error, logged with its chain

	RowIndex int // negative when not applicable
	RowCount int
	Duration time.Duration

	// Additional context as key-value pairs
	Extra map[string]interface{}
}

// ExecutionMetrics contains performance metrics for a run.
type ExecutionMetrics struct {
	TotalDuration time.Duration
	RowsIn        int
	RowsOut       int
	RowsErrored   int
	RowsFiltered  int
	RowsPerSecond float64
}

// =============================================================================
// Execution Context Helpers
// =============================================================================

// WithExecution returns a logger with execution context attached.
// Only non-empty fields are included in the log output.
func WithExecution(ctx ExecutionContext) *slog.Logger {
	return Logger.With(buildContextAttrs(ctx)...)
}

// LogExecutionStart logs the start of a pipeline run.
func LogExecutionStart(ctx ExecutionContext) {
	Logger.Info("execution started", buildContextAttrs(ctx)...)
}

// LogExecutionEnd logs the completion of a pipeline run.
func LogExecutionEnd(ctx ExecutionContext, status string, rowsProcessed int, duration time.Duration) {
	attrs := buildContextAttrs(ctx)
	attrs = append(attrs,
		slog.String("status", status),
		slog.Int("rows_processed", rowsProcessed),
		slog.Duration("duration", duration),
	)
	Logger.Info("execution completed", attrs...)
}

// LogStageStart logs the start of a stage.
func LogStageStart(ctx ExecutionContext) {
	Logger.Debug("stage started", buildContextAttrs(ctx)...)
}

// LogStageEnd logs the completion of a stage.
// If err is non-nil, logs as an error with error details.
func LogStageEnd(ctx ExecutionContext, rowCount int, duration time.Duration, err *ExecutionError) {
	attrs := buildContextAttrs(ctx)
	attrs = append(attrs,
		slog.Int("row_count", rowCount),
		slog.Duration("duration", duration),
	)

	if err != nil {
		attrs = append(attrs,
			slog.String("error_code", err.Code),
			slog.String("error", err.Message),
		)
		Logger.Error("stage failed", attrs...)
	} else {
		Logger.Debug("stage completed", attrs...)
	}
}

// LogMetrics logs run metrics.
func LogMetrics(ctx ExecutionContext, metrics ExecutionMetrics) {
	attrs := buildContextAttrs(ctx)
	attrs = append(attrs,
		slog.Duration("total_duration", metrics.TotalDuration),
		slog.Int("rows_in", metrics.RowsIn),
		slog.Int("rows_out", metrics.RowsOut),
		slog.Int("rows_errored", metrics.RowsErrored),
		slog.Int("rows_filtered", metrics.RowsFiltered),
		slog.Float64("rows_per_second", metrics.RowsPerSecond),
	)
	Logger.Info("execution metrics", attrs...)
}

// LogError logs an error with full execution context, including the error
// chain of errCtx.Err.
func LogError(message string, errCtx ErrorContext) {
	attrs := make([]any, 0, 16)

	if errCtx.RunID != "" {
		attrs = append(attrs, slog.String("run_id", errCtx.RunID))
	}
	if errCtx.PipelineName != "" {
		attrs = append(attrs, slog.String("pipeline_name", errCtx.PipelineName))
	}
	if errCtx.Stage != "" {
		attrs = append(attrs, slog.String("stage", errCtx.Stage))
	}
	if errCtx.Directive != "" {
		attrs = append(attrs, slog.String("directive", errCtx.Directive))
	}
	if errCtx.Line > 0 {
		attrs = append(attrs, slog.Int("line", errCtx.Line))
	}

	if errCtx.ErrorCode != "" {
		attrs = append(attrs, slog.String("error_code", errCtx.ErrorCode))
	}
	if errCtx.ErrorMessage != "" {
		attrs = append(attrs, slog.String("error", errCtx.ErrorMessage))
	}
	if errCtx.Err != nil {
		attrs = append(attrs, slog.String("error_type", fmt.Sprintf("%T", errCtx.Err)))

		errorChain := []string{errCtx.Err.Error()}
		for current := errors.Unwrap(errCtx.Err); current != nil; current = errors.Unwrap(current) {
			errorChain = append(errorChain, current.Error())
		}
		if len(errorChain) > 1 {
			attrs = append(attrs, slog.String("error_chain", strings.Join(errorChain, " -> ")))
		}
	}

	if errCtx.RowIndex >= 0 {
		attrs = append(attrs, slog.Int("row_index", errCtx.RowIndex))
	}
	if errCtx.RowCount > 0 {
		attrs = append(attrs, slog.Int("row_count", errCtx.RowCount))
	}
	if errCtx.Duration > 0 {
		attrs = append(attrs, slog.Duration("duration", errCtx.Duration))
	}

	for k, v := range errCtx.Extra {
		attrs = append(attrs, slog.Any(k, v))
	}

	Logger.Error(message, attrs...)
}

// buildContextAttrs builds slog attributes from an ExecutionContext.
// Only non-empty fields are included.
func buildContextAttrs(ctx ExecutionContext) []any {
	attrs := make([]any, 0, 8)

	attrs = append(attrs, slog.String("run_id", ctx.RunID))
	if ctx.PipelineName != "" {
		attrs = append(attrs, slog.String("pipeline_name", ctx.PipelineName))
	}
	if ctx.Stage != "" {
		attrs = append(attrs, slog.String("stage", ctx.Stage))
	}
	if ctx.Directive != "" {
		attrs = append(attrs, slog.String("directive", ctx.Directive))
	}
	if ctx.Line > 0 {
		attrs = append(attrs, slog.Int("line", ctx.Line))
	}
	if ctx.Batch >= 0 {
		attrs = append(attrs, slog.Int("batch", ctx.Batch))
	}

	return attrs
}
