// Package errhandling provides the error tiers used across the wrangler runtime.
// This file defines the fatal and recoverable error types, reason codes and the
// classification helpers the pipeline runner relies on.
//
// Two tiers never overlap:
//   - Fatal errors abort the whole pipeline run (grammar violations, invalid
//     arguments, control directives that trigger, unrecoverable evaluation errors).
//   - Recoverable errors remove a single row from the success stream (ErrorRow).
package errhandling

import (
	"errors"
	"fmt"
	"strings"
)

// Tier is the severity tier of an error.
type Tier string

// Error tiers.
const (
	// TierFatal aborts the pipeline run.
	TierFatal Tier = "fatal"

	// TierRecoverable routes a single row to the error stream.
	TierRecoverable Tier = "recoverable"
)

// Stable reason codes carried by ErrorRow.
const (
	// CodeParseFailure marks a row whose content could not be parsed.
	CodeParseFailure = 1

	// CodeConditionMatched marks a row routed to errors by a condition.
	CodeConditionMatched = 2

	// CodeLookupFailure marks a row whose dataset lookup failed.
	CodeLookupFailure = 3

	// CodeExpressionRejected marks a row rejected from inside an expression.
	CodeExpressionRejected = 4
)

// ReasonText returns a short human readable description of a reason code.
func ReasonText(code int) string {
	switch code {
	case CodeParseFailure:
		return "parse failure"
	case CodeConditionMatched:
		return "condition matched"
	case CodeLookupFailure:
		return "lookup failure"
	case CodeExpressionRejected:
		return "expression rejected"
	default:
		return "unknown"
	}
}

// ParseError is a fatal error raised while parsing or initializing a directive.
type ParseError struct {
	// Directive is the name of the directive being parsed.
	Directive string

	// Argument is the name of the offending argument (empty if not specific).
	Argument string

	// Line is the 1-based recipe line (0 if unknown).
	Line int

	// Position is the 1-based character offset within the line (0 if unknown).
	Position int

	// Message describes the violation.
	Message string

	// Cause is the underlying error, if any.
	Cause error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	var sb strings.Builder
	if e.Directive != "" {
		sb.WriteString(e.Directive)
	} else {
		sb.WriteString("recipe")
	}
	if e.Line > 0 {
		sb.WriteString(fmt.Sprintf(" (line %d", e.Line))
		if e.Position > 0 {
			sb.WriteString(fmt.Sprintf(", position %d", e.Position))
		}
		sb.WriteString(")")
	}
	if e.Argument != "" {
		sb.WriteString(fmt.Sprintf(" argument '%s'", e.Argument))
	}
	sb.WriteString(": ")
	sb.WriteString(e.Message)
	return sb.String()
}

// Unwrap returns the underlying cause.
func (e *ParseError) Unwrap() error {
	return e.Cause
}

// NewParseError creates a ParseError for a directive argument.
func NewParseError(directive, argument, message string) *ParseError {
	return &ParseError{
		Directive: directive,
		Argument:  argument,
		Message:   message,
	}
}

// ExecutionError is a fatal error raised while a directive executes.
type ExecutionError struct {
	// Directive is the name of the failing directive (empty until attached).
	Directive string

	// Line is the 1-based recipe line of the directive (0 if unknown).
	Line int

	// Message describes the failure.
	Message string

	// Cause is the underlying error, if any.
	Cause error
}

// Error implements the error interface.
func (e *ExecutionError) Error() string {
	if e.Directive == "" {
		return e.Message
	}
	if e.Line > 0 {
		return fmt.Sprintf("%s (line %d): %s", e.Directive, e.Line, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Directive, e.Message)
}

// Unwrap returns the underlying cause.
func (e *ExecutionError) Unwrap() error {
	return e.Cause
}

// NewExecutionError creates an ExecutionError with an optional cause.
func NewExecutionError(message string, cause error) *ExecutionError {
	return &ExecutionError{
		Message: message,
		Cause:   cause,
	}
}

// ErrorRow marks the current row as failed without aborting the pipeline.
// The runner attaches the row itself when it records the failure.
type ErrorRow struct {
	// Code is a stable reason code (see Code* constants).
	Code int

	// Message describes why the row failed.
	Message string

	// Cause is the underlying error, if any.
	Cause error
}

// Error implements the error interface.
func (e *ErrorRow) Error() string {
	return fmt.Sprintf("row error (code %d): %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *ErrorRow) Unwrap() error {
	return e.Cause
}

// NewErrorRow creates a recoverable row error.
func NewErrorRow(message string, code int) *ErrorRow {
	return &ErrorRow{
		Code:    code,
		Message: message,
	}
}

// AsErrorRow returns the first ErrorRow found in err's chain.
func AsErrorRow(err error) (*ErrorRow, bool) {
	var rowErr *ErrorRow
	if errors.As(err, &rowErr) {
		return rowErr, true
	}
	return nil, false
}

// Classify returns the tier of err. A row marker anywhere in the chain makes the
// error recoverable; everything else is fatal. Nil errors are reported as fatal
// by convention and should not be passed.
func Classify(err error) Tier {
	if _, ok := AsErrorRow(err); ok {
		return TierRecoverable
	}
	return TierFatal
}

// IsRecoverable returns true if err carries a row marker.
func IsRecoverable(err error) bool {
	return err != nil && Classify(err) == TierRecoverable
}

// IsFatal returns true if err must abort the pipeline.
func IsFatal(err error) bool {
	return err != nil && Classify(err) == TierFatal
}

// RootCause follows the Unwrap chain and returns the innermost error.
func RootCause(err error) error {
	for err != nil {
		next := errors.Unwrap(err)
		if next == nil {
			return err
		}
		err = next
	}
	return nil
}

// WithDirective attaches directive identity to a fatal error.
// Row markers are returned unchanged, and errors that already carry identity
// keep it. Other errors are wrapped in an ExecutionError.
func WithDirective(err error, directive string, line int) error {
	if err == nil {
		return nil
	}
	if _, ok := AsErrorRow(err); ok {
		return err
	}

	var execErr *ExecutionError
	if errors.As(err, &execErr) {
		if execErr.Directive == "" {
			execErr.Directive = directive
			execErr.Line = line
		}
		return err
	}

	var parseErr *ParseError
	if errors.As(err, &parseErr) {
		if parseErr.Directive == "" {
			parseErr.Directive = directive
		}
		if parseErr.Line == 0 {
			parseErr.Line = line
		}
		return err
	}

	return &ExecutionError{
		Directive: directive,
		Line:      line,
		Message:   err.Error(),
		Cause:     err,
	}
}
