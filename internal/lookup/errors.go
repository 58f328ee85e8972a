package lookup

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Error categories for dataset operations
const (
	CategoryOpen    = "open"
	CategorySchema  = "schema"
	CategoryQuery   = "query"
	CategoryTimeout = "timeout"
	CategoryClosed  = "closed"
)

// Error is a categorized dataset error.
type Error struct {
	Category  string // open, schema, query, timeout or closed
	Dataset   string // dataset name or path
	Operation string // open, describe, lookup
	Message   string
	Err       error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("dataset %s error in %s of '%s': %s", e.Category, e.Operation, e.Dataset, e.Message)
	if e.Err != nil {
		msg += fmt.Sprintf(" (original: %v)", e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// ErrClosed is returned by lookups on a closed table.
var ErrClosed = errors.New("table is closed")

func newError(category, dataset, operation, message string, err error) *Error {
	return &Error{
		Category:  category,
		Dataset:   dataset,
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}

// classify turns a raw driver error into an *Error.
func classify(err error, dataset, operation string) *Error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return newError(CategoryTimeout, dataset, operation, "operation timed out", err)
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "database is closed"), errors.Is(err, ErrClosed):
		return newError(CategoryClosed, dataset, operation, "table is closed", err)
	case strings.Contains(msg, "no such table"), strings.Contains(msg, "no such column"):
		return newError(CategorySchema, dataset, operation, "table or column does not exist", err)
	case strings.Contains(msg, "unable to open"), strings.Contains(msg, "not a database"),
		strings.Contains(msg, "file is encrypted"), strings.Contains(msg, "out of memory"):
		return newError(CategoryOpen, dataset, operation, "cannot open database", err)
	case strings.Contains(msg, "timeout"), strings.Contains(msg, "database is locked"):
		return newError(CategoryTimeout, dataset, operation, "database busy", err)
	default:
		return newError(CategoryQuery, dataset, operation, err.Error(), err)
	}
}
