// Package config parses and validates pipeline files (YAML, JSON or TOML)
// and converts them into wrangler.Pipeline values.
package config

import (
	"fmt"
	"strings"
)

// Supported pipeline file formats.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
	FormatTOML = "toml"
)

// ParseError type categories.
const (
	ErrorTypeIO     = "io"
	ErrorTypeSyntax = "syntax"
	ErrorTypeFormat = "format"
)

// ParseResult holds the generic document decoded from a pipeline file.
type ParseResult struct {
	Data     map[string]interface{}
	Errors   []ParseError
	FilePath string
	Format   string
}

// IsValid returns true if no parsing errors occurred.
func (r *ParseResult) IsValid() bool {
	return len(r.Errors) == 0
}

// ParseError is a decoding failure with its location when the decoder reports one.
// Line and Column are 1-based, 0 when unknown.
type ParseError struct {
	Path    string
	Line    int
	Column  int
	Offset  int64
	Message string
	Type    string
}

func (e ParseError) Error() string {
	var sb strings.Builder
	if e.Path != "" {
		sb.WriteString(e.Path)
		sb.WriteString(": ")
	}
	if e.Line > 0 {
		fmt.Fprintf(&sb, "line %d", e.Line)
		if e.Column > 0 {
			fmt.Fprintf(&sb, ", column %d", e.Column)
		}
		sb.WriteString(": ")
	}
	sb.WriteString(e.Message)
	return sb.String()
}

// ValidationResult contains the result of validating a document against the schema.
type ValidationResult struct {
	Valid  bool
	Errors []ValidationError
}

// ValidationError is a schema violation. Path is a JSON pointer into the
// document, e.g. "/execution/workers".
type ValidationError struct {
	Path    string
	Type    string
	Message string
}

func (e ValidationError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s", e.Path, e.Message)
	}
	return e.Message
}

// Result contains the combined result of parsing and validation.
type Result struct {
	Data             map[string]interface{}
	ParseErrors      []ParseError
	ValidationErrors []ValidationError
	FilePath         string
	Format           string
}

// IsValid returns true if no errors occurred.
func (r *Result) IsValid() bool {
	return len(r.ParseErrors) == 0 && len(r.ValidationErrors) == 0
}

// AllErrors returns parse errors followed by validation errors.
func (r *Result) AllErrors() []error {
	errs := make([]error, 0, len(r.ParseErrors)+len(r.ValidationErrors))
	for _, e := range r.ParseErrors {
		errs = append(errs, e)
	}
	for _, e := range r.ValidationErrors {
		errs = append(errs, e)
	}
	return errs
}
