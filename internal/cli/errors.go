// Package cli provides CLI output formatting and display functions.
package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/cannectors/wrangler/internal/config"
	"github.com/cannectors/wrangler/internal/errhandling"
)

// Printer writes CLI messages. Out receives command results; Err receives
// diagnostics and progress, so stdout can carry rows.
type Printer struct {
	Out     io.Writer
	Err     io.Writer
	Verbose bool
	Quiet   bool
}

// NewPrinter returns a Printer for the given streams.
func NewPrinter(out, errOut io.Writer, verbose, quiet bool) *Printer {
	return &Printer{Out: out, Err: errOut, Verbose: verbose, Quiet: quiet}
}

// Progressf writes a progress line to Err unless quiet.
func (p *Printer) Progressf(format string, args ...any) {
	if p.Quiet {
		return
	}
	fmt.Fprintf(p.Err, format+"\n", args...)
}

// PrintParseErrors prints parse errors with their locations.
func (p *Printer) PrintParseErrors(errs []config.ParseError) {
	fmt.Fprintln(p.Err, "✗ Parse errors:")
	for _, err := range errs {
		location := formatErrorLocation(err.Path, err.Line, err.Column)
		if location != "" {
			fmt.Fprintf(p.Err, "  %s: %s\n", location, err.Message)
		} else {
			fmt.Fprintf(p.Err, "  %s\n", err.Message)
		}
		if p.Verbose && err.Type != "" {
			fmt.Fprintf(p.Err, "    Type: %s\n", err.Type)
		}
	}
}

// formatErrorLocation formats path:line:column, omitting unknown parts.
func formatErrorLocation(path string, line, column int) string {
	if path == "" {
		return ""
	}
	location := path
	if line > 0 {
		location += fmt.Sprintf(":%d", line)
		if column > 0 {
			location += fmt.Sprintf(":%d", column)
		}
	}
	return location
}

// PrintValidationErrors prints schema violations.
func (p *Printer) PrintValidationErrors(errs []config.ValidationError) {
	fmt.Fprintln(p.Err, "✗ Validation errors:")
	for _, err := range errs {
		path := err.Path
		if path == "" {
			path = "/"
		}
		if p.Verbose {
			fmt.Fprintf(p.Err, "  %s:\n", path)
			fmt.Fprintf(p.Err, "    Message: %s\n", err.Message)
			if err.Type != "" {
				fmt.Fprintf(p.Err, "    Type: %s\n", err.Type)
			}
			continue
		}
		fmt.Fprintf(p.Err, "  %s: %s\n", path, truncate(err.Message, 80))
	}
	p.printHint()
}

// PrintRecipeError prints a recipe that failed to compile, pointing at the
// offending directive when the error carries one.
func (p *Printer) PrintRecipeError(err error) {
	fmt.Fprintln(p.Err, "✗ Recipe errors:")

	var parseErr *errhandling.ParseError
	if !errors.As(err, &parseErr) || parseErr.Line == 0 {
		fmt.Fprintf(p.Err, "  %v\n", err)
		p.printHint()
		return
	}

	location := fmt.Sprintf("line %d", parseErr.Line)
	if parseErr.Position > 0 {
		location += fmt.Sprintf(", position %d", parseErr.Position)
	}
	fmt.Fprintf(p.Err, "  %s: %s\n", location, parseErr.Message)
	if p.Verbose {
		if parseErr.Directive != "" {
			fmt.Fprintf(p.Err, "    Directive: %s\n", parseErr.Directive)
		}
		if parseErr.Argument != "" {
			fmt.Fprintf(p.Err, "    Argument: %s\n", parseErr.Argument)
		}
	}
	p.printHint()
}

func (p *Printer) printHint() {
	if !p.Quiet && !p.Verbose {
		fmt.Fprintln(p.Err, "")
		fmt.Fprintln(p.Err, "Hint: Use --verbose for detailed error information")
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
