// Package recipe turns recipe text into initialized directive instances.
//
// A recipe holds one directive invocation per line:
//
//	// comments start with // or #
//	parse-as-currency :amount :amount_usd 'en_US';
//	fail amount_usd > 1000
//
// Blank lines and comments are skipped and a trailing ';' is ignored. The first
// word names the directive; the rest is parsed against that directive's
// argument grammar.
package recipe

import (
	"errors"
	"strings"

	"github.com/cannectors/wrangler/internal/directive"
	"github.com/cannectors/wrangler/internal/errhandling"
	"github.com/cannectors/wrangler/internal/grammar"
	"github.com/cannectors/wrangler/internal/registry"
)

// Statement is one directive invocation found in recipe text.
type Statement struct {
	// Line is the 1-based line number in the recipe.
	Line int

	// Name is the directive name.
	Name string

	// Arguments is the argument text following the name.
	Arguments string

	// Offset is the 0-based offset of Arguments within the line.
	Offset int

	// Text is the full statement without the trailing ';'.
	Text string
}

// Split extracts statements from recipe text.
func Split(text string) []Statement {
	var out []Statement
	for i, raw := range strings.Split(text, "\n") {
		raw = strings.TrimRight(raw, "\r")
		lead := len(raw) - len(strings.TrimLeft(raw, " \t"))
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "//") || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimSpace(strings.TrimSuffix(line, ";"))
		if line == "" {
			continue
		}

		name, rest := line, ""
		if idx := strings.IndexAny(line, " \t"); idx != -1 {
			name, rest = line[:idx], line[idx:]
		}
		argStart := len(line) - len(strings.TrimLeft(rest, " \t"))

		out = append(out, Statement{
			Line:      i + 1,
			Name:      name,
			Arguments: strings.TrimSpace(rest),
			Offset:    lead + argStart,
			Text:      line,
		})
	}
	return out
}

// Join builds recipe text from a list of lines.
func Join(lines []string) string {
	return strings.Join(lines, "\n")
}

// Step is a compiled recipe statement.
type Step struct {
	Statement
	Directive directive.Directive
}

// Recipe is an ordered list of initialized directives. A Recipe is used by one
// goroutine at a time.
type Recipe struct {
	Steps     []Step
	destroyed bool
}

// Compile resolves, parses and initializes every statement in text. On any
// failure the already initialized directives are destroyed and the error is
// returned with the statement's line and position.
func Compile(text string, opts directive.Options) (*Recipe, error) {
	r := &Recipe{}
	for _, st := range Split(text) {
		d, err := compileStatement(st, opts)
		if err != nil {
			r.Destroy()
			return nil, err
		}
		r.Steps = append(r.Steps, Step{Statement: st, Directive: d})
	}
	return r, nil
}

// Validate compiles text and discards the result.
func Validate(text string, opts directive.Options) error {
	r, err := Compile(text, opts)
	if err != nil {
		return err
	}
	r.Destroy()
	return nil
}

func compileStatement(st Statement, opts directive.Options) (directive.Directive, error) {
	d, err := registry.New(st.Name, opts)
	if err != nil {
		return nil, locate(err, st)
	}

	args, err := grammar.Parse(d.Define(), st.Arguments)
	if err != nil {
		d.Destroy()
		return nil, locate(err, st)
	}
	args.SetLine(st.Line)

	if err := d.Initialize(args); err != nil {
		d.Destroy()
		return nil, locate(err, st)
	}
	return d, nil
}

// locate stamps statement identity on parse errors. Positions from the
// argument parser are made relative to the whole line.
func locate(err error, st Statement) error {
	var parseErr *errhandling.ParseError
	if !errors.As(err, &parseErr) {
		return &errhandling.ParseError{
			Directive: st.Name,
			Line:      st.Line,
			Message:   err.Error(),
			Cause:     err,
		}
	}
	if parseErr.Directive == "" {
		parseErr.Directive = st.Name
	}
	if parseErr.Line == 0 {
		parseErr.Line = st.Line
	}
	if parseErr.Position > 0 {
		parseErr.Position += st.Offset
	} else {
		parseErr.Position = st.Offset + 1
	}
	return err
}

// Destroy destroys every directive once.
func (r *Recipe) Destroy() {
	if r == nil || r.destroyed {
		return
	}
	r.destroyed = true
	for _, s := range r.Steps {
		s.Directive.Destroy()
	}
}

// Len returns the number of steps.
func (r *Recipe) Len() int { return len(r.Steps) }
