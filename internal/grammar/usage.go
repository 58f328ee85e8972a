// Package grammar provides the argument grammar shared by all directives.
//
// Each directive declares its parameters through a UsageDefinition. The parser
// matches raw directive text against that definition and produces typed
// Arguments. Grammar violations (unknown token kinds, missing required
// arguments, surplus tokens) are returned as *errhandling.ParseError; semantic
// checks are left to the directive's Initialize.
//
// Recognised token forms:
//
//	:name              column name (the sigil is optional for bare identifiers)
//	'text' / "text"    quoted text (a bare word is accepted where text is expected)
//	123, -4.5          numeric literal (exact decimal)
//	true / false       boolean
//	exp:{ ... }        expression block; a trailing expression may be written bare
//	a,b,c              list of columns, texts or numbers
//	prop:{k=v,...}     properties
//	name=value         named argument, bound to the parameter called name
package grammar

import (
	"fmt"
	"strings"
)

// TokenType identifies the kind of value a parameter accepts.
type TokenType string

// Token types.
const (
	DirectiveName  TokenType = "DIRECTIVE_NAME"
	ColumnName     TokenType = "COLUMN_NAME"
	Text           TokenType = "TEXT"
	Numeric        TokenType = "NUMERIC"
	Bool           TokenType = "BOOLEAN"
	Expression     TokenType = "EXPRESSION"
	Identifier     TokenType = "IDENTIFIER"
	ColumnNameList TokenType = "COLUMN_NAME_LIST"
	TextList       TokenType = "TEXT_LIST"
	NumericList    TokenType = "NUMERIC_LIST"
	Properties     TokenType = "PROPERTIES"
)

// placeholder returns the usage hint for a token type.
func (t TokenType) placeholder() string {
	switch t {
	case ColumnName:
		return ":column"
	case Text:
		return "'text'"
	case Numeric:
		return "number"
	case Bool:
		return "true|false"
	case Expression:
		return "exp:{...}"
	case ColumnNameList:
		return ":column[,:column...]"
	case TextList:
		return "'text'[,'text'...]"
	case NumericList:
		return "number[,number...]"
	case Properties:
		return "prop:{key=value,...}"
	default:
		return "identifier"
	}
}

// Parameter is one declared argument of a directive.
type Parameter struct {
	Name     string
	Type     TokenType
	Optional bool
}

// UsageDefinition is the ordered parameter list of a directive.
type UsageDefinition struct {
	directive  string
	parameters []Parameter
}

// Directive returns the name of the directive the definition belongs to.
func (d *UsageDefinition) Directive() string {
	return d.directive
}

// Parameters returns a copy of the declared parameters in order.
func (d *UsageDefinition) Parameters() []Parameter {
	out := make([]Parameter, len(d.parameters))
	copy(out, d.parameters)
	return out
}

// Parameter returns the declared parameter called name.
func (d *UsageDefinition) Parameter(name string) (Parameter, bool) {
	for _, p := range d.parameters {
		if p.Name == name {
			return p, true
		}
	}
	return Parameter{}, false
}

// String renders the usage, for example:
//
//	parse-as-currency <source :column> <destination :column> [<locale 'text'>]
func (d *UsageDefinition) String() string {
	var sb strings.Builder
	sb.WriteString(d.directive)
	for _, p := range d.parameters {
		sb.WriteByte(' ')
		part := fmt.Sprintf("<%s %s>", p.Name, p.Type.placeholder())
		if p.Optional {
			part = "[" + part + "]"
		}
		sb.WriteString(part)
	}
	return sb.String()
}

// Builder assembles a UsageDefinition.
type Builder struct {
	def *UsageDefinition
}

// NewUsage starts a definition for the named directive.
func NewUsage(directive string) *Builder {
	return &Builder{def: &UsageDefinition{directive: directive}}
}

// Define declares a required parameter.
func (b *Builder) Define(name string, t TokenType) *Builder {
	return b.add(Parameter{Name: name, Type: t})
}

// DefineOptional declares an optional parameter.
func (b *Builder) DefineOptional(name string, t TokenType) *Builder {
	return b.add(Parameter{Name: name, Type: t, Optional: true})
}

func (b *Builder) add(p Parameter) *Builder {
	if _, exists := b.def.Parameter(p.Name); exists {
		panic(fmt.Sprintf("grammar: parameter %q declared twice for %s", p.Name, b.def.directive))
	}
	b.def.parameters = append(b.def.parameters, p)
	return b
}

// Build returns the definition.
func (b *Builder) Build() *UsageDefinition {
	return b.def
}
