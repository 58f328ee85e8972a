package grammar

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/cannectors/wrangler/internal/errhandling"
)

// Arguments holds the typed values bound by Parse, keyed by parameter name.
type Arguments struct {
	directive string
	line      int
	values    map[string]Token
}

func newArguments(directive string) *Arguments {
	return &Arguments{
		directive: directive,
		values:    make(map[string]Token),
	}
}

func (a *Arguments) set(name string, tok Token) {
	a.values[name] = tok
}

// Directive returns the directive name the arguments were parsed for.
func (a *Arguments) Directive() string { return a.directive }

// Line returns the recipe line of the invocation (0 if unknown).
func (a *Arguments) Line() int { return a.line }

// SetLine records the recipe line of the invocation.
func (a *Arguments) SetLine(line int) { a.line = line }

// Size returns the number of bound arguments.
func (a *Arguments) Size() int { return len(a.values) }

// Contains reports whether the argument called name was bound.
func (a *Arguments) Contains(name string) bool {
	_, ok := a.values[name]
	return ok
}

// Value returns the raw token bound to name.
func (a *Arguments) Value(name string) (Token, bool) {
	tok, ok := a.values[name]
	return tok, ok
}

// ColumnName returns a column name argument.
func (a *Arguments) ColumnName(name string) (string, error) {
	tok, err := a.typed(name, ColumnName)
	return tok.text, err
}

// Text returns a text argument.
func (a *Arguments) Text(name string) (string, error) {
	tok, err := a.typed(name, Text)
	return tok.text, err
}

// Identifier returns an identifier argument.
func (a *Arguments) Identifier(name string) (string, error) {
	tok, err := a.typed(name, Identifier)
	return tok.text, err
}

// Expression returns the source of an expression argument.
func (a *Arguments) Expression(name string) (string, error) {
	tok, err := a.typed(name, Expression)
	return tok.text, err
}

// Numeric returns a numeric argument as an exact decimal.
func (a *Arguments) Numeric(name string) (decimal.Decimal, error) {
	tok, err := a.typed(name, Numeric)
	return tok.number, err
}

// Bool returns a boolean argument.
func (a *Arguments) Bool(name string) (bool, error) {
	tok, err := a.typed(name, Bool)
	return tok.boolean, err
}

// ColumnNames returns a column list argument.
func (a *Arguments) ColumnNames(name string) ([]string, error) {
	tok, err := a.typed(name, ColumnNameList)
	return append([]string(nil), tok.list...), err
}

// Texts returns a text list argument.
func (a *Arguments) Texts(name string) ([]string, error) {
	tok, err := a.typed(name, TextList)
	return append([]string(nil), tok.list...), err
}

// Numbers returns a numeric list argument.
func (a *Arguments) Numbers(name string) ([]decimal.Decimal, error) {
	tok, err := a.typed(name, NumericList)
	return append([]decimal.Decimal(nil), tok.numbers...), err
}

// Properties returns a properties argument.
func (a *Arguments) Properties(name string) (map[string]string, error) {
	tok, err := a.typed(name, Properties)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(tok.props))
	for k, v := range tok.props {
		out[k] = v
	}
	return out, nil
}

func (a *Arguments) typed(name string, want TokenType) (Token, error) {
	tok, ok := a.values[name]
	if !ok {
		return Token{}, &errhandling.ParseError{
			Directive: a.directive,
			Argument:  name,
			Line:      a.line,
			Message:   "argument not provided",
		}
	}
	if tok.typ != want {
		return Token{}, &errhandling.ParseError{
			Directive: a.directive,
			Argument:  name,
			Line:      a.line,
			Position:  tok.position,
			Message:   fmt.Sprintf("argument is %s, not %s", tok.typ, want),
		}
	}
	return tok, nil
}
