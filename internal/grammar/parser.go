package grammar

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/cannectors/wrangler/internal/errhandling"
)

// Parse matches the argument text of one directive invocation against def.
// The text excludes the directive name. Positions in returned errors and tokens
// are 1-based offsets into text.
//
// Parameters are bound positionally in declaration order unless written as
// name=value. A bare (non exp:{}) expression consumes the rest of the text and
// is only allowed when every parameter declared after it is optional; those
// parameters are then left unset.
func Parse(def *UsageDefinition, text string) (*Arguments, error) {
	named := make(map[string]bool, len(def.parameters))
	for _, p := range def.parameters {
		named[p.Name] = true
	}

	p := &parser{
		def:  def,
		lx:   newLexer(text, named),
		args: newArguments(def.directive),
	}
	if err := p.run(); err != nil {
		return nil, err
	}
	return p.args, nil
}

type parser struct {
	def  *UsageDefinition
	lx   *lexer
	args *Arguments
}

func (p *parser) run() error {
	params := p.def.parameters
	next := 0

	for {
		p.lx.skipSpace()
		if p.lx.eof() {
			break
		}

		start := p.lx.pos
		if name, ok := p.lx.namedPrefix(); ok {
			if p.args.Contains(name) {
				return p.errorAt(name, start, "argument given more than once")
			}
			param, _ := p.def.Parameter(name)
			p.lx.skipSpace()
			if p.lx.eof() {
				return p.errorAt(name, p.lx.pos, "missing value for named argument")
			}
			tok, err := p.value(param, p.trailing(param))
			if err != nil {
				return err
			}
			p.args.set(name, tok)
			continue
		}

		for next < len(params) && p.args.Contains(params[next].Name) {
			next++
		}
		if next >= len(params) {
			lx, _ := p.lx.next()
			return p.errorAt("", start, fmt.Sprintf("unexpected token %q: too many arguments", lx.text))
		}

		param := params[next]
		tok, err := p.value(param, p.trailing(param))
		if err != nil {
			return err
		}
		p.args.set(param.Name, tok)
		next++
	}

	for _, param := range params {
		if !param.Optional && !p.args.Contains(param.Name) {
			return p.errorAt(param.Name, len(p.lx.src), "missing required argument of type "+string(param.Type))
		}
	}
	return nil
}

// trailing reports whether only optional parameters are declared after param.
func (p *parser) trailing(param Parameter) bool {
	params := p.def.parameters
	for i := len(params) - 1; i >= 0; i-- {
		if params[i].Name == param.Name {
			return true
		}
		if !params[i].Optional {
			return false
		}
	}
	return false
}

// value parses the token for param at the current position.
func (p *parser) value(param Parameter, trailing bool) (Token, error) {
	start := p.lx.pos

	if param.Type == Expression {
		return p.expression(param, trailing)
	}

	switch param.Type {
	case ColumnNameList, TextList, NumericList:
		return p.list(param)
	}

	lx, err := p.lex(param.Name)
	if err != nil {
		return Token{}, err
	}
	tok := Token{typ: param.Type, position: start + 1}

	switch param.Type {
	case ColumnName:
		name, ok := columnValue(lx)
		if !ok {
			return Token{}, p.unexpected(param, lx, "column name")
		}
		tok.text = name

	case Text:
		switch lx.kind {
		case lexQuoted, lexWord:
			tok.text = lx.text
		default:
			return Token{}, p.unexpected(param, lx, "text")
		}

	case Numeric:
		n, ok := numericValue(lx)
		if !ok {
			return Token{}, p.unexpected(param, lx, "numeric literal")
		}
		tok.number = n

	case Bool:
		if lx.kind != lexWord {
			return Token{}, p.unexpected(param, lx, "boolean")
		}
		switch strings.ToLower(lx.text) {
		case "true":
			tok.boolean = true
		case "false":
			tok.boolean = false
		default:
			return Token{}, p.unexpected(param, lx, "boolean")
		}

	case Properties:
		if lx.kind != lexProperties {
			return Token{}, p.unexpected(param, lx, "properties block prop:{...}")
		}
		props, err := splitProperties(lx.text)
		if err != nil {
			return Token{}, p.errorAt(param.Name, lx.pos, err.Error())
		}
		tok.props = props

	case Identifier, DirectiveName:
		if lx.kind != lexWord || !isColumnWord(lx.text) {
			return Token{}, p.unexpected(param, lx, "identifier")
		}
		tok.text = lx.text

	default:
		return Token{}, p.errorAt(param.Name, lx.pos, fmt.Sprintf("unknown token type %s", param.Type))
	}

	return tok, nil
}

// expression parses an exp:{...} block, or the bare remainder when param is
// trailing.
func (p *parser) expression(param Parameter, trailing bool) (Token, error) {
	start := p.lx.pos
	tok := Token{typ: Expression, position: start + 1}

	if strings.HasPrefix(p.lx.src[start:], "exp:{") {
		lx, err := p.lex(param.Name)
		if err != nil {
			return Token{}, err
		}
		tok.text = lx.text
	} else {
		if !trailing {
			return Token{}, p.errorAt(param.Name, start, "expected expression block exp:{...}")
		}
		tok.text = p.lx.rest()
	}

	if tok.text == "" {
		return Token{}, p.errorAt(param.Name, start, "empty expression")
	}
	return tok, nil
}

// list parses a comma separated list of items for list typed parameters.
func (p *parser) list(param Parameter) (Token, error) {
	tok := Token{typ: param.Type, position: p.lx.pos + 1}

	for {
		p.lx.skipSpace()
		if p.lx.eof() {
			return Token{}, p.errorAt(param.Name, p.lx.pos, "missing list item")
		}
		lx, err := p.lex(param.Name)
		if err != nil {
			return Token{}, err
		}

		switch param.Type {
		case ColumnNameList:
			name, ok := columnValue(lx)
			if !ok {
				return Token{}, p.unexpected(param, lx, "column name")
			}
			tok.list = append(tok.list, name)
		case TextList:
			if lx.kind != lexQuoted && lx.kind != lexWord {
				return Token{}, p.unexpected(param, lx, "text")
			}
			tok.list = append(tok.list, lx.text)
		case NumericList:
			n, ok := numericValue(lx)
			if !ok {
				return Token{}, p.unexpected(param, lx, "numeric literal")
			}
			tok.numbers = append(tok.numbers, n)
		}

		if !p.lx.peekComma() {
			return tok, nil
		}
		p.lx.skipSpace()
		p.lx.pos++
	}
}

// lex reads one lexeme, converting lexing failures into parse errors.
func (p *parser) lex(argument string) (lexeme, error) {
	lx, err := p.lx.next()
	if err != nil {
		var posErr *positionError
		if errors.As(err, &posErr) {
			return lexeme{}, p.errorAt(argument, posErr.pos, posErr.msg)
		}
		return lexeme{}, p.errorAt(argument, p.lx.pos, err.Error())
	}
	return lx, nil
}

func (p *parser) unexpected(param Parameter, lx lexeme, want string) error {
	return p.errorAt(param.Name, lx.pos, fmt.Sprintf("expected %s, found %s %q", want, lx.kind, lx.text))
}

func (p *parser) errorAt(argument string, offset int, message string) error {
	return &errhandling.ParseError{
		Directive: p.def.directive,
		Argument:  argument,
		Position:  offset + 1,
		Message:   message,
	}
}

func columnValue(lx lexeme) (string, bool) {
	switch lx.kind {
	case lexColumn:
		return lx.text, true
	case lexWord:
		if isColumnWord(lx.text) {
			return lx.text, true
		}
	}
	return "", false
}

func numericValue(lx lexeme) (decimal.Decimal, bool) {
	if lx.kind != lexWord {
		return decimal.Decimal{}, false
	}
	n, err := decimal.NewFromString(lx.text)
	if err != nil {
		return decimal.Decimal{}, false
	}
	return n, true
}
