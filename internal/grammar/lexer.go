package grammar

import (
	"fmt"
	"strings"
	"unicode"
)

type lexKind int

const (
	lexWord lexKind = iota
	lexColumn
	lexQuoted
	lexExpression
	lexProperties
	lexComma
)

func (k lexKind) String() string {
	switch k {
	case lexColumn:
		return "column"
	case lexQuoted:
		return "quoted text"
	case lexExpression:
		return "expression block"
	case lexProperties:
		return "properties block"
	case lexComma:
		return "','"
	default:
		return "word"
	}
}

// lexeme is a raw token with its 0-based offset in the source.
type lexeme struct {
	kind lexKind
	text string
	pos  int
}

// lexer scans directive arguments on demand so that a bare trailing
// expression can be taken verbatim without being tokenized.
type lexer struct {
	src   string
	pos   int
	named map[string]bool
}

// positionError is a lexing failure at a 0-based offset.
type positionError struct {
	pos int
	msg string
}

func (e *positionError) Error() string { return e.msg }

func newLexer(src string, named map[string]bool) *lexer {
	return &lexer{src: src, named: named}
}

func (l *lexer) skipSpace() {
	for l.pos < len(l.src) && isSpace(l.src[l.pos]) {
		l.pos++
	}
}

func (l *lexer) eof() bool {
	return l.pos >= len(l.src)
}

// rest consumes and returns the remaining source, trimmed.
func (l *lexer) rest() string {
	out := strings.TrimSpace(l.src[l.pos:])
	l.pos = len(l.src)
	return out
}

// peekComma reports whether the next non-space character is a comma.
func (l *lexer) peekComma() bool {
	i := l.pos
	for i < len(l.src) && isSpace(l.src[i]) {
		i++
	}
	return i < len(l.src) && l.src[i] == ','
}

// namedPrefix consumes "name=" when name is a declared parameter and the '='
// is not part of "==".
func (l *lexer) namedPrefix() (string, bool) {
	i := l.pos
	for i < len(l.src) && isNameChar(l.src[i]) {
		i++
	}
	if i == l.pos || i >= len(l.src) || l.src[i] != '=' {
		return "", false
	}
	if i+1 < len(l.src) && l.src[i+1] == '=' {
		return "", false
	}
	name := l.src[l.pos:i]
	if !l.named[name] {
		return "", false
	}
	l.pos = i + 1
	return name, true
}

// next returns the next lexeme. The caller skips whitespace first.
func (l *lexer) next() (lexeme, error) {
	start := l.pos
	c := l.src[l.pos]

	switch {
	case c == ',':
		l.pos++
		return lexeme{kind: lexComma, text: ",", pos: start}, nil

	case c == '\'' || c == '"':
		text, err := l.scanQuoted(c)
		if err != nil {
			return lexeme{}, err
		}
		return lexeme{kind: lexQuoted, text: text, pos: start}, nil

	case strings.HasPrefix(l.src[l.pos:], "exp:{"):
		l.pos += len("exp:")
		body, err := l.scanBlock()
		if err != nil {
			return lexeme{}, err
		}
		return lexeme{kind: lexExpression, text: strings.TrimSpace(body), pos: start}, nil

	case strings.HasPrefix(l.src[l.pos:], "prop:{"):
		l.pos += len("prop:")
		body, err := l.scanBlock()
		if err != nil {
			return lexeme{}, err
		}
		return lexeme{kind: lexProperties, text: body, pos: start}, nil

	case c == ':' && l.pos+1 < len(l.src) && isNameChar(l.src[l.pos+1]):
		l.pos++
		for l.pos < len(l.src) && isColumnChar(l.src[l.pos]) {
			l.pos++
		}
		return lexeme{kind: lexColumn, text: l.src[start+1 : l.pos], pos: start}, nil
	}

	for l.pos < len(l.src) && !isSpace(l.src[l.pos]) && l.src[l.pos] != ',' {
		l.pos++
	}
	return lexeme{kind: lexWord, text: l.src[start:l.pos], pos: start}, nil
}

// scanQuoted reads a quoted string starting at the opening quote.
// A backslash escapes the next character.
func (l *lexer) scanQuoted(quote byte) (string, error) {
	start := l.pos
	l.pos++
	var sb strings.Builder
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		switch {
		case c == '\\' && l.pos+1 < len(l.src):
			sb.WriteByte(l.src[l.pos+1])
			l.pos += 2
		case c == quote:
			l.pos++
			return sb.String(), nil
		default:
			sb.WriteByte(c)
			l.pos++
		}
	}
	return "", &positionError{pos: start, msg: "unterminated quoted text"}
}

// scanBlock reads a brace-delimited block starting at '{' and returns its body.
// Braces inside quoted strings are ignored.
func (l *lexer) scanBlock() (string, error) {
	start := l.pos
	depth := 0
	var quote byte
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		switch {
		case quote != 0:
			if c == '\\' {
				l.pos++
			} else if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"':
			quote = c
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				l.pos++
				return l.src[start+1 : l.pos-1], nil
			}
		}
		l.pos++
	}
	return "", &positionError{pos: start, msg: "unterminated block: missing '}'"}
}

// splitProperties parses "k=v,k2='v 2'" into a map.
func splitProperties(body string) (map[string]string, error) {
	props := make(map[string]string)
	var parts []string
	var current strings.Builder
	var quote byte
	for i := 0; i < len(body); i++ {
		c := body[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			} else {
				current.WriteByte(c)
			}
		case c == '\'' || c == '"':
			quote = c
		case c == ',':
			parts = append(parts, current.String())
			current.Reset()
		default:
			current.WriteByte(c)
		}
	}
	if quote != 0 {
		return nil, fmt.Errorf("unterminated quoted text in properties")
	}
	parts = append(parts, current.String())

	for _, part := range parts {
		if strings.TrimSpace(part) == "" {
			continue
		}
		key, value, ok := strings.Cut(part, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid property %q: expected key=value", strings.TrimSpace(part))
		}
		props[key] = strings.TrimSpace(value)
	}
	return props, nil
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r' || c == '\n'
}

func isNameChar(c byte) bool {
	return c == '_' || c == '-' || (c < 0x80 && (unicode.IsLetter(rune(c)) || unicode.IsDigit(rune(c))))
}

func isColumnChar(c byte) bool {
	return isNameChar(c) || c == '.' || c == '$'
}

// isColumnWord reports whether a bare word can stand for a column name.
func isColumnWord(s string) bool {
	if s == "" {
		return false
	}
	first := s[0]
	if !(first == '_' || first == '$' || (first < 0x80 && unicode.IsLetter(rune(first)))) {
		return false
	}
	for i := 1; i < len(s); i++ {
		if !isColumnChar(s[i]) {
			return false
		}
	}
	return true
}
