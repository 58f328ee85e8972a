package grammar

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Token is a typed argument value produced by the parser.
type Token struct {
	typ      TokenType
	position int
	text     string
	number   decimal.Decimal
	boolean  bool
	list     []string
	numbers  []decimal.Decimal
	props    map[string]string
}

// Type returns the token type.
func (t Token) Type() TokenType { return t.typ }

// Position returns the 1-based offset of the token in the parsed text.
func (t Token) Position() int { return t.position }

// String renders the token value.
func (t Token) String() string {
	switch t.typ {
	case Numeric:
		return t.number.String()
	case Bool:
		return fmt.Sprintf("%t", t.boolean)
	case ColumnNameList, TextList:
		return strings.Join(t.list, ",")
	case NumericList:
		parts := make([]string, len(t.numbers))
		for i, n := range t.numbers {
			parts[i] = n.String()
		}
		return strings.Join(parts, ",")
	case Properties:
		return fmt.Sprintf("%v", t.props)
	default:
		return t.text
	}
}
