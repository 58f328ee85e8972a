package numfmt

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// NumberError reports text that is not a number in the parser's format.
type NumberError struct {
	Input string
}

// Error implements the error interface.
func (e *NumberError) Error() string {
	return fmt.Sprintf("Unparseable number: %q", e.Input)
}

// CurrencyParser parses currency amounts written in one locale's format,
// such as "$1,234.56" for en_US or "1.234,56 €" for de_DE. A CurrencyParser is
// immutable and safe for concurrent use.
type CurrencyParser struct {
	locale  string
	symbols Symbols
	markers []string
}

// NewCurrencyParser resolves locale and prepares a parser for it. An empty
// locale selects DefaultLocale.
func NewCurrencyParser(locale string) (*CurrencyParser, error) {
	if strings.TrimSpace(locale) == "" {
		locale = DefaultLocale
	}
	tag, err := ResolveLocale(locale)
	if err != nil {
		return nil, err
	}
	syms, err := LocaleSymbols(tag)
	if err != nil {
		return nil, err
	}

	seen := map[string]bool{}
	var markers []string
	for _, m := range []string{syms.Symbol, syms.Narrow, syms.Currency} {
		if m != "" && !seen[m] {
			seen[m] = true
			markers = append(markers, m)
		}
	}
	// Longest first so "US$" is preferred over "$".
	sort.SliceStable(markers, func(i, j int) bool { return len(markers[i]) > len(markers[j]) })

	return &CurrencyParser{locale: locale, symbols: syms, markers: markers}, nil
}

// Locale returns the locale identifier the parser was built for.
func (p *CurrencyParser) Locale() string { return p.locale }

// Symbols returns the resolved currency and separator symbols.
func (p *CurrencyParser) Symbols() Symbols { return p.symbols }

// Parse converts s into an exact decimal. Surrounding whitespace is ignored.
// The currency symbol (or ISO code) is required, before or after the number.
// Negative amounts may be written with a leading minus on either side of the
// symbol or in accounting parentheses. The whole text must be consumed.
func (p *CurrencyParser) Parse(s string) (decimal.Decimal, error) {
	fail := func() (decimal.Decimal, error) {
		return decimal.Decimal{}, &NumberError{Input: s}
	}

	text := strings.TrimSpace(normalize(s))
	negative := false

	if strings.HasPrefix(text, "(") && strings.HasSuffix(text, ")") {
		negative = true
		text = strings.TrimSpace(text[1 : len(text)-1])
	}
	if strings.HasPrefix(text, "-") {
		if negative {
			return fail()
		}
		negative = true
		text = strings.TrimSpace(text[1:])
	}

	text, ok := p.stripMarker(text)
	if !ok {
		return fail()
	}
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, "-") {
		if negative {
			return fail()
		}
		negative = true
		text = strings.TrimSpace(text[1:])
	}

	plain, ok := p.digits(text)
	if !ok {
		return fail()
	}
	d, err := decimal.NewFromString(plain)
	if err != nil {
		return fail()
	}
	if negative {
		d = d.Neg()
	}
	return d, nil
}

// stripMarker removes the currency symbol from the start or end of text.
func (p *CurrencyParser) stripMarker(text string) (string, bool) {
	for _, m := range p.markers {
		if strings.HasPrefix(text, m) {
			return text[len(m):], true
		}
		if strings.HasSuffix(text, m) {
			return text[:len(text)-len(m)], true
		}
	}
	return text, false
}

// digits validates the numeric part and rewrites it with '.' as the decimal
// separator and no grouping. Group separators must sit between digits and may
// not follow the decimal separator.
func (p *CurrencyParser) digits(text string) (string, bool) {
	var b strings.Builder
	seenDigit, seenDecimal := false, false
	var prev rune

	runes := []rune(text)
	for i, r := range runes {
		switch {
		case isASCIIDigit(r):
			b.WriteRune(r)
			seenDigit = true
		case r == p.symbols.Decimal:
			if seenDecimal {
				return "", false
			}
			seenDecimal = true
			b.WriteByte('.')
		case p.symbols.Group != 0 && r == p.symbols.Group:
			last := i == len(runes)-1
			if seenDecimal || !isASCIIDigit(prev) || last || !isASCIIDigit(runes[i+1]) {
				return "", false
			}
		default:
			return "", false
		}
		prev = r
	}
	if !seenDigit {
		return "", false
	}
	return b.String(), true
}
