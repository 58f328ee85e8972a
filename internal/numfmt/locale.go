// Package numfmt resolves locales and parses locale formatted numbers into
// exact decimals.
package numfmt

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/unicode/norm"
)

// DefaultLocale is used when no locale is given.
const DefaultLocale = "en_US"

// ResolveLocale parses a locale identifier. Both en_US and en-US forms are
// accepted; an empty identifier resolves DefaultLocale.
func ResolveLocale(id string) (language.Tag, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		id = DefaultLocale
	}
	tag, err := language.Parse(strings.ReplaceAll(id, "_", "-"))
	if err != nil {
		return language.Und, fmt.Errorf("invalid locale %q: %w", id, err)
	}
	return tag, nil
}

// Symbols describes how a locale writes currency amounts.
type Symbols struct {
	Currency string // ISO 4217 code
	Symbol   string // localized symbol, falls back to Currency
	Narrow   string // narrow symbol, may equal Symbol
	Decimal  rune
	Group    rune // 0 when the locale does not group digits
}

// LocaleSymbols derives currency and separator symbols for tag.
func LocaleSymbols(tag language.Tag) (Symbols, error) {
	unit, conf := currency.FromTag(tag)
	if conf == language.No {
		return Symbols{}, fmt.Errorf("locale %s has no currency", tag)
	}

	p := message.NewPrinter(tag)
	s := Symbols{
		Currency: unit.String(),
		Symbol:   normalize(p.Sprint(currency.Symbol(unit))),
		Narrow:   normalize(p.Sprint(currency.NarrowSymbol(unit))),
		Decimal:  '.',
		Group:    ',',
	}
	if s.Symbol == "" {
		s.Symbol = s.Currency
	}
	if s.Narrow == "" {
		s.Narrow = s.Symbol
	}

	if dec, grp, ok := separators(normalize(p.Sprintf("%.2f", 1234567.5))); ok {
		s.Decimal, s.Group = dec, grp
	}
	return s, nil
}

// separators inspects a formatted 1234567.50 sample.
func separators(sample string) (decimal, group rune, ok bool) {
	runes := []rune(sample)
	n := len(runes)
	if n < 4 || !isASCIIDigit(runes[n-1]) || !isASCIIDigit(runes[n-2]) || isASCIIDigit(runes[n-3]) {
		return 0, 0, false
	}
	decimal = runes[n-3]
	for _, r := range runes[:n-3] {
		if !isASCIIDigit(r) {
			group = r
			break
		}
	}
	if group == decimal {
		return 0, 0, false
	}
	return decimal, group, true
}

// normalize folds compatibility characters (no-break and narrow spaces,
// full-width signs) so locale data and input compare equal.
func normalize(s string) string {
	s = norm.NFKC.String(s)
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return ' '
		}
		if r == '−' {
			return '-'
		}
		return r
	}, s)
}

func isASCIIDigit(r rune) bool {
	return r >= '0' && r <= '9'
}
