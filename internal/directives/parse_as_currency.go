package directives

import (
	"strings"

	"github.com/cannectors/wrangler/internal/directive"
	"github.com/cannectors/wrangler/internal/errhandling"
	"github.com/cannectors/wrangler/internal/grammar"
	"github.com/cannectors/wrangler/internal/logger"
	"github.com/cannectors/wrangler/internal/numfmt"
	"github.com/cannectors/wrangler/pkg/row"
)

// ParseAsCurrencyName is the recipe name of the parse-as-currency directive.
const ParseAsCurrencyName = "parse-as-currency"

// ParseAsCurrency parses locale formatted currency text into a number.
//
//	parse-as-currency <source> <destination> [<locale>]
//
// Rows without the source column, with a non-text value or with blank text
// pass through unchanged. Text that does not parse rejects the row with
// errhandling.CodeParseFailure.
type ParseAsCurrency struct {
	source      string
	destination string
	parser      *numfmt.CurrencyParser
}

// NewParseAsCurrency returns an uninitialized parse-as-currency directive.
func NewParseAsCurrency(directive.Options) directive.Directive {
	return &ParseAsCurrency{}
}

// Define implements directive.Directive.
func (d *ParseAsCurrency) Define() *grammar.UsageDefinition {
	return grammar.NewUsage(ParseAsCurrencyName).
		Define("source", grammar.ColumnName).
		Define("destination", grammar.ColumnName).
		DefineOptional("locale", grammar.Text).
		Build()
}

// Initialize implements directive.Directive.
func (d *ParseAsCurrency) Initialize(args *grammar.Arguments) error {
	source, err := args.ColumnName("source")
	if err != nil {
		return err
	}
	destination, err := args.ColumnName("destination")
	if err != nil {
		return err
	}

	locale := numfmt.DefaultLocale
	if args.Contains("locale") {
		if locale, err = args.Text("locale"); err != nil {
			return err
		}
	}

	parser, err := numfmt.NewCurrencyParser(locale)
	if err != nil {
		return &errhandling.ParseError{
			Directive: args.Directive(),
			Argument:  "locale",
			Line:      args.Line(),
			Message:   err.Error(),
			Cause:     err,
		}
	}

	d.source, d.destination, d.parser = source, destination, parser
	logger.Debug("parse-as-currency directive initialized",
		"source", source,
		"destination", destination,
		"locale", locale,
		"currency", parser.Symbols().Currency,
	)
	return nil
}

// Execute implements directive.Directive. The destination receives the parsed
// amount as a float, added or overwritten.
func (d *ParseAsCurrency) Execute(rows []*row.Row, ctx directive.ExecutorContext) ([]*row.Row, error) {
	parsed := 0
	defer func() { count(ctx, ParseAsCurrencyName+".parsed", parsed) }()

	for _, r := range rows {
		idx := r.Find(d.source)
		if idx == -1 {
			continue
		}
		text, ok := r.Value(idx).AsString()
		if !ok || strings.TrimSpace(text) == "" {
			continue
		}

		amount, err := d.parser.Parse(text)
		if err != nil {
			count(ctx, ParseAsCurrencyName+".failed", 1)
			return nil, &errhandling.ErrorRow{
				Code:    errhandling.CodeParseFailure,
				Message: err.Error(),
				Cause:   err,
			}
		}
		r.AddOrSet(d.destination, row.Float(amount.InexactFloat64()))
		parsed++
	}
	return rows, nil
}

// Destroy implements directive.Directive.
func (d *ParseAsCurrency) Destroy() {}
