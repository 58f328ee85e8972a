package directives

import (
	"errors"
	"net/url"
	"strings"
	"testing"

	"github.com/cannectors/wrangler/internal/directive"
	"github.com/cannectors/wrangler/internal/errhandling"
	"github.com/cannectors/wrangler/internal/expression"
	"github.com/cannectors/wrangler/internal/grammar"
	"github.com/cannectors/wrangler/pkg/row"
)

type fakeMetrics struct {
	counts map[string]int
}

func (m *fakeMetrics) Count(name string, delta int) {
	if m.counts == nil {
		m.counts = map[string]int{}
	}
	m.counts[name] += delta
}

func (m *fakeMetrics) Gauge(string, float64) {}

type fakeLookup map[string]*row.Row

func (l fakeLookup) Lookup(key string) (*row.Row, error) {
	if key == "boom" {
		return nil, errors.New("connection reset")
	}
	return l[key], nil
}

type fakeContext struct {
	metrics  fakeMetrics
	datasets map[string]directive.Lookup
}

func (c *fakeContext) Environment() directive.Environment { return directive.EnvironmentTesting }
func (c *fakeContext) Metrics() directive.Metrics { return &c.metrics }
func (c *fakeContext) ContextName() string { return "test" }
func (c *fakeContext) Properties() map[string]string { return nil }

func (c *fakeContext) ServiceURL(string, string) *url.URL { return nil }

func (c *fakeContext) Provide(dataset string, _ map[string]string) (directive.Lookup, error) {
	l, ok := c.datasets[dataset]
	if !ok {
		return nil, errors.New("unknown dataset " + dataset)
	}
	return l, nil
}

func initialize(t *testing.T, d directive.Directive, text string) {
	t.Helper()
	args, err := grammar.Parse(d.Define(), text)
	if err != nil {
		t.Fatalf("Parse(%q) error = %v", text, err)
	}
	args.SetLine(1)
	if err := d.Initialize(args); err != nil {
		t.Fatalf("Initialize(%q) error = %v", text, err)
	}
	t.Cleanup(d.Destroy)
}

func initializeErr(t *testing.T, d directive.Directive, text string) error {
	t.Helper()
	args, err := grammar.Parse(d.Define(), text)
	if err != nil {
		t.Fatalf("Parse(%q) error = %v", text, err)
	}
	args.SetLine(3)
	return d.Initialize(args)
}

func TestFailPassesRowsWhenConditionFalse(t *testing.T) {
	d := NewFail(directive.Options{})
	initialize(t, d, "value > 100")

	rows := []*row.Row{row.Of("value", 5), row.Of("value", 100)}
	want := []*row.Row{rows[0].Copy(), rows[1].Copy()}

	got, err := d.Execute(rows, &fakeContext{})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("Execute() returned %d rows, want %d", len(got), len(want))
	}
	for i := range want {
		if !got[i].Equal(want[i]) {
			t.Errorf("row %d = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestFailHaltsWhenConditionTrue(t *testing.T) {
	d := NewFail(directive.Options{})
	initialize(t, d, "value > 100")

	_, err := d.Execute([]*row.Row{row.Of("value", 150)}, &fakeContext{})
	if err == nil {
		t.Fatal("Execute() expected error")
	}
	if !errhandling.IsFatal(err) {
		t.Errorf("error should be fatal, got %v", err)
	}
	want := "Condition 'value > 100' evaluated to true. Terminating processing."
	if !strings.Contains(err.Error(), want) {
		t.Errorf("Execute() error = %q, want %q", err, want)
	}
}

func TestFailEvaluationErrors(t *testing.T) {
	tests := []struct {
		name      string
		condition string
		row       *row.Row
		want      string
	}{
		{"number format", "toDouble(value) > 1", row.Of("value", "abc"), "type mismatch. Change type of constant"},
		{"type mismatch", "value > 100", row.Of("value", "abc"), "type coercion failure"},
		{"non boolean", "value + 1", row.Of("value", 1), "expected a boolean"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewFail(directive.Options{})
			initialize(t, d, tt.condition)

			_, err := d.Execute([]*row.Row{tt.row}, &fakeContext{})
			if err == nil {
				t.Fatal("Execute() expected error")
			}
			if !errhandling.IsFatal(err) {
				t.Errorf("error should be fatal: %v", err)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Execute() error = %q, want substring %q", err, tt.want)
			}
		})
	}
}

func TestFailRethrowsRowErrorUnchanged(t *testing.T) {
	for _, lang := range []string{expression.LangExpr, expression.LangJS} {
		t.Run(lang, func(t *testing.T) {
			ev, _ := expression.New(lang)
			d := NewFail(directive.Options{Evaluator: ev})
			initialize(t, d, "value < 0 ? rowError('negative') : false")

			_, err := d.Execute([]*row.Row{row.Of("value", -3)}, &fakeContext{})
			marker, ok := err.(*errhandling.ErrorRow)
			if !ok {
				t.Fatalf("Execute() error = %T %v, want *errhandling.ErrorRow", err, err)
			}
			if marker.Message != "negative" {
				t.Errorf("Message = %q, want negative", marker.Message)
			}
		})
	}
}

func TestFailInvalidExpression(t *testing.T) {
	err := initializeErr(t, NewFail(directive.Options{}), "value >")
	var parseErr *errhandling.ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("Initialize() error = %v, want *errhandling.ParseError", err)
	}
	if parseErr.Argument != "condition" || parseErr.Line != 3 || parseErr.Directive != FailName {
		t.Errorf("ParseError = %+v", parseErr)
	}
}

func TestParseAsCurrencyExample(t *testing.T) {
	d := NewParseAsCurrency(directive.Options{})
	initialize(t, d, "amount amount_usd en_US")
	ctx := &fakeContext{}

	got, err := d.Execute([]*row.Row{row.Of("amount", "$1,234.56")}, ctx)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	want := row.Of("amount", "$1,234.56", "amount_usd", 1234.56)
	if !got[0].Equal(want) {
		t.Errorf("Execute() = %s, want %s", got[0], want)
	}
	if ctx.metrics.counts[ParseAsCurrencyName+".parsed"] != 1 {
		t.Errorf("metrics = %v", ctx.metrics.counts)
	}

	// Re-running over the output yields the same row.
	again, err := d.Execute(got, ctx)
	if err != nil {
		t.Fatalf("second Execute() error = %v", err)
	}
	if !again[0].Equal(want) {
		t.Errorf("second Execute() = %s, want %s", again[0], want)
	}
}

func TestParseAsCurrencyParseFailureIsPerRow(t *testing.T) {
	d := NewParseAsCurrency(directive.Options{})
	initialize(t, d, ":amount :amount_usd")

	original := row.Of("amount", "abc")
	_, err := d.Execute([]*row.Row{original}, &fakeContext{})

	marker, ok := errhandling.AsErrorRow(err)
	if !ok {
		t.Fatalf("Execute() error = %v, want per-row error", err)
	}
	if marker.Code != errhandling.CodeParseFailure {
		t.Errorf("Code = %d, want %d", marker.Code, errhandling.CodeParseFailure)
	}
	if marker.Message != `Unparseable number: "abc"` {
		t.Errorf("Message = %q", marker.Message)
	}
	if !original.Equal(row.Of("amount", "abc")) {
		t.Errorf("row modified on failure: %s", original)
	}
}

func TestParseAsCurrencySkipsRows(t *testing.T) {
	tests := []struct {
		name string
		row  *row.Row
	}{
		{"absent source", row.Of("other", "$1.00")},
		{"null source", row.Of("amount", nil)},
		{"non text source", row.Of("amount", 12)},
		{"blank source", row.Of("amount", "   ")},
		{"empty source", row.Of("amount", "")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewParseAsCurrency(directive.Options{})
			initialize(t, d, ":amount :out")

			before := tt.row.Copy()
			got, err := d.Execute([]*row.Row{tt.row}, &fakeContext{})
			if err != nil {
				t.Fatalf("Execute() error = %v", err)
			}
			if !got[0].Equal(before) {
				t.Errorf("Execute() = %s, want unchanged %s", got[0], before)
			}
		})
	}
}

func TestParseAsCurrencyOverwritesDestination(t *testing.T) {
	d := NewParseAsCurrency(directive.Options{})
	initialize(t, d, ":amount :amount")

	got, err := d.Execute([]*row.Row{row.Of("amount", "$2.50", "note", "x")}, &fakeContext{})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	want := row.Of("amount", 2.5, "note", "x")
	if !got[0].Equal(want) {
		t.Errorf("Execute() = %s, want %s", got[0], want)
	}
}

func TestParseAsCurrencyInvalidLocale(t *testing.T) {
	err := initializeErr(t, NewParseAsCurrency(directive.Options{}), ":a :b 'not a locale'")
	var parseErr *errhandling.ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("Initialize() error = %v, want *errhandling.ParseError", err)
	}
	if parseErr.Argument != "locale" {
		t.Errorf("Argument = %q, want locale", parseErr.Argument)
	}
}

func TestSetColumn(t *testing.T) {
	d := NewSetColumn(directive.Options{})
	initialize(t, d, ":total price * qty")

	got, err := d.Execute([]*row.Row{row.Of("price", 3, "qty", 4)}, &fakeContext{})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	v, _ := got[0].Get("total")
	if n, ok := v.AsInt(); !ok || n != 12 {
		t.Errorf("total = %v, want 12", v)
	}
}

func TestFilterRowIfTrue(t *testing.T) {
	d := NewFilterRowIfTrue(directive.Options{})
	initialize(t, d, "status == 'void'")
	ctx := &fakeContext{}

	rows := []*row.Row{
		row.Of("id", 1, "status", "ok"),
		row.Of("id", 2, "status", "void"),
		row.Of("id", 3, "status", "ok"),
	}
	got, err := d.Execute(rows, ctx)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Execute() returned %d rows, want 2", len(got))
	}
	if id, _ := got[1].Get("id"); id.String() != "3" {
		t.Errorf("second row id = %s, want 3", id)
	}
	if len(rows) != 3 || rows[1] == nil {
		t.Error("input slice must not be modified")
	}
	if ctx.metrics.counts[FilterRowIfTrueName+".filtered"] != 1 {
		t.Errorf("metrics = %v", ctx.metrics.counts)
	}
}

func TestSendToError(t *testing.T) {
	d := NewSendToError(directive.Options{})
	initialize(t, d, "exp:{ age < 0 } 'negative age'")

	if _, err := d.Execute([]*row.Row{row.Of("age", 4)}, &fakeContext{}); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	_, err := d.Execute([]*row.Row{row.Of("age", -1)}, &fakeContext{})
	marker, ok := errhandling.AsErrorRow(err)
	if !ok {
		t.Fatalf("Execute() error = %v, want per-row error", err)
	}
	if marker.Code != errhandling.CodeConditionMatched || marker.Message != "negative age" {
		t.Errorf("ErrorRow = %+v", marker)
	}
}

func TestSendToErrorBareCondition(t *testing.T) {
	d := NewSendToError(directive.Options{})
	initialize(t, d, "amount_usd > 1000")

	if _, err := d.Execute([]*row.Row{row.Of("amount_usd", 12.5)}, &fakeContext{}); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	_, err := d.Execute([]*row.Row{row.Of("amount_usd", 1500.0)}, &fakeContext{})
	marker, ok := errhandling.AsErrorRow(err)
	if !ok {
		t.Fatalf("Execute() error = %v, want per-row error", err)
	}
	if marker.Message != "Condition 'amount_usd > 1000' evaluated to true" {
		t.Errorf("ErrorRow.Message = %q", marker.Message)
	}
}

func TestDropAndRename(t *testing.T) {
	drop := NewDrop(directive.Options{})
	initialize(t, drop, ":a, :missing, :c")
	rename := NewRename(directive.Options{})
	initialize(t, rename, ":b :beta")

	rows := []*row.Row{row.Of("a", 1, "b", 2, "c", 3)}
	rows, err := drop.Execute(rows, &fakeContext{})
	if err != nil {
		t.Fatalf("drop Execute() error = %v", err)
	}
	rows, err = rename.Execute(rows, &fakeContext{})
	if err != nil {
		t.Fatalf("rename Execute() error = %v", err)
	}
	if want := row.Of("beta", 2); !rows[0].Equal(want) {
		t.Errorf("row = %s, want %s", rows[0], want)
	}
}

func TestRenameOntoExistingColumnIsFatal(t *testing.T) {
	d := NewRename(directive.Options{})
	initialize(t, d, ":a :b")

	_, err := d.Execute([]*row.Row{row.Of("a", 1, "b", 2)}, &fakeContext{})
	if err == nil || !errhandling.IsFatal(err) {
		t.Errorf("Execute() error = %v, want fatal error", err)
	}
}

func TestTableLookup(t *testing.T) {
	ctx := &fakeContext{datasets: map[string]directive.Lookup{
		"customers": fakeLookup{"7": row.Of("name", "Ada", "tier", "gold")},
	}}
	d := NewTableLookup(directive.Options{})
	initialize(t, d, ":customer 'customers'")

	got, err := d.Execute([]*row.Row{row.Of("customer", 7), row.Of("customer", 8)}, ctx)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	want := row.Of("customer", 7, "customer_name", "Ada", "customer_tier", "gold")
	if !got[0].Equal(want) {
		t.Errorf("row 0 = %s, want %s", got[0], want)
	}
	if got[1].Length() != 1 {
		t.Errorf("row 1 = %s, want unchanged", got[1])
	}

	_, err = d.Execute([]*row.Row{row.Of("customer", "boom")}, ctx)
	if marker, ok := errhandling.AsErrorRow(err); !ok || marker.Code != errhandling.CodeLookupFailure {
		t.Errorf("Execute() error = %v, want lookup failure row error", err)
	}
}

func TestTableLookupUnknownDatasetIsFatal(t *testing.T) {
	d := NewTableLookup(directive.Options{})
	initialize(t, d, ":customer 'nope'")

	_, err := d.Execute([]*row.Row{row.Of("customer", 1)}, &fakeContext{})
	if err == nil || !errhandling.IsFatal(err) {
		t.Errorf("Execute() error = %v, want fatal error", err)
	}
}
