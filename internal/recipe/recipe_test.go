package recipe

import (
	"errors"
	"testing"

	"github.com/cannectors/wrangler/internal/directive"
	"github.com/cannectors/wrangler/internal/errhandling"
	"github.com/cannectors/wrangler/internal/grammar"
	"github.com/cannectors/wrangler/internal/registry"
	"github.com/cannectors/wrangler/pkg/row"
)

type spyDirective struct {
	destroyed *int
}

func (d *spyDirective) Define() *grammar.UsageDefinition {
	return grammar.NewUsage("spy").Build()
}

func (d *spyDirective) Initialize(*grammar.Arguments) error { return nil }

func (d *spyDirective) Execute(rows []*row.Row, _ directive.ExecutorContext) ([]*row.Row, error) {
	return rows, nil
}

func (d *spyDirective) Destroy() { *d.destroyed++ }

func registerSpy(t *testing.T) *int {
	t.Helper()
	destroyed := 0
	registry.Register("spy", func(directive.Options) directive.Directive {
		return &spyDirective{destroyed: &destroyed}
	})
	t.Cleanup(func() {
		registry.ClearRegistry()
		registry.RegisterBuiltins()
	})
	return &destroyed
}

func TestSplit(t *testing.T) {
	text := "// header comment\n" +
		"parse-as-currency :amount :usd 'en_US';\n" +
		"\n" +
		"# another comment\n" +
		"  fail usd > 10  \n" +
		"drop :a;\r\n" +
		";\n"

	got := Split(text)
	if len(got) != 3 {
		t.Fatalf("Split() returned %d statements, want 3: %+v", len(got), got)
	}

	tests := []struct {
		line   int
		name   string
		args   string
		offset int
	}{
		{2, "parse-as-currency", ":amount :usd 'en_US'", 18},
		{5, "fail", "usd > 10", 7},
		{6, "drop", ":a", 5},
	}
	for i, tt := range tests {
		st := got[i]
		if st.Line != tt.line || st.Name != tt.name || st.Arguments != tt.args || st.Offset != tt.offset {
			t.Errorf("statement %d = %+v, want line %d name %q args %q offset %d",
				i, st, tt.line, tt.name, tt.args, tt.offset)
		}
	}
}

func TestCompile(t *testing.T) {
	r, err := Compile(Join([]string{
		"parse-as-currency :amount :amount_usd",
		"fail amount_usd > 1000",
	}), directive.Options{})
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	defer r.Destroy()

	if r.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", r.Len())
	}
	if r.Steps[1].Name != "fail" || r.Steps[1].Line != 2 {
		t.Errorf("step 1 = %+v", r.Steps[1].Statement)
	}
}

func TestCompileErrors(t *testing.T) {
	tests := []struct {
		name         string
		text         string
		wantLine     int
		wantDir      string
		wantPosition int
	}{
		{"unknown directive", "fail a > 1\n\nexplode :x", 3, "explode", 9},
		{"missing argument", "parse-as-currency :a", 1, "parse-as-currency", 21},
		{"bad locale", "parse-as-currency :a :b 'xx yy'", 1, "parse-as-currency", 19},
		{"bad expression", "fail a >", 1, "fail", 6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compile(tt.text, directive.Options{})
			var parseErr *errhandling.ParseError
			if !errors.As(err, &parseErr) {
				t.Fatalf("Compile() error = %v, want *errhandling.ParseError", err)
			}
			if parseErr.Line != tt.wantLine {
				t.Errorf("Line = %d, want %d", parseErr.Line, tt.wantLine)
			}
			if parseErr.Directive != tt.wantDir {
				t.Errorf("Directive = %q, want %q", parseErr.Directive, tt.wantDir)
			}
			if parseErr.Position != tt.wantPosition {
				t.Errorf("Position = %d, want %d", parseErr.Position, tt.wantPosition)
			}
			if !errhandling.IsFatal(err) {
				t.Error("compile errors must be fatal")
			}
		})
	}
}

func TestCompileFailureDestroysInitializedDirectives(t *testing.T) {
	destroyed := registerSpy(t)

	_, err := Compile("spy\nspy\nexplode", directive.Options{})
	if err == nil {
		t.Fatal("Compile() expected error")
	}
	if *destroyed != 2 {
		t.Errorf("destroyed = %d, want 2", *destroyed)
	}
}

func TestRecipeDestroyIsIdempotent(t *testing.T) {
	destroyed := registerSpy(t)

	r, err := Compile("spy", directive.Options{})
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	r.Destroy()
	r.Destroy()
	if *destroyed != 1 {
		t.Errorf("destroyed = %d, want 1", *destroyed)
	}
}

func TestValidate(t *testing.T) {
	if err := Validate("drop :a\nrename :b :c", directive.Options{}); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
	if err := Validate("rename :b", directive.Options{}); err == nil {
		t.Error("Validate() expected error")
	}
}
