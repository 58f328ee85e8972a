package config

import (
	"os"
	"path/filepath"
	"testing"
)

const ordersYAML = `name: orders
recipe:
  - parse-as-currency :amount :amount_usd 'en_US'
  - fail amount_usd > 1000
execution:
  batchSize: 50
  workers: 4
`

const ordersJSON = `{
  "name": "orders",
  "recipe": ["parse-as-currency :amount :amount_usd 'en_US'"],
  "execution": {"batchSize": 50, "workers": 4}
}`

const ordersTOML = `name = "orders"
recipe = ["parse-as-currency :amount :amount_usd 'en_US'"]

[execution]
batchSize = 50
workers = 4
`

func TestParseString(t *testing.T) {
	tests := []struct {
		name       string
		content    string
		format     string
		wantFormat string
	}{
		{"yaml", ordersYAML, FormatYAML, FormatYAML},
		{"json", ordersJSON, FormatJSON, FormatJSON},
		{"toml", ordersTOML, FormatTOML, FormatTOML},
		{"sniff yaml", ordersYAML, "", FormatYAML},
		{"sniff json", ordersJSON, "", FormatJSON},
		{"sniff toml", ordersTOML, "", FormatTOML},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ParseString(tt.content, tt.format)
			if !result.IsValid() {
				t.Fatalf("ParseString() errors = %v", result.Errors)
			}
			if result.Format != tt.wantFormat {
				t.Errorf("Format = %q, want %q", result.Format, tt.wantFormat)
			}
			if result.Data["name"] != "orders" {
				t.Errorf("name = %v, want orders", result.Data["name"])
			}
			exec, ok := result.Data["execution"].(map[string]interface{})
			if !ok {
				t.Fatalf("execution = %T, want map", result.Data["execution"])
			}
			// All formats normalize numbers to float64.
			if exec["workers"] != float64(4) {
				t.Errorf("workers = %#v, want float64(4)", exec["workers"])
			}
			if _, ok := result.Data["recipe"].([]interface{}); !ok {
				t.Errorf("recipe = %T, want []interface{}", result.Data["recipe"])
			}
		})
	}
}

func TestParseStringErrors(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		format   string
		wantType string
		wantLine int
	}{
		{"json syntax", "{\n  \"name\": \"x\",\n}", FormatJSON, ErrorTypeSyntax, 3},
		{"json array root", `["a"]`, FormatJSON, ErrorTypeFormat, 0},
		{"json empty", "   ", FormatJSON, ErrorTypeSyntax, 0},
		{"yaml tab", "name: x\n\trecipe: y\n", FormatYAML, ErrorTypeSyntax, 2},
		{"yaml scalar root", "just text", FormatYAML, ErrorTypeFormat, 0},
		{"toml syntax", "name = \"x\"\nworkers = = 3\n", FormatTOML, ErrorTypeSyntax, 2},
		{"unsupported", "a: b", "xml", ErrorTypeFormat, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ParseString(tt.content, tt.format)
			if result.IsValid() {
				t.Fatal("ParseString() expected errors")
			}
			got := result.Errors[0]
			if got.Type != tt.wantType {
				t.Errorf("Type = %q, want %q (%v)", got.Type, tt.wantType, got)
			}
			if tt.wantLine > 0 && got.Line != tt.wantLine {
				t.Errorf("Line = %d, want %d (%v)", got.Line, tt.wantLine, got)
			}
		})
	}
}

func TestParseFile(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) string {
		p := filepath.Join(dir, name)
		if err := os.WriteFile(p, []byte(content), 0o600); err != nil {
			t.Fatalf("WriteFile() error = %v", err)
		}
		return p
	}

	tests := []struct {
		name       string
		path       string
		wantFormat string
	}{
		{"yml extension", write("a.yml", ordersYAML), FormatYAML},
		{"toml extension", write("a.toml", ordersTOML), FormatTOML},
		{"no extension", write("pipeline", ordersJSON), FormatJSON},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ParseFile(tt.path)
			if !result.IsValid() {
				t.Fatalf("ParseFile() errors = %v", result.Errors)
			}
			if result.Format != tt.wantFormat || result.FilePath != tt.path {
				t.Errorf("ParseFile() = %q %q", result.Format, result.FilePath)
			}
		})
	}

	t.Run("missing file", func(t *testing.T) {
		result := ParseFile(filepath.Join(dir, "missing.yaml"))
		if result.IsValid() || result.Errors[0].Type != ErrorTypeIO {
			t.Errorf("ParseFile() errors = %v, want io error", result.Errors)
		}
	})

	t.Run("error carries path", func(t *testing.T) {
		p := write("broken.json", "{")
		result := ParseFile(p)
		if result.IsValid() || result.Errors[0].Path != p {
			t.Errorf("ParseFile() errors = %v, want path %s", result.Errors, p)
		}
	})
}

func TestDetectFormat(t *testing.T) {
	tests := map[string]string{
		"p.json": FormatJSON,
		"p.YAML": FormatYAML,
		"p.yml":  FormatYAML,
		"p.toml": FormatTOML,
		"p.txt":  "",
		"p":      "",
	}
	for path, want := range tests {
		if got := DetectFormat(path); got != want {
			t.Errorf("DetectFormat(%q) = %q, want %q", path, got, want)
		}
	}
}

func TestParseErrorString(t *testing.T) {
	tests := []struct {
		err  ParseError
		want string
	}{
		{ParseError{Path: "p.yaml", Line: 3, Column: 7, Message: "bad"}, "p.yaml: line 3, column 7: bad"},
		{ParseError{Line: 2, Message: "bad"}, "line 2: bad"},
		{ParseError{Message: "bad"}, "bad"},
	}
	for _, tt := range tests {
		if got := tt.err.Error(); got != tt.want {
			t.Errorf("Error() = %q, want %q", got, tt.want)
		}
	}
}
