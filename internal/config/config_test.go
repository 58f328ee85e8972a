package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return p
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "orders.yaml", `name: orders
recipe: [drop :tmp]
datasets:
  customers: {path: lookups/customers.db, table: customers, key: id}
input: {path: rows.jsonl}
output: {path: "-", errors: errors.jsonl}
metrics: {file: metrics.prom}
`)

	p, result, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !result.IsValid() || result.Format != FormatYAML {
		t.Errorf("Load() result = %+v", result)
	}

	tests := []struct {
		field string
		got   string
		want  string
	}{
		{"input.path", p.Input.Path, filepath.Join(dir, "rows.jsonl")},
		{"output.path", p.Output.Path, "-"},
		{"output.errors", p.Output.Errors, filepath.Join(dir, "errors.jsonl")},
		{"metrics.file", p.Metrics.File, filepath.Join(dir, "metrics.prom")},
		{"datasets.customers.path", p.Datasets["customers"].Path, filepath.Join(dir, "lookups", "customers.db")},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s = %q, want %q", tt.field, tt.got, tt.want)
		}
	}
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name    string
		file    string
		content string
		want    error
	}{
		{"parse", "bad.json", "{", ErrParse},
		{"schema", "bad.yaml", "name: orders\n", ErrValidation},
		{"traversal", "escape.yaml", "name: orders\nrecipe: drop :a\ninput: {path: ../rows.jsonl}\n", ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, result, err := Load(writeConfig(t, dir, tt.file, tt.content))
			if !errors.Is(err, tt.want) {
				t.Fatalf("Load() error = %v, want %v", err, tt.want)
			}
			if result == nil {
				t.Error("Load() should return the result on failure")
			}
		})
	}

	if _, _, err := Load(filepath.Join(dir, "missing.yaml")); !errors.Is(err, ErrParse) {
		t.Errorf("Load(missing) error = %v, want ErrParse", err)
	}
}
