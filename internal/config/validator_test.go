package config

import "testing"

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		wantPath string
		wantType string
	}{
		{name: "valid minimal", content: "name: orders\nrecipe: drop :tmp\n"},
		{name: "valid full", content: `name: orders
recipe:
  - parse-as-currency :amount :amount_usd 'en_US'
expressionLanguage: js
context:
  environment: testing
  properties: {region: eu}
  services: {"billing/rates": "http://rates.local"}
datasets:
  customers: {path: customers.db, table: customers, key: id}
input: {path: rows.jsonl, format: jsonl}
output: {path: out.csv, errors: errors.jsonl, format: csv}
execution: {batchSize: 10, workers: 2}
metrics: {file: metrics.prom, pushgateway: "http://gw:9091", job: nightly}
`},
		{name: "missing recipe", content: "name: orders\n", wantPath: "/", wantType: "required"},
		{name: "unknown key", content: "name: orders\nrecipe: x\nschedule: daily\n", wantPath: "/", wantType: "additionalProperties"},
		{name: "workers out of range", content: "name: orders\nrecipe: x\nexecution: {workers: 0}\n", wantPath: "/execution/workers", wantType: "range"},
		{name: "bad row format", content: "name: orders\nrecipe: x\ninput: {path: a, format: xml}\n", wantPath: "/input/format", wantType: "enum"},
		{name: "bad environment", content: "name: orders\nrecipe: x\ncontext: {environment: prod}\n", wantPath: "/context/environment", wantType: "enum"},
		{name: "bad table name", content: "name: orders\nrecipe: x\ndatasets: {c: {path: a.db, table: \"a b\", key: id}}\n", wantPath: "/datasets/c/table", wantType: "pattern"},
		{name: "recipe wrong type", content: "name: orders\nrecipe: 42\n", wantPath: "/recipe"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parsed := ParseYAMLString(tt.content)
			if !parsed.IsValid() {
				t.Fatalf("ParseYAMLString() errors = %v", parsed.Errors)
			}
			result := ValidateConfig(parsed.Data)
			if tt.wantPath == "" {
				if !result.Valid {
					t.Errorf("ValidateConfig() errors = %v", result.Errors)
				}
				return
			}
			if result.Valid {
				t.Fatal("ValidateConfig() expected errors")
			}
			for _, e := range result.Errors {
				if e.Path == tt.wantPath && (tt.wantType == "" || e.Type == tt.wantType) {
					return
				}
			}
			t.Errorf("ValidateConfig() errors = %+v, want %s at %s", result.Errors, tt.wantType, tt.wantPath)
		})
	}
}

func TestValidateConfigEmpty(t *testing.T) {
	for _, data := range []map[string]interface{}{nil, {}} {
		result := ValidateConfig(data)
		if result.Valid || len(result.Errors) != 1 || result.Errors[0].Type != "required" {
			t.Errorf("ValidateConfig(%v) = %+v", data, result)
		}
	}
}

func TestEmbeddedSchemaCompiles(t *testing.T) {
	if len(EmbeddedSchema()) == 0 {
		t.Fatal("EmbeddedSchema() is empty")
	}
	if _, err := getCompiledSchema(); err != nil {
		t.Fatalf("getCompiledSchema() error = %v", err)
	}
}
