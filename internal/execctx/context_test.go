package execctx_test

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/cannectors/wrangler/internal/directive"
	"github.com/cannectors/wrangler/internal/execctx"
	"github.com/cannectors/wrangler/internal/lookup"
	"github.com/cannectors/wrangler/internal/runtime"
	"github.com/cannectors/wrangler/pkg/row"
)

func customersDB(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "customers.db")
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("sql.Open() error = %v", err)
	}
	defer db.Close()
	for _, s := range []string{
		`CREATE TABLE customers (id TEXT PRIMARY KEY, name TEXT, tier TEXT)`,
		`INSERT INTO customers VALUES ('c1', 'Ada', 'gold')`,
		`INSERT INTO customers VALUES ('c2', 'Grace', 'silver')`,
	} {
		if _, err := db.Exec(s); err != nil {
			t.Fatalf("Exec() error = %v", err)
		}
	}
	return path
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     execctx.Config
		wantErr bool
	}{
		{"defaults", execctx.Config{}, false},
		{"testing environment", execctx.Config{Environment: directive.EnvironmentTesting}, false},
		{"unknown environment", execctx.Config{Environment: "staging"}, true},
		{"bad service key", execctx.Config{Services: map[string]string{"rates": "http://x"}}, true},
		{"bad service url", execctx.Config{Services: map[string]string{"billing/rates": "not a url"}}, true},
		{"bad dataset", execctx.Config{Datasets: map[string]lookup.Config{"d": {Path: "x.db", Table: "a b", Key: "id"}}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execctx.New(tt.cfg, nil)
			if (err != nil) != tt.wantErr {
				t.Errorf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestContextAccessors(t *testing.T) {
	c, err := execctx.New(execctx.Config{
		Name:        "orders-stage",
		Environment: directive.EnvironmentService,
		Properties:  map[string]string{"region": "eu"},
		Services:    map[string]string{"billing/rates": "http://rates.local:8080/v1"},
	}, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if c.ContextName() != "orders-stage" || c.Environment() != directive.EnvironmentService {
		t.Errorf("identity = %q %q", c.ContextName(), c.Environment())
	}

	props := c.Properties()
	props["region"] = "us"
	if c.Properties()["region"] != "eu" {
		t.Error("Properties() must return a copy")
	}

	u := c.ServiceURL("billing", "rates")
	if u == nil || u.String() != "http://rates.local:8080/v1" {
		t.Errorf("ServiceURL() = %v", u)
	}
	u.Host = "changed"
	if c.ServiceURL("billing", "rates").Host != "rates.local:8080" {
		t.Error("ServiceURL() must return a copy")
	}
	if c.ServiceURL("billing", "missing") != nil {
		t.Error("ServiceURL() for unknown service should be nil")
	}

	c.Metrics().Count("noop", 1)
}

func TestProvide(t *testing.T) {
	c, err := execctx.New(execctx.Config{
		Datasets: map[string]lookup.Config{
			"customers": {Path: customersDB(t), Table: "customers", Key: "id"},
		},
	}, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer c.Close()

	first, err := c.Provide("customers", nil)
	if err != nil {
		t.Fatalf("Provide() error = %v", err)
	}
	second, err := c.Provide("customers", map[string]string{"column": "customer"})
	if err != nil {
		t.Fatalf("Provide() error = %v", err)
	}
	if first != second {
		t.Error("Provide() should reuse the opened table")
	}

	match, err := first.Lookup("c2")
	if err != nil || match == nil {
		t.Fatalf("Lookup() = %v, %v", match, err)
	}
	if v, _ := match.Get("tier"); v.String() != "silver" {
		t.Errorf("tier = %v, want silver", v)
	}

	if _, err := c.Provide("orders", nil); !errors.Is(err, execctx.ErrUnknownDataset) {
		t.Errorf("Provide(orders) error = %v, want ErrUnknownDataset", err)
	}
}

func TestTableLookupThroughRunner(t *testing.T) {
	metrics, err := execctx.NewMetrics("enrich")
	if err != nil {
		t.Fatalf("NewMetrics() error = %v", err)
	}
	c, err := execctx.New(execctx.Config{
		Datasets: map[string]lookup.Config{
			"customers": {Path: customersDB(t), Table: "customers", Key: "id"},
		},
	}, metrics)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer c.Close()

	r, err := runtime.NewRunner(runtime.Config{
		Recipe:    "table-lookup :customer 'customers'",
		Context:   c,
		BatchSize: 1,
		Workers:   2,
	})
	if err != nil {
		t.Fatalf("NewRunner() error = %v", err)
	}

	out, err := r.Run(context.Background(), []*row.Row{
		row.Of("customer", "c1"),
		row.Of("customer", "zz"),
		row.Of("customer", nil),
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(out.Rows) != 3 {
		t.Fatalf("Run() returned %d rows, want 3", len(out.Rows))
	}
	want := "{customer: c1, customer_name: Ada, customer_tier: gold}"
	if got := out.Rows[0].String(); got != want {
		t.Errorf("row 0 = %s, want %s", got, want)
	}
	if got := out.Rows[1].Length(); got != 1 {
		t.Errorf("row 1 has %d columns, want 1", got)
	}
}
