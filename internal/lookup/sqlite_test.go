package lookup

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"sync"
	"testing"
)

// seed creates a customers table in a fresh database file.
func seed(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "customers.db")
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("sql.Open() error = %v", err)
	}
	defer db.Close()

	stmts := []string{
		`CREATE TABLE customers (id INTEGER PRIMARY KEY, name TEXT, credit REAL, notes BLOB)`,
		`INSERT INTO customers VALUES (1, 'Ada', 1500.5, NULL)`,
		`INSERT INTO customers VALUES (2, 'Grace', 20, x'6869')`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			t.Fatalf("Exec(%q) error = %v", s, err)
		}
	}
	return path
}

func TestLookup(t *testing.T) {
	tbl, err := Open(context.Background(), Config{Name: "customers", Path: seed(t), Table: "customers", Key: "id"})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer tbl.Close()

	got, err := tbl.Lookup("1")
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if got.String() != "{name: Ada, credit: 1500.5, notes: null}" {
		t.Errorf("Lookup(1) = %v", got)
	}

	got, err = tbl.Lookup("2")
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if v, _ := got.Get("notes"); v.String() != "hi" {
		t.Errorf("notes = %v, want hi", v)
	}

	got, err = tbl.Lookup("99")
	if err != nil || got != nil {
		t.Errorf("Lookup(99) = %v, %v, want nil, nil", got, err)
	}
}

func TestLookupConcurrent(t *testing.T) {
	tbl, err := Open(context.Background(), Config{Path: seed(t), Table: "customers", Key: "id"})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer tbl.Close()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := tbl.Lookup("2"); err != nil {
				t.Errorf("Lookup() error = %v", err)
			}
		}()
	}
	wg.Wait()
}

func TestOpenErrors(t *testing.T) {
	path := seed(t)
	tests := []struct {
		name         string
		cfg          Config
		wantCategory string
	}{
		{"missing file", Config{Path: filepath.Join(t.TempDir(), "none.db"), Table: "customers", Key: "id"}, CategoryOpen},
		{"missing table", Config{Path: path, Table: "orders", Key: "id"}, CategorySchema},
		{"missing key", Config{Path: path, Table: "customers", Key: "email"}, CategorySchema},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Open(context.Background(), tt.cfg)
			var lookupErr *Error
			if !errors.As(err, &lookupErr) {
				t.Fatalf("Open() error = %v, want *Error", err)
			}
			if lookupErr.Category != tt.wantCategory {
				t.Errorf("Category = %q, want %q", lookupErr.Category, tt.wantCategory)
			}
		})
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"valid", Config{Path: "x.db", Table: "t", Key: "id"}, false},
		{"empty path", Config{Table: "t", Key: "id"}, true},
		{"injected table", Config{Path: "x.db", Table: "t; DROP TABLE t", Key: "id"}, true},
		{"quoted key", Config{Path: "x.db", Table: "t", Key: `id"`}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestClosedTable(t *testing.T) {
	tbl, err := Open(context.Background(), Config{Path: seed(t), Table: "customers", Key: "id"})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if err := tbl.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := tbl.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}

	_, err = tbl.Lookup("1")
	var lookupErr *Error
	if !errors.As(err, &lookupErr) || lookupErr.Category != CategoryClosed {
		t.Errorf("Lookup() error = %v, want closed", err)
	}
}
