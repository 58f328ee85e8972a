// Package lookup provides keyed dataset lookups backed by SQLite tables.
//
// A Table matches one key column and returns the remaining columns of the
// first matching record as a row. Tables are safe for concurrent use.
package lookup

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"regexp"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite" // registers the "sqlite" database/sql driver

	"github.com/cannectors/wrangler/pkg/row"
)

// DefaultTimeout bounds each lookup query.
const DefaultTimeout = 5 * time.Second

var identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Config describes a table lookup.
type Config struct {
	// Name is used in error messages; defaults to Path
	Name string

	// Path is the SQLite database file
	Path string

	// Table holds the dataset
	Table string

	// Key is the column matched against lookup keys
	Key string

	// Timeout bounds each query; zero means DefaultTimeout
	Timeout time.Duration
}

// Validate checks that cfg is complete and that its identifiers are plain
// SQL identifiers.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Path) == "" {
		return fmt.Errorf("lookup: path must not be empty")
	}
	if !identifier.MatchString(c.Table) {
		return fmt.Errorf("lookup: invalid table name %q", c.Table)
	}
	if !identifier.MatchString(c.Key) {
		return fmt.Errorf("lookup: invalid key column %q", c.Key)
	}
	return nil
}

// Table is an open dataset.
type Table struct {
	cfg  Config
	db   *sql.DB
	stmt *sql.Stmt

	mu     sync.RWMutex
	closed bool
}

// Open opens the database and checks that the table and key column exist.
func Open(ctx context.Context, cfg Config) (*Table, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Name == "" {
		cfg.Name = cfg.Path
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	if _, err := os.Stat(cfg.Path); err != nil {
		return nil, newError(CategoryOpen, cfg.Name, "open", "database file not found", err)
	}

	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, classify(err, cfg.Name, "open")
	}

	pingCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, classify(err, cfg.Name, "open")
	}

	if err := checkSchema(ctx, db, cfg); err != nil {
		db.Close()
		return nil, err
	}

	query := fmt.Sprintf(`SELECT * FROM "%s" WHERE "%s" = ? LIMIT 1`, cfg.Table, cfg.Key)
	stmt, err := db.PrepareContext(ctx, query)
	if err != nil {
		db.Close()
		return nil, classify(err, cfg.Name, "open")
	}

	return &Table{cfg: cfg, db: db, stmt: stmt}, nil
}

func checkSchema(ctx context.Context, db *sql.DB, cfg Config) error {
	rows, err := db.QueryContext(ctx, fmt.Sprintf(`PRAGMA table_info("%s")`, cfg.Table))
	if err != nil {
		return classify(err, cfg.Name, "describe")
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return classify(err, cfg.Name, "describe")
	}

	found, exists := false, false
	for rows.Next() {
		exists = true
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return classify(err, cfg.Name, "describe")
		}
		for i, c := range cols {
			if c == "name" && fmt.Sprint(text(values[i])) == cfg.Key {
				found = true
			}
		}
	}
	if err := rows.Err(); err != nil {
		return classify(err, cfg.Name, "describe")
	}

	switch {
	case !exists:
		return newError(CategorySchema, cfg.Name, "describe", fmt.Sprintf("table '%s' does not exist", cfg.Table), nil)
	case !found:
		return newError(CategorySchema, cfg.Name, "describe", fmt.Sprintf("column '%s' does not exist in '%s'", cfg.Key, cfg.Table), nil)
	}
	return nil
}

// Lookup returns the first record whose key column equals key, without the
// key column, or nil when there is none.
func (t *Table) Lookup(key string) (*row.Row, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.closed {
		return nil, classify(ErrClosed, t.cfg.Name, "lookup")
	}

	ctx, cancel := context.WithTimeout(context.Background(), t.cfg.Timeout)
	defer cancel()

	rows, err := t.stmt.QueryContext(ctx, key)
	if err != nil {
		return nil, classify(err, t.cfg.Name, "lookup")
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, classify(err, t.cfg.Name, "lookup")
	}
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, classify(err, t.cfg.Name, "lookup")
		}
		return nil, nil
	}

	values := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range values {
		ptrs[i] = &values[i]
	}
	if err := rows.Scan(ptrs...); err != nil {
		return nil, classify(err, t.cfg.Name, "lookup")
	}

	out := row.New()
	for i, c := range cols {
		if strings.EqualFold(c, t.cfg.Key) {
			continue
		}
		v, err := row.FromInterface(text(values[i]))
		if err != nil {
			return nil, newError(CategoryQuery, t.cfg.Name, "lookup", fmt.Sprintf("column '%s'", c), err)
		}
		out.Add(c, v)
	}
	return out, nil
}

// text converts BLOB and time values to strings; other driver values pass
// through.
func text(v any) any {
	switch t := v.(type) {
	case []byte:
		return string(t)
	case time.Time:
		return t.Format(time.RFC3339Nano)
	default:
		return v
	}
}

// Name returns the dataset name.
func (t *Table) Name() string { return t.cfg.Name }

// Close releases the statement and the database handle. It is idempotent.
func (t *Table) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	if err := t.stmt.Close(); err != nil {
		t.db.Close()
		return classify(err, t.cfg.Name, "close")
	}
	if err := t.db.Close(); err != nil {
		return classify(err, t.cfg.Name, "close")
	}
	return nil
}
