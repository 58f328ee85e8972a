package row

import (
	"sort"
	"strings"
)

// Row is an ordered sequence of (column, value) pairs.
// Column names are not required to be unique; lookups treat the first match as
// authoritative. A Row is mutated in place by directives and is not safe for
// concurrent use.
type Row struct {
	columns []string
	values  []Value
}

// New returns an empty row.
func New() *Row {
	return &Row{}
}

// Of builds a row from alternating column names and values.
// Values are converted with FromInterface; it panics on an odd argument count
// or an unsupported value, and is intended for literals in code and tests.
func Of(pairs ...any) *Row {
	if len(pairs)%2 != 0 {
		panic("row.Of: odd number of arguments")
	}
	r := &Row{
		columns: make([]string, 0, len(pairs)/2),
		values:  make([]Value, 0, len(pairs)/2),
	}
	for i := 0; i < len(pairs); i += 2 {
		name, ok := pairs[i].(string)
		if !ok {
			panic("row.Of: column name must be a string")
		}
		v, err := FromInterface(pairs[i+1])
		if err != nil {
			panic("row.Of: " + err.Error())
		}
		r.Add(name, v)
	}
	return r
}

// FromMap builds a row from a map. Keys are added in sorted order so the
// resulting column order is deterministic.
func FromMap(m map[string]any) (*Row, error) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	r := &Row{
		columns: make([]string, 0, len(keys)),
		values:  make([]Value, 0, len(keys)),
	}
	for _, k := range keys {
		v, err := FromInterface(m[k])
		if err != nil {
			return nil, err
		}
		r.Add(k, v)
	}
	return r, nil
}

// Length returns the number of columns.
func (r *Row) Length() int {
	return len(r.columns)
}

// Find returns the index of the first column named name, or -1.
func (r *Row) Find(name string) int {
	for i, c := range r.columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Column returns the name of the column at index i.
func (r *Row) Column(i int) string {
	return r.columns[i]
}

// Value returns the value at index i.
func (r *Row) Value(i int) Value {
	return r.values[i]
}

// Get returns the value of the first column named name.
func (r *Row) Get(name string) (Value, bool) {
	idx := r.Find(name)
	if idx == -1 {
		return Null(), false
	}
	return r.values[idx], true
}

// SetValue replaces the value at index i.
func (r *Row) SetValue(i int, v Value) {
	r.values[i] = v
}

// SetColumn renames the column at index i.
func (r *Row) SetColumn(i int, name string) {
	r.columns[i] = name
}

// Add appends a column without checking for an existing one.
func (r *Row) Add(name string, v Value) {
	r.columns = append(r.columns, name)
	r.values = append(r.values, v)
}

// AddOrSet overwrites the first column named name, or appends it when absent.
func (r *Row) AddOrSet(name string, v Value) {
	if idx := r.Find(name); idx != -1 {
		r.values[idx] = v
		return
	}
	r.Add(name, v)
}

// Remove deletes the column at index i, keeping the order of the others.
func (r *Row) Remove(i int) {
	r.columns = append(r.columns[:i], r.columns[i+1:]...)
	r.values = append(r.values[:i], r.values[i+1:]...)
}

// Columns returns a copy of the column names in order.
func (r *Row) Columns() []string {
	out := make([]string, len(r.columns))
	copy(out, r.columns)
	return out
}

// Copy returns a shallow copy of r. Nested rows are shared.
func (r *Row) Copy() *Row {
	out := &Row{
		columns: make([]string, len(r.columns)),
		values:  make([]Value, len(r.values)),
	}
	copy(out.columns, r.columns)
	copy(out.values, r.values)
	return out
}

// Equal reports whether both rows hold the same columns in the same order with
// equal values.
func (r *Row) Equal(other *Row) bool {
	if r == nil || other == nil {
		return r == other
	}
	if len(r.columns) != len(other.columns) {
		return false
	}
	for i := range r.columns {
		if r.columns[i] != other.columns[i] || !r.values[i].Equal(other.values[i]) {
			return false
		}
	}
	return true
}

// ToMap returns the row as a map of native values. When column names repeat the
// first occurrence wins. Nested rows are converted recursively.
func (r *Row) ToMap() map[string]any {
	out := make(map[string]any, len(r.columns))
	for i, c := range r.columns {
		if _, seen := out[c]; seen {
			continue
		}
		v := r.values[i]
		if nested, ok := v.AsRow(); ok {
			out[c] = nested.ToMap()
			continue
		}
		out[c] = v.Interface()
	}
	return out
}

// String renders the row as {name: value, ...} in column order.
func (r *Row) String() string {
	var sb strings.Builder
	sb.WriteByte('{')
	for i, c := range r.columns {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(c)
		sb.WriteString(": ")
		sb.WriteString(r.values[i].String())
	}
	sb.WriteByte('}')
	return sb.String()
}
