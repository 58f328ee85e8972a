// Package row provides the record model shared by every directive.
// A Row is an ordered list of named, dynamically typed values. Values form a
// closed tagged variant; callers check Kind before projecting a value to a
// concrete Go type. No implicit coercion happens inside this package.
package row

import (
	"fmt"
	"math"
	"strconv"

	"github.com/shopspring/decimal"
)

// Kind identifies the concrete type held by a Value.
type Kind int

// Value kinds.
const (
	KindNull Kind = iota
	KindString
	KindInt
	KindFloat
	KindBool
	KindDecimal
	KindRow
)

// String returns the lower-case name of the kind.
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindString:
		return "string"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	case KindDecimal:
		return "decimal"
	case KindRow:
		return "row"
	default:
		return "unknown"
	}
}

// Value is an immutable dynamically typed cell value.
// The zero Value is null.
type Value struct {
	kind Kind
	s    string
	i    int64
	f    float64
	b    bool
	d    decimal.Decimal
	r    *Row
}

// Null returns the null value.
func Null() Value { return Value{} }

// String returns a textual value.
func String(s string) Value { return Value{kind: KindString, s: s} }

// Int returns an integer value.
func Int(i int64) Value { return Value{kind: KindInt, i: i} }

// Float returns a double precision value.
func Float(f float64) Value { return Value{kind: KindFloat, f: f} }

// Bool returns a boolean value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Decimal returns an exact decimal value.
func Decimal(d decimal.Decimal) Value { return Value{kind: KindDecimal, d: d} }

// Nested returns a value holding a nested row. A nil row is null.
func Nested(r *Row) Value {
	if r == nil {
		return Null()
	}
	return Value{kind: KindRow, r: r}
}

// Kind returns the kind of the value.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is null.
func (v Value) IsNull() bool { return v.kind == KindNull }

// AsString returns the text held by v if v is a string.
func (v Value) AsString() (string, bool) {
	return v.s, v.kind == KindString
}

// AsInt returns the integer held by v if v is an int.
func (v Value) AsInt() (int64, bool) {
	return v.i, v.kind == KindInt
}

// AsFloat returns the float held by v if v is a float.
func (v Value) AsFloat() (float64, bool) {
	return v.f, v.kind == KindFloat
}

// AsBool returns the boolean held by v if v is a bool.
func (v Value) AsBool() (bool, bool) {
	return v.b, v.kind == KindBool
}

// AsDecimal returns the decimal held by v if v is a decimal.
func (v Value) AsDecimal() (decimal.Decimal, bool) {
	return v.d, v.kind == KindDecimal
}

// AsRow returns the nested row held by v if v is a row.
func (v Value) AsRow() (*Row, bool) {
	return v.r, v.kind == KindRow
}

// Interface returns the native Go representation of v:
// nil, string, int64, float64, bool, decimal.Decimal or *Row.
func (v Value) Interface() any {
	switch v.kind {
	case KindString:
		return v.s
	case KindInt:
		return v.i
	case KindFloat:
		return v.f
	case KindBool:
		return v.b
	case KindDecimal:
		return v.d
	case KindRow:
		return v.r
	default:
		return nil
	}
}

// Equal reports whether v and other have the same kind and the same content.
// Floats compare by value (NaN equals NaN); decimals compare numerically.
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindString:
		return v.s == other.s
	case KindInt:
		return v.i == other.i
	case KindFloat:
		return v.f == other.f || (math.IsNaN(v.f) && math.IsNaN(other.f))
	case KindBool:
		return v.b == other.b
	case KindDecimal:
		return v.d.Equal(other.d)
	case KindRow:
		return v.r.Equal(other.r)
	default:
		return false
	}
}

// String renders v for diagnostics. Null renders as "null".
func (v Value) String() string {
	switch v.kind {
	case KindString:
		return v.s
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return strconv.FormatFloat(v.f, 'f', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindDecimal:
		return v.d.String()
	case KindRow:
		return v.r.String()
	default:
		return "null"
	}
}

// FromInterface converts a native Go value into a Value.
// Maps become nested rows with keys in sorted order; slices are not part of the
// variant and return an error, as do other unsupported types.
func FromInterface(x any) (Value, error) {
	switch t := x.(type) {
	case nil:
		return Null(), nil
	case Value:
		return t, nil
	case string:
		return String(t), nil
	case bool:
		return Bool(t), nil
	case int:
		return Int(int64(t)), nil
	case int8:
		return Int(int64(t)), nil
	case int16:
		return Int(int64(t)), nil
	case int32:
		return Int(int64(t)), nil
	case int64:
		return Int(t), nil
	case uint:
		return uintValue(uint64(t))
	case uint8:
		return Int(int64(t)), nil
	case uint16:
		return Int(int64(t)), nil
	case uint32:
		return Int(int64(t)), nil
	case uint64:
		return uintValue(t)
	case float32:
		return Float(float64(t)), nil
	case float64:
		return Float(t), nil
	case decimal.Decimal:
		return Decimal(t), nil
	case *decimal.Decimal:
		if t == nil {
			return Null(), nil
		}
		return Decimal(*t), nil
	case *Row:
		return Nested(t), nil
	case map[string]any:
		nested, err := FromMap(t)
		if err != nil {
			return Null(), err
		}
		return Nested(nested), nil
	default:
		return Null(), fmt.Errorf("unsupported value type %T", x)
	}
}

func uintValue(u uint64) (Value, error) {
	if u > math.MaxInt64 {
		return Null(), fmt.Errorf("unsigned value %d overflows int64", u)
	}
	return Int(int64(u)), nil
}
