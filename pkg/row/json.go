package row

import (
	"bytes"
	"encoding/json"
	"math"
)

// MarshalJSON encodes the row as a JSON object in column order. Repeated
// column names keep their first occurrence, as ToMap does. Non-finite floats
// encode as null.
func (r *Row) MarshalJSON() ([]byte, error) {
	if r == nil {
		return []byte("null"), nil
	}

	var buf bytes.Buffer
	buf.WriteByte('{')
	seen := make(map[string]struct{}, len(r.columns))
	first := true
	for i, c := range r.columns {
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}

		if !first {
			buf.WriteByte(',')
		}
		first = false

		key, err := json.Marshal(c)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')

		val, err := r.values[i].MarshalJSON()
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// MarshalJSON encodes the value as its native JSON form. Decimals encode as
// JSON numbers so no precision is lost.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindFloat:
		if math.IsNaN(v.f) || math.IsInf(v.f, 0) {
			return []byte("null"), nil
		}
		return json.Marshal(v.f)
	case KindDecimal:
		return []byte(v.d.String()), nil
	case KindRow:
		return v.r.MarshalJSON()
	default:
		return json.Marshal(v.Interface())
	}
}
