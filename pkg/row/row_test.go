package row

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestRowFindFirstMatchWins(t *testing.T) {
	r := New()
	r.Add("a", Int(1))
	r.Add("b", Int(2))
	r.Add("a", Int(3))

	if got := r.Find("a"); got != 0 {
		t.Errorf("Find(a) = %d, want 0", got)
	}
	if got := r.Find("missing"); got != -1 {
		t.Errorf("Find(missing) = %d, want -1", got)
	}

	v, ok := r.Get("a")
	if !ok {
		t.Fatal("Get(a) not found")
	}
	if i, _ := v.AsInt(); i != 1 {
		t.Errorf("Get(a) = %d, want 1", i)
	}
}

func TestRowAddOrSet(t *testing.T) {
	r := Of("amount", "$10.00")

	r.AddOrSet("amount_usd", Float(10))
	if r.Length() != 2 {
		t.Fatalf("Length() = %d, want 2", r.Length())
	}
	if r.Column(1) != "amount_usd" {
		t.Errorf("Column(1) = %q, want amount_usd", r.Column(1))
	}

	r.AddOrSet("amount_usd", Float(20))
	if r.Length() != 2 {
		t.Fatalf("Length() after overwrite = %d, want 2", r.Length())
	}
	if f, _ := r.Value(1).AsFloat(); f != 20 {
		t.Errorf("Value(1) = %v, want 20", f)
	}
}

func TestRowRemoveKeepsOrder(t *testing.T) {
	r := Of("a", 1, "b", 2, "c", 3)
	r.Remove(1)

	got := r.Columns()
	want := []string{"a", "c"}
	if len(got) != len(want) {
		t.Fatalf("Columns() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Columns()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestRowCopyIsIndependent(t *testing.T) {
	r := Of("a", "x")
	c := r.Copy()
	c.SetValue(0, String("y"))
	c.Add("b", Null())

	if s, _ := r.Value(0).AsString(); s != "x" {
		t.Errorf("original mutated: %q", s)
	}
	if r.Length() != 1 {
		t.Errorf("original length = %d, want 1", r.Length())
	}
}

func TestValueProjectionsAreChecked(t *testing.T) {
	v := String("12")
	if _, ok := v.AsInt(); ok {
		t.Error("AsInt() on string should not succeed")
	}
	if _, ok := v.AsFloat(); ok {
		t.Error("AsFloat() on string should not succeed")
	}
	if s, ok := v.AsString(); !ok || s != "12" {
		t.Errorf("AsString() = %q, %v", s, ok)
	}
	if !Null().IsNull() {
		t.Error("Null().IsNull() = false")
	}
}

func TestFromInterface(t *testing.T) {
	tests := []struct {
		name string
		in   any
		kind Kind
	}{
		{"nil", nil, KindNull},
		{"string", "s", KindString},
		{"int", 5, KindInt},
		{"uint32", uint32(5), KindInt},
		{"float64", 1.5, KindFloat},
		{"bool", true, KindBool},
		{"decimal", decimal.RequireFromString("1.25"), KindDecimal},
		{"map", map[string]any{"x": 1}, KindRow},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := FromInterface(tt.in)
			if err != nil {
				t.Fatalf("FromInterface() error = %v", err)
			}
			if v.Kind() != tt.kind {
				t.Errorf("Kind() = %s, want %s", v.Kind(), tt.kind)
			}
		})
	}

	if _, err := FromInterface([]int{1}); err == nil {
		t.Error("FromInterface(slice) expected error")
	}
	if _, err := FromInterface(uint64(1 << 63)); err == nil {
		t.Error("FromInterface(overflowing uint64) expected error")
	}
}

func TestRowToMapAndEqual(t *testing.T) {
	inner := Of("city", "Paris")
	r := Of("id", 1, "addr", inner, "id", 2)

	m := r.ToMap()
	if m["id"] != int64(1) {
		t.Errorf("ToMap()[id] = %v, want 1", m["id"])
	}
	addr, ok := m["addr"].(map[string]any)
	if !ok || addr["city"] != "Paris" {
		t.Errorf("ToMap()[addr] = %v", m["addr"])
	}

	if !r.Equal(r.Copy()) {
		t.Error("Equal(copy) = false")
	}
	if r.Equal(Of("id", 1)) {
		t.Error("Equal(shorter row) = true")
	}
	if got := Of("a", 1, "b", nil).String(); got != "{a: 1, b: null}" {
		t.Errorf("String() = %q", got)
	}
}

func TestDecimalEqualityIsNumeric(t *testing.T) {
	a := Decimal(decimal.RequireFromString("1.50"))
	b := Decimal(decimal.RequireFromString("1.5"))
	if !a.Equal(b) {
		t.Error("1.50 should equal 1.5")
	}
	if a.Equal(Float(1.5)) {
		t.Error("decimal should not equal float")
	}
}
