// Package memory evaluates compiled queries against Go values: structs
// described by an analyzed schema, or map[string]any documents.
package memory

import (
	"math"
	"math/big"
	"reflect"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/nlstn/go-rql/internal/compile"
)

// value reads the member p addresses, starting at elem. ok is false when the
// value is missing or nil.
func value(elem reflect.Value, p compile.Path) (reflect.Value, bool) {
	v := elem
	for _, m := range p.Steps {
		var ok bool
		if v, ok = member(v, m); !ok {
			return reflect.Value{}, false
		}
	}
	if p.Key != "" {
		v = indirect(v)
		if !v.IsValid() || v.Kind() != reflect.Map {
			return reflect.Value{}, false
		}
		v = v.MapIndex(reflect.ValueOf(p.Key).Convert(v.Type().Key()))
	}
	v = indirect(v)
	return v, v.IsValid()
}

func member(v reflect.Value, m *compile.Member) (reflect.Value, bool) {
	v = indirect(v)
	if !v.IsValid() {
		return reflect.Value{}, false
	}
	switch {
	case m.Binding.Method != "":
		fn := v.MethodByName(m.Binding.Method)
		if !fn.IsValid() && v.CanAddr() {
			fn = v.Addr().MethodByName(m.Binding.Method)
		}
		if !fn.IsValid() {
			return reflect.Value{}, false
		}
		return fn.Call(nil)[0], true
	case v.Kind() == reflect.Struct && m.Binding.Index != nil:
		f, err := v.FieldByIndexErr(m.Binding.Index)
		return f, err == nil
	case v.Kind() == reflect.Map && v.Type().Key().Kind() == reflect.String:
		f := v.MapIndex(reflect.ValueOf(m.DocumentKey()).Convert(v.Type().Key()))
		return f, f.IsValid()
	}
	return reflect.Value{}, false
}

// indirect dereferences pointers and interfaces; nil yields the zero Value.
func indirect(v reflect.Value) reflect.Value {
	for v.IsValid() && (v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface) {
		if v.IsNil() {
			return reflect.Value{}
		}
		if v.Type() == reflect.TypeOf((*big.Int)(nil)) {
			return v
		}
		v = v.Elem()
	}
	return v
}

// compareValues orders a and b. ok is false when they are not comparable.
func compareValues(a, b any) (int, bool) {
	if da, ok := toDecimal(a); ok {
		if db, ok := toDecimal(b); ok {
			return da.Cmp(db), true
		}
		return 0, false
	}
	if x, ok := stringOf(a); ok {
		if y, ok := stringOf(b); ok {
			return strings.Compare(x, y), true
		}
		return 0, false
	}
	if x, ok := a.(time.Time); ok {
		if y, ok := b.(time.Time); ok {
			return x.Compare(y), true
		}
	}
	return 0, false
}

func equalValues(a, b any) bool {
	if c, ok := compareValues(a, b); ok {
		return c == 0
	}
	ra, rb := reflect.ValueOf(a), reflect.ValueOf(b)
	if !ra.IsValid() || !rb.IsValid() {
		return false
	}
	if ra.Type() != rb.Type() || !ra.Type().Comparable() {
		return reflect.DeepEqual(a, b)
	}
	return ra.Equal(rb)
}

func toDecimal(v any) (decimal.Decimal, bool) {
	switch x := v.(type) {
	case decimal.Decimal:
		return x, true
	case *big.Int:
		return decimal.NewFromBigInt(x, 0), true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return decimal.NewFromInt(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return decimal.NewFromBigInt(new(big.Int).SetUint64(rv.Uint()), 0), true
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return decimal.Decimal{}, false
		}
		return decimal.NewFromFloat(f), true
	}
	return decimal.Decimal{}, false
}

// stringOf returns the text of string kinds, including named string types.
func stringOf(v any) (string, bool) {
	rv := reflect.ValueOf(v)
	if rv.IsValid() && rv.Kind() == reflect.String {
		return rv.String(), true
	}
	return "", false
}
