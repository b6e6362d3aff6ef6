package model

import (
	"math"
	"math/big"
	"time"

	"github.com/shopspring/decimal"
)

// Kind classifies literal values.
type Kind int

const (
	KindInvalid Kind = iota
	KindNull
	KindBool
	KindInt
	KindDecimal
	KindString
	KindTime
)

var kindNames = [...]string{
	KindInvalid: "invalid",
	KindNull:    "null",
	KindBool:    "boolean",
	KindInt:     "integer",
	KindDecimal: "decimal",
	KindString:  "string",
	KindTime:    "timestamp",
}

func (k Kind) String() string {
	return kindNames[k]
}

// KindOf classifies a normalized literal.
func KindOf(v any) Kind {
	switch v.(type) {
	case nil:
		return KindNull
	case bool:
		return KindBool
	case int32, int64, *big.Int:
		return KindInt
	case decimal.Decimal:
		return KindDecimal
	case string:
		return KindString
	case time.Time:
		return KindTime
	default:
		return KindInvalid
	}
}

// NarrowInt returns the narrowest exact representation of b: int32, int64
// or *big.Int.
func NarrowInt(b *big.Int) any {
	if !b.IsInt64() {
		return new(big.Int).Set(b)
	}
	n := b.Int64()
	if n >= math.MinInt32 && n <= math.MaxInt32 {
		return int32(n)
	}
	return n
}

// Normalize maps Go values onto the literal representation used by the
// parser, so models built in code compare equal to parsed ones. Values of
// unsupported types are returned unchanged and rejected by Validate.
func Normalize(v any) any {
	switch x := v.(type) {
	case int:
		return NarrowInt(big.NewInt(int64(x)))
	case int8:
		return int32(x)
	case int16:
		return int32(x)
	case int32:
		return x
	case int64:
		return NarrowInt(big.NewInt(x))
	case uint:
		return NarrowInt(new(big.Int).SetUint64(uint64(x)))
	case uint8:
		return int32(x)
	case uint16:
		return int32(x)
	case uint32:
		return NarrowInt(big.NewInt(int64(x)))
	case uint64:
		return NarrowInt(new(big.Int).SetUint64(x))
	case *big.Int:
		if x == nil {
			return nil
		}
		return NarrowInt(x)
	case float32:
		if !finite(float64(x)) {
			return x
		}
		return decimal.NewFromFloat32(x)
	case float64:
		if !finite(x) {
			return x
		}
		return decimal.NewFromFloat(x)
	case *decimal.Decimal:
		if x == nil {
			return nil
		}
		return *x
	case *string:
		if x == nil {
			return nil
		}
		return *x
	case *time.Time:
		if x == nil {
			return nil
		}
		return *x
	default:
		return v
	}
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// BigInt returns an integer literal as *big.Int.
func BigInt(v any) (*big.Int, bool) {
	switch x := v.(type) {
	case int32:
		return big.NewInt(int64(x)), true
	case int64:
		return big.NewInt(x), true
	case *big.Int:
		return x, true
	default:
		return nil, false
	}
}

// ValueEqual compares two literals by value. Integers compare across their
// representations, decimals by numeric value and timestamps by instant and
// offset.
func ValueEqual(a, b any) bool {
	ka, kb := KindOf(a), KindOf(b)
	if ka != kb {
		return false
	}
	switch ka {
	case KindNull:
		return true
	case KindInt:
		x, _ := BigInt(a)
		y, _ := BigInt(b)
		return x.Cmp(y) == 0
	case KindDecimal:
		return a.(decimal.Decimal).Equal(b.(decimal.Decimal))
	case KindTime:
		ta, tb := a.(time.Time), b.(time.Time)
		_, oa := ta.Zone()
		_, ob := tb.Zone()
		return ta.Equal(tb) && oa == ob
	case KindInvalid:
		return false
	default:
		return a == b
	}
}
