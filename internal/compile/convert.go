package compile

import (
	"errors"
	"fmt"
	"math"
	"math/big"
	"reflect"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	typeDecimal = reflect.TypeOf(decimal.Decimal{})
	typeBigInt  = reflect.TypeOf((*big.Int)(nil))
	typeTime    = reflect.TypeOf(time.Time{})
	typeUUID    = reflect.TypeOf(uuid.UUID{})
	typeString  = reflect.TypeOf("")
)

var errNoConversion = errors.New("no conversion")

// ConvertFunc converts a literal into a value of a registered target type.
type ConvertFunc func(value any) (any, error)

type convKey struct {
	from reflect.Type
	to   reflect.Type
}

// Converters maps literal types to member types. Registered converters take
// precedence over the built-in numeric, string and time conversions.
type Converters struct {
	mu    sync.RWMutex
	funcs map[convKey]ConvertFunc
}

// NewConverters returns a registry with the string to UUID conversion.
func NewConverters() *Converters {
	c := &Converters{funcs: make(map[convKey]ConvertFunc)}
	c.Register(typeString, typeUUID, func(v any) (any, error) {
		id, err := uuid.Parse(v.(string))
		if err != nil {
			return nil, err
		}
		return id, nil
	})
	return c
}

// Register adds a conversion from literals of type from to members of type to.
func (c *Converters) Register(from, to reflect.Type, fn ConvertFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.funcs[convKey{from: from, to: to}] = fn
}

func (c *Converters) lookup(from, to reflect.Type) (ConvertFunc, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	fn, ok := c.funcs[convKey{from: from, to: to}]
	return fn, ok
}

// Convert converts a literal to the target type. Values that already have
// the target type, and a nil target, pass through unchanged.
func (c *Converters) Convert(value any, to reflect.Type) (any, error) {
	if to == nil || value == nil {
		return value, nil
	}
	for to.Kind() == reflect.Pointer && to != typeBigInt {
		to = to.Elem()
	}
	from := reflect.TypeOf(value)
	if from == to || to.Kind() == reflect.Interface {
		return value, nil
	}
	if fn, ok := c.lookup(from, to); ok {
		return fn(value)
	}
	return builtinConvert(value, to)
}

func builtinConvert(value any, to reflect.Type) (any, error) {
	switch v := value.(type) {
	case int32:
		return convertInt(big.NewInt(int64(v)), to)
	case int64:
		return convertInt(big.NewInt(v), to)
	case *big.Int:
		return convertInt(v, to)
	case decimal.Decimal:
		return convertDecimal(v, to)
	case string:
		if to.Kind() == reflect.String {
			return reflect.ValueOf(v).Convert(to).Interface(), nil
		}
	case bool:
		if to.Kind() == reflect.Bool {
			return reflect.ValueOf(v).Convert(to).Interface(), nil
		}
	case time.Time:
		if to.ConvertibleTo(typeTime) && typeTime.ConvertibleTo(to) && to.Kind() == reflect.Struct {
			return reflect.ValueOf(v).Convert(to).Interface(), nil
		}
	}
	return nil, errNoConversion
}

func convertInt(n *big.Int, to reflect.Type) (any, error) {
	switch {
	case to == typeBigInt:
		return new(big.Int).Set(n), nil
	case to == typeDecimal:
		return decimal.NewFromBigInt(n, 0), nil
	}
	switch to.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if !n.IsInt64() || reflect.Zero(to).OverflowInt(n.Int64()) {
			return nil, fmt.Errorf("%s overflows %s", n, to)
		}
		return reflect.ValueOf(n.Int64()).Convert(to).Interface(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if n.Sign() < 0 || !n.IsUint64() || reflect.Zero(to).OverflowUint(n.Uint64()) {
			return nil, fmt.Errorf("%s overflows %s", n, to)
		}
		return reflect.ValueOf(n.Uint64()).Convert(to).Interface(), nil
	case reflect.Float32, reflect.Float64:
		f, _ := new(big.Float).SetInt(n).Float64()
		return reflect.ValueOf(f).Convert(to).Interface(), nil
	}
	return nil, errNoConversion
}

func convertDecimal(d decimal.Decimal, to reflect.Type) (any, error) {
	if to == typeBigInt && d.IsInteger() {
		return d.BigInt(), nil
	}
	switch to.Kind() {
	case reflect.Float32, reflect.Float64:
		f, _ := d.Float64()
		if math.IsInf(f, 0) {
			return nil, fmt.Errorf("%s overflows %s", d, to)
		}
		return reflect.ValueOf(f).Convert(to).Interface(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if !d.IsInteger() {
			return nil, errNoConversion
		}
		return convertInt(d.BigInt(), to)
	}
	return nil, errNoConversion
}

// orderable reports whether values of t have a natural order.
func orderable(t reflect.Type) bool {
	if t == nil {
		return true
	}
	for t.Kind() == reflect.Pointer && t != typeBigInt {
		t = t.Elem()
	}
	switch t {
	case typeDecimal, typeBigInt, typeTime:
		return true
	}
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64, reflect.String, reflect.Interface:
		return true
	}
	return false
}

// textual reports whether like patterns can apply to values of t.
func textual(t reflect.Type) bool {
	if t == nil {
		return true
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t.Kind() == reflect.String || t.Kind() == reflect.Interface
}
