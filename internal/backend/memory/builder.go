package memory

import (
	"fmt"
	"reflect"

	"github.com/nlstn/go-rql/internal/compile"
	"github.com/nlstn/go-rql/internal/model"
	"github.com/nlstn/go-rql/internal/patterncache"
)

// Predicate reports whether an element matches.
type Predicate func(elem reflect.Value) bool

// Builder implements compile.Builder with predicates over Go values.
type Builder struct {
	patterns *patterncache.Cache
}

var _ compile.Builder[Predicate] = (*Builder)(nil)

// NewBuilder creates a builder compiling like patterns through patterns, or
// through the shared cache when patterns is nil.
func NewBuilder(patterns *patterncache.Cache) *Builder {
	if patterns == nil {
		patterns = patterncache.Shared()
	}
	return &Builder{patterns: patterns}
}

func (b *Builder) And(preds ...Predicate) Predicate {
	return func(elem reflect.Value) bool {
		for _, p := range preds {
			if !p(elem) {
				return false
			}
		}
		return true
	}
}

func (b *Builder) Or(preds ...Predicate) Predicate {
	return func(elem reflect.Value) bool {
		for _, p := range preds {
			if p(elem) {
				return true
			}
		}
		return false
	}
}

func (b *Builder) Not(pred Predicate) Predicate {
	return func(elem reflect.Value) bool {
		return !pred(elem)
	}
}

func (b *Builder) IsNull(p compile.Path) (Predicate, error) {
	return func(elem reflect.Value) bool {
		_, ok := value(elem, p)
		return !ok
	}, nil
}

func (b *Builder) IsNotNull(p compile.Path) (Predicate, error) {
	return func(elem reflect.Value) bool {
		_, ok := value(elem, p)
		return ok
	}, nil
}

func (b *Builder) Equals(p compile.Path, want any) (Predicate, error) {
	return func(elem reflect.Value) bool {
		v, ok := value(elem, p)
		return ok && equalValues(v.Interface(), want)
	}, nil
}

// NotEquals follows SQL: a missing value is neither equal nor unequal.
func (b *Builder) NotEquals(p compile.Path, want any) (Predicate, error) {
	return func(elem reflect.Value) bool {
		v, ok := value(elem, p)
		return ok && !equalValues(v.Interface(), want)
	}, nil
}

func (b *Builder) Compare(p compile.Path, op model.Operator, want any) (Predicate, error) {
	var accept func(int) bool
	switch op {
	case model.OpEq:
		return b.Equals(p, want)
	case model.OpNe:
		return b.NotEquals(p, want)
	case model.OpGt:
		accept = func(c int) bool { return c > 0 }
	case model.OpGe:
		accept = func(c int) bool { return c >= 0 }
	case model.OpLt:
		accept = func(c int) bool { return c < 0 }
	case model.OpLe:
		accept = func(c int) bool { return c <= 0 }
	default:
		return nil, fmt.Errorf("operator %s is not a comparison", op)
	}
	return func(elem reflect.Value) bool {
		v, ok := value(elem, p)
		if !ok {
			return false
		}
		c, ok := compareValues(v.Interface(), want)
		return ok && accept(c)
	}, nil
}

func (b *Builder) Like(p compile.Path, pattern compile.Pattern, ignoreCase bool) (Predicate, error) {
	re, err := b.patterns.Compile(pattern.Regexp(ignoreCase))
	if err != nil {
		return nil, err
	}
	return func(elem reflect.Value) bool {
		v, ok := value(elem, p)
		if !ok {
			return false
		}
		s, ok := stringOf(v.Interface())
		return ok && re.MatchString(s)
	}, nil
}

func (b *Builder) In(p compile.Path, values []any) (Predicate, error) {
	return func(elem reflect.Value) bool {
		v, ok := value(elem, p)
		if !ok {
			return false
		}
		got := v.Interface()
		for _, want := range values {
			if equalValues(got, want) {
				return true
			}
		}
		return false
	}, nil
}

// Exists matches when some element of the collection matches element.
func (b *Builder) Exists(collection compile.Path, element Predicate) (Predicate, error) {
	return func(elem reflect.Value) bool {
		v, ok := value(elem, collection)
		if !ok || (v.Kind() != reflect.Slice && v.Kind() != reflect.Array) {
			return false
		}
		for i := 0; i < v.Len(); i++ {
			if element(v.Index(i)) {
				return true
			}
		}
		return false
	}, nil
}
