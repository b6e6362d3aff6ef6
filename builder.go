package rql

import (
	"fmt"
	"unicode/utf8"

	"github.com/nlstn/go-rql/internal/model"
	"github.com/nlstn/go-rql/internal/rqlerrors"
)

// Builder composes a query model without building a string first.
//
// Example:
//
//	m, err := rql.NewBuilder().
//	    Select("name", "address.city").
//	    Filter(rql.And(rql.Eq("items.name", "a"), rql.Gt("items.price", 10))).
//	    Sort(rql.Desc("name")).
//	    Limit(0, 50).
//	    Build()
//
// The built model is equal to the one parsed from its String form.
type Builder struct {
	selected []string
	filter   Filter
	order    []SortEntry
	slice    *Slice
	cursor   *Cursor
}

// NewBuilder returns an empty builder. Build on it yields the empty model.
func NewBuilder() *Builder {
	return &Builder{}
}

// Select adds attributes to the selection. Duplicates are dropped.
func (b *Builder) Select(attributes ...string) *Builder {
	b.selected = append(b.selected, attributes...)
	return b
}

// Filter replaces the filter.
func (b *Builder) Filter(f Filter) *Builder {
	b.filter = f
	return b
}

// Where adds a restriction to the filter. Restrictions are combined with and().
func (b *Builder) Where(f Filter) *Builder {
	switch cur := b.filter.(type) {
	case nil:
		b.filter = f
	case *AndFilter:
		children := append(append([]Filter(nil), cur.Children...), f)
		b.filter = &AndFilter{Children: children}
	default:
		b.filter = &AndFilter{Children: []Filter{cur, f}}
	}
	return b
}

// Sort appends sort entries.
func (b *Builder) Sort(entries ...SortEntry) *Builder {
	b.order = append(b.order, entries...)
	return b
}

// Limit pages by offset and limit.
func (b *Builder) Limit(offset, limit uint64) *Builder {
	b.slice = &Slice{Offset: offset, Limit: limit}
	return b
}

// Cursor pages by token. An empty token requests the first page.
func (b *Builder) Cursor(token string, limit uint64) *Builder {
	c := &Cursor{Limit: limit}
	if token != "" {
		c.Token = &token
	}
	b.cursor = c
	return b
}

// Build returns the model. It fails with ErrCursorAndLimit when both Limit
// and Cursor were called, and with a *SyntaxError when the filter or a path
// could not have been parsed.
func (b *Builder) Build() (*QueryModel, error) {
	if b.slice != nil && b.cursor != nil {
		return nil, ErrCursorAndLimit
	}
	for _, a := range b.selected {
		if !model.ValidPath(a) {
			return nil, invalid(fmt.Errorf("invalid select attribute '%s'", a))
		}
	}
	for _, e := range b.order {
		if !model.ValidPath(e.Attribute) {
			return nil, invalid(fmt.Errorf("invalid sort attribute '%s'", e.Attribute))
		}
	}
	if b.cursor != nil && b.cursor.Token != nil && !utf8.ValidString(*b.cursor.Token) {
		return nil, invalid(fmt.Errorf("cursor token is not valid UTF-8"))
	}
	if err := model.Validate(b.filter); err != nil {
		return nil, invalid(err)
	}

	m := &QueryModel{
		Select: model.NewSelect(b.selected...),
		Filter: b.filter,
	}
	if len(b.order) > 0 {
		m.Options.Order = append([]SortEntry(nil), b.order...)
	}
	if b.slice != nil {
		s := *b.slice
		m.Options.Slice = &s
	}
	if b.cursor != nil {
		c := *b.cursor
		m.Options.Cursor = &c
	}
	return m, nil
}

// MustBuild is like Build but panics on error.
func (b *Builder) MustBuild() *QueryModel {
	m, err := b.Build()
	if err != nil {
		panic(err)
	}
	return m
}

func invalid(err error) error {
	return rqlerrors.NewSyntaxError([]rqlerrors.Problem{{Msg: err.Error()}})
}

// Eq builds eq(attribute,value). A nil value tests for null.
func Eq(attribute string, value any) *Comparison { return model.Eq(attribute, value) }

// Ne builds ne(attribute,value). A nil value tests for not null.
func Ne(attribute string, value any) *Comparison { return model.Ne(attribute, value) }

// Gt builds gt(attribute,value).
func Gt(attribute string, value any) *Comparison { return model.Gt(attribute, value) }

// Ge builds ge(attribute,value).
func Ge(attribute string, value any) *Comparison { return model.Ge(attribute, value) }

// Lt builds lt(attribute,value).
func Lt(attribute string, value any) *Comparison { return model.Lt(attribute, value) }

// Le builds le(attribute,value).
func Le(attribute string, value any) *Comparison { return model.Le(attribute, value) }

// Like builds a wildcard match: '*' matches any sequence, '?' one character.
func Like(attribute, pattern string) *Comparison { return model.Like(attribute, pattern) }

// LikeIgnoreCase is Like without regard to case.
func LikeIgnoreCase(attribute, pattern string) *Comparison {
	return model.LikeIgnoreCase(attribute, pattern)
}

// In builds in(attribute,values...).
func In(attribute string, values ...any) *Comparison { return model.In(attribute, values...) }

// And requires every child to match.
func And(children ...Filter) *AndFilter { return model.NewAnd(children...) }

// Or requires at least one child to match.
func Or(children ...Filter) *OrFilter { return model.NewOr(children...) }

// Not negates child.
func Not(child Filter) *NotFilter { return model.NewNot(child) }

// Asc sorts by attribute in ascending order.
func Asc(attribute string) SortEntry { return model.Ascending(attribute) }

// Desc sorts by attribute in descending order.
func Desc(attribute string) SortEntry { return model.Descending(attribute) }
