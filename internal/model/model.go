// Package model holds the immutable query model produced by the parser and
// the builder: select, filter tree and options.
package model

// Filter is a node of the filter tree. The set of implementations is closed:
// *And, *Or, *Not and *Comparison.
type Filter interface {
	filterNode()
}

// And is satisfied when all children are.
type And struct {
	Children []Filter
}

// Or is satisfied when at least one child is.
type Or struct {
	Children []Filter
}

// Not negates its child.
type Not struct {
	Child Filter
}

// Comparison is a leaf: an attribute path, an operator and its literal values.
// Values hold nil, bool, int32, int64, *big.Int, decimal.Decimal, string or
// time.Time.
type Comparison struct {
	Attribute string
	Operator  Operator
	Values    []any
}

func (*And) filterNode()        {}
func (*Or) filterNode()         {}
func (*Not) filterNode()        {}
func (*Comparison) filterNode() {}

// Value returns the first value of the comparison, or nil if there is none.
func (c *Comparison) Value() any {
	if len(c.Values) == 0 {
		return nil
	}
	return c.Values[0]
}

// IsNullCheck reports whether the comparison tests against a single null.
func (c *Comparison) IsNullCheck() bool {
	return len(c.Values) == 1 && c.Values[0] == nil
}

// Direction of a sort entry.
type Direction int

const (
	Asc Direction = iota
	Desc
)

func (d Direction) String() string {
	if d == Desc {
		return "-"
	}
	return "+"
}

// SortEntry orders by one attribute.
type SortEntry struct {
	Attribute string
	Direction Direction
}

// Slice is offset based pagination.
type Slice struct {
	Offset uint64
	Limit  uint64
}

// Cursor is token based pagination. Token is nil when the cursor only
// carries a limit.
type Cursor struct {
	Token *string
	Limit uint64
}

// Options carries ordering and pagination. At most one of Slice and Cursor is set.
type Options struct {
	Order  []SortEntry
	Slice  *Slice
	Cursor *Cursor
}

// IsEmpty reports whether the options carry neither ordering nor pagination.
func (o Options) IsEmpty() bool {
	return len(o.Order) == 0 && o.Slice == nil && o.Cursor == nil
}

// QueryModel is the parsed form of a query.
type QueryModel struct {
	Select  Select
	Filter  Filter
	Options Options
}

// IsEmpty reports whether the model selects everything without filtering,
// ordering or paging.
func (m *QueryModel) IsEmpty() bool {
	return m == nil || (m.Select.IsEmpty() && m.Filter == nil && m.Options.IsEmpty())
}

// WithFilter returns a copy of the model with the filter replaced.
func (m *QueryModel) WithFilter(f Filter) *QueryModel {
	c := m.clone()
	c.Filter = f
	return c
}

// WithSlice returns a copy of the model paged by offset and limit. Any cursor
// is dropped.
func (m *QueryModel) WithSlice(offset, limit uint64) *QueryModel {
	c := m.clone()
	c.Options.Slice = &Slice{Offset: offset, Limit: limit}
	c.Options.Cursor = nil
	return c
}

// WithRestriction returns a copy whose filter additionally requires f. An
// existing top-level AND is extended instead of nested.
func (m *QueryModel) WithRestriction(f Filter) *QueryModel {
	if f == nil {
		return m.clone()
	}
	switch cur := m.filter().(type) {
	case nil:
		return m.WithFilter(f)
	case *And:
		children := make([]Filter, 0, len(cur.Children)+1)
		children = append(children, cur.Children...)
		return m.WithFilter(&And{Children: append(children, f)})
	default:
		return m.WithFilter(&And{Children: []Filter{cur, f}})
	}
}

func (m *QueryModel) filter() Filter {
	if m == nil {
		return nil
	}
	return m.Filter
}

func (m *QueryModel) clone() *QueryModel {
	if m == nil {
		return &QueryModel{}
	}
	c := *m
	if m.Options.Order != nil {
		c.Options.Order = append([]SortEntry(nil), m.Options.Order...)
	}
	return &c
}
