package model

// Equal reports whether two filter trees are structurally equal with
// literals compared by value.
func Equal(a, b Filter) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	switch x := a.(type) {
	case *And:
		y, ok := b.(*And)
		return ok && equalChildren(x.Children, y.Children)
	case *Or:
		y, ok := b.(*Or)
		return ok && equalChildren(x.Children, y.Children)
	case *Not:
		y, ok := b.(*Not)
		return ok && Equal(x.Child, y.Child)
	case *Comparison:
		y, ok := b.(*Comparison)
		if !ok || x.Attribute != y.Attribute || x.Operator != y.Operator || len(x.Values) != len(y.Values) {
			return false
		}
		for i := range x.Values {
			if !ValueEqual(x.Values[i], y.Values[i]) {
				return false
			}
		}
		return true
	}
	return false
}

func equalChildren(a, b []Filter) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !Equal(a[i], b[i]) {
			return false
		}
	}
	return true
}

// Equal reports whether two query models are equal.
func (m *QueryModel) Equal(o *QueryModel) bool {
	if m.IsEmpty() || o.IsEmpty() {
		return m.IsEmpty() && o.IsEmpty()
	}
	return m.Select.Equal(o.Select) && Equal(m.Filter, o.Filter) && m.Options.Equal(o.Options)
}

// Equal reports whether two option sets are equal.
func (o Options) Equal(p Options) bool {
	if len(o.Order) != len(p.Order) {
		return false
	}
	for i := range o.Order {
		if o.Order[i] != p.Order[i] {
			return false
		}
	}
	if (o.Slice == nil) != (p.Slice == nil) || (o.Slice != nil && *o.Slice != *p.Slice) {
		return false
	}
	if (o.Cursor == nil) != (p.Cursor == nil) {
		return false
	}
	if o.Cursor == nil {
		return true
	}
	if o.Cursor.Limit != p.Cursor.Limit || (o.Cursor.Token == nil) != (p.Cursor.Token == nil) {
		return false
	}
	return o.Cursor.Token == nil || *o.Cursor.Token == *p.Cursor.Token
}
