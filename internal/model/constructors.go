package model

// compare normalizes values so built comparisons equal parsed ones.
func compare(op Operator, attribute string, values ...any) *Comparison {
	vs := make([]any, len(values))
	for i, v := range values {
		vs[i] = Normalize(v)
	}
	return &Comparison{Attribute: attribute, Operator: op, Values: vs}
}

// Eq builds eq(attribute,value). A nil value tests for null.
func Eq(attribute string, value any) *Comparison { return compare(OpEq, attribute, value) }

// Ne builds ne(attribute,value). A nil value tests for not null.
func Ne(attribute string, value any) *Comparison { return compare(OpNe, attribute, value) }

// Gt builds gt(attribute,value).
func Gt(attribute string, value any) *Comparison { return compare(OpGt, attribute, value) }

// Ge builds ge(attribute,value).
func Ge(attribute string, value any) *Comparison { return compare(OpGe, attribute, value) }

// Lt builds lt(attribute,value).
func Lt(attribute string, value any) *Comparison { return compare(OpLt, attribute, value) }

// Le builds le(attribute,value).
func Le(attribute string, value any) *Comparison { return compare(OpLe, attribute, value) }

// Like builds a wildcard match; '*' matches any sequence and '?' one character.
func Like(attribute, pattern string) *Comparison { return compare(OpLike, attribute, pattern) }

// LikeIgnoreCase is Like without regard to case.
func LikeIgnoreCase(attribute, pattern string) *Comparison {
	return compare(OpLikeIgnoreCase, attribute, pattern)
}

// In builds in(attribute,values...).
func In(attribute string, values ...any) *Comparison { return compare(OpIn, attribute, values...) }

// NewAnd combines children with and().
func NewAnd(children ...Filter) *And { return &And{Children: children} }

// NewOr combines children with or().
func NewOr(children ...Filter) *Or { return &Or{Children: children} }

// NewNot negates child.
func NewNot(child Filter) *Not { return &Not{Child: child} }

// Ascending sorts by attribute from low to high.
func Ascending(attribute string) SortEntry { return SortEntry{Attribute: attribute, Direction: Asc} }

// Descending sorts by attribute from high to low.
func Descending(attribute string) SortEntry { return SortEntry{Attribute: attribute, Direction: Desc} }
