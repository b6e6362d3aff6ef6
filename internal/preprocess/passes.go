package preprocess

import (
	"github.com/nlstn/go-rql/internal/model"
)

// AndNeToNotIn turns and(ne(a,x),ne(a,y),...) into not(in(a,x,y,...)).
var AndNeToNotIn = Pass{
	Name: "and-ne-to-not-in",
	Matches: func(f model.Filter) bool {
		and, ok := f.(*model.And)
		return ok && sameAttributeLeaves(and.Children, model.OpNe)
	},
	Replace: func(f model.Filter) model.Filter {
		return &model.Not{Child: collapse(f.(*model.And).Children)}
	},
}

// NotNeToEq turns not(ne(a,x)) into eq(a,x).
var NotNeToEq = Pass{
	Name: "not-ne-to-eq",
	Matches: func(f model.Filter) bool {
		not, ok := f.(*model.Not)
		if !ok {
			return false
		}
		c, ok := not.Child.(*model.Comparison)
		return ok && c.Operator == model.OpNe && len(c.Values) == 1
	},
	Replace: func(f model.Filter) model.Filter {
		c := f.(*model.Not).Child.(*model.Comparison)
		return &model.Comparison{Attribute: c.Attribute, Operator: model.OpEq, Values: c.Values}
	},
}

// OrEqToIn turns or(eq(a,x),eq(a,y),...) into in(a,x,y,...). It is not part
// of the defaults.
var OrEqToIn = Pass{
	Name: "or-eq-to-in",
	Matches: func(f model.Filter) bool {
		or, ok := f.(*model.Or)
		return ok && sameAttributeLeaves(or.Children, model.OpEq)
	},
	Replace: func(f model.Filter) model.Filter {
		return collapse(f.(*model.Or).Children)
	},
}

// sameAttributeLeaves reports whether there are at least two children, all
// single-valued op comparisons on one attribute whose values can form an
// in list.
func sameAttributeLeaves(children []model.Filter, op model.Operator) bool {
	if len(children) < 2 {
		return false
	}
	var attr string
	kind := model.KindInvalid
	for i, child := range children {
		c, ok := child.(*model.Comparison)
		if !ok || c.Operator != op || len(c.Values) != 1 {
			return false
		}
		k := model.KindOf(c.Values[0])
		if !model.OpIn.AcceptsKind(k) {
			return false
		}
		if i == 0 {
			attr, kind = c.Attribute, k
			continue
		}
		if c.Attribute != attr || k != kind {
			return false
		}
	}
	return true
}

func collapse(children []model.Filter) *model.Comparison {
	values := make([]any, 0, len(children))
	for _, child := range children {
		values = append(values, child.(*model.Comparison).Values[0])
	}
	return &model.Comparison{
		Attribute: children[0].(*model.Comparison).Attribute,
		Operator:  model.OpIn,
		Values:    values,
	}
}
