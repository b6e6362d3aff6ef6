// Package preprocess rewrites filter trees into equivalent, simpler forms.
package preprocess

import (
	"github.com/nlstn/go-rql/internal/model"
)

// Pass is a single rewrite rule. Matches and Replace only see the subtree
// they are given.
type Pass struct {
	Name    string
	Matches func(model.Filter) bool
	Replace func(model.Filter) model.Filter
}

// Visit rewrites the tree depth first. A matching node is replaced and its
// replacement is not visited again; unchanged subtrees are returned as is.
func (p Pass) Visit(f model.Filter) model.Filter {
	if f == nil {
		return nil
	}
	if p.Matches(f) {
		return p.Replace(f)
	}
	switch n := f.(type) {
	case *model.And:
		if children, changed := p.visitAll(n.Children); changed {
			return &model.And{Children: children}
		}
	case *model.Or:
		if children, changed := p.visitAll(n.Children); changed {
			return &model.Or{Children: children}
		}
	case *model.Not:
		if child := p.Visit(n.Child); child != n.Child {
			return &model.Not{Child: child}
		}
	}
	return f
}

func (p Pass) visitAll(children []model.Filter) ([]model.Filter, bool) {
	var out []model.Filter
	for i, c := range children {
		v := p.Visit(c)
		if v != c && out == nil {
			out = make([]model.Filter, len(children))
			copy(out, children[:i])
		}
		if out != nil {
			out[i] = v
		}
	}
	return out, out != nil
}

// Apply runs the passes one after another, each over the result of the
// previous one.
func Apply(f model.Filter, passes ...Pass) model.Filter {
	for _, p := range passes {
		f = p.Visit(f)
	}
	return f
}

// Model returns the model with its filter rewritten. The model itself is
// returned when nothing changed.
func Model(m *model.QueryModel, passes ...Pass) *model.QueryModel {
	if m == nil || m.Filter == nil {
		return m
	}
	f := Apply(m.Filter, passes...)
	if f == m.Filter {
		return m
	}
	return m.WithFilter(f)
}

// Defaults returns the passes applied when none are configured.
func Defaults() []Pass {
	return []Pass{AndNeToNotIn, NotNeToEq}
}
