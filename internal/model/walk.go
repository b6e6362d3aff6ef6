package model

// A Visitor's Visit method is invoked for each node encountered by Walk.
// If the result visitor w is not nil, Walk visits each of the children of
// node with w, followed by a call of w.Visit(nil).
type Visitor interface {
	Visit(node Filter) (w Visitor)
}

// Walk traverses a filter tree in depth-first order.
func Walk(v Visitor, node Filter) {
	if node == nil {
		return
	}
	if v = v.Visit(node); v == nil {
		return
	}
	switch n := node.(type) {
	case *And:
		for _, c := range n.Children {
			Walk(v, c)
		}
	case *Or:
		for _, c := range n.Children {
			Walk(v, c)
		}
	case *Not:
		Walk(v, n.Child)
	}
	v.Visit(nil)
}

type inspector func(Filter) bool

func (f inspector) Visit(node Filter) Visitor {
	if f(node) {
		return f
	}
	return nil
}

// Inspect traverses a filter tree, calling f for each node and with nil
// after the children of a node. Children are skipped when f returns false.
func Inspect(node Filter, f func(Filter) bool) {
	Walk(inspector(f), node)
}

// Children returns the direct children of a logical node.
func Children(f Filter) []Filter {
	switch n := f.(type) {
	case *And:
		return n.Children
	case *Or:
		return n.Children
	case *Not:
		return []Filter{n.Child}
	default:
		return nil
	}
}

// Comparisons returns every leaf of the tree in textual order.
func Comparisons(f Filter) []*Comparison {
	var out []*Comparison
	Inspect(f, func(n Filter) bool {
		if c, ok := n.(*Comparison); ok {
			out = append(out, c)
		}
		return true
	})
	return out
}
