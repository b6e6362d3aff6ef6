package compile

import (
	"reflect"
	"strings"

	"github.com/nlstn/go-rql/internal/model"
)

// Path locates a value relative to the element a predicate is evaluated on.
//
// Scope lists the collections entered by enclosing Exists calls, outermost
// first; an empty Scope means the root. Steps are the members walked from
// the scope element, ending at the compared member. Steps is empty when the
// predicate compares the scope element itself (a scalar collection).
type Path struct {
	Scope []*Member
	Steps []*Member
	// Key is the map key when the last step is a map.
	Key string
}

// Depth is the number of enclosing Exists scopes.
func (p Path) Depth() int {
	return len(p.Scope)
}

// Target returns the last step, or nil for the scope element itself.
func (p Path) Target() *Member {
	if len(p.Steps) == 0 {
		return nil
	}
	return p.Steps[len(p.Steps)-1]
}

// Collection returns the collection the innermost scope iterates, or nil at
// the root.
func (p Path) Collection() *Member {
	if len(p.Scope) == 0 {
		return nil
	}
	return p.Scope[len(p.Scope)-1]
}

// ValueType returns the type of the compared values.
func (p Path) ValueType() reflect.Type {
	if t := p.Target(); t != nil {
		return t.Type
	}
	if c := p.Collection(); c != nil {
		return c.Type
	}
	return nil
}

// String renders the path relative to its scope.
func (p Path) String() string {
	s := joinNames(p.Steps)
	if p.Key != "" {
		if s != "" {
			s += "."
		}
		s += p.Key
	}
	return s
}

// FullString renders the path from the root.
func (p Path) FullString() string {
	parts := make([]string, 0, 2)
	if len(p.Scope) > 0 {
		parts = append(parts, joinNames(p.Scope))
	}
	if s := p.String(); s != "" {
		parts = append(parts, s)
	}
	return strings.Join(parts, ".")
}

// Ordering is one compiled sort entry.
type Ordering struct {
	Path Path
	Desc bool
}

// Result is the output of a compilation.
type Result[E any] struct {
	// Predicate is only meaningful when HasPredicate is set.
	Predicate    E
	HasPredicate bool
	Ordering     []Ordering
	Slice        *model.Slice
	Cursor       *model.Cursor
}
