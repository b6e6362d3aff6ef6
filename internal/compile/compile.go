// Package compile turns query models into backend predicates by resolving
// attribute paths against a schema.
package compile

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nlstn/go-rql/internal/model"
	"github.com/nlstn/go-rql/internal/observability"
	"github.com/nlstn/go-rql/internal/preprocess"
	"github.com/nlstn/go-rql/internal/rqlerrors"
)

// resolved is a leaf attribute walked from the root.
type resolved struct {
	steps []*Member
	key   string
	owner Schema
}

// scope is the collection element the compiler currently builds predicates
// for. consumed counts the steps of resolved paths leading to it.
type scope struct {
	consumed    int
	collections []*Member
}

func (s scope) enter(prefix []*Member) scope {
	collections := make([]*Member, len(s.collections), len(s.collections)+1)
	copy(collections, s.collections)
	return scope{
		consumed:    s.consumed + len(prefix),
		collections: append(collections, prefix[len(prefix)-1]),
	}
}

type compiler[E any] struct {
	cfg    *config
	b      Builder[E]
	root   Schema
	leaves map[*model.Comparison]*resolved
}

// Compile resolves the filter and ordering of m against s and builds the
// predicate with b. Conditions reached through the same collection path are
// scoped to a single element of that collection.
func Compile[E any](ctx context.Context, m *model.QueryModel, s Schema, b Builder[E], opts ...Option) (*Result[E], error) {
	cfg := newConfig(opts)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m == nil {
		m = &model.QueryModel{}
	}

	start := time.Now()
	filter := m.Filter
	if len(cfg.passes) > 0 {
		filter = preprocess.Apply(filter, cfg.passes...)
	}
	leaves := model.Comparisons(filter)

	tracer := cfg.obs.Tracer()
	ctx, span := tracer.StartCompile(ctx, s.Name(), len(leaves))
	defer span.End()
	timing := cfg.obs.Timing(ctx, "rql-compile")
	defer timing.Stop()
	logger := observability.LoggerWithTrace(ctx, cfg.logger)

	c := &compiler[E]{cfg: cfg, b: b, root: s, leaves: make(map[*model.Comparison]*resolved, len(leaves))}
	res, err := c.run(filter, m.Options)
	if err != nil {
		tracer.RecordError(span, err)
		cfg.obs.Metrics().RecordError(ctx, observability.OpCompile, rqlerrors.Class(err))
		logger.Debug("rql query rejected",
			slog.String(observability.LogFieldSchema, s.Name()),
			slog.String(observability.LogFieldError, err.Error()))
		return nil, err
	}

	cfg.obs.Metrics().RecordCompile(ctx, s.Name(), time.Since(start))
	logger.Debug("rql query compiled",
		slog.String(observability.LogFieldSchema, s.Name()),
		slog.Int("leaves", len(leaves)),
		slog.Int("ordering", len(res.Ordering)),
		slog.Bool("paged", res.Slice != nil || res.Cursor != nil))
	return res, nil
}

func (c *compiler[E]) run(filter model.Filter, opts model.Options) (*Result[E], error) {
	res := &Result[E]{Slice: opts.Slice, Cursor: opts.Cursor}

	if filter != nil {
		for _, leaf := range model.Comparisons(filter) {
			r, err := c.resolve(leaf.Attribute, false)
			if err != nil {
				return nil, err
			}
			c.leaves[leaf] = r
		}
		pred, err := c.compileNode(filter, scope{})
		if err != nil {
			return nil, err
		}
		res.Predicate, res.HasPredicate = pred, true
	}

	for _, entry := range opts.Order {
		o, err := c.ordering(entry)
		if err != nil {
			return nil, err
		}
		res.Ordering = append(res.Ordering, o)
	}
	return res, nil
}

// resolve walks attr from the root schema. Sorting paths may not cross a
// collection.
func (c *compiler[E]) resolve(attr string, sorting bool) (*resolved, error) {
	segments := model.SplitPath(attr)
	r := &resolved{owner: c.root}
	current := c.root

	for i, seg := range segments {
		if current == nil {
			return nil, rqlerrors.NoSuchField(attr)
		}
		m, ok := Lookup(current, seg)
		if !ok {
			return nil, rqlerrors.NoSuchField(attr)
		}
		r.steps = append(r.steps, m)
		r.owner = current

		switch m.Kind {
		case Scalar:
			current = nil
		case Object:
			if m.Elem == nil {
				return nil, rqlerrors.UnsupportedFieldType(attr, m.Kind)
			}
			current = m.Elem
		case Collection:
			if sorting {
				return nil, rqlerrors.Rejected(attr, "sorting by collection child entity is not supported")
			}
			current = m.Elem
		case Map:
			r.key = strings.Join(segments[i+1:], ".")
			return r, nil
		default:
			return nil, rqlerrors.UnsupportedFieldType(attr, m.Kind)
		}
	}
	return r, nil
}

func (c *compiler[E]) compileNode(node model.Filter, sc scope) (E, error) {
	var zero E
	if prefix := c.firstPrefix(node, sc); prefix != nil {
		return c.bind(prefix, node, sc)
	}
	switch n := node.(type) {
	case *model.Comparison:
		r := c.leaves[n]
		rel := r.steps[sc.consumed:]
		if idx := firstCollection(rel); idx >= 0 {
			return c.exists(rel[:idx+1], sc, func(inner scope) (E, error) {
				return c.compileNode(n, inner)
			})
		}
		return c.leaf(n, r, Path{Scope: sc.collections, Steps: rel, Key: r.key})
	case *model.And:
		return c.compileAll(flatten(n.Children), sc, c.b.And)
	case *model.Or:
		return c.compileAll(n.Children, sc, c.b.Or)
	case *model.Not:
		e, err := c.compileNode(n.Child, sc)
		if err != nil {
			return zero, err
		}
		return c.b.Not(e), nil
	}
	return zero, fmt.Errorf("unsupported filter node %T", node)
}

func (c *compiler[E]) compileAll(children []model.Filter, sc scope, combine func(...E) E) (E, error) {
	var zero E
	exprs := make([]E, 0, len(children))
	for _, child := range children {
		e, err := c.compileNode(child, sc)
		if err != nil {
			return zero, err
		}
		exprs = append(exprs, e)
	}
	if len(exprs) == 1 {
		return exprs[0], nil
	}
	return combine(exprs...), nil
}

// bind scopes every leaf of node reached through prefix to one element of
// that collection. Parts of node that do not go through prefix are moved
// out of the element predicate: exists distributes over or, and an and()
// mixing both kinds of leaves under an or() is expanded into alternatives.
func (c *compiler[E]) bind(prefix []*Member, node model.Filter, sc scope) (E, error) {
	var zero E
	inside, outside := c.reaches(node, prefix, sc)
	switch {
	case !inside:
		return c.compileNode(node, sc)
	case !outside:
		return c.exists(prefix, sc, func(inner scope) (E, error) {
			return c.compileNode(node, inner)
		})
	}

	switch n := node.(type) {
	case *model.Or:
		exprs := make([]E, 0, len(n.Children))
		for _, child := range n.Children {
			e, err := c.bind(prefix, child, sc)
			if err != nil {
				return zero, err
			}
			exprs = append(exprs, e)
		}
		if len(exprs) == 1 {
			return exprs[0], nil
		}
		return c.b.Or(exprs...), nil
	case *model.Not:
		return c.bind(prefix, negate(n.Child), sc)
	case *model.And:
		children := flatten(n.Children)
		for i, child := range children {
			if in, out := c.reaches(child, prefix, sc); !in || !out {
				continue
			}
			rest := make([]model.Filter, 0, len(children)-1)
			rest = append(rest, children[:i]...)
			rest = append(rest, children[i+1:]...)
			switch m := child.(type) {
			case *model.Not:
				return c.bind(prefix, &model.And{Children: append(rest, negate(m.Child))}, sc)
			case *model.Or:
				exprs := make([]E, 0, len(m.Children))
				for _, alt := range m.Children {
					branch := append(append(make([]model.Filter, 0, len(rest)+1), rest...), alt)
					e, err := c.bind(prefix, &model.And{Children: branch}, sc)
					if err != nil {
						return zero, err
					}
					exprs = append(exprs, e)
				}
				return c.b.Or(exprs...), nil
			}
		}
		return c.bindAnd(prefix, children, sc)
	}
	return zero, fmt.Errorf("unsupported filter node %T", node)
}

// bindAnd compiles children of which each either goes through prefix only
// or not at all. The element predicate takes the position of the first
// child going through prefix.
func (c *compiler[E]) bindAnd(prefix []*Member, children []model.Filter, sc scope) (E, error) {
	var zero E
	var element []model.Filter
	for _, child := range children {
		if in, _ := c.reaches(child, prefix, sc); in {
			element = append(element, child)
		}
	}

	exprs := make([]E, 0, len(children)-len(element)+1)
	placed := false
	for _, child := range children {
		if in, _ := c.reaches(child, prefix, sc); in {
			if placed {
				continue
			}
			placed = true
			e, err := c.exists(prefix, sc, func(inner scope) (E, error) {
				return c.compileAll(element, inner, c.b.And)
			})
			if err != nil {
				return zero, err
			}
			exprs = append(exprs, e)
			continue
		}
		e, err := c.compileNode(child, sc)
		if err != nil {
			return zero, err
		}
		exprs = append(exprs, e)
	}
	if len(exprs) == 1 {
		return exprs[0], nil
	}
	return c.b.And(exprs...), nil
}

func (c *compiler[E]) exists(prefix []*Member, sc scope, element func(scope) (E, error)) (E, error) {
	var zero E
	e, err := element(sc.enter(prefix))
	if err != nil {
		return zero, err
	}
	return c.b.Exists(Path{Scope: sc.collections, Steps: prefix}, e)
}

// elementPrefix returns the path of leaf up to the first collection it
// continues below, or nil. Paths ending at a collection compare its
// elements directly and get an element of their own.
func (c *compiler[E]) elementPrefix(leaf *model.Comparison, sc scope) []*Member {
	rel := c.leaves[leaf].steps[sc.consumed:]
	if idx := firstCollection(rel); idx >= 0 && idx < len(rel)-1 {
		return rel[:idx+1]
	}
	return nil
}

// firstPrefix returns the element prefix of the first leaf below node that
// has one.
func (c *compiler[E]) firstPrefix(node model.Filter, sc scope) []*Member {
	for _, leaf := range model.Comparisons(node) {
		if p := c.elementPrefix(leaf, sc); p != nil {
			return p
		}
	}
	return nil
}

// reaches reports whether node has leaves going through prefix and leaves
// that do not.
func (c *compiler[E]) reaches(node model.Filter, prefix []*Member, sc scope) (inside, outside bool) {
	for _, leaf := range model.Comparisons(node) {
		if samePrefix(c.elementPrefix(leaf, sc), prefix) {
			inside = true
		} else {
			outside = true
		}
	}
	return inside, outside
}

// flatten lifts the children of nested and() nodes into their parent.
func flatten(children []model.Filter) []model.Filter {
	out := make([]model.Filter, 0, len(children))
	for _, child := range children {
		if and, ok := child.(*model.And); ok {
			out = append(out, flatten(and.Children)...)
			continue
		}
		out = append(out, child)
	}
	return out
}

// negate moves a negation one level down.
func negate(f model.Filter) model.Filter {
	switch n := f.(type) {
	case *model.And:
		return &model.Or{Children: negateAll(n.Children)}
	case *model.Or:
		return &model.And{Children: negateAll(n.Children)}
	case *model.Not:
		return n.Child
	}
	return &model.Not{Child: f}
}

func negateAll(children []model.Filter) []model.Filter {
	out := make([]model.Filter, len(children))
	for i, child := range children {
		out[i] = &model.Not{Child: child}
	}
	return out
}

func samePrefix(a, b []*Member) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func firstCollection(steps []*Member) int {
	for i, m := range steps {
		if m.Kind == Collection {
			return i
		}
	}
	return -1
}

func (c *compiler[E]) ordering(entry model.SortEntry) (Ordering, error) {
	r, err := c.resolve(entry.Attribute, true)
	if err != nil {
		return Ordering{}, err
	}
	target := r.steps[len(r.steps)-1]
	switch {
	case target.Kind == Scalar:
	case target.Kind == Map && r.key != "":
	default:
		return Ordering{}, rqlerrors.UnsupportedFieldType(entry.Attribute, target.Kind)
	}
	return Ordering{Path: Path{Steps: r.steps, Key: r.key}, Desc: entry.Direction == model.Desc}, nil
}
