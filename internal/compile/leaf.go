package compile

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/nlstn/go-rql/internal/model"
	"github.com/nlstn/go-rql/internal/rqlerrors"
)

// constrained returns the member whose type and like constraints apply to
// values compared at p.
func constrained(p Path) *Member {
	if t := p.Target(); t != nil {
		return t
	}
	return p.Collection()
}

func (c *compiler[E]) leaf(n *model.Comparison, r *resolved, p Path) (E, error) {
	var zero E
	attr := n.Attribute
	member := constrained(p)
	if member == nil {
		return zero, rqlerrors.NoSuchField(attr)
	}

	switch {
	case member.Kind == Object:
		return zero, rqlerrors.UnsupportedFieldType(attr, member.Kind)
	case member.Kind == Collection && len(p.Steps) == 0 && member.Elem != nil:
		return zero, rqlerrors.UnsupportedFieldType(attr, member.Kind)
	case member.Kind == Map && (p.Key == "" || len(p.Steps) == 0):
		return zero, rqlerrors.UnsupportedFieldType(attr, member.Kind)
	case member.Kind == Map && member.Elem != nil:
		return zero, rqlerrors.UnsupportedFieldType(attr, Object)
	}

	op := n.Operator
	if n.IsNullCheck() {
		switch op {
		case model.OpEq:
			return c.b.IsNull(p)
		case model.OpNe:
			return c.b.IsNotNull(p)
		}
		return zero, rqlerrors.IllegalValueType(attr,
			"operator %s not supported with null values for property %s", op, attr)
	}
	if len(n.Values) != 1 && op != model.OpIn {
		return zero, rqlerrors.IllegalValueType(attr,
			"operator %s not supported for multiple values for property %s", op, attr)
	}

	typ := member.Type
	switch op.Family() {
	case model.FamilyLike:
		return c.like(n, p, member)
	case model.FamilyCompare:
		if op.IsOrdering() && !orderable(typ) {
			return zero, rqlerrors.NonComparableField(attr,
				"field '%s' of type %s cannot be compared with %s", attr, typ, op)
		}
	}

	values := make([]any, len(n.Values))
	for i, v := range n.Values {
		converted, err := c.cfg.converters.Convert(v, typ)
		if err != nil {
			return zero, rqlerrors.IllegalValueType(attr,
				"invalid value type %T for property %s.%s", v, r.owner.Name(), attr)
		}
		values[i] = converted
	}

	switch op {
	case model.OpEq:
		return c.b.Equals(p, values[0])
	case model.OpNe:
		return c.b.NotEquals(p, values[0])
	case model.OpIn:
		return c.in(p, values)
	}
	return c.b.Compare(p, op, values[0])
}

func (c *compiler[E]) in(p Path, values []any) (E, error) {
	var zero E
	if len(values) == 1 {
		return c.b.Equals(p, values[0])
	}
	size := c.cfg.batchSize
	exprs := make([]E, 0, (len(values)+size-1)/size)
	for start := 0; start < len(values); start += size {
		end := min(start+size, len(values))
		e, err := c.b.In(p, values[start:end])
		if err != nil {
			return zero, err
		}
		exprs = append(exprs, e)
	}
	if len(exprs) == 1 {
		return exprs[0], nil
	}
	return c.b.Or(exprs...), nil
}

func (c *compiler[E]) like(n *model.Comparison, p Path, member *Member) (E, error) {
	var zero E
	attr := n.Attribute
	pattern, ok := n.Value().(string)
	if !ok {
		return zero, rqlerrors.IllegalValueType(attr,
			"invalid value type %T for property %s", n.Value(), attr)
	}
	if !textual(member.Type) {
		return zero, rqlerrors.NonComparableField(attr,
			"field '%s' of type %s does not support %s", attr, member.Type, n.Operator)
	}
	if err := c.checkWildcards(attr, pattern, member); err != nil {
		return zero, err
	}
	return c.b.Like(p, Pattern(pattern), n.Operator == model.OpLikeIgnoreCase)
}

func (c *compiler[E]) checkWildcards(attr, pattern string, member *Member) error {
	if limit := member.Wildcards; limit != nil {
		chars := limit.Chars
		if chars == "" {
			chars = "*%"
		}
		count := 0
		for _, r := range pattern {
			if strings.ContainsRune(chars, r) {
				count++
			}
		}
		if count > limit.Max {
			msg := limit.Message
			if msg == "" {
				msg = fmt.Sprintf("too many wildcards for '%s'", attr)
			}
			return rqlerrors.Rejected(attr, msg)
		}
	}
	if rule := member.Pattern; rule != nil {
		re, err := c.cfg.patterns.Compile(rule.Expr)
		if err != nil {
			return rqlerrors.Unsupported(attr, "invalid pattern constraint on '%s': %v", attr, err)
		}
		if !re.MatchString(pattern) {
			msg := rule.Message
			if msg == "" {
				msg = fmt.Sprintf("wildcard for '%s' is not allowed on this position", attr)
			}
			return rqlerrors.Rejected(attr, msg)
		}
	}
	return nil
}

// ElementType returns the type compared at p after dereferencing pointers.
func ElementType(p Path) reflect.Type {
	t := p.ValueType()
	for t != nil && t.Kind() == reflect.Pointer && t != typeBigInt {
		t = t.Elem()
	}
	return t
}
