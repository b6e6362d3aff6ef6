package model

import (
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

// SplitPath splits an attribute path on '.' and '/'.
func SplitPath(attribute string) []string {
	return strings.FieldsFunc(attribute, func(r rune) bool { return r == '.' || r == '/' })
}

// ValidPath reports whether attribute is a path of identifiers separated by
// '.' or '/'. Identifiers start with a letter or '_' and continue with
// letters, digits or '_'.
func ValidPath(attribute string) bool {
	atStart := true
	for _, r := range attribute {
		switch {
		case r == '.' || r == '/':
			if atStart {
				return false
			}
			atStart = true
		case atStart:
			if !unicode.IsLetter(r) && r != '_' {
				return false
			}
			atStart = false
		case !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_':
			return false
		}
	}
	return !atStart
}

// AcceptsKind reports whether a literal of kind k may appear as a value of op.
func (o Operator) AcceptsKind(k Kind) bool {
	switch o.Family() {
	case FamilyLike:
		return k == KindString
	case FamilyIn:
		return k == KindString || k == KindInt || k == KindDecimal
	}
	if o.IsOrdering() {
		return k == KindString || k == KindInt || k == KindDecimal || k == KindTime
	}
	return k != KindInvalid
}

// Validate checks the shape of a filter tree: operator arity and literal
// kinds, and non-empty logical nodes.
func Validate(f Filter) error {
	var err error
	Inspect(f, func(n Filter) bool {
		if err != nil || n == nil {
			return false
		}
		err = validateNode(n)
		return err == nil
	})
	return err
}

func validateNode(n Filter) error {
	switch x := n.(type) {
	case *And:
		if len(x.Children) == 0 {
			return fmt.Errorf("and requires at least one child")
		}
		return checkChildren(x.Children)
	case *Or:
		if len(x.Children) == 0 {
			return fmt.Errorf("or requires at least one child")
		}
		return checkChildren(x.Children)
	case *Not:
		if x.Child == nil {
			return fmt.Errorf("not requires a child")
		}
	case *Comparison:
		return validateComparison(x)
	}
	return nil
}

func checkChildren(children []Filter) error {
	for _, c := range children {
		if c == nil {
			return fmt.Errorf("nil filter child")
		}
	}
	return nil
}

func validateComparison(c *Comparison) error {
	if !ValidPath(c.Attribute) {
		return fmt.Errorf("invalid attribute path '%s'", c.Attribute)
	}
	if len(c.Values) == 0 {
		return fmt.Errorf("%s(%s) requires a value", c.Operator, c.Attribute)
	}
	if c.Operator != OpIn && len(c.Values) > 1 {
		return fmt.Errorf("%s(%s) takes exactly one value", c.Operator, c.Attribute)
	}
	first := KindOf(c.Values[0])
	for _, v := range c.Values {
		k := KindOf(v)
		if k == KindInvalid {
			return fmt.Errorf("unsupported literal type %T for %s(%s)", v, c.Operator, c.Attribute)
		}
		if !c.Operator.AcceptsKind(k) {
			return fmt.Errorf("%s literal not allowed for %s(%s)", k, c.Operator, c.Attribute)
		}
		if k != first {
			return fmt.Errorf("mixed literal types in %s(%s)", c.Operator, c.Attribute)
		}
		if err := checkLiteral(v); err != nil {
			return fmt.Errorf("%w in %s(%s)", err, c.Operator, c.Attribute)
		}
	}
	return nil
}

// checkLiteral rejects values the query syntax cannot express.
func checkLiteral(v any) error {
	switch x := v.(type) {
	case string:
		if !utf8.ValidString(x) {
			return fmt.Errorf("string literal is not valid UTF-8")
		}
	case time.Time:
		if y := x.Year(); y < 0 || y > 9999 {
			return fmt.Errorf("timestamp year %d out of range", y)
		}
		if _, offset := x.Zone(); offset%60 != 0 {
			return fmt.Errorf("timestamp offset of %ds is not a whole minute", offset)
		}
	}
	return nil
}
