package model

import (
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var stringEscaper = strings.NewReplacer(
	`\`, `\\`,
	`"`, `\"`,
	"\t", `\t`,
	"\n", `\n`,
	"\r", `\r`,
	"\b", `\b`,
	"\f", `\f`,
)

// String renders the model in canonical query syntax. Empty sections are
// omitted, so an empty model renders as "".
func (m *QueryModel) String() string {
	if m == nil {
		return ""
	}
	parts := make([]string, 0, 3)
	if s := m.Select.String(); s != "" {
		parts = append(parts, "select="+s)
	}
	if m.Filter != nil {
		parts = append(parts, "filter="+FilterString(m.Filter))
	}
	if o := m.Options.String(); o != "" {
		parts = append(parts, "option="+o)
	}
	return strings.Join(parts, "&")
}

// String renders the comma separated attribute list.
func (s Select) String() string {
	return strings.Join(s.Attributes, ",")
}

// String renders the option clauses: sort first, then limit or cursor.
func (o Options) String() string {
	var b strings.Builder
	if len(o.Order) > 0 {
		b.WriteString("sort(")
		for i, e := range o.Order {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(e.Direction.String())
			b.WriteString(e.Attribute)
		}
		b.WriteByte(')')
	}
	if o.Slice != nil {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString("limit(")
		b.WriteString(strconv.FormatUint(o.Slice.Offset, 10))
		b.WriteByte(',')
		b.WriteString(strconv.FormatUint(o.Slice.Limit, 10))
		b.WriteByte(')')
	}
	if o.Cursor != nil {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString("cursor(")
		if o.Cursor.Token != nil {
			b.WriteString(QuoteString(*o.Cursor.Token))
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatUint(o.Cursor.Limit, 10))
		b.WriteByte(')')
	}
	return b.String()
}

// FilterString renders a filter tree in prefix form.
func FilterString(f Filter) string {
	var b strings.Builder
	writeFilter(&b, f)
	return b.String()
}

func (a *And) String() string        { return FilterString(a) }
func (o *Or) String() string         { return FilterString(o) }
func (n *Not) String() string        { return FilterString(n) }
func (c *Comparison) String() string { return FilterString(c) }

func writeFilter(b *strings.Builder, f Filter) {
	switch n := f.(type) {
	case *And:
		writeLogical(b, "and", n.Children)
	case *Or:
		writeLogical(b, "or", n.Children)
	case *Not:
		b.WriteString("not(")
		writeFilter(b, n.Child)
		b.WriteByte(')')
	case *Comparison:
		b.WriteString(n.Operator.String())
		b.WriteByte('(')
		b.WriteString(n.Attribute)
		for _, v := range n.Values {
			b.WriteByte(',')
			b.WriteString(FormatValue(v))
		}
		b.WriteByte(')')
	}
}

func writeLogical(b *strings.Builder, name string, children []Filter) {
	b.WriteString(name)
	b.WriteByte('(')
	for i, c := range children {
		if i > 0 {
			b.WriteByte(',')
		}
		writeFilter(b, c)
	}
	b.WriteByte(')')
}

// QuoteString renders a string literal with escapes.
func QuoteString(s string) string {
	return `"` + stringEscaper.Replace(s) + `"`
}

// FormatValue renders a literal the way the parser reads it back.
func FormatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return "null"
	case bool:
		return strconv.FormatBool(x)
	case int32:
		return strconv.FormatInt(int64(x), 10)
	case int64:
		return strconv.FormatInt(x, 10)
	case *big.Int:
		return x.String()
	case decimal.Decimal:
		s := x.String()
		if !strings.ContainsAny(s, ".eE") {
			s += ".0"
		}
		return s
	case string:
		return QuoteString(x)
	case time.Time:
		return x.Format(time.RFC3339Nano)
	default:
		return QuoteString("<invalid>")
	}
}
