package rql

import (
	"bytes"
	"fmt"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/sebdah/goldie/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newGoldie(t *testing.T) *goldie.Goldie {
	return goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
}

func TestCanonicalForm(t *testing.T) {
	inputs := []string{
		`filter=eq(name,"x")`,
		`option=limit(0,50)&select=name , address.city&filter=and( eq(items.name,"a"), gt(items.price,10) )`,
		`filter=eq(id,123455432109876e-10)`,
		`filter=eq(id,123.455432109876e+2)`,
		`filter=in(age,1,2,3000000000)`,
		`filter=or(eq(deleted,null),ne(active,true))`,
		`filter=ge(created,2024-01-02t03:04:05.250z)`,
		`filter=likeIgnoreCase(name,"J\"o*")&option=sort(+name,-age),cursor("abc",20)`,
		`option=sort(-a)&option=limit(10,5)`,
		`select=a/b,a/b,c`,
		`filter=gt(score,1e3)`,
		`filter=not(eq(name,"a\\b"))`,
	}

	var out strings.Builder
	for _, in := range inputs {
		m, err := Parse(in)
		require.NoError(t, err, in)
		fmt.Fprintf(&out, "%s\n=> %s\n", in, String(m))
	}
	newGoldie(t).Assert(t, "canonical", []byte(out.String()))
}

func TestParseEmpty(t *testing.T) {
	m, err := Parse("")
	require.NoError(t, err)
	assert.True(t, m.IsEmpty())
	assert.Equal(t, "", String(m))
	assert.Equal(t, "", String(nil))
}

func TestRoundTrip(t *testing.T) {
	ts := time.Date(2024, 5, 6, 7, 8, 9, 120000000, time.FixedZone("", 2*3600))
	tests := []struct {
		name    string
		builder *Builder
	}{
		{"empty", NewBuilder()},
		{"select only", NewBuilder().Select("name", "address.city")},
		{"co-scoped", NewBuilder().Filter(And(Eq("items.name", "a"), Eq("items.price", 10)))},
		{"null checks", NewBuilder().Filter(Or(Eq("deleted", nil), Ne("owner", nil)))},
		{"negation", NewBuilder().Filter(Not(Like("name", "J*n?")))},
		{"ignore case", NewBuilder().Filter(LikeIgnoreCase("name", `a"b\c`))},
		{"in", NewBuilder().Filter(In("age", 1, 2, int64(1)<<40))},
		{"decimal", NewBuilder().Filter(Ge("score", decimal.RequireFromString("12345.5432109876")))},
		{"whole decimal", NewBuilder().Filter(Lt("score", decimal.NewFromInt(3)))},
		{"timestamp", NewBuilder().Filter(Gt("created", ts))},
		{"sorted slice", NewBuilder().Sort(Asc("name"), Desc("age")).Limit(12, 97)},
		{"cursor", NewBuilder().Cursor("tok", 20)},
		{"cursor without token", NewBuilder().Sort(Desc("id")).Cursor("", 5)},
		{"everything", NewBuilder().
			Select("name").
			Where(Eq("a", true)).
			Where(Le("b", -3)).
			Where(Or(Eq("c", "x"), Eq("c", "y"))).
			Sort(Asc("a")).
			Limit(0, 10)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			built, err := tt.builder.Build()
			require.NoError(t, err)

			parsed, err := Parse(String(built))
			require.NoError(t, err, String(built))
			assert.True(t, Equal(built, parsed), "%s != %s", String(built), String(parsed))
			if diff := cmp.Diff(String(built), String(parsed)); diff != "" {
				t.Errorf("canonical form changed (-built +parsed):\n%s", diff)
			}
		})
	}
}

func TestNumericPrecision(t *testing.T) {
	want := decimal.RequireFromString("12345.5432109876")
	for _, q := range []string{
		"filter=eq(id,123455432109876e-10)",
		"filter=eq(id,1234.55432109876e1)",
		"filter=eq(id,123.455432109876e+2)",
		"filter=eq(id,12345.5432109876)",
	} {
		t.Run(q, func(t *testing.T) {
			m, err := Parse(q)
			require.NoError(t, err)
			got, ok := m.Filter.(*Comparison).Value().(decimal.Decimal)
			require.True(t, ok)
			assert.True(t, want.Equal(got), "got %s", got)
		})
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name    string
		query   string
		message string
		line    int
		column  int
	}{
		{"unknown segment", "sort=name", "mismatched input 'sort' expecting {'select', 'filter', 'option'}", 1, 1},
		{"second line", "filter=and(\n  eq(a,1),\n  foo(b,2))", "", 3, 3},
		{"cursor and limit", "option=limit(0,1),cursor(5)", "cursor and limit cannot be used together", 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.query)
			require.Error(t, err)
			var se *SyntaxError
			require.ErrorAs(t, err, &se)
			if tt.line > 0 {
				assert.True(t, se.Located)
				assert.Equal(t, tt.line, se.Line)
				assert.Equal(t, tt.column, se.Column)
			} else {
				assert.False(t, se.Located)
			}
			if tt.message != "" {
				assert.Contains(t, err.Error(), tt.message)
			}
		})
	}
}

func TestParseCursorAndLimitMatchesBuilder(t *testing.T) {
	_, parseErr := Parse("option=limit(0,1),cursor(5)")
	_, buildErr := NewBuilder().Limit(0, 1).Cursor("", 5).Build()
	for _, err := range []error{parseErr, buildErr} {
		assert.ErrorIs(t, err, ErrCursorAndLimit)
		assert.Equal(t, 400, HTTPStatus(err))
	}
	assert.True(t, IsSyntaxError(parseErr))
}

func TestMustParsePanics(t *testing.T) {
	assert.NotPanics(t, func() { MustParse(`filter=eq(a,1)`) })
	assert.Panics(t, func() { MustParse(`filter=eq(a`) })
}

func TestParseLogs(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	_, err := Parse(`filter=eq(a,1)&option=sort(+a)`, WithLogger(logger), WithObservability(NewObservability()))
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "rql query parsed")
	assert.Contains(t, buf.String(), "sort=1")

	buf.Reset()
	_, err = Parse(`filter=eq(a`, WithLogger(logger))
	require.Error(t, err)
	assert.Contains(t, buf.String(), "rql query did not parse")
}

func TestAddRestriction(t *testing.T) {
	tests := []struct {
		query string
		want  string
	}{
		{"", `filter=eq(tenant,"t1")`},
		{`filter=eq(a,1)`, `filter=and(eq(a,1),eq(tenant,"t1"))`},
		{`filter=and(eq(a,1),eq(b,2))&option=limit(0,5)`, `filter=and(eq(a,1),eq(b,2),eq(tenant,"t1"))&option=limit(0,5)`},
		{`filter=or(eq(a,1),eq(b,2))`, `filter=and(or(eq(a,1),eq(b,2)),eq(tenant,"t1"))`},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			m := MustParse(tt.query)
			before := String(m)
			got := AddRestriction(m, Eq("tenant", "t1"))
			assert.Equal(t, tt.want, String(got))
			assert.Equal(t, before, String(m), "original model must not change")
		})
	}
}

func TestPreprocess(t *testing.T) {
	tests := []struct {
		query  string
		passes []Pass
		want   string
	}{
		{`filter=and(ne(a,1),ne(a,2))`, nil, `filter=not(in(a,1,2))`},
		{`filter=not(ne(a,"x"))`, nil, `filter=eq(a,"x")`},
		{`filter=or(eq(a,1),eq(a,2))`, nil, `filter=or(eq(a,1),eq(a,2))`},
		{`filter=or(eq(a,1),eq(a,2))`, []Pass{OrEqToIn}, `filter=in(a,1,2)`},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			m := MustParse(tt.query)
			once := Preprocess(m, tt.passes...)
			assert.Equal(t, tt.want, String(once))
			twice := Preprocess(once, tt.passes...)
			assert.True(t, Equal(once, twice))
		})
	}

	m := MustParse(`filter=eq(a,1)`)
	assert.Same(t, m, Preprocess(m))
}

func TestWalk(t *testing.T) {
	m := MustParse(`filter=and(eq(a,1),not(or(eq(b,2),eq(c,3))))`)
	var attrs []string
	Inspect(m.Filter, func(f Filter) bool {
		if c, ok := f.(*Comparison); ok {
			attrs = append(attrs, c.Attribute)
		}
		return true
	})
	assert.Equal(t, []string{"a", "b", "c"}, attrs)
}
