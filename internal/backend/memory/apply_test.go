package memory

import (
	"context"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nlstn/go-rql/internal/model"
	"github.com/nlstn/go-rql/internal/parser"
	"github.com/nlstn/go-rql/internal/schema"
)

type item struct {
	Name string `json:"name"`
	Qty  int    `json:"qty"`
}

type person struct {
	Name       string            `json:"name"`
	Nickname   *string           `json:"nickname"`
	Born       time.Time         `json:"born"`
	Tags       []string          `json:"tags"`
	Items      []item            `json:"items"`
	Attributes map[string]string `json:"attributes"`
}

func (p person) Initial() string { return strings.ToUpper(p.Name[:1]) }

func ptr(s string) *string { return &s }

func people() []person {
	return []person{
		{
			Name:       "alice",
			Nickname:   ptr("ali"),
			Born:       time.Date(1990, 5, 1, 0, 0, 0, 0, time.UTC),
			Tags:       []string{"red", "blue"},
			Items:      []item{{"apple", 1}, {"pear", 5}},
			Attributes: map[string]string{"color": "green"},
		},
		{
			Name:  "bob",
			Born:  time.Date(1985, 1, 1, 0, 0, 0, 0, time.UTC),
			Tags:  []string{"red"},
			Items: []item{{"apple", 5}},
		},
		{
			Name:       "carol",
			Nickname:   ptr("caz"),
			Born:       time.Date(2001, 7, 9, 0, 0, 0, 0, time.UTC),
			Attributes: map[string]string{"color": "blue"},
		},
	}
}

func names(ps []person) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = p.Name
	}
	return out
}

func TestApply(t *testing.T) {
	s, err := schema.Analyze(person{}, schema.WithVirtual(person{}, "initial", "Initial"))
	require.NoError(t, err)

	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{"everything", ``, []string{"alice", "bob", "carol"}},
		{"eq", `filter=eq(name,"bob")`, []string{"bob"}},
		{"ne skips missing", `filter=ne(nickname,"ali")`, []string{"carol"}},
		{"null", `filter=eq(nickname,null)`, []string{"bob"}},
		{"time", `filter=gt(born,1989-12-31T00:00:00Z)`, []string{"alice", "carol"}},
		{"co-scoped", `filter=and(eq(items.name,"apple"),gt(items.qty,2))`, []string{"bob"}},
		{"any element", `filter=or(eq(items.name,"apple"),gt(items.qty,2))`, []string{"alice", "bob"}},
		{"some element not matching", `filter=not(eq(items.name,"apple"))`, []string{"alice"}},
		{"nested and on one element", `filter=and(eq(items.name,"apple"),and(gt(items.qty,2),ne(name,"x")))`, []string{"bob"}},
		{"scalar collection", `filter=eq(tags,"blue")`, []string{"alice"}},
		{"scalar collection twice", `filter=and(eq(tags,"red"),eq(tags,"blue"))`, []string{"alice"}},
		{"map", `filter=eq(attributes.color,"blue")`, []string{"carol"}},
		{"like", `filter=like(name,"?o*")`, []string{"bob"}},
		{"like is case sensitive", `filter=like(name,"A*")`, []string{}},
		{"like ignore case", `filter=likeIgnoreCase(name,"A*")`, []string{"alice"}},
		{"in", `filter=in(name,"carol","alice")`, []string{"alice", "carol"}},
		{"virtual", `filter=eq(initial,"C")`, []string{"carol"}},
		{"sort", `option=sort(-born)`, []string{"carol", "alice", "bob"}},
		{"sort nulls first", `option=sort(+nickname)`, []string{"bob", "alice", "carol"}},
		{"limit", `option=sort(+name),limit(1,5)`, []string{"bob", "carol"}},
		{"limit past end", `option=limit(10,5)`, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := parser.Parse(tt.query)
			require.NoError(t, err)
			got, next, err := Apply(context.Background(), people(), m, s)
			require.NoError(t, err)
			assert.Nil(t, next)
			assert.Equal(t, tt.want, names(got))
		})
	}
}

func TestApplyCursor(t *testing.T) {
	s, err := schema.Analyze(person{})
	require.NoError(t, err)

	m, err := parser.Parse(`option=sort(+name),cursor(2)`)
	require.NoError(t, err)
	got, next, err := Apply(context.Background(), people(), m, s)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob"}, names(got))
	require.NotNil(t, next)

	m.Options.Cursor = &model.Cursor{Token: next, Limit: 2}
	got, next, err = Apply(context.Background(), people(), m, s)
	require.NoError(t, err)
	assert.Equal(t, []string{"carol"}, names(got))
	assert.Nil(t, next)
}

func TestApplyDocuments(t *testing.T) {
	s, err := schema.Load(strings.NewReader(`
name: Doc
members:
  - name: title
  - name: pages
    type: int
  - name: authors
    kind: collection
    schema:
      members:
        - name: name
        - name: country
`))
	require.NoError(t, err)

	docs := []map[string]any{
		{"title": "a", "pages": 10, "authors": []any{
			map[string]any{"name": "x", "country": "at"},
			map[string]any{"name": "y", "country": "de"},
		}},
		{"title": "b", "pages": 300, "authors": []any{
			map[string]any{"name": "x", "country": "de"},
		}},
	}

	m, err := parser.Parse(`filter=and(eq(authors.name,"x"),eq(authors.country,"de"))`)
	require.NoError(t, err)
	got, _, err := Apply(context.Background(), docs, m, s)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "b", got[0]["title"])

	m, err = parser.Parse(`filter=ge(pages,100)`)
	require.NoError(t, err)
	got, _, err = Apply(context.Background(), docs, m, s)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "b", got[0]["title"])
}

func TestApplyNonFiniteFloats(t *testing.T) {
	type reading struct {
		Sensor string  `json:"sensor"`
		Value  float64 `json:"value"`
	}
	s, err := schema.Analyze(reading{})
	require.NoError(t, err)
	readings := []reading{{"a", math.NaN()}, {"b", math.Inf(1)}, {"c", 2}}

	for _, query := range []string{`filter=gt(value,1.5)`, `filter=eq(value,2)`, `option=sort(+value)`} {
		m, err := parser.Parse(query)
		require.NoError(t, err)
		var got []reading
		require.NotPanics(t, func() {
			got, _, err = Apply(context.Background(), readings, m, s)
		}, query)
		require.NoError(t, err)
		if query != `option=sort(+value)` {
			require.Len(t, got, 1, query)
			assert.Equal(t, "c", got[0].Sensor)
		}
	}
}
