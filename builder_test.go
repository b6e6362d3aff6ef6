package rql

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilderMatchesParser(t *testing.T) {
	built, err := NewBuilder().
		Select("name", "address.city", "name").
		Filter(And(Eq("items.name", "a"), Gt("items.price", 10))).
		Sort(Desc("name")).
		Limit(0, 50).
		Build()
	require.NoError(t, err)

	parsed := MustParse(`select=name,address.city&filter=and(eq(items.name,"a"),gt(items.price,10))&option=sort(-name),limit(0,50)`)
	assert.True(t, Equal(built, parsed))
	if diff := cmp.Diff(parsed.Select.Attributes, built.Select.Attributes); diff != "" {
		t.Errorf("select mismatch (-parsed +built):\n%s", diff)
	}
}

func TestBuilderCursorAndLimit(t *testing.T) {
	_, err := NewBuilder().Limit(0, 10).Cursor("abc", 10).Build()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCursorAndLimit))
	assert.Equal(t, 400, HTTPStatus(err))

	assert.Panics(t, func() {
		NewBuilder().Cursor("", 1).Limit(0, 1).MustBuild()
	})
}

func TestBuilderRejectsInvalidModels(t *testing.T) {
	tests := []struct {
		name    string
		builder *Builder
	}{
		{"empty and", NewBuilder().Filter(And())},
		{"nil not", NewBuilder().Filter(Not(nil))},
		{"like on number", NewBuilder().Filter(&Comparison{Attribute: "a", Operator: OpLike, Values: []any{int32(1)}})},
		{"ordering on null", NewBuilder().Filter(Gt("a", nil))},
		{"in with booleans", NewBuilder().Filter(In("a", true, false))},
		{"mixed in", NewBuilder().Filter(In("a", 1, "x"))},
		{"unsupported value", NewBuilder().Filter(Eq("a", struct{}{}))},
		{"bad path", NewBuilder().Filter(Eq("a..b", 1))},
		{"bad select", NewBuilder().Select(".a")},
		{"bad sort", NewBuilder().Sort(Asc(""))},
		{"space in path", NewBuilder().Filter(Eq("first name", "x"))},
		{"path starting with digit", NewBuilder().Filter(Eq("1st", "x"))},
		{"parenthesis in select", NewBuilder().Select("a(b")},
		{"dash in sort", NewBuilder().Sort(Desc("a-b"))},
		{"year after 9999", NewBuilder().Filter(Gt("at", time.Date(10000, 1, 1, 0, 0, 0, 0, time.UTC)))},
		{"offset with seconds", NewBuilder().Filter(Eq("at", time.Date(1900, 1, 1, 0, 0, 0, 0, time.FixedZone("LMT", 19*60+32))))},
		{"invalid utf-8 string", NewBuilder().Filter(Eq("a", "a\xffb"))},
		{"invalid utf-8 cursor", NewBuilder().Cursor("t\xff", 5)},
		{"nan", NewBuilder().Filter(Eq("score", math.NaN()))},
		{"infinity", NewBuilder().Filter(Gt("score", math.Inf(1)))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.builder.Build()
			require.Error(t, err)
			assert.True(t, IsSyntaxError(err), "got %v", err)
		})
	}
}

func TestBuilderModelsRoundTrip(t *testing.T) {
	models := []*QueryModel{
		NewBuilder().Select("näme", "_x.y1", "a/b").MustBuild(),
		NewBuilder().Filter(Eq("straße", "say \"hi\"\\\n☃")).MustBuild(),
		NewBuilder().Filter(And(
			Ge("at", time.Date(1, 1, 1, 0, 0, 0, 0, time.UTC)),
			Le("at", time.Date(9999, 12, 31, 23, 59, 59, 999999999, time.FixedZone("", -(9*3600+30*60)))),
			Eq("at", time.Date(2024, 5, 6, 7, 8, 9, 0, time.FixedZone("", 5*3600+45*60))),
		)).MustBuild(),
		NewBuilder().Filter(Or(In("n", 1, int64(1)<<40), Eq("d", 2.5), Ne("f", float32(0.25)))).MustBuild(),
		NewBuilder().Filter(Not(Eq("null", nil))).Sort(Asc("_"), Desc("a1.b2")).Cursor("tök", 5).MustBuild(),
	}

	for _, m := range models {
		text := String(m)
		parsed, err := Parse(text)
		require.NoError(t, err, text)
		assert.True(t, Equal(m, parsed), "%s != %s", text, String(parsed))
	}
}

func TestBuilderWhere(t *testing.T) {
	m := NewBuilder().
		Where(Eq("a", 1)).
		Where(Eq("b", 2)).
		Where(Eq("c", 3)).
		MustBuild()
	assert.Equal(t, `filter=and(eq(a,1),eq(b,2),eq(c,3))`, String(m))

	m = NewBuilder().Where(Ne("a", nil)).MustBuild()
	assert.Equal(t, `filter=ne(a,null)`, String(m))
}

func TestBuilderCopiesState(t *testing.T) {
	b := NewBuilder().Sort(Asc("a")).Limit(0, 5)
	first := b.MustBuild()
	b.Sort(Desc("b")).Limit(5, 5)
	assert.Equal(t, `option=sort(+a),limit(0,5)`, String(first))
	assert.Equal(t, `option=sort(+a,-b),limit(5,5)`, String(b.MustBuild()))
}
