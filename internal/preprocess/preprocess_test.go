package preprocess

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nlstn/go-rql/internal/model"
)

func TestAndNeToNotIn(t *testing.T) {
	tests := []struct {
		name    string
		filter  model.Filter
		matches bool
		want    string
	}{
		{"two ne on one attribute", model.NewAnd(model.Ne("a", 1), model.Ne("a", 2)), true, "not(in(a,1,2))"},
		{"three strings", model.NewAnd(model.Ne("a", "x"), model.Ne("a", "y"), model.Ne("a", "z")), true, `not(in(a,"x","y","z"))`},
		{"single child", model.NewAnd(model.Ne("a", 1)), false, ""},
		{"different attributes", model.NewAnd(model.Ne("a", 1), model.Ne("b", 2)), false, ""},
		{"mixed operators", model.NewAnd(model.Ne("a", 1), model.Eq("a", 2)), false, ""},
		{"null value", model.NewAnd(model.Ne("a", nil), model.Ne("a", 2)), false, ""},
		{"mixed kinds", model.NewAnd(model.Ne("a", 1), model.Ne("a", "x")), false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.matches, AndNeToNotIn.Matches(tt.filter))
			if tt.matches {
				assert.Equal(t, tt.want, model.FilterString(AndNeToNotIn.Replace(tt.filter)))
			}
		})
	}
}

func TestNotNeToEq(t *testing.T) {
	f := model.NewNot(model.Ne("a", nil))
	assert.True(t, NotNeToEq.Matches(f))
	assert.Equal(t, "eq(a,null)", model.FilterString(NotNeToEq.Replace(f)))

	assert.False(t, NotNeToEq.Matches(model.NewNot(model.Eq("a", 1))))
	assert.False(t, NotNeToEq.Matches(model.Ne("a", 1)))
}

func TestOrEqToIn(t *testing.T) {
	f := model.NewOr(model.Eq("a", 1), model.Eq("a", 2), model.Eq("a", 3))
	assert.True(t, OrEqToIn.Matches(f))
	assert.Equal(t, "in(a,1,2,3)", model.FilterString(OrEqToIn.Replace(f)))
}

func TestVisitRewritesNestedNodesAndSharesUnchanged(t *testing.T) {
	untouched := model.NewOr(model.Eq("x", 1), model.Eq("y", 2))
	f := model.NewAnd(untouched, model.NewNot(model.Ne("b", "v")))

	got := NotNeToEq.Visit(f)

	assert.Equal(t, `and(or(eq(x,1),eq(y,2)),eq(b,"v"))`, model.FilterString(got))
	assert.Same(t, untouched, got.(*model.And).Children[0])
	assert.Equal(t, `and(or(eq(x,1),eq(y,2)),not(ne(b,"v")))`, model.FilterString(f), "input must not change")
}

func TestVisitReturnsSameTreeWhenNothingMatches(t *testing.T) {
	f := model.NewAnd(model.Eq("a", 1), model.NewNot(model.Gt("b", 2)))
	assert.Same(t, f, Apply(f, Defaults()...))
}

func TestVisitDoesNotRevisitReplacement(t *testing.T) {
	calls := 0
	wrap := Pass{
		Matches: func(f model.Filter) bool {
			_, ok := f.(*model.Comparison)
			return ok
		},
		Replace: func(f model.Filter) model.Filter {
			calls++
			return model.NewNot(f)
		},
	}

	got := wrap.Visit(model.NewAnd(model.Eq("a", 1), model.Eq("b", 2)))
	assert.Equal(t, "and(not(eq(a,1)),not(eq(b,2)))", model.FilterString(got))
	assert.Equal(t, 2, calls)
}

func TestApplyIsIdempotent(t *testing.T) {
	filters := []model.Filter{
		model.NewAnd(model.Ne("a", 1), model.Ne("a", 2)),
		model.NewNot(model.NewAnd(model.Ne("a", 1), model.Ne("a", 2))),
		model.NewOr(model.NewNot(model.Ne("a", 1)), model.NewAnd(model.Ne("b", "x"), model.Ne("b", "y"), model.Eq("c", true))),
		model.NewAnd(model.NewAnd(model.Ne("a", 1), model.Ne("a", 2)), model.NewNot(model.Ne("c", nil))),
	}
	passes := append(Defaults(), OrEqToIn)

	for _, f := range filters {
		t.Run(model.FilterString(f), func(t *testing.T) {
			once := Apply(f, passes...)
			twice := Apply(once, passes...)
			assert.True(t, model.Equal(once, twice), "once=%s twice=%s", model.FilterString(once), model.FilterString(twice))
		})
	}
}

func TestModel(t *testing.T) {
	m := &model.QueryModel{Filter: model.NewAnd(model.Ne("a", 1), model.Ne("a", 2))}
	got := Model(m, Defaults()...)

	assert.Equal(t, "filter=not(in(a,1,2))", got.String())
	assert.Equal(t, "filter=and(ne(a,1),ne(a,2))", m.String())

	empty := &model.QueryModel{}
	assert.Same(t, empty, Model(empty, Defaults()...))
}
