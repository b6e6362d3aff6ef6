// Package rql parses, rewrites and compiles resource queries.
//
// A query combines field selection, a filter tree, ordering and pagination
// in one compact string:
//
//	select=name,address.city&filter=and(eq(items.name,"a"),gt(items.price,10))&option=sort(-name),limit(0,50)
//
// Parse turns the string into an immutable *QueryModel. String renders a
// model back into its canonical form. Compile resolves the model against a
// Schema and hands the result to an ExpressionBuilder; the GORM, MongoDB and
// in-memory backends implement that contract.
package rql

import (
	"context"
	"log/slog"
	"time"

	"github.com/nlstn/go-rql/internal/model"
	"github.com/nlstn/go-rql/internal/observability"
	"github.com/nlstn/go-rql/internal/parser"
	"github.com/nlstn/go-rql/internal/rqlerrors"
)

// QueryModel is the parsed form of a query. Models are never modified in
// place; every helper returns a new model.
type QueryModel = model.QueryModel

// Filter is a node of the filter tree: *AndFilter, *OrFilter, *NotFilter or
// *Comparison.
type Filter = model.Filter

// AndFilter is satisfied when all children are. Build one with And.
type AndFilter = model.And

// OrFilter is satisfied when at least one child is. Build one with Or.
type OrFilter = model.Or

// NotFilter negates its child. Build one with Not.
type NotFilter = model.Not

// Comparison is a filter leaf.
type Comparison = model.Comparison

// Operator of a comparison.
type Operator = model.Operator

// Select lists the selected attribute paths. An empty select selects all.
type Select = model.Select

// Options carries ordering and pagination.
type Options = model.Options

// SortEntry orders by one attribute.
type SortEntry = model.SortEntry

// Direction of a sort entry.
type Direction = model.Direction

// Slice is offset based pagination.
type Slice = model.Slice

// Cursor is token based pagination.
type Cursor = model.Cursor

// Comparison operators.
const (
	OpEq             = model.OpEq
	OpNe             = model.OpNe
	OpGt             = model.OpGt
	OpGe             = model.OpGe
	OpLt             = model.OpLt
	OpLe             = model.OpLe
	OpLike           = model.OpLike
	OpLikeIgnoreCase = model.OpLikeIgnoreCase
	OpIn             = model.OpIn
)

// Sort directions.
const (
	Ascending  = model.Asc
	Descending = model.Desc
)

// Parse parses a query string. Invalid input yields a *SyntaxError that
// carries every problem found, reported by the first located one.
//
// The empty string parses to the empty model.
func Parse(query string, opts ...Option) (*QueryModel, error) {
	return ParseContext(context.Background(), query, opts...)
}

// ParseContext is Parse with a context for tracing and server timing.
func ParseContext(ctx context.Context, query string, opts ...Option) (*QueryModel, error) {
	cfg := newConfig(opts)

	start := time.Now()
	tracer := cfg.obs.Tracer()
	ctx, span := tracer.StartParse(ctx, len(query))
	defer span.End()
	timing := cfg.obs.Timing(ctx, "rql-parse")
	defer timing.Stop()
	if cfg.obs.QueryTracingEnabled() {
		tracer.AddQuery(span, query)
	}
	logger := observability.LoggerWithTrace(ctx, cfg.logger)

	m, err := parser.Parse(query)
	cfg.obs.Metrics().RecordParse(ctx, time.Since(start), err == nil)
	if err != nil {
		tracer.RecordError(span, err)
		cfg.obs.Metrics().RecordError(ctx, observability.OpParse, rqlerrors.Class(err))
		attrs := []any{slog.Int("length", len(query)), slog.String(observability.LogFieldError, err.Error())}
		if se, ok := err.(*SyntaxError); ok {
			attrs = append(attrs, slog.Int("problems", len(se.Problems)))
		}
		logger.Debug("rql query did not parse", attrs...)
		return nil, err
	}

	logger.Debug("rql query parsed",
		slog.Int("length", len(query)),
		slog.Bool("filter", m.Filter != nil),
		slog.Int("sort", len(m.Options.Order)),
		slog.Bool("paged", m.Options.Slice != nil || m.Options.Cursor != nil))
	return m, nil
}

// MustParse is like Parse but panics if the query does not parse. It is
// meant for queries known at compile time.
func MustParse(query string) *QueryModel {
	m, err := Parse(query)
	if err != nil {
		panic("rql: MustParse(" + model.QuoteString(query) + "): " + err.Error())
	}
	return m
}

// String renders m in canonical form. Parsing the result yields an equal model.
func String(m *QueryModel) string {
	if m == nil {
		return ""
	}
	return m.String()
}

// FilterString renders a filter tree in canonical form.
func FilterString(f Filter) string {
	return model.FilterString(f)
}

// Equal reports whether two models have the same select, filter and options.
func Equal(a, b *QueryModel) bool {
	return a.Equal(b)
}

// AddRestriction returns a copy of m whose filter also requires restriction.
// A top-level and() is extended rather than nested.
func AddRestriction(m *QueryModel, restriction Filter) *QueryModel {
	return m.WithRestriction(restriction)
}

// Visitor is called by Walk for each node of a filter tree.
type Visitor = model.Visitor

// Walk traverses a filter tree depth first, like ast.Walk.
func Walk(v Visitor, f Filter) {
	model.Walk(v, f)
}

// Inspect calls fn for every node of the filter tree until it returns false.
func Inspect(f Filter, fn func(Filter) bool) {
	model.Inspect(f, fn)
}
