package rql

import (
	"context"
	"io"

	"github.com/nlstn/go-rql/internal/compile"
	"github.com/nlstn/go-rql/internal/patterncache"
	"github.com/nlstn/go-rql/internal/preprocess"
	"github.com/nlstn/go-rql/internal/schema"
	gormschema "gorm.io/gorm/schema"
)

// Schema describes the members of one type to the compiler.
type Schema = compile.Schema

// ObjectSchema is a Schema backed by a member list. AnalyzeSchema and
// LoadSchema produce one.
type ObjectSchema = compile.ObjectSchema

// Member describes one attribute of a schema.
type Member = compile.Member

// MemberKind tells scalars, objects, collections and maps apart.
type MemberKind = compile.Kind

// Member kinds.
const (
	KindScalar     = compile.Scalar
	KindObject     = compile.Object
	KindCollection = compile.Collection
	KindMap        = compile.Map
)

// Binding tells backends where a member is stored.
type Binding = compile.Binding

// WildcardLimit restricts the wildcards of like patterns on a member.
type WildcardLimit = compile.WildcardLimit

// PatternRule requires like patterns on a member to match an expression.
type PatternRule = compile.PatternRule

// NewObjectSchema creates a schema from members.
func NewObjectSchema(name string, members ...*Member) *ObjectSchema {
	return compile.NewObject(name, members...)
}

// Path is a resolved attribute path handed to an ExpressionBuilder.
type Path = compile.Path

// Pattern is a like pattern with '*' and '%' for any sequence and '?' and
// '_' for one character.
type Pattern = compile.Pattern

// ExpressionBuilder is implemented by backends to receive compiled predicates.
type ExpressionBuilder[E any] = compile.Builder[E]

// Result is the output of Compile.
type Result[E any] = compile.Result[E]

// Ordering is one compiled sort entry.
type Ordering = compile.Ordering

// Converters maps literal types to member types.
type Converters = compile.Converters

// ConvertFunc converts a literal to a member type.
type ConvertFunc = compile.ConvertFunc

// NewConverters returns a registry with the built-in conversions.
func NewConverters() *Converters {
	return compile.NewConverters()
}

// DefaultBatchSize is the largest number of values put in one in predicate.
const DefaultBatchSize = compile.DefaultBatchSize

// PatternCache caches the regular expressions compiled for pattern rules
// and in-memory like matching.
type PatternCache = patterncache.Cache

// NewPatternCache creates a cache holding at most size expressions.
func NewPatternCache(size int) *PatternCache {
	return patterncache.New(size)
}

// WithConverters replaces the converter registry used by Compile and the
// backends.
func WithConverters(c *Converters) Option {
	return withCompile(compile.WithConverters(c))
}

// WithBatchSize sets the largest number of values per in predicate. Longer
// lists are split and the parts combined with or.
func WithBatchSize(n int) Option {
	return withCompile(compile.WithBatchSize(n))
}

// WithPreprocess rewrites the filter with the given passes before compiling.
func WithPreprocess(passes ...Pass) Option {
	return withCompile(compile.WithPreprocess(passes...))
}

// WithPatternCache replaces the shared pattern cache.
func WithPatternCache(p *PatternCache) Option {
	return func(c *config) {
		c.patterns = p
		c.compile = append(c.compile, compile.WithPatternCache(p))
	}
}

func withCompile(opt compile.Option) Option {
	return func(c *config) {
		c.compile = append(c.compile, opt)
	}
}

func (c *config) compileOptions() []compile.Option {
	opts := make([]compile.Option, 0, len(c.compile)+2)
	opts = append(opts, c.compile...)
	return append(opts, compile.WithLogger(c.logger), compile.WithObservability(c.obs))
}

// Compile resolves the filter and order of m against s and builds the
// predicate with b. Conditions reached through the same collection inside
// one and() must hold for a single element of that collection.
//
// Pagination is passed through unchanged in the result.
func Compile[E any](ctx context.Context, m *QueryModel, s Schema, b ExpressionBuilder[E], opts ...Option) (*Result[E], error) {
	cfg := newConfig(opts)
	return compile.Compile(ctx, m, s, b, cfg.compileOptions()...)
}

// Pass is a filter rewrite rule.
type Pass = preprocess.Pass

// Built-in rewrite passes.
var (
	// AndNeToNotIn rewrites and(ne(a,x),ne(a,y)) to not(in(a,x,y)).
	AndNeToNotIn = preprocess.AndNeToNotIn
	// NotNeToEq rewrites not(ne(a,x)) to eq(a,x).
	NotNeToEq = preprocess.NotNeToEq
	// OrEqToIn rewrites or(eq(a,x),eq(a,y)) to in(a,x,y).
	OrEqToIn = preprocess.OrEqToIn
)

// DefaultPasses returns the passes Preprocess runs when none are given.
func DefaultPasses() []Pass {
	return preprocess.Defaults()
}

// Preprocess rewrites the filter of m with passes, or with DefaultPasses
// when none are given. m itself is returned when nothing changed.
func Preprocess(m *QueryModel, passes ...Pass) *QueryModel {
	if len(passes) == 0 {
		passes = preprocess.Defaults()
	}
	return preprocess.Model(m, passes...)
}

// SchemaOption configures AnalyzeSchema.
type SchemaOption = schema.AnalyzerOption

// WithVirtual exposes the zero-argument method of entity as a virtual member.
func WithVirtual(entity any, name, method string) SchemaOption {
	return schema.WithVirtual(entity, name, method)
}

// WithNamer sets the GORM naming strategy used for tables and columns.
func WithNamer(n gormschema.Namer) SchemaOption {
	return schema.WithNamer(n)
}

// AnalyzeSchema builds a schema from a struct using rql, gorm, json and
// bson tags.
//
// Example:
//
//	type Person struct {
//	    ID    uint
//	    Name  string  `rql:"wildcards:1"`
//	    Items []Item  `gorm:"foreignKey:PersonID"`
//	    Notes string  `rql:"-"`
//	}
//	s, err := rql.AnalyzeSchema(Person{})
func AnalyzeSchema(entity any, opts ...SchemaOption) (*ObjectSchema, error) {
	return schema.Analyze(entity, opts...)
}

// LoadSchema reads a YAML schema document.
func LoadSchema(r io.Reader) (*ObjectSchema, error) {
	return schema.Load(r)
}

// LoadSchemaFile reads a YAML schema document from a file.
func LoadSchemaFile(path string) (*ObjectSchema, error) {
	return schema.LoadFile(path)
}
