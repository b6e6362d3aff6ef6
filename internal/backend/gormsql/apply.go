package gormsql

import (
	"context"
	"log/slog"
	"math"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/nlstn/go-rql/internal/compile"
	"github.com/nlstn/go-rql/internal/cursor"
	"github.com/nlstn/go-rql/internal/model"
	"github.com/nlstn/go-rql/internal/observability"
)

const backendName = "gorm"

type config struct {
	compile []compile.Option
	logger  *slog.Logger
	obs     *observability.Config
}

// Option configures Apply and Find.
type Option func(*config)

// WithCompileOptions passes options to the compiler.
func WithCompileOptions(opts ...compile.Option) Option {
	return func(c *config) {
		c.compile = append(c.compile, opts...)
	}
}

// WithLogger sets the logger for debug output.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		c.logger = l
	}
}

// WithObservability enables tracing and metrics for compilation and queries.
func WithObservability(o *observability.Config) Option {
	return func(c *config) {
		c.obs = o
	}
}

func newConfig(opts []Option) *config {
	c := &config{}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	c.compile = append(c.compile, compile.WithLogger(c.logger), compile.WithObservability(c.obs))
	return c
}

// dialectOf returns the active database dialect name (e.g. "sqlite", "postgres").
func dialectOf(db *gorm.DB) string {
	if db == nil || db.Dialector == nil {
		return "sqlite"
	}
	return db.Dialector.Name()
}

// Apply compiles m against s and adds its conditions, ordering and paging to
// db. The query must select from the table of s.
func Apply(ctx context.Context, db *gorm.DB, m *model.QueryModel, s *compile.ObjectSchema, opts ...Option) (*gorm.DB, error) {
	cfg := newConfig(opts)
	ctx, span := cfg.obs.Tracer().StartApply(ctx, backendName, s.Name())
	defer span.End()

	b := NewBuilder(dialectOf(db), s.TableName())
	res, err := compile.Compile[Expr](ctx, m, s, b, cfg.compile...)
	if err != nil {
		cfg.obs.Tracer().RecordError(span, err)
		return nil, err
	}
	offset, limit, paged, err := cursor.Window(m)
	if err != nil {
		cfg.obs.Tracer().RecordError(span, err)
		return nil, err
	}

	tx := observability.SetLoggerInDB(db.WithContext(ctx), cfg.logger)
	if tx.Statement.Table == "" && tx.Statement.Model == nil {
		tx = tx.Table(s.TableName())
	}
	if res.HasPredicate {
		if cfg.obs.QueryTracingEnabled() {
			cfg.obs.Tracer().AddQuery(span, res.Predicate.SQL)
		}
		observability.LoggerWithTrace(ctx, cfg.logger).Debug("rql condition",
			slog.String(observability.LogFieldSchema, s.Name()),
			slog.String("sql", res.Predicate.SQL),
			slog.Int("args", len(res.Predicate.Args)))
		tx = tx.Where(res.Predicate.SQL, res.Predicate.Args...)
	}
	if order, ok, err := b.orderBy(res.Ordering); err != nil {
		return nil, err
	} else if ok {
		tx = tx.Order(order)
	}
	if paged {
		tx = tx.Offset(clampInt(offset)).Limit(clampInt(limit))
	}
	return tx, nil
}

// Find runs m against s and returns the matching rows along with the cursor
// of the next page, if m is cursor paged and more rows may follow.
func Find[T any](ctx context.Context, db *gorm.DB, m *model.QueryModel, s *compile.ObjectSchema, opts ...Option) ([]T, *string, error) {
	tx, err := Apply(ctx, db, m, s, opts...)
	if err != nil {
		return nil, nil, err
	}
	var rows []T
	if err := tx.Find(&rows).Error; err != nil {
		return nil, nil, err
	}
	next, err := cursor.Next(m, len(rows))
	if err != nil {
		return nil, nil, err
	}
	return rows, next, nil
}

func (b *Builder) orderBy(ordering []compile.Ordering) (clause.OrderBy, bool, error) {
	if len(ordering) == 0 {
		return clause.OrderBy{}, false, nil
	}
	parts := make([]string, len(ordering))
	var args []any
	for i, o := range ordering {
		col, err := b.column(o.Path)
		if err != nil {
			return clause.OrderBy{}, false, err
		}
		dir := " ASC"
		if o.Desc {
			dir = " DESC"
		}
		parts[i] = col.SQL + dir
		args = append(args, col.Args...)
	}
	return clause.OrderBy{Expression: clause.Expr{SQL: strings.Join(parts, ", "), Vars: args}}, true, nil
}

func clampInt(v uint64) int {
	if v > math.MaxInt {
		return math.MaxInt
	}
	return int(v)
}
