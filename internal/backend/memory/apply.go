package memory

import (
	"context"
	"log/slog"
	"reflect"
	"slices"

	"github.com/nlstn/go-rql/internal/compile"
	"github.com/nlstn/go-rql/internal/cursor"
	"github.com/nlstn/go-rql/internal/model"
	"github.com/nlstn/go-rql/internal/observability"
	"github.com/nlstn/go-rql/internal/patterncache"
)

const backendName = "memory"

type config struct {
	compile  []compile.Option
	patterns *patterncache.Cache
	logger   *slog.Logger
	obs      *observability.Config
}

// Option configures Apply.
type Option func(*config)

// WithCompileOptions passes options to the compiler.
func WithCompileOptions(opts ...compile.Option) Option {
	return func(c *config) {
		c.compile = append(c.compile, opts...)
	}
}

// WithPatternCache sets the cache for compiled like patterns.
func WithPatternCache(p *patterncache.Cache) Option {
	return func(c *config) {
		c.patterns = p
	}
}

// WithLogger sets the logger for debug output.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		c.logger = l
	}
}

// WithObservability enables tracing and metrics.
func WithObservability(o *observability.Config) Option {
	return func(c *config) {
		c.obs = o
	}
}

// Apply filters, sorts and pages items by m. The returned slice is new; items
// is not modified. The second result is the cursor of the next page when m
// is cursor paged and more items may follow.
func Apply[T any](ctx context.Context, items []T, m *model.QueryModel, s compile.Schema, opts ...Option) ([]T, *string, error) {
	cfg := &config{}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.logger == nil {
		cfg.logger = slog.Default()
	}
	compileOpts := append(cfg.compile, compile.WithLogger(cfg.logger), compile.WithObservability(cfg.obs))
	if cfg.patterns != nil {
		compileOpts = append(compileOpts, compile.WithPatternCache(cfg.patterns))
	}

	ctx, span := cfg.obs.Tracer().StartApply(ctx, backendName, s.Name())
	defer span.End()

	res, err := compile.Compile[Predicate](ctx, m, s, NewBuilder(cfg.patterns), compileOpts...)
	if err != nil {
		cfg.obs.Tracer().RecordError(span, err)
		return nil, nil, err
	}
	offset, limit, paged, err := cursor.Window(m)
	if err != nil {
		cfg.obs.Tracer().RecordError(span, err)
		return nil, nil, err
	}

	out := make([]T, 0, len(items))
	for i := range items {
		if !res.HasPredicate || res.Predicate(reflect.ValueOf(&items[i]).Elem()) {
			out = append(out, items[i])
		}
	}
	if len(res.Ordering) > 0 {
		slices.SortStableFunc(out, func(a, b T) int {
			return compareOrdering(res.Ordering, reflect.ValueOf(&a).Elem(), reflect.ValueOf(&b).Elem())
		})
	}
	if paged {
		out = window(out, offset, limit)
	}
	observability.LoggerWithTrace(ctx, cfg.logger).Debug("rql evaluated in memory",
		slog.String(observability.LogFieldSchema, s.Name()),
		slog.Int("input", len(items)),
		slog.Int("output", len(out)))

	next, err := cursor.Next(m, len(out))
	if err != nil {
		return nil, nil, err
	}
	return out, next, nil
}

// compareOrdering sorts missing values first.
func compareOrdering(ordering []compile.Ordering, a, b reflect.Value) int {
	for _, o := range ordering {
		va, okA := value(a, o.Path)
		vb, okB := value(b, o.Path)
		var c int
		switch {
		case !okA && !okB:
			c = 0
		case !okA:
			c = -1
		case !okB:
			c = 1
		default:
			c, _ = compareValues(va.Interface(), vb.Interface())
		}
		if o.Desc {
			c = -c
		}
		if c != 0 {
			return c
		}
	}
	return 0
}

func window[T any](items []T, offset, limit uint64) []T {
	if offset >= uint64(len(items)) {
		return items[:0]
	}
	items = items[offset:]
	if limit < uint64(len(items)) {
		items = items[:limit]
	}
	return items
}
