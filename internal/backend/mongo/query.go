package mongo

import (
	"context"
	"log/slog"
	"math"

	"go.mongodb.org/mongo-driver/bson"
	mongodriver "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/nlstn/go-rql/internal/compile"
	"github.com/nlstn/go-rql/internal/cursor"
	"github.com/nlstn/go-rql/internal/model"
	"github.com/nlstn/go-rql/internal/observability"
)

const backendName = "mongo"

type config struct {
	compile []compile.Option
	logger  *slog.Logger
	obs     *observability.Config
}

// Option configures Query and Find.
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

// WithObservability enables tracing and metrics.
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

// Query compiles m against s into a filter document and find options.
func Query(ctx context.Context, m *model.QueryModel, s compile.Schema, opts ...Option) (bson.M, *options.FindOptions, error) {
	cfg := newConfig(opts)
	ctx, span := cfg.obs.Tracer().StartApply(ctx, backendName, s.Name())
	defer span.End()

	filter, find, err := query(ctx, m, s, cfg)
	if err != nil {
		cfg.obs.Tracer().RecordError(span, err)
		return nil, nil, err
	}
	observability.LoggerWithTrace(ctx, cfg.logger).Debug("rql filter document",
		slog.String(observability.LogFieldSchema, s.Name()),
		slog.Any("filter", filter))
	return filter, find, nil
}

func query(ctx context.Context, m *model.QueryModel, s compile.Schema, cfg *config) (bson.M, *options.FindOptions, error) {
	res, err := compile.Compile[bson.M](ctx, m, s, Builder{}, cfg.compile...)
	if err != nil {
		return nil, nil, err
	}
	filter := bson.M{}
	if res.HasPredicate {
		filter = res.Predicate
	}

	find := options.Find()
	if len(res.Ordering) > 0 {
		sort := make(bson.D, len(res.Ordering))
		for i, o := range res.Ordering {
			dir := 1
			if o.Desc {
				dir = -1
			}
			sort[i] = bson.E{Key: field(o.Path), Value: dir}
		}
		find.SetSort(sort)
	}
	offset, limit, paged, err := cursor.Window(m)
	if err != nil {
		return nil, nil, err
	}
	if paged {
		find.SetSkip(clampInt64(offset))
		// A zero limit means no limit to the server.
		if limit == 0 {
			filter = bson.M{"$and": bson.A{filter, bson.M{"_id": bson.M{"$exists": false}}}}
		}
		find.SetLimit(clampInt64(limit))
	}
	return filter, find, nil
}

// Find runs m against coll and decodes the matching documents. It also
// returns the cursor of the next page when m is cursor paged.
func Find[T any](ctx context.Context, coll *mongodriver.Collection, m *model.QueryModel, s compile.Schema, opts ...Option) ([]T, *string, error) {
	filter, find, err := Query(ctx, m, s, opts...)
	if err != nil {
		return nil, nil, err
	}
	cur, err := coll.Find(ctx, filter, find)
	if err != nil {
		return nil, nil, err
	}
	var rows []T
	if err := cur.All(ctx, &rows); err != nil {
		return nil, nil, err
	}
	next, err := cursor.Next(m, len(rows))
	if err != nil {
		return nil, nil, err
	}
	return rows, next, nil
}

func clampInt64(v uint64) int64 {
	if v > math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(v)
}
