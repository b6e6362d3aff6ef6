package rql

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"gorm.io/gorm"

	"github.com/nlstn/go-rql/internal/backend/gormsql"
	"github.com/nlstn/go-rql/internal/backend/memory"
	rqlmongo "github.com/nlstn/go-rql/internal/backend/mongo"
	"github.com/nlstn/go-rql/internal/observability"
)

// ApplyGORM adds the conditions, ordering and paging of m to db. When db has
// neither a table nor a model set, the table of s is used. Cursor tokens are
// resolved to an offset.
//
// Example:
//
//	tx, err := rql.ApplyGORM(ctx, db.Model(&Person{}), m, schema)
//	if err != nil {
//	    http.Error(w, err.Error(), rql.HTTPStatus(err))
//	    return
//	}
//	var people []Person
//	err = tx.Find(&people).Error
func ApplyGORM(ctx context.Context, db *gorm.DB, m *QueryModel, s *ObjectSchema, opts ...Option) (*gorm.DB, error) {
	return gormsql.Apply(ctx, db, m, s, gormOptions(opts)...)
}

// FindGORM runs m and returns the rows together with the cursor of the next
// page, which is nil unless m is cursor paged and the page was full.
func FindGORM[T any](ctx context.Context, db *gorm.DB, m *QueryModel, s *ObjectSchema, opts ...Option) ([]T, *string, error) {
	return gormsql.Find[T](ctx, db, m, s, gormOptions(opts)...)
}

// RegisterGORMTracing installs GORM callbacks that trace and measure the
// queries run through db when obs enables detailed database tracing.
func RegisterGORMTracing(db *gorm.DB, obs *ObservabilityConfig) error {
	return observability.RegisterGORMCallbacks(db, obs)
}

func gormOptions(opts []Option) []gormsql.Option {
	cfg := newConfig(opts)
	return []gormsql.Option{
		gormsql.WithCompileOptions(cfg.compile...),
		gormsql.WithLogger(cfg.logger),
		gormsql.WithObservability(cfg.obs),
	}
}

// MongoQuery compiles m into a filter document and find options for the
// MongoDB driver.
func MongoQuery(ctx context.Context, m *QueryModel, s Schema, opts ...Option) (bson.M, *options.FindOptions, error) {
	return rqlmongo.Query(ctx, m, s, mongoOptions(opts)...)
}

// FindMongo runs m against coll and decodes the matching documents. It also
// returns the cursor of the next page when m is cursor paged.
func FindMongo[T any](ctx context.Context, coll *mongo.Collection, m *QueryModel, s Schema, opts ...Option) ([]T, *string, error) {
	return rqlmongo.Find[T](ctx, coll, m, s, mongoOptions(opts)...)
}

func mongoOptions(opts []Option) []rqlmongo.Option {
	cfg := newConfig(opts)
	return []rqlmongo.Option{
		rqlmongo.WithCompileOptions(cfg.compile...),
		rqlmongo.WithLogger(cfg.logger),
		rqlmongo.WithObservability(cfg.obs),
	}
}

// FilterSlice filters, sorts and pages items in memory. Members are read
// through the struct fields, map keys and methods recorded in s. The input
// slice is not modified.
func FilterSlice[T any](ctx context.Context, items []T, m *QueryModel, s Schema, opts ...Option) ([]T, *string, error) {
	cfg := newConfig(opts)
	memOpts := []memory.Option{
		memory.WithCompileOptions(cfg.compile...),
		memory.WithLogger(cfg.logger),
		memory.WithObservability(cfg.obs),
	}
	if cfg.patterns != nil {
		memOpts = append(memOpts, memory.WithPatternCache(cfg.patterns))
	}
	return memory.Apply(ctx, items, m, s, memOpts...)
}
