package observability

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
)

const (
	gormSpanKey      = "rql:gorm:span"
	gormStartTimeKey = "rql:gorm:start"
	gormLoggerKey    = "_rql_logger"
)

// SetLoggerInDB stores logger on the statement settings of db.
func SetLoggerInDB(db *gorm.DB, logger *slog.Logger) *gorm.DB {
	if db == nil {
		return db
	}
	if logger == nil {
		logger = slog.Default()
	}
	return db.Set(gormLoggerKey, logger)
}

// LoggerFromDB returns the logger stored by SetLoggerInDB, or slog.Default.
func LoggerFromDB(db *gorm.DB) *slog.Logger {
	if db != nil {
		if v, ok := db.Get(gormLoggerKey); ok {
			if logger, ok := v.(*slog.Logger); ok && logger != nil {
				return logger
			}
		}
	}
	return slog.Default()
}

// RegisterGORMCallbacks registers GORM callbacks tracing the read queries
// issued with compiled filters.
func RegisterGORMCallbacks(db *gorm.DB, cfg *Config) error {
	if cfg == nil || cfg.TracerProvider == nil || !cfg.EnableDetailedDBTracing {
		return nil
	}

	tracer := cfg.Tracer()

	if err := db.Callback().Query().Before("gorm:query").Register("rql:before_query", beforeQuery(tracer)); err != nil {
		return err
	}
	if err := db.Callback().Query().After("gorm:query").Register("rql:after_query", afterQuery(tracer, cfg)); err != nil {
		return err
	}

	if err := db.Callback().Row().Before("gorm:row").Register("rql:before_row", beforeQuery(tracer)); err != nil {
		return err
	}
	if err := db.Callback().Row().After("gorm:row").Register("rql:after_row", afterQuery(tracer, cfg)); err != nil {
		return err
	}

	return nil
}

func beforeQuery(tracer *Tracer) func(*gorm.DB) {
	return func(db *gorm.DB) {
		ctx := db.Statement.Context
		if ctx == nil {
			ctx = context.Background()
		}

		ctx, span := tracer.StartSpan(ctx, "db.query",
			attribute.String("db.system", "gorm"),
		)

		db.Statement.Context = ctx
		db.InstanceSet(gormSpanKey, span)
		db.InstanceSet(gormStartTimeKey, time.Now())
	}
}

func afterQuery(tracer *Tracer, cfg *Config) func(*gorm.DB) {
	return func(db *gorm.DB) {
		spanVal, ok := db.InstanceGet(gormSpanKey)
		if !ok {
			return
		}

		span, ok := spanVal.(trace.Span)
		if !ok {
			return
		}
		defer span.End()

		if db.Statement != nil {
			if tableName := db.Statement.Table; tableName != "" {
				span.SetAttributes(attribute.String("db.sql.table", tableName))
			}
			span.SetAttributes(attribute.Int64("db.rows_affected", db.RowsAffected))
		}

		tracer.RecordError(span, db.Error)
		if db.Error != nil {
			LoggerWithTrace(db.Statement.Context, LoggerFromDB(db)).Debug("rql query failed",
				slog.String(LogFieldError, db.Error.Error()))
		}

		if startTimeVal, ok := db.InstanceGet(gormStartTimeKey); ok {
			if startTime, ok := startTimeVal.(time.Time); ok {
				cfg.Metrics().RecordDBQuery(db.Statement.Context, "SELECT", time.Since(startTime))
			}
		}
	}
}
