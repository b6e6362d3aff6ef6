package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds the metric instruments.
type Metrics struct {
	parseDuration   metric.Float64Histogram
	compileDuration metric.Float64Histogram
	queryCount      metric.Int64Counter
	errorCount      metric.Int64Counter
	dbQueryDuration metric.Float64Histogram
}

// NewMetrics creates a new Metrics instance with the given MeterProvider.
func NewMetrics(mp metric.MeterProvider) *Metrics {
	meter := mp.Meter(MeterName)
	m := &Metrics{}

	// instrument creation only fails for invalid parameters; fall back to
	// bare instruments so recording never hits a nil
	var err error

	m.parseDuration, err = meter.Float64Histogram(
		"rql.parse.duration",
		metric.WithDescription("Duration of query parsing in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		m.parseDuration, _ = meter.Float64Histogram("rql.parse.duration")
	}

	m.compileDuration, err = meter.Float64Histogram(
		"rql.compile.duration",
		metric.WithDescription("Duration of predicate compilation in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		m.compileDuration, _ = meter.Float64Histogram("rql.compile.duration")
	}

	m.queryCount, err = meter.Int64Counter(
		"rql.query.count",
		metric.WithDescription("Total number of parsed queries"),
		metric.WithUnit("{query}"),
	)
	if err != nil {
		m.queryCount, _ = meter.Int64Counter("rql.query.count")
	}

	m.errorCount, err = meter.Int64Counter(
		"rql.error.count",
		metric.WithDescription("Total number of rejected queries"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		m.errorCount, _ = meter.Int64Counter("rql.error.count")
	}

	m.dbQueryDuration, err = meter.Float64Histogram(
		"rql.db.query.duration",
		metric.WithDescription("Duration of database queries in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		m.dbQueryDuration, _ = meter.Float64Histogram("rql.db.query.duration")
	}

	return m
}

// RecordParse records a finished parse.
func (m *Metrics) RecordParse(ctx context.Context, duration time.Duration, ok bool) {
	attrs := metric.WithAttributes(attribute.Bool("rql.ok", ok))
	m.parseDuration.Record(ctx, float64(duration.Microseconds())/1000, attrs)
	m.queryCount.Add(ctx, 1, attrs)
}

// RecordCompile records a finished compilation.
func (m *Metrics) RecordCompile(ctx context.Context, schema string, duration time.Duration) {
	m.compileDuration.Record(ctx, float64(duration.Microseconds())/1000, metric.WithAttributes(SchemaAttr(schema)))
}

// RecordError records a rejected query by error class.
func (m *Metrics) RecordError(ctx context.Context, operation, class string) {
	m.errorCount.Add(ctx, 1, metric.WithAttributes(
		OperationAttr(operation),
		ErrorClassAttr(class),
	))
}

// RecordDBQuery records metrics for a database query.
func (m *Metrics) RecordDBQuery(ctx context.Context, operation string, duration time.Duration) {
	attrs := metric.WithAttributes(attribute.String("db.operation", operation))
	m.dbQueryDuration.Record(ctx, float64(duration.Milliseconds()), attrs)
}
