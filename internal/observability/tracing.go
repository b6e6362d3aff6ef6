package observability

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Tracer wraps an OpenTelemetry tracer with query specific span creation methods.
type Tracer struct {
	tracer      trace.Tracer
	serviceName string
}

// NewTracer creates a new Tracer using the given TracerProvider.
func NewTracer(tp trace.TracerProvider, serviceName string) *Tracer {
	return &Tracer{
		tracer:      tp.Tracer(TracerName),
		serviceName: serviceName,
	}
}

// StartSpan starts a new span with the given name and attributes.
func (t *Tracer) StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// StartParse starts a span for parsing a query string.
func (t *Tracer) StartParse(ctx context.Context, queryLength int) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "rql.parse", trace.WithAttributes(
		OperationAttr(OpParse),
		QueryLengthAttr(queryLength),
	))
}

// StartCompile starts a span for compiling a model against a schema.
func (t *Tracer) StartCompile(ctx context.Context, schema string, leaves int) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "rql.compile", trace.WithAttributes(
		OperationAttr(OpCompile),
		SchemaAttr(schema),
		LeafCountAttr(leaves),
	))
}

// StartApply starts a span for applying a compiled query to a backend.
func (t *Tracer) StartApply(ctx context.Context, backend, schema string) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "rql.apply", trace.WithAttributes(
		OperationAttr(OpApply),
		BackendAttr(backend),
		SchemaAttr(schema),
	))
}

// RecordError records an error on the span.
func (t *Tracer) RecordError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

// AddQuery adds the canonical query text to a span.
func (t *Tracer) AddQuery(span trace.Span, query string) {
	if query != "" {
		span.SetAttributes(attribute.String("rql.query", query))
	}
}

// LoggerWithTrace returns a logger enriched with trace context.
func LoggerWithTrace(ctx context.Context, logger *slog.Logger) *slog.Logger {
	span := trace.SpanFromContext(ctx)
	if !span.SpanContext().IsValid() {
		return logger
	}
	return logger.With(
		slog.String(LogFieldTraceID, span.SpanContext().TraceID().String()),
		slog.String(LogFieldSpanID, span.SpanContext().SpanID().String()),
	)
}
