// Package observability provides OpenTelemetry-based instrumentation for
// parsing and compiling queries.
//
// All observability features are opt-in. When not configured, no-op
// implementations are used.
package observability

import "go.opentelemetry.io/otel/attribute"

// Instrumentation identity constants
const (
	// TracerName is the instrumentation name for tracing.
	TracerName = "github.com/nlstn/go-rql"
	// MeterName is the instrumentation name for metrics.
	MeterName = "github.com/nlstn/go-rql"
)

// Semantic attribute keys.
const (
	AttrQueryLength   = "rql.query.length"
	AttrSchema        = "rql.schema"
	AttrBackend       = "rql.backend"
	AttrOperation     = "rql.operation"
	AttrLeafCount     = "rql.filter.leaves"
	AttrHasFilter     = "rql.query.has_filter"
	AttrHasPagination = "rql.query.has_pagination"
	AttrErrorClass    = "rql.error.class"
)

// Operation names for the rql.operation attribute.
const (
	OpParse      = "parse"
	OpPreprocess = "preprocess"
	OpCompile    = "compile"
	OpApply      = "apply"
)

// Log field keys for structured logging with trace context.
const (
	LogFieldTraceID  = "trace_id"
	LogFieldSpanID   = "span_id"
	LogFieldSchema   = "schema"
	LogFieldDuration = "duration_ms"
	LogFieldError    = "error"
)

// QueryLengthAttr creates an attribute for the raw query length.
func QueryLengthAttr(n int) attribute.KeyValue {
	return attribute.Int(AttrQueryLength, n)
}

// SchemaAttr creates an attribute for the root schema name.
func SchemaAttr(name string) attribute.KeyValue {
	return attribute.String(AttrSchema, name)
}

// BackendAttr creates an attribute for the expression backend.
func BackendAttr(name string) attribute.KeyValue {
	return attribute.String(AttrBackend, name)
}

// OperationAttr creates an attribute for the operation type.
func OperationAttr(op string) attribute.KeyValue {
	return attribute.String(AttrOperation, op)
}

// LeafCountAttr creates an attribute for the number of comparisons.
func LeafCountAttr(n int) attribute.KeyValue {
	return attribute.Int(AttrLeafCount, n)
}

// ErrorClassAttr creates an attribute for the error class.
func ErrorClassAttr(class string) attribute.KeyValue {
	return attribute.String(AttrErrorClass, class)
}
