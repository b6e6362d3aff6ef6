package rql

import (
	"log/slog"

	"github.com/nlstn/go-rql/internal/compile"
	"github.com/nlstn/go-rql/internal/observability"
	"github.com/nlstn/go-rql/internal/patterncache"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

type config struct {
	logger   *slog.Logger
	obs      *observability.Config
	compile  []compile.Option
	patterns *patterncache.Cache
}

// Option configures Parse, Compile and the backend helpers. Options that
// only concern compilation are ignored by Parse.
type Option func(*config)

// WithLogger sets the logger for debug output. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		c.logger = l
	}
}

// WithObservability enables tracing, metrics and server timing.
func WithObservability(o *ObservabilityConfig) Option {
	return func(c *config) {
		c.obs = o
	}
}

func newConfig(opts []Option) *config {
	cfg := &config{}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.logger == nil {
		cfg.logger = slog.Default()
	}
	return cfg
}

// ObservabilityConfig holds OpenTelemetry providers and feature switches.
type ObservabilityConfig = observability.Config

// ObservabilityOption configures an ObservabilityConfig.
type ObservabilityOption = observability.Option

// NewObservability creates an initialized observability configuration.
//
// Example:
//
//	obs := rql.NewObservability(
//	    rql.WithTracerProvider(otel.GetTracerProvider()),
//	    rql.WithServerTiming(),
//	)
//	m, err := rql.Parse(q, rql.WithObservability(obs))
func NewObservability(opts ...ObservabilityOption) *ObservabilityConfig {
	return observability.NewConfig(opts...)
}

// WithTracerProvider sets the tracer provider.
func WithTracerProvider(tp trace.TracerProvider) ObservabilityOption {
	return observability.WithTracerProvider(tp)
}

// WithMeterProvider sets the meter provider.
func WithMeterProvider(mp metric.MeterProvider) ObservabilityOption {
	return observability.WithMeterProvider(mp)
}

// WithServiceName names the host service in traces and metrics.
func WithServiceName(name string) ObservabilityOption {
	return observability.WithServiceName(name)
}

// WithQueryTracing puts the query text on parse spans.
func WithQueryTracing() ObservabilityOption {
	return observability.WithQueryTracing()
}

// WithServerTiming records parse and compile durations as Server-Timing
// metrics when the context carries a timing header.
func WithServerTiming() ObservabilityOption {
	return observability.WithServerTiming()
}

// WithDetailedDBTracing traces every query run through the GORM backend.
func WithDetailedDBTracing() ObservabilityOption {
	return observability.WithDetailedDBTracing()
}
