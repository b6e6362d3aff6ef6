package compile

import (
	"log/slog"

	"github.com/nlstn/go-rql/internal/observability"
	"github.com/nlstn/go-rql/internal/patterncache"
	"github.com/nlstn/go-rql/internal/preprocess"
)

// DefaultBatchSize is the largest number of values put in one in predicate.
const DefaultBatchSize = 1000

type config struct {
	converters *Converters
	batchSize  int
	patterns   *patterncache.Cache
	passes     []preprocess.Pass
	logger     *slog.Logger
	obs        *observability.Config
}

// Option configures a compilation.
type Option func(*config)

// WithConverters replaces the value converter registry.
func WithConverters(c *Converters) Option {
	return func(cfg *config) {
		cfg.converters = c
	}
}

// WithBatchSize sets the largest number of values per in predicate.
func WithBatchSize(n int) Option {
	return func(cfg *config) {
		if n > 0 {
			cfg.batchSize = n
		}
	}
}

// WithPatternCache sets the cache used for pattern constraints.
func WithPatternCache(c *patterncache.Cache) Option {
	return func(cfg *config) {
		cfg.patterns = c
	}
}

// WithPreprocess rewrites the filter with the given passes before compiling.
func WithPreprocess(passes ...preprocess.Pass) Option {
	return func(cfg *config) {
		cfg.passes = passes
	}
}

// WithLogger sets the logger for debug output.
func WithLogger(l *slog.Logger) Option {
	return func(cfg *config) {
		cfg.logger = l
	}
}

// WithObservability sets tracing, metrics and server timing.
func WithObservability(o *observability.Config) Option {
	return func(cfg *config) {
		cfg.obs = o
	}
}

var defaultConverters = NewConverters()

func newConfig(opts []Option) *config {
	cfg := &config{
		converters: defaultConverters,
		batchSize:  DefaultBatchSize,
		patterns:   patterncache.Shared(),
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.logger == nil {
		cfg.logger = slog.Default()
	}
	return cfg
}
