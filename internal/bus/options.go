package bus

import (
	"log/slog"

	"github.com/roach88/flux/internal/metrics"
	"github.com/roach88/flux/internal/worker"
)

type options struct {
	name     string
	logger   *slog.Logger
	metrics  *metrics.Metrics
	policy   worker.BufferPolicy
	capacity int
}

func newOptions(defaultName string, opts []Option) *options {
	o := &options{name: defaultName, logger: slog.Default()}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Option configures a bus.
type Option func(*options)

// WithName labels the bus in logs and metrics.
func WithName(name string) Option {
	return func(o *options) {
		if name != "" {
			o.name = name
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithMetrics records post, delivery and drop counts.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// WithOverflow bounds each observer's buffer on a Buffered bus.
// The default is unbounded: nothing is ever dropped and memory grows with
// a slow observer. Direct ignores this option.
func WithOverflow(policy worker.BufferPolicy, capacity int) Option {
	return func(o *options) {
		o.policy = policy
		o.capacity = capacity
	}
}
