package store

import (
	"log/slog"

	"github.com/roach88/flux/internal/bus"
	"github.com/roach88/flux/internal/metrics"
	"github.com/roach88/flux/internal/worker"
)

type options struct {
	executor worker.Executor
	changes  bus.Bus
	logger   *slog.Logger
	metrics  *metrics.Metrics
	onError  func(error)
}

// Option configures a store.
type Option func(*options)

// WithExecutor sets where the store's mailbox runs: worker.Goroutine (the
// default), a shared *worker.Pool, or worker.Inline for tests.
func WithExecutor(exec worker.Executor) Option {
	return func(o *options) {
		if exec != nil {
			o.executor = exec
		}
	}
}

// WithChangeBus replaces the store's private change bus.
func WithChangeBus(b bus.Bus) Option {
	return func(o *options) {
		o.changes = b
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

// WithMetrics counts processing failures.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// WithErrorHandler replaces the default failure routing, which logs the
// error and emits ir.DataError to observers.
func WithErrorHandler(h func(error)) Option {
	return func(o *options) {
		o.onError = h
	}
}
