package config

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"golang.org/x/time/rate"

	"github.com/roach88/flux/internal/bus"
	"github.com/roach88/flux/internal/worker"
)

// NewBus creates the configured action bus. opts are applied after the
// overflow option.
func (c Config) NewBus(opts ...bus.Option) (bus.Bus, error) {
	strategy, err := bus.ParseStrategy(c.Bus.Strategy)
	if err != nil {
		return nil, err
	}
	policy, err := worker.ParseBufferPolicy(c.Bus.Overflow)
	if err != nil {
		return nil, err
	}
	all := append([]bus.Option{bus.WithOverflow(policy, c.Bus.Capacity)}, opts...)
	return bus.New(strategy, all...)
}

// NewPool creates the configured worker pool. The pool is not started.
func (c Config) NewPool(opts ...worker.PoolOption) (*worker.Pool, error) {
	policy, err := worker.ParsePolicy(c.Workers.Overflow)
	if err != nil {
		return nil, err
	}
	all := append([]worker.PoolOption{
		worker.WithPoolSize(c.Workers.Size),
		worker.WithQueueSize(c.Workers.Queue),
		worker.WithPolicy(policy),
	}, opts...)
	return worker.NewPool(all...), nil
}

// Limit returns the send rate limit, or rate.Inf when disabled.
func (c Config) Limit() (rate.Limit, int) {
	if c.RateLimit.PerSecond <= 0 {
		return rate.Inf, 0
	}
	return rate.Limit(c.RateLimit.PerSecond), max(c.RateLimit.Burst, 1)
}

// NewLogger builds a slog logger writing to w.
func (l LogConfig) NewLogger(w io.Writer) (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	hopts := &slog.HandlerOptions{Level: level}
	switch strings.ToLower(l.Format) {
	case "json":
		return slog.New(slog.NewJSONHandler(w, hopts)), nil
	case "", "text":
		return slog.New(slog.NewTextHandler(w, hopts)), nil
	}
	return nil, fmt.Errorf("unknown log format %q", l.Format)
}
