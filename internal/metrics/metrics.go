// Package metrics exposes Prometheus counters for the dispatch runtime.
//
// A nil *Metrics is valid and records nothing, so components take one
// unconditionally.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "flux"

// Drop reasons recorded on flux_bus_dropped_total.
const (
	ReasonNoObservers = "no_observers"
	ReasonOverflow    = "overflow"
	ReasonDisposed    = "disposed"
)

// Metrics holds the runtime collectors.
type Metrics struct {
	posted      *prometheus.CounterVec
	delivered   *prometheus.CounterVec
	dropped     *prometheus.CounterVec
	rejected    *prometheus.CounterVec
	storeErrors *prometheus.CounterVec
	reg         prometheus.Registerer
}

// New creates the collectors and registers them on reg.
// A nil reg uses a private registry, which keeps tests isolated.
func New(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	m := &Metrics{
		posted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bus",
			Name:      "posted_total",
			Help:      "Messages posted on a bus.",
		}, []string{"bus"}),
		delivered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bus",
			Name:      "delivered_total",
			Help:      "Messages handed to an observer.",
		}, []string{"bus"}),
		dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bus",
			Name:      "dropped_total",
			Help:      "Messages discarded by a bus.",
		}, []string{"bus", "reason"}),
		rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "actions_rejected_total",
			Help:      "Sends that failed before posting, by error code.",
		}, []string{"code"}),
		storeErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_errors_total",
			Help:      "Action processing failures inside stores.",
		}, []string{"store"}),
		reg: reg,
	}

	for _, c := range []prometheus.Collector{m.posted, m.delivered, m.dropped, m.rejected, m.storeErrors} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("register metrics: %w", err)
		}
	}
	return m, nil
}

// Posted counts a post on bus.
func (m *Metrics) Posted(bus string) {
	if m == nil {
		return
	}
	m.posted.WithLabelValues(bus).Inc()
}

// Delivered counts a delivery on bus.
func (m *Metrics) Delivered(bus string) {
	if m == nil {
		return
	}
	m.delivered.WithLabelValues(bus).Inc()
}

// Dropped counts a discarded message on bus.
func (m *Metrics) Dropped(bus, reason string) {
	if m == nil {
		return
	}
	m.dropped.WithLabelValues(bus, reason).Inc()
}

// ActionRejected counts a failed send.
func (m *Metrics) ActionRejected(code string) {
	if m == nil {
		return
	}
	m.rejected.WithLabelValues(code).Inc()
}

// StoreError counts a processing failure in store.
func (m *Metrics) StoreError(store string) {
	if m == nil {
		return
	}
	m.storeErrors.WithLabelValues(store).Inc()
}

// QueueDepth is satisfied by worker.Pool.
type QueueDepth interface {
	Len() int
}

// RegisterQueue exposes q's depth as flux_pool_queue_depth{pool=name}.
func (m *Metrics) RegisterQueue(name string, q QueueDepth) error {
	if m == nil {
		return nil
	}
	g := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace:   namespace,
		Subsystem:   "pool",
		Name:        "queue_depth",
		Help:        "Tasks waiting in a worker pool.",
		ConstLabels: prometheus.Labels{"pool": name},
	}, func() float64 { return float64(q.Len()) })
	if err := m.reg.Register(g); err != nil {
		return fmt.Errorf("register queue gauge %q: %w", name, err)
	}
	return nil
}
