package bus

import (
	"runtime/debug"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/roach88/flux/internal/metrics"
)

// Direct is the synchronous strategy: Post calls every matching observer on
// the posting goroutine before returning. Observers that do real work are
// expected to hand it to their own worker.
type Direct struct {
	registry

	mu        sync.RWMutex
	observers []*directObserver // copy-on-write; Post iterates a snapshot
}

type directObserver struct {
	filter   Filter
	handler  Handler
	disposed atomic.Bool
}

var _ Bus = (*Direct)(nil)

// NewDirect creates a Direct bus.
func NewDirect(opts ...Option) *Direct {
	d := &Direct{}
	d.init(newOptions("direct", opts))
	return d
}

// Subscribe implements Source.
func (d *Direct) Subscribe(filter Filter, handler Handler) Subscription {
	o := &directObserver{filter: filter, handler: handler}

	d.mu.Lock()
	d.observers = append(slices.Clip(d.observers), o)
	d.mu.Unlock()

	return NewSubscription(func() {
		o.disposed.Store(true)
		d.mu.Lock()
		d.observers = slices.DeleteFunc(slices.Clone(d.observers), func(x *directObserver) bool { return x == o })
		d.mu.Unlock()
	})
}

// Register implements Bus.
func (d *Direct) Register(sub Subscriber) error {
	return d.register(d, sub)
}

// Unregister implements Bus.
func (d *Direct) Unregister(sub Subscriber) {
	d.unregister(sub)
}

// Post implements Bus.
func (d *Direct) Post(event any) {
	d.metrics.Posted(d.name)

	d.mu.RLock()
	observers := d.observers
	d.mu.RUnlock()

	if len(observers) == 0 {
		d.metrics.Dropped(d.name, metrics.ReasonNoObservers)
		d.logger.Debug("event dropped, no observers", "bus", d.name, "event", event)
		return
	}

	for _, o := range observers {
		if o.disposed.Load() {
			continue
		}
		if o.filter != nil && !o.filter(event) {
			continue
		}
		d.deliver(o, event)
	}
}

// deliver isolates observers from each other's panics.
func (d *Direct) deliver(o *directObserver, event any) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("observer panicked", "bus", d.name, "panic", r, "stack", string(debug.Stack()))
		}
	}()
	o.handler(event)
	d.metrics.Delivered(d.name)
}

// HasObservers implements Bus.
func (d *Direct) HasObservers() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.observers) > 0
}

// Close implements Bus.
func (d *Direct) Close() {
	d.closeTable()

	d.mu.Lock()
	observers := d.observers
	d.observers = nil
	d.mu.Unlock()

	for _, o := range observers {
		o.disposed.Store(true)
	}
}
