package bus

import (
	"context"
	"errors"
	"runtime/debug"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/roach88/flux/internal/metrics"
	"github.com/roach88/flux/internal/worker"
)

// Buffered is the backpressure strategy. Every observer owns a FIFO and a
// pump goroutine; Post enqueues into the FIFOs of matching observers and
// returns at once. The filter runs at post time, so an observer only ever
// buffers events it accepts.
//
// Buffers are unbounded unless WithOverflow says otherwise. Disposing an
// observer discards what it still has buffered; a delivery already running
// completes and Drain waits for it.
type Buffered struct {
	registry

	policy   worker.BufferPolicy
	capacity int

	// pending counts events enqueued but not yet delivered or discarded,
	// across live and disposed observers alike.
	pending atomic.Int64

	mu        sync.RWMutex
	observers []*bufferedObserver
}

type bufferedObserver struct {
	filter  Filter
	handler Handler
	queue   *worker.Queue[any]
}

var _ Bus = (*Buffered)(nil)

// NewBuffered creates a Buffered bus.
func NewBuffered(opts ...Option) *Buffered {
	o := newOptions("buffered", opts)
	b := &Buffered{policy: o.policy, capacity: o.capacity}
	b.init(o)
	return b
}

// Subscribe implements Source. It starts the observer's pump goroutine.
func (b *Buffered) Subscribe(filter Filter, handler Handler) Subscription {
	o := &bufferedObserver{filter: filter, handler: handler}
	o.queue = worker.NewBoundedQueue(b.capacity, b.policy, func(any) {
		b.pending.Add(-1)
		b.metrics.Dropped(b.name, metrics.ReasonOverflow)
	})

	b.mu.Lock()
	b.observers = append(slices.Clip(b.observers), o)
	b.mu.Unlock()

	go b.pump(o)

	return NewSubscription(func() {
		b.mu.Lock()
		b.observers = slices.DeleteFunc(slices.Clone(b.observers), func(x *bufferedObserver) bool { return x == o })
		b.mu.Unlock()
		b.discard(o)
	})
}

func (b *Buffered) discard(o *bufferedObserver) {
	if n := o.queue.Close(); n > 0 {
		b.pending.Add(int64(-n))
		for i := 0; i < n; i++ {
			b.metrics.Dropped(b.name, metrics.ReasonDisposed)
		}
		b.logger.Debug("discarded buffered events", "bus", b.name, "count", n)
	}
}

func (b *Buffered) pump(o *bufferedObserver) {
	for {
		for {
			event, ok := o.queue.TryDequeue()
			if !ok {
				break
			}
			b.deliver(o, event)
			b.pending.Add(-1)
		}
		if _, open := <-o.queue.Wait(); !open {
			return
		}
	}
}

func (b *Buffered) deliver(o *bufferedObserver, event any) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("observer panicked", "bus", b.name, "panic", r, "stack", string(debug.Stack()))
		}
	}()
	o.handler(event)
	b.metrics.Delivered(b.name)
}

// Register implements Bus.
func (b *Buffered) Register(sub Subscriber) error {
	return b.register(b, sub)
}

// Unregister implements Bus.
func (b *Buffered) Unregister(sub Subscriber) {
	b.unregister(sub)
}

// Post implements Bus. It never blocks on observers.
func (b *Buffered) Post(event any) {
	b.metrics.Posted(b.name)

	b.mu.RLock()
	observers := b.observers
	b.mu.RUnlock()

	if len(observers) == 0 {
		b.metrics.Dropped(b.name, metrics.ReasonNoObservers)
		b.logger.Debug("event dropped, no observers", "bus", b.name, "event", event)
		return
	}

	for _, o := range observers {
		if o.filter != nil && !o.filter(event) {
			continue
		}
		b.pending.Add(1)
		// ErrItemDropped was settled by the drop callback.
		if err := o.queue.Enqueue(event); errors.Is(err, worker.ErrQueueClosed) {
			b.pending.Add(-1)
		}
	}
}

// HasObservers implements Bus.
func (b *Buffered) HasObservers() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.observers) > 0
}

// Pending returns the number of events buffered or being delivered,
// including deliveries still running on disposed observers.
func (b *Buffered) Pending() int64 {
	return b.pending.Load()
}

// Drain waits until every observer has delivered what it buffered, or ctx
// ends. Events posted while draining are waited for too.
func (b *Buffered) Drain(ctx context.Context) error {
	ticker := time.NewTicker(time.Millisecond)
	defer ticker.Stop()
	for b.Pending() > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}

// Close implements Bus. It stops every pump.
func (b *Buffered) Close() {
	b.closeTable()

	b.mu.Lock()
	observers := b.observers
	b.observers = nil
	b.mu.Unlock()

	for _, o := range observers {
		b.discard(o)
	}
}
