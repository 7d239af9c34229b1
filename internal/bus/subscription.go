package bus

import (
	"sync"
	"sync/atomic"
)

// Subscription is a disposable handle on a live delivery.
//
// Dispose is synchronous and idempotent: after it returns no new event is
// handed to the observer, though a delivery already running completes.
type Subscription interface {
	Dispose()
	Disposed() bool
}

// handle runs its release func exactly once.
type handle struct {
	once     sync.Once
	disposed atomic.Bool
	release  func()
}

// NewSubscription returns a Subscription that calls release on first Dispose.
func NewSubscription(release func()) Subscription {
	return &handle{release: release}
}

func (h *handle) Dispose() {
	h.once.Do(func() {
		h.disposed.Store(true)
		if h.release != nil {
			h.release()
		}
	})
}

func (h *handle) Disposed() bool {
	return h.disposed.Load()
}

// Composite disposes several handles as one.
type Composite struct {
	mu   sync.Mutex
	subs []Subscription
	done bool
}

// Add appends s. Adding to a disposed Composite disposes s immediately.
func (c *Composite) Add(s Subscription) {
	if s == nil {
		return
	}
	c.mu.Lock()
	if c.done {
		c.mu.Unlock()
		s.Dispose()
		return
	}
	c.subs = append(c.subs, s)
	c.mu.Unlock()
}

// Dispose implements Subscription.
func (c *Composite) Dispose() {
	c.mu.Lock()
	if c.done {
		c.mu.Unlock()
		return
	}
	c.done = true
	subs := c.subs
	c.subs = nil
	c.mu.Unlock()

	for _, s := range subs {
		s.Dispose()
	}
}

// Disposed implements Subscription.
func (c *Composite) Disposed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.done
}
