package worker

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
)

// BufferPolicy decides what a bounded Queue does when it is full.
type BufferPolicy int

const (
	// BufferUnbounded never drops. Memory grows with a slow consumer.
	BufferUnbounded BufferPolicy = iota
	// BufferDropNewest rejects the incoming item.
	BufferDropNewest
	// BufferDropOldest evicts the head to make room.
	BufferDropOldest
)

// String implements fmt.Stringer.
func (p BufferPolicy) String() string {
	switch p {
	case BufferDropNewest:
		return "drop_newest"
	case BufferDropOldest:
		return "drop_oldest"
	default:
		return "unbounded"
	}
}

// ParseBufferPolicy parses the names produced by String.
func ParseBufferPolicy(s string) (BufferPolicy, error) {
	switch strings.ToLower(s) {
	case "", "unbounded":
		return BufferUnbounded, nil
	case "drop_newest":
		return BufferDropNewest, nil
	case "drop_oldest":
		return BufferDropOldest, nil
	}
	return BufferUnbounded, fmt.Errorf("unknown buffer policy %q", s)
}

// Queue is a thread-safe FIFO with a signal channel for context-aware waits.
//
// Producers call Enqueue from any goroutine; one consumer loops on Wait and
// TryDequeue. The signal channel has a buffer of one, so bursts of
// enqueues coalesce into a single wake-up.
type Queue[T any] struct {
	mu       sync.Mutex
	items    []T
	capacity int
	policy   BufferPolicy
	onDrop   func(T)
	closed   bool
	signal   chan struct{}
	dropped  atomic.Uint64
}

// NewQueue creates an unbounded queue.
func NewQueue[T any]() *Queue[T] {
	return &Queue[T]{
		items:  make([]T, 0, 64),
		signal: make(chan struct{}, 1),
	}
}

// NewBoundedQueue creates a queue holding at most capacity items.
// onDrop, if set, sees every item the policy discards.
// A non-positive capacity or BufferUnbounded yields an unbounded queue.
func NewBoundedQueue[T any](capacity int, policy BufferPolicy, onDrop func(T)) *Queue[T] {
	q := NewQueue[T]()
	if capacity > 0 && policy != BufferUnbounded {
		q.capacity = capacity
		q.policy = policy
	}
	q.onDrop = onDrop
	return q
}

// Enqueue appends v. It returns ErrQueueClosed after Close, and
// ErrItemDropped when BufferDropNewest rejects v; onDrop has seen v by then.
func (q *Queue[T]) Enqueue(v T) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrQueueClosed
	}

	var evicted T
	var haveEvicted bool
	if q.capacity > 0 && len(q.items) >= q.capacity {
		switch q.policy {
		case BufferDropNewest:
			q.mu.Unlock()
			q.drop(v)
			return ErrItemDropped
		case BufferDropOldest:
			evicted, haveEvicted = q.popLocked()
		}
	}

	q.items = append(q.items, v)
	select {
	case q.signal <- struct{}{}:
	default:
	}
	q.mu.Unlock()

	if haveEvicted {
		q.drop(evicted)
	}
	return nil
}

func (q *Queue[T]) drop(v T) {
	q.dropped.Add(1)
	if q.onDrop != nil {
		q.onDrop(v)
	}
}

// TryDequeue removes the head without blocking.
func (q *Queue[T]) TryDequeue() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.popLocked()
}

func (q *Queue[T]) popLocked() (T, bool) {
	var zero T
	if len(q.items) == 0 {
		return zero, false
	}
	v := q.items[0]

	// CRITICAL: clear the slot so the backing array does not pin the
	// item until the next reallocation.
	q.items[0] = zero
	if len(q.items) == 1 {
		q.items = q.items[:0]
	} else {
		q.items = q.items[1:]
	}
	return v, true
}

// Wait returns a channel that signals when items may be available.
// The channel is closed by Close.
func (q *Queue[T]) Wait() <-chan struct{} {
	return q.signal
}

// Len returns the number of queued items.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Dropped returns how many items the policy has discarded.
func (q *Queue[T]) Dropped() uint64 {
	return q.dropped.Load()
}

// Close rejects further enqueues, discards what is buffered and wakes the
// consumer: the next receive from Wait reports closed. Returns the number of
// discarded items.
func (q *Queue[T]) Close() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return 0
	}
	q.closed = true
	n := len(q.items)
	clear(q.items)
	q.items = nil
	// A pending wake-up would make the first receive look like new work.
	select {
	case <-q.signal:
	default:
	}
	close(q.signal)
	return n
}

// Closed reports whether Close has been called.
func (q *Queue[T]) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}
