package worker

import (
	"errors"
	"fmt"
)

// Sentinel errors for the worker package.
var (
	// ErrQueueFull is returned when a pool with PolicyReject has no room.
	ErrQueueFull = errors.New("worker queue is full")

	// ErrPoolStopped is returned when submitting to a pool that is not running.
	ErrPoolStopped = errors.New("worker pool is not running")

	// ErrAlreadyRunning is returned when Start is called twice.
	ErrAlreadyRunning = errors.New("worker pool is already running")

	// ErrQueueClosed is returned when enqueueing on a closed Queue.
	ErrQueueClosed = errors.New("queue is closed")

	// ErrItemDropped is returned when BufferDropNewest rejects an item.
	ErrItemDropped = errors.New("queue is full, item dropped")
)

// PanicError wraps a value recovered from a panicking task.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("task panicked: %v", e.Value)
}

// IsPanic reports whether err carries a recovered panic.
func IsPanic(err error) bool {
	var pe *PanicError
	return errors.As(err, &pe)
}
