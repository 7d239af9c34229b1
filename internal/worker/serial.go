package worker

import (
	"context"
	"fmt"
	"sync"
)

// Serial is an ordered mailbox. Tasks run one at a time, in submission
// order, on the wrapped Executor. Submit never waits for tasks to run.
//
// While tasks are pending, Serial holds exactly one drain task on the
// executor; the drain exits when the mailbox is empty and the next Submit
// schedules a new one. A task may Submit to its own mailbox.
type Serial struct {
	exec    Executor
	onPanic PanicHandler

	mu      sync.Mutex
	tasks   []func()
	running bool
	idle    chan struct{}
}

// SerialOption configures a Serial.
type SerialOption func(*Serial)

// WithSerialPanicHandler sets the handler for panicking tasks.
// The default drops the panic after recovering it.
func WithSerialPanicHandler(h PanicHandler) SerialOption {
	return func(s *Serial) {
		s.onPanic = h
	}
}

// NewSerial creates a mailbox on exec. A nil exec means Goroutine.
func NewSerial(exec Executor, opts ...SerialOption) *Serial {
	if exec == nil {
		exec = Goroutine{}
	}
	s := &Serial{exec: exec}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit appends task to the mailbox.
//
// An error means the executor refused to schedule the drain; the pending
// tasks are discarded and the mailbox returns to idle.
func (s *Serial) Submit(task func()) error {
	s.mu.Lock()
	s.tasks = append(s.tasks, task)
	if s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = true
	s.idle = make(chan struct{})
	s.mu.Unlock()

	if err := s.exec.Execute(s.drain); err != nil {
		s.mu.Lock()
		n := len(s.tasks)
		clear(s.tasks)
		s.tasks = s.tasks[:0]
		s.running = false
		close(s.idle)
		s.mu.Unlock()
		return fmt.Errorf("schedule mailbox (%d tasks discarded): %w", n, err)
	}
	return nil
}

func (s *Serial) drain() {
	for {
		s.mu.Lock()
		if len(s.tasks) == 0 {
			s.running = false
			close(s.idle)
			s.mu.Unlock()
			return
		}
		task := s.tasks[0]
		s.tasks[0] = nil
		s.tasks = s.tasks[1:]
		s.mu.Unlock()

		runSafe(task, s.onPanic)
	}
}

// Pending returns the number of tasks not yet started.
func (s *Serial) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}

// Wait blocks until the mailbox is idle or ctx is done.
func (s *Serial) Wait(ctx context.Context) error {
	for {
		s.mu.Lock()
		if !s.running {
			s.mu.Unlock()
			return nil
		}
		idle := s.idle
		s.mu.Unlock()

		select {
		case <-idle:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
