package worker

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
)

// Policy decides what Submit does when the pool's queue is full.
type Policy int

const (
	// PolicyReject fails fast with ErrQueueFull.
	PolicyReject Policy = iota
	// PolicyBlock waits for room or for the submit context to end.
	PolicyBlock
)

// String implements fmt.Stringer.
func (p Policy) String() string {
	if p == PolicyBlock {
		return "block"
	}
	return "reject"
}

// ParsePolicy parses "reject" or "block".
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(s) {
	case "", "reject":
		return PolicyReject, nil
	case "block":
		return PolicyBlock, nil
	}
	return PolicyReject, fmt.Errorf("unknown overflow policy %q", s)
}

// Default pool dimensions.
const (
	DefaultPoolSize  = 4
	DefaultQueueSize = 1024
)

// Pool is a bounded worker pool.
//
// A fixed number of workers drain a buffered channel. When the channel is
// full, Policy decides whether Submit fails or waits. Panics in tasks are
// recovered per task and never kill a worker.
type Pool struct {
	size      int
	queueSize int
	policy    Policy
	onPanic   PanicHandler
	logger    *slog.Logger

	mu      sync.RWMutex // guards queue creation and close against Submit
	queue   chan func()
	running atomic.Bool
	wg      sync.WaitGroup

	submitted atomic.Uint64
	completed atomic.Uint64
	rejected  atomic.Uint64
	panicked  atomic.Uint64
}

// PoolOption configures a Pool.
type PoolOption func(*Pool)

// WithPoolSize sets the number of workers.
func WithPoolSize(n int) PoolOption {
	return func(p *Pool) {
		if n > 0 {
			p.size = n
		}
	}
}

// WithQueueSize sets the queue capacity.
func WithQueueSize(n int) PoolOption {
	return func(p *Pool) {
		if n > 0 {
			p.queueSize = n
		}
	}
}

// WithPolicy sets the overflow policy.
func WithPolicy(policy Policy) PoolOption {
	return func(p *Pool) {
		p.policy = policy
	}
}

// WithPoolPanicHandler sets the handler for panicking tasks.
func WithPoolPanicHandler(h PanicHandler) PoolOption {
	return func(p *Pool) {
		p.onPanic = h
	}
}

// WithPoolLogger sets the logger.
func WithPoolLogger(logger *slog.Logger) PoolOption {
	return func(p *Pool) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// NewPool creates a stopped pool. Call Start before submitting.
func NewPool(opts ...PoolOption) *Pool {
	p := &Pool{
		size:      DefaultPoolSize,
		queueSize: DefaultQueueSize,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.onPanic == nil {
		p.onPanic = LogPanics(p.logger)
	}
	return p
}

// Start launches the workers.
func (p *Pool) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running.Load() {
		return ErrAlreadyRunning
	}
	p.queue = make(chan func(), p.queueSize)
	p.running.Store(true)
	for i := 0; i < p.size; i++ {
		p.wg.Add(1)
		go p.worker(p.queue)
	}
	p.logger.Debug("worker pool started", "workers", p.size, "queue", p.queueSize, "policy", p.policy.String())
	return nil
}

// Stop closes the queue and waits for queued tasks to finish or ctx to end.
func (p *Pool) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running.Load() {
		p.mu.Unlock()
		return ErrPoolStopped
	}
	p.running.Store(false)
	close(p.queue)
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Debug("worker pool stopped", "completed", p.completed.Load())
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Submit queues task. With PolicyReject a full queue returns ErrQueueFull;
// with PolicyBlock Submit waits for room or ctx.
func (p *Pool) Submit(ctx context.Context, task func()) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if !p.running.Load() {
		p.rejected.Add(1)
		return ErrPoolStopped
	}

	if p.policy == PolicyBlock {
		select {
		case p.queue <- task:
			p.submitted.Add(1)
			return nil
		case <-ctx.Done():
			p.rejected.Add(1)
			return ctx.Err()
		}
	}

	select {
	case p.queue <- task:
		p.submitted.Add(1)
		return nil
	default:
		p.rejected.Add(1)
		return ErrQueueFull
	}
}

// Execute implements Executor using a background context.
func (p *Pool) Execute(task func()) error {
	return p.Submit(context.Background(), task)
}

func (p *Pool) worker(queue <-chan func()) {
	defer p.wg.Done()
	for task := range queue {
		if perr := runSafe(task, p.onPanic); perr != nil {
			p.panicked.Add(1)
		}
		p.completed.Add(1)
	}
}

// Len returns the number of queued tasks.
func (p *Pool) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.queue)
}

// Running reports whether the pool accepts tasks.
func (p *Pool) Running() bool {
	return p.running.Load()
}

// PoolStats is a snapshot of pool counters.
type PoolStats struct {
	Workers   int
	Queued    int
	Submitted uint64
	Completed uint64
	Rejected  uint64
	Panicked  uint64
}

// Stats returns the current counters.
func (p *Pool) Stats() PoolStats {
	return PoolStats{
		Workers:   p.size,
		Queued:    p.Len(),
		Submitted: p.submitted.Load(),
		Completed: p.completed.Load(),
		Rejected:  p.rejected.Load(),
		Panicked:  p.panicked.Load(),
	}
}
