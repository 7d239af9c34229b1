package action

import (
	"context"
	"log/slog"

	"golang.org/x/time/rate"

	"github.com/roach88/flux/internal/ir"
	"github.com/roach88/flux/internal/metrics"
	"github.com/roach88/flux/internal/worker"
)

// Poster is the part of a bus the creator needs.
type Poster interface {
	Post(event any)
}

// Submitter runs async sends. *worker.Pool satisfies it.
type Submitter interface {
	Submit(ctx context.Context, task func()) error
}

// ErrorHandler observes send failures, including async ones that have no
// caller left to return to.
type ErrorHandler func(kind ir.ActionKind, err error)

// Creator creates actions and posts them on a bus.
type Creator struct {
	factory *Factory
	bus     Poster
	async   Submitter
	limiter *rate.Limiter
	logger  *slog.Logger
	metrics *metrics.Metrics
	onError ErrorHandler
}

// CreatorOption configures a Creator.
type CreatorOption func(*Creator)

// WithSubmitter sets where SendAsync runs. Without one, each async send
// gets its own goroutine.
func WithSubmitter(s Submitter) CreatorOption {
	return func(c *Creator) {
		if s != nil {
			c.async = s
		}
	}
}

// WithRateLimit caps sends at r per second with the given burst.
// Send waits for a token; it fails only if its context ends first.
func WithRateLimit(r rate.Limit, burst int) CreatorOption {
	return func(c *Creator) {
		c.limiter = rate.NewLimiter(r, burst)
	}
}

// WithCreatorLogger sets the logger.
func WithCreatorLogger(logger *slog.Logger) CreatorOption {
	return func(c *Creator) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithCreatorMetrics counts rejected sends by error code.
func WithCreatorMetrics(m *metrics.Metrics) CreatorOption {
	return func(c *Creator) {
		c.metrics = m
	}
}

// WithErrorHandler sets a callback for every failed send.
func WithErrorHandler(h ErrorHandler) CreatorOption {
	return func(c *Creator) {
		c.onError = h
	}
}

// NewCreator creates a creator posting factory output on bus.
func NewCreator(factory *Factory, bus Poster, opts ...CreatorOption) *Creator {
	c := &Creator{
		factory: factory,
		bus:     bus,
		async:   goroutineSubmitter{},
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Factory returns the underlying factory.
func (c *Creator) Factory() *Factory {
	return c.factory
}

// Send creates the action for kind and raw and posts it on the calling
// goroutine. On failure nothing is posted and the error is returned.
func (c *Creator) Send(ctx context.Context, kind ir.ActionKind, raw any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			c.fail(kind, err)
			return err
		}
	}

	a, err := c.factory.Create(kind, raw)
	if err != nil {
		c.fail(kind, err)
		return err
	}

	c.logger.Debug("posting action", "kind", a.Kind, "shape", a.Shape, "seq", a.Seq, "id", a.ID)
	c.bus.Post(a)
	return nil
}

// SendAsync schedules Send on the submitter and returns at once. The only
// synchronous failure is the submitter refusing the task (for a pool,
// worker.ErrQueueFull or worker.ErrPoolStopped). Failures inside the task
// are logged and passed to the error handler.
func (c *Creator) SendAsync(ctx context.Context, kind ir.ActionKind, raw any) error {
	taskCtx := context.WithoutCancel(ctx)
	err := c.async.Submit(ctx, func() {
		_ = c.Send(taskCtx, kind, raw)
	})
	if err != nil {
		c.fail(kind, err)
	}
	return err
}

func (c *Creator) fail(kind ir.ActionKind, err error) {
	c.metrics.ActionRejected(CodeOf(err))
	c.logger.Error("send failed", "kind", kind, "error", err)
	if c.onError != nil {
		c.onError(kind, err)
	}
}

// goroutineSubmitter starts one goroutine per task.
type goroutineSubmitter struct{}

func (goroutineSubmitter) Submit(_ context.Context, task func()) error {
	return worker.Goroutine{}.Execute(task)
}
