package journal

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/roach88/flux/internal/action"
	"github.com/roach88/flux/internal/bus"
	"github.com/roach88/flux/internal/ir"
	"github.com/roach88/flux/internal/worker"
)

// Recorder writes bus traffic to a Store.
type Recorder struct {
	store   *Store
	mailbox *worker.Serial
	clock   *action.LogicalClock
	logger  *slog.Logger
	filter  bus.Filter
	subs    bus.Composite

	mu   sync.Mutex
	errs []error
}

var _ bus.Subscriber = (*Recorder)(nil)

// RecorderOption configures a Recorder.
type RecorderOption func(*recorderOptions)

type recorderOptions struct {
	executor worker.Executor
	logger   *slog.Logger
	kinds    []ir.ActionKind
}

// WithExecutor sets where writes run. Defaults to worker.Goroutine.
func WithExecutor(exec worker.Executor) RecorderOption {
	return func(o *recorderOptions) {
		o.executor = exec
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) RecorderOption {
	return func(o *recorderOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithKinds records only actions of the given kinds. With no kinds every
// action is recorded.
func WithKinds(kinds ...ir.ActionKind) RecorderOption {
	return func(o *recorderOptions) {
		o.kinds = kinds
	}
}

// NewRecorder creates a recorder writing to s.
func NewRecorder(s *Store, opts ...RecorderOption) *Recorder {
	o := &recorderOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(o)
	}
	r := &Recorder{
		store:  s,
		clock:  action.NewLogicalClock(),
		logger: o.logger.With("component", "journal"),
		filter: bus.OfShape(),
	}
	if len(o.kinds) > 0 {
		r.filter = bus.OfKind(o.kinds...)
	}
	r.mailbox = worker.NewSerial(o.executor, worker.WithSerialPanicHandler(func(p *worker.PanicError) {
		r.record(p)
	}))
	return r
}

// Keys implements bus.Subscriber.
func (r *Recorder) Keys() []any { return nil }

// OnDispatch implements bus.Subscriber. It records every action the
// configured kinds accept.
func (r *Recorder) OnDispatch(_ any, src bus.Source) bus.Subscription {
	return r.track(src.Subscribe(r.filter, r.onAction))
}

// track keeps h so Close can detach it wherever it was registered.
func (r *Recorder) track(h bus.Subscription) bus.Subscription {
	r.subs.Add(h)
	return h
}

func (r *Recorder) onAction(event any) {
	a, ok := event.(ir.Action)
	if !ok {
		return
	}
	r.submit(func() {
		rec, err := actionRecord(a)
		if err == nil {
			err = r.store.WriteAction(context.Background(), rec)
		}
		if err != nil {
			r.record(err)
		}
	})
}

// ForStore returns a view recording the change events of the named store.
// Register it on the store.
func (r *Recorder) ForStore(name string) bus.Subscriber {
	return &storeView{recorder: r, name: name}
}

type storeView struct {
	recorder *Recorder
	name     string
}

func (v *storeView) Keys() []any { return nil }

func (v *storeView) OnDispatch(_ any, src bus.Source) bus.Subscription {
	return v.recorder.track(src.Subscribe(bus.ChangeEvents, v.onChange))
}

func (v *storeView) onChange(event any) {
	ev, ok := event.(ir.ChangeEvent)
	if !ok {
		return
	}
	r := v.recorder
	r.submit(func() {
		fields, err := marshalEvent(ev)
		if err == nil {
			_, err = r.store.WriteChange(context.Background(), ChangeRecord{
				Store:     v.name,
				Seq:       r.clock.Next(),
				EventType: ev.EventType(),
				Fields:    fields,
			})
		}
		if err != nil {
			r.record(err)
		}
	})
}

func (r *Recorder) submit(task func()) {
	if err := r.mailbox.Submit(task); err != nil {
		r.record(err)
	}
}

func (r *Recorder) record(err error) {
	r.logger.Error("journal write failed", "error", err)
	r.mu.Lock()
	r.errs = append(r.errs, err)
	r.mu.Unlock()
}

// Wait blocks until every pending write has finished.
func (r *Recorder) Wait(ctx context.Context) error {
	return r.mailbox.Wait(ctx)
}

// Close detaches the recorder from every bus and store it was registered
// on, then waits for pending writes. The Store stays open.
func (r *Recorder) Close(ctx context.Context) error {
	r.subs.Dispose()
	return r.mailbox.Wait(ctx)
}

// Err returns the write failures so far, joined.
func (r *Recorder) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return errors.Join(r.errs...)
}
