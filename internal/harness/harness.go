package harness

import (
	"cmp"
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/flux/internal/action"
	"github.com/roach88/flux/internal/bus"
	"github.com/roach88/flux/internal/demo"
	"github.com/roach88/flux/internal/ir"
	"github.com/roach88/flux/internal/journal"
	"github.com/roach88/flux/internal/metrics"
	"github.com/roach88/flux/internal/registry"
	"github.com/roach88/flux/internal/store"
	"github.com/roach88/flux/internal/testutil"
	"github.com/roach88/flux/internal/worker"
)

// Options configures a run.
type Options struct {
	// Journal records the run when non-nil.
	Journal *journal.Store

	// JournalKinds limits the recorded actions. Empty records every kind.
	JournalKinds []ir.ActionKind

	// Logger receives runtime logs. Defaults to discarding them.
	Logger *slog.Logger

	// Metrics counts bus and store traffic when non-nil.
	Metrics *metrics.Metrics

	// Workers sizes the shared pool. Defaults to worker.DefaultPoolSize.
	Workers int
}

// Harness holds the state of one run.
type Harness struct {
	scenario *Scenario
	opts     Options
	logger   *slog.Logger

	bus      bus.Bus
	pool     *worker.Pool
	async    *trackedSubmitter
	ctx      *registry.Context
	recorder *journal.Recorder

	stores map[string]store.Store
	views  map[string]*view
	order  []string

	mu      sync.Mutex
	tracing bool
	actions []ir.Action
}

// Run executes a scenario and returns the result. Step and assertion
// failures are reported in the result; the error is for setup failures.
func Run(ctx context.Context, scenario *Scenario, opts Options) (*Result, error) {
	h, err := newHarness(scenario, opts)
	if err != nil {
		return nil, err
	}
	defer h.close()

	result := NewResult()
	if err := h.resolveStores(); err != nil {
		return nil, err
	}

	for i, step := range scenario.Steps {
		// Concurrent interleaving is not deterministic, so those steps
		// stay out of the trace until their effects have settled.
		concurrent := step.Concurrent != nil
		if concurrent {
			h.setTracing(false)
		}
		if err := h.runStep(ctx, step, result); err != nil {
			result.AddError(fmt.Sprintf("step %d: %v", i, err))
		}
		if err := h.barrier(ctx); err != nil {
			return nil, fmt.Errorf("step %d: %w", i, err)
		}
		if concurrent {
			h.setTracing(true)
		}
		h.flush(result)
	}

	if h.recorder != nil {
		if err := h.recorder.Wait(ctx); err != nil {
			return nil, err
		}
		if err := h.recorder.Err(); err != nil {
			result.AddError(fmt.Sprintf("journal: %v", err))
		}
	}

	for _, name := range h.order {
		result.State[name] = h.stores[name].Snapshot()
	}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions, h) {
		result.AddError(msg)
	}
	return result, nil
}

func newHarness(scenario *Scenario, opts Options) (*Harness, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	h := &Harness{
		scenario: scenario,
		opts:     opts,
		logger:   logger,
		stores:   make(map[string]store.Store),
		views:    make(map[string]*view),
		tracing:  true,
	}

	strategy, err := bus.ParseStrategy(scenario.Bus)
	if err != nil {
		return nil, err
	}
	h.bus, err = bus.New(strategy,
		bus.WithName("actions"),
		bus.WithLogger(logger),
		bus.WithMetrics(opts.Metrics),
	)
	if err != nil {
		return nil, err
	}

	h.pool = worker.NewPool(
		worker.WithPoolSize(cmp.Or(opts.Workers, worker.DefaultPoolSize)),
		worker.WithPoolLogger(logger),
	)
	if err := h.pool.Start(); err != nil {
		return nil, err
	}
	if err := opts.Metrics.RegisterQueue("workers", h.pool); err != nil {
		return nil, err
	}
	h.async = &trackedSubmitter{next: h.pool}

	// The tap sees every action before any store does.
	if err := h.bus.Register(bus.NewTap(bus.OfShape(), h.onAction)); err != nil {
		return nil, err
	}
	if opts.Journal != nil {
		h.recorder = journal.NewRecorder(opts.Journal,
			journal.WithLogger(logger),
			journal.WithKinds(opts.JournalKinds...),
		)
		if err := h.bus.Register(h.recorder); err != nil {
			return nil, err
		}
	}

	factory := action.NewFactory(demo.NewHelper(nil),
		action.WithIDGenerator(testutil.NewFixedIDGenerator("act")),
		action.WithClock(testutil.NewDeterministicClock()),
	)
	h.ctx, err = registry.NewBuilder().
		SetBus(h.bus).
		SetFactory(factory).
		SetStoreMap(demo.StoreMap(
			store.WithExecutor(h.pool),
			store.WithLogger(logger),
			store.WithMetrics(opts.Metrics),
		)).
		SetKeepCache(scenario.KeepCache).
		SetSubmitter(h.async).
		SetLogger(logger).
		SetMetrics(opts.Metrics).
		Build()
	if err != nil {
		return nil, err
	}
	return h, nil
}

func (h *Harness) close() {
	if h.recorder != nil {
		_ = h.recorder.Close(context.Background())
	}
	h.ctx.Close()
	h.bus.Close()
	_ = h.pool.Stop(context.Background())
}

func (h *Harness) resolveStores() error {
	for _, ref := range h.scenario.Stores {
		var tag any
		if ref.Tag != "" {
			tag = ref.Tag
		}
		v := &view{}
		h.views[ref.Name] = v
		st, err := h.ctx.GetStore(registry.StoreKind(ref.Kind), tag, v)
		if err != nil {
			return fmt.Errorf("resolve store %q: %w", ref.Name, err)
		}
		if h.recorder != nil {
			if err := st.Register(h.recorder.ForStore(ref.Name)); err != nil {
				return err
			}
		}
		h.stores[ref.Name] = st
		h.order = append(h.order, ref.Name)
	}
	return nil
}

func (h *Harness) onAction(event any) {
	a, ok := event.(ir.Action)
	if !ok {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.tracing {
		h.actions = append(h.actions, a)
	}
}

func (h *Harness) runStep(ctx context.Context, step Step, result *Result) error {
	if step.Concurrent != nil {
		return h.runConcurrent(ctx, *step.Concurrent, result)
	}

	kind := ir.ActionKind(step.Send)
	raw := stepPayload(step)
	var err error
	if step.Async {
		err = h.ctx.SendAsync(ctx, kind, raw)
	} else {
		err = h.ctx.Send(ctx, kind, raw)
	}

	switch {
	case step.ExpectError != "" && err == nil:
		return fmt.Errorf("send %s: expected %s, got success", kind, step.ExpectError)
	case step.ExpectError != "":
		code := action.CodeOf(err)
		if code != step.ExpectError {
			return fmt.Errorf("send %s: expected %s, got %s: %v", kind, step.ExpectError, code, err)
		}
		result.Trace = append(result.Trace, TraceEvent{Type: EventRejected, Kind: step.Send, Code: code})
		return nil
	case err != nil:
		return fmt.Errorf("send %s: %w", kind, err)
	}
	return nil
}

func stepPayload(step Step) any {
	switch {
	case step.Todo != nil:
		return *step.Todo
	case step.Todos != nil:
		return step.Todos
	}
	return step.Payload
}

// runConcurrent posts from several goroutines. Only a summary goes into
// the trace.
func (h *Harness) runConcurrent(ctx context.Context, c Concurrent, result *Result) error {
	kind := ir.ActionKind(c.Send)
	g, gctx := errgroup.WithContext(ctx)
	for p := range c.Posters {
		g.Go(func() error {
			for i := range c.Repeat {
				td := demo.Todo{
					ID:    p*c.Repeat + i,
					Title: fmt.Sprintf("poster %d item %d", p, i),
					Memo:  fmt.Sprintf("poster-%d", p),
				}
				if err := h.ctx.Send(gctx, kind, td); err != nil {
					return fmt.Errorf("poster %d: %w", p, err)
				}
			}
			return nil
		})
	}
	err := g.Wait()

	result.Trace = append(result.Trace, TraceEvent{
		Type:  EventConcurrent,
		Kind:  c.Send,
		Count: int64(c.Posters * c.Repeat),
	})
	return err
}

func (h *Harness) setTracing(on bool) {
	h.mu.Lock()
	h.tracing = on
	h.mu.Unlock()
	for _, v := range h.views {
		v.setTracing(on)
	}
}

// barrier waits until every effect of the previous step is visible.
func (h *Harness) barrier(ctx context.Context) error {
	h.async.Wait()
	if d, ok := h.bus.(interface{ Drain(context.Context) error }); ok {
		if err := d.Drain(ctx); err != nil {
			return err
		}
	}
	for _, name := range h.order {
		if err := h.stores[name].Wait(ctx); err != nil {
			return err
		}
	}
	return nil
}

// flush appends the step's actions (by seq) and then each store's change
// events (in store order) to the trace.
func (h *Harness) flush(result *Result) {
	h.mu.Lock()
	actions := h.actions
	h.actions = nil
	h.mu.Unlock()

	slices.SortFunc(actions, func(a, b ir.Action) int { return cmp.Compare(a.Seq, b.Seq) })
	for _, a := range actions {
		payload, _, err := ir.PayloadDigest(a.Payload)
		if err != nil {
			result.AddError(fmt.Sprintf("trace %s: %v", a, err))
			continue
		}
		result.Trace = append(result.Trace, TraceEvent{
			Type:    EventAction,
			Seq:     a.Seq,
			Kind:    string(a.Kind),
			Shape:   string(a.Shape),
			Payload: string(payload),
		})
	}

	for _, name := range h.order {
		for _, ev := range h.views[name].take() {
			result.Trace = append(result.Trace, TraceEvent{
				Type:   EventChange,
				Store:  name,
				Fields: ir.EventFields(ev),
			})
		}
	}
}

// view records a store's change events for the trace and for the events
// assertion.
type view struct {
	mu      sync.Mutex
	all     []ir.ChangeEvent
	pending []ir.ChangeEvent
	errs    []error
	muted   bool
}

func (v *view) OnDataChange(ev ir.ChangeEvent) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.all = append(v.all, ev)
	if !v.muted {
		v.pending = append(v.pending, ev)
	}
}

func (v *view) OnDataError(err error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.errs = append(v.errs, err)
	ev := ir.DataError{Err: err}
	v.all = append(v.all, ev)
	if !v.muted {
		v.pending = append(v.pending, ev)
	}
}

func (v *view) setTracing(on bool) {
	v.mu.Lock()
	v.muted = !on
	v.mu.Unlock()
}

func (v *view) take() []ir.ChangeEvent {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := v.pending
	v.pending = nil
	return out
}

func (v *view) events() []ir.ChangeEvent {
	v.mu.Lock()
	defer v.mu.Unlock()
	return slices.Clone(v.all)
}

// trackedSubmitter lets the barrier wait for async sends.
type trackedSubmitter struct {
	next action.Submitter
	wg   sync.WaitGroup
}

func (s *trackedSubmitter) Submit(ctx context.Context, task func()) error {
	s.wg.Add(1)
	err := s.next.Submit(ctx, func() {
		defer s.wg.Done()
		task()
	})
	if err != nil {
		s.wg.Done()
	}
	return err
}

func (s *trackedSubmitter) Wait() {
	s.wg.Wait()
}
