package store

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/roach88/flux/internal/bus"
	"github.com/roach88/flux/internal/ir"
	"github.com/roach88/flux/internal/metrics"
	"github.com/roach88/flux/internal/worker"
)

// Kinds maps the built-in list operations to action kinds.
// An empty kind disables that operation.
type Kinds struct {
	// Load replaces all entities and emits one ListChanged.
	Load ir.ActionKind
	// Append adds entities at the end and emits one ListChanged.
	Append ir.ActionKind
	// Update replaces each entity's first identity match in place and
	// emits ItemChanged per match.
	Update ir.ActionKind
}

// Config describes a List.
type Config[E any] struct {
	// Name labels the store.
	Name string

	// Shapes are the action shapes the store subscribes to.
	// Empty means every action.
	Shapes []ir.ActionShape

	// Kinds selects the built-in operations.
	Kinds Kinds

	// Identity returns the key FindItem and Update match on.
	Identity func(E) any

	// Clone deep-copies an entity for reads. Nil copies by value, which is
	// enough for entities without pointers, slices or maps.
	Clone func(E) E

	// Reduce handles kinds the built-in operations do not. It returns
	// false for kinds it ignores.
	Reduce func(s *List[E], a ir.Action) (bool, error)

	// Keys are extra subscription keys registered with the store.
	Keys []any

	// OnKey is called for each extra key during registration.
	OnKey func(key any, src bus.Source) bus.Subscription
}

// List is a store holding an ordered list of entities.
type List[E any] struct {
	cfg     Config[E]
	changes bus.Bus
	mailbox *worker.Serial
	logger  *slog.Logger
	metrics *metrics.Metrics
	onError func(error)

	mu    sync.RWMutex
	items []E

	tagMu  sync.Mutex
	tag    any
	tagged bool
}

var _ Store = (*List[int])(nil)

// NewList creates a list store.
func NewList[E any](cfg Config[E], opts ...Option) *List[E] {
	o := &options{executor: worker.Goroutine{}, logger: slog.Default()}
	for _, opt := range opts {
		opt(o)
	}
	if cfg.Name == "" {
		cfg.Name = "store"
	}

	s := &List[E]{
		cfg:     cfg,
		changes: o.changes,
		logger:  o.logger.With("store", cfg.Name),
		metrics: o.metrics,
		onError: o.onError,
	}
	if s.changes == nil {
		s.changes = bus.NewDirect(
			bus.WithName(cfg.Name+".changes"),
			bus.WithLogger(o.logger),
			bus.WithMetrics(o.metrics),
		)
	}
	s.mailbox = worker.NewSerial(o.executor, worker.WithSerialPanicHandler(func(p *worker.PanicError) {
		s.fail(p)
	}))
	return s
}

// Name implements Store.
func (s *List[E]) Name() string {
	return s.cfg.Name
}

// Keys implements bus.Subscriber.
func (s *List[E]) Keys() []any {
	return s.cfg.Keys
}

// OnDispatch implements bus.Subscriber. For the store's own key it
// subscribes to its shapes and forwards each action to the mailbox.
func (s *List[E]) OnDispatch(key any, src bus.Source) bus.Subscription {
	if key != any(s) {
		if s.cfg.OnKey != nil {
			return s.cfg.OnKey(key, src)
		}
		return nil
	}
	return src.Subscribe(bus.OfShape(s.cfg.Shapes...), s.accept)
}

// accept runs on the posting goroutine (or the bus pump) and must not
// block on processing.
func (s *List[E]) accept(event any) {
	a, ok := event.(ir.Action)
	if !ok {
		return
	}
	if err := s.mailbox.Submit(func() { s.apply(a) }); err != nil {
		s.fail(fmt.Errorf("schedule %s: %w", a, err))
	}
}

func (s *List[E]) apply(a ir.Action) {
	s.logger.Debug("applying action", "kind", a.Kind, "seq", a.Seq)
	if err := s.OnAction(a); err != nil {
		s.fail(fmt.Errorf("apply %s: %w", a, err))
	}
}

func (s *List[E]) fail(err error) {
	s.metrics.StoreError(s.cfg.Name)
	if s.onError != nil {
		s.onError(err)
		return
	}
	s.logger.Error("action failed", "error", err)
	s.Emit(ir.DataError{Err: err})
}

// OnAction applies a to the entity list. Kinds the store does not handle
// are ignored.
func (s *List[E]) OnAction(a ir.Action) error {
	k := s.cfg.Kinds
	switch {
	case k.Load != "" && a.Kind == k.Load:
		items, err := entities[E](a)
		if err != nil {
			return err
		}
		s.ReplaceAll(items)
	case k.Append != "" && a.Kind == k.Append:
		items, err := entities[E](a)
		if err != nil {
			return err
		}
		s.AppendAll(items)
	case k.Update != "" && a.Kind == k.Update:
		items, err := entities[E](a)
		if err != nil {
			return err
		}
		if _, err := s.UpdateAll(items); err != nil {
			return err
		}
	case s.cfg.Reduce != nil:
		if _, err := s.cfg.Reduce(s, a); err != nil {
			return err
		}
	}
	return nil
}

func entities[E any](a ir.Action) ([]E, error) {
	switch p := a.Payload.(type) {
	case nil:
		return nil, nil
	case []E:
		return p, nil
	case E:
		return []E{p}, nil
	}
	return nil, fmt.Errorf("%w: %T", ErrPayloadType, a.Payload)
}

// ReplaceAll swaps in items and emits ListChanged.
func (s *List[E]) ReplaceAll(items []E) {
	s.mu.Lock()
	s.items = slices.Clone(items)
	s.mu.Unlock()
	s.Emit(ir.ListChanged{})
}

// AppendAll extends the list and emits ListChanged.
func (s *List[E]) AppendAll(items []E) {
	s.mu.Lock()
	s.items = append(s.items, items...)
	s.mu.Unlock()
	s.Emit(ir.ListChanged{})
}

// UpdateAll replaces, for each entity, the first item with the same
// identity, and emits ItemChanged for each replaced position. Entities
// with no match are ignored. Returns the replaced positions.
func (s *List[E]) UpdateAll(items []E) ([]int, error) {
	if s.cfg.Identity == nil {
		return nil, ErrNoIdentity
	}
	var positions []int
	s.mu.Lock()
	for _, e := range items {
		if i := s.findLocked(e); i >= 0 {
			s.items[i] = e
			positions = append(positions, i)
		}
	}
	s.mu.Unlock()

	for _, i := range positions {
		s.Emit(ir.ItemChanged{Position: i})
	}
	return positions, nil
}

// Emit posts ev on the change bus.
func (s *List[E]) Emit(ev ir.ChangeEvent) {
	s.changes.Post(ev)
}

// GetItem returns a copy of the entity at i.
func (s *List[E]) GetItem(i int) (E, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var zero E
	if i < 0 || i >= len(s.items) {
		return zero, fmt.Errorf("%w: %d of %d", ErrIndexOutOfRange, i, len(s.items))
	}
	return s.clone(s.items[i]), nil
}

// FindItem returns the position of the first entity with e's identity,
// or -1.
func (s *List[E]) FindItem(e E) int {
	if s.cfg.Identity == nil {
		return -1
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.findLocked(e)
}

func (s *List[E]) findLocked(e E) int {
	id := s.cfg.Identity(e)
	return slices.IndexFunc(s.items, func(x E) bool { return s.cfg.Identity(x) == id })
}

// Count implements Store.
func (s *List[E]) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Items returns copies of all entities.
func (s *List[E]) Items() []E {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]E, len(s.items))
	for i, e := range s.items {
		out[i] = s.clone(e)
	}
	return out
}

// Snapshot implements Store.
func (s *List[E]) Snapshot() []any {
	items := s.Items()
	out := make([]any, len(items))
	for i, e := range items {
		out[i] = e
	}
	return out
}

func (s *List[E]) clone(e E) E {
	if s.cfg.Clone != nil {
		return s.cfg.Clone(e)
	}
	return e
}

// Register implements Store.
func (s *List[E]) Register(view any) error {
	switch v := view.(type) {
	case bus.DataObserver:
		if err := bus.CheckKey(v); err != nil {
			return err
		}
		s.changes.AddSubscription(v, bus.Observe(s.changes, v))
		return nil
	case bus.Subscriber:
		return s.changes.Register(v)
	}
	return fmt.Errorf("%w: %T", ErrUnsupportedObserver, view)
}

// Unregister implements Store.
func (s *List[E]) Unregister(view any) {
	if _, ok := view.(bus.DataObserver); !ok {
		if sub, ok := view.(bus.Subscriber); ok {
			s.changes.Unregister(sub)
			return
		}
	}
	s.changes.RemoveSubscription(view)
}

// Tag implements Store.
func (s *List[E]) Tag() any {
	s.tagMu.Lock()
	defer s.tagMu.Unlock()
	return s.tag
}

// SetTag implements Store. Tags must be comparable; others are ignored.
func (s *List[E]) SetTag(tag any) {
	if err := bus.CheckKey(tag); err != nil {
		return
	}
	s.tagMu.Lock()
	defer s.tagMu.Unlock()
	if s.tagged {
		return
	}
	s.tag = tag
	s.tagged = true
}

// MatchTag reports whether the store carries tag.
func (s *List[E]) MatchTag(tag any) bool {
	s.tagMu.Lock()
	defer s.tagMu.Unlock()
	return s.tagged && s.tag == tag
}

// Wait implements Store.
func (s *List[E]) Wait(ctx context.Context) error {
	return s.mailbox.Wait(ctx)
}

// Close implements Store.
func (s *List[E]) Close() {
	s.changes.Close()
}
