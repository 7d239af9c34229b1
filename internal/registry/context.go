package registry

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"sync"

	"github.com/roach88/flux/internal/action"
	"github.com/roach88/flux/internal/bus"
	"github.com/roach88/flux/internal/ir"
	"github.com/roach88/flux/internal/store"
)

// Context coordinates the bus, the action creator and the stores.
// Safe for concurrent use.
type Context struct {
	bus     bus.Bus
	creator *action.Creator
	stores  map[StoreKind]Constructor
	logger  *slog.Logger

	// mu guards the cache. GetStore holds it across construction so two
	// concurrent lookups of one kind never build two default stores.
	mu        sync.Mutex
	keepCache bool
	closed    bool
	byTag     map[any]store.Store
	defaults  map[StoreKind]store.Store
}

// Bus returns the action bus.
func (c *Context) Bus() bus.Bus {
	return c.bus
}

// Creator returns the action creator.
func (c *Context) Creator() *action.Creator {
	return c.creator
}

// SetActionHelper replaces the helper behind the creator's factory. Actions
// already posted are unaffected.
func (c *Context) SetActionHelper(helper action.Helper) error {
	if helper == nil {
		return &ConfigurationError{Field: "action helper", Err: ErrMissingActionHelper}
	}
	c.creator.Factory().SetHelper(helper)
	return nil
}

// SetStoreMap replaces the store constructors. The map is copied. Cached
// stores stay cached and only stores created afterwards use the new map,
// though an untagged lookup of a kind the new map lacks fails as unmapped.
func (c *Context) SetStoreMap(stores map[StoreKind]Constructor) error {
	if stores == nil {
		return &ConfigurationError{Field: "store map", Err: ErrMissingStoreMap}
	}
	c.mu.Lock()
	c.stores = maps.Clone(stores)
	c.mu.Unlock()
	return nil
}

// KeepCache reports whether the store cache is enabled.
func (c *Context) KeepCache() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.keepCache
}

// SetKeepCache toggles the store cache. Disabling it clears the cache.
func (c *Context) SetKeepCache(keep bool) {
	c.mu.Lock()
	c.keepCache = keep
	var evicted []store.Store
	if !keep {
		evicted = c.evictLocked()
	}
	c.mu.Unlock()
	c.release(evicted)
}

// GetStore resolves a store of kind and attaches viewer to it.
//
// With the cache enabled, a non-nil tag returns the store cached under that
// tag and a nil tag returns the kind's default store; either is created and
// cached on first use. With the cache disabled every call creates a new
// store. A new store is registered on the bus and gets tag as its tag.
//
// viewer may be nil. Tags must be comparable.
func (c *Context) GetStore(kind StoreKind, tag any, viewer any) (store.Store, error) {
	if tag != nil {
		if err := bus.CheckKey(tag); err != nil {
			return nil, &StoreResolutionError{Kind: kind, Err: fmt.Errorf("tag: %w", err)}
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, ErrClosed
	}

	if c.keepCache && tag != nil {
		if st, ok := c.byTag[tag]; ok {
			c.logger.Debug("store cache hit", "kind", kind, "tag", tag, "store", st.Name())
			return st, c.attach(st, viewer)
		}
	}

	ctor, ok := c.stores[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnmappedStoreKind, kind)
	}

	if c.keepCache && tag == nil {
		if st, ok := c.defaults[kind]; ok {
			c.logger.Debug("store cache hit", "kind", kind, "store", st.Name())
			return st, c.attach(st, viewer)
		}
	}

	st, err := construct(ctor, c.bus)
	if err != nil {
		c.logger.Error("store construction failed", "kind", kind, "tag", tag, "error", err)
		return nil, &StoreResolutionError{Kind: kind, Tag: tag, Err: err}
	}
	if err := c.attach(st, viewer); err != nil {
		return nil, &StoreResolutionError{Kind: kind, Tag: tag, Err: err}
	}
	if err := c.bus.Register(st); err != nil {
		st.Unregister(viewer)
		return nil, &StoreResolutionError{Kind: kind, Tag: tag, Err: fmt.Errorf("register on bus: %w", err)}
	}
	if tag != nil {
		st.SetTag(tag)
	}

	if c.keepCache {
		if tag != nil {
			c.byTag[tag] = st
		} else {
			c.defaults[kind] = st
		}
	}
	c.logger.Debug("store created", "kind", kind, "tag", tag, "store", st.Name(), "cached", c.keepCache)
	return st, nil
}

func construct(ctor Constructor, b bus.Bus) (st store.Store, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("constructor panic: %v", r)
		}
	}()
	st, err = ctor(b)
	if err == nil && st == nil {
		err = ErrNilStore
	}
	return st, err
}

func (c *Context) attach(st store.Store, viewer any) error {
	if viewer == nil {
		return nil
	}
	if err := st.Register(viewer); err != nil {
		return fmt.Errorf("attach viewer: %w", err)
	}
	return nil
}

// RegisterStore attaches viewer (if non-nil) to st and registers st on the
// bus.
func (c *Context) RegisterStore(st store.Store, viewer any) error {
	if err := c.attach(st, viewer); err != nil {
		return err
	}
	return c.bus.Register(st)
}

// UnregisterStore detaches viewer (if non-nil) from st and unregisters st
// from the bus. The store stays cached.
func (c *Context) UnregisterStore(st store.Store, viewer any) {
	if viewer != nil {
		st.Unregister(viewer)
	}
	c.bus.Unregister(st)
}

// ClearAllStore unregisters and evicts every cached store. Evicted stores
// are closed.
func (c *Context) ClearAllStore() {
	c.mu.Lock()
	evicted := c.evictLocked()
	c.mu.Unlock()
	c.release(evicted)
}

func (c *Context) evictLocked() []store.Store {
	seen := make(map[store.Store]struct{}, len(c.byTag)+len(c.defaults))
	var out []store.Store
	collect := func(st store.Store) {
		if _, ok := seen[st]; !ok {
			seen[st] = struct{}{}
			out = append(out, st)
		}
	}
	for _, st := range c.byTag {
		collect(st)
	}
	for _, st := range c.defaults {
		collect(st)
	}
	clear(c.byTag)
	clear(c.defaults)
	return out
}

func (c *Context) release(stores []store.Store) {
	for _, st := range stores {
		c.bus.Unregister(st)
		st.Close()
	}
	if len(stores) > 0 {
		c.logger.Info("stores evicted", "count", len(stores))
	}
}

// Cached returns the number of cached stores.
func (c *Context) Cached() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.byTag) + len(c.defaults)
}

// Stores returns the cached stores. Order is unspecified.
func (c *Context) Stores() []store.Store {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]store.Store, 0, len(c.byTag)+len(c.defaults))
	for _, st := range c.defaults {
		out = append(out, st)
	}
	for _, st := range c.byTag {
		out = append(out, st)
	}
	return out
}

// Wait blocks until every cached store has applied its accepted actions.
func (c *Context) Wait(ctx context.Context) error {
	for _, st := range c.Stores() {
		if err := st.Wait(ctx); err != nil {
			return fmt.Errorf("wait for %s: %w", st.Name(), err)
		}
	}
	return nil
}

// Send creates an action and posts it on the calling goroutine.
func (c *Context) Send(ctx context.Context, kind ir.ActionKind, raw any) error {
	return c.creator.Send(ctx, kind, raw)
}

// SendAsync creates and posts an action off the calling goroutine.
func (c *Context) SendAsync(ctx context.Context, kind ir.ActionKind, raw any) error {
	return c.creator.SendAsync(ctx, kind, raw)
}

// Close clears the cache and rejects further lookups. The bus is left
// open; it belongs to whoever built the Context.
func (c *Context) Close() {
	c.mu.Lock()
	c.closed = true
	evicted := c.evictLocked()
	c.mu.Unlock()
	c.release(evicted)
}
