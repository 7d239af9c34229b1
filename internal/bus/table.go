package bus

import (
	"log/slog"
	"sync"

	"github.com/roach88/flux/internal/metrics"
)

// registry is the subscription table and registration logic shared by
// both strategies. Each key is either absent (unregistered) or maps to
// exactly one live handle.
type registry struct {
	name    string
	logger  *slog.Logger
	metrics *metrics.Metrics

	regMu sync.Mutex // serialises register and unregister
	mu    sync.Mutex
	table map[any]Subscription
}

func (r *registry) init(o *options) {
	r.name = o.name
	r.logger = o.logger
	r.metrics = o.metrics
	r.table = make(map[any]Subscription)
}

// register calls OnDispatch outside the table lock, since subscribers
// commonly subscribe back to src from inside it. A key that already holds a
// live handle keeps it, so registering twice neither duplicates delivery nor
// loses what the existing handle has buffered.
func (r *registry) register(src Source, sub Subscriber) error {
	if sub == nil {
		return ErrNilSubscriber
	}
	keys := append([]any{sub}, sub.Keys()...)
	for _, key := range keys {
		if err := CheckKey(key); err != nil {
			return err
		}
	}

	r.regMu.Lock()
	defer r.regMu.Unlock()

	added := 0
	for _, key := range keys {
		if r.live(key) {
			continue
		}
		if h := sub.OnDispatch(key, src); h != nil {
			r.AddSubscription(key, h)
			added++
		}
	}
	r.logger.Debug("subscriber registered", "bus", r.name, "keys", len(keys), "added", added)
	return nil
}

func (r *registry) live(key any) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.table[key]
	return ok && !h.Disposed()
}

func (r *registry) unregister(sub Subscriber) {
	if sub == nil {
		return
	}
	r.regMu.Lock()
	defer r.regMu.Unlock()

	r.RemoveSubscription(sub)
	for _, key := range sub.Keys() {
		if CheckKey(key) == nil {
			r.RemoveSubscription(key)
		}
	}
}

// AddSubscription implements Bus.
func (r *registry) AddSubscription(key any, h Subscription) {
	if h == nil || CheckKey(key) != nil {
		return
	}
	r.mu.Lock()
	old := r.table[key]
	r.table[key] = h
	r.mu.Unlock()

	if old != nil && old != h {
		old.Dispose()
	}
}

// RemoveSubscription implements Bus.
func (r *registry) RemoveSubscription(key any) {
	if CheckKey(key) != nil {
		return
	}
	r.mu.Lock()
	h, ok := r.table[key]
	delete(r.table, key)
	r.mu.Unlock()

	if ok {
		h.Dispose()
	}
}

// Registered implements Bus.
func (r *registry) Registered(key any) bool {
	if CheckKey(key) != nil {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.table[key]
	return ok
}

// Name implements Bus.
func (r *registry) Name() string {
	return r.name
}

func (r *registry) closeTable() {
	r.mu.Lock()
	handles := make([]Subscription, 0, len(r.table))
	for _, h := range r.table {
		handles = append(handles, h)
	}
	clear(r.table)
	r.mu.Unlock()

	for _, h := range handles {
		h.Dispose()
	}
}
