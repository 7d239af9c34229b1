package bus

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
)

// Sentinel errors for the bus package.
var (
	// ErrNilSubscriber is returned by Register(nil).
	ErrNilSubscriber = errors.New("subscriber is nil")

	// ErrInvalidKey is returned when a subscription key cannot index a map.
	ErrInvalidKey = errors.New("subscription key is not comparable")

	// ErrUnknownStrategy is returned by New for an unrecognised strategy.
	ErrUnknownStrategy = errors.New("unknown bus strategy")
)

// Handler receives one posted event.
type Handler func(event any)

// Filter selects the events an observer receives. A nil Filter accepts all.
type Filter func(event any) bool

// Source is the stream handle a subscriber attaches observers to.
type Source interface {
	// Subscribe attaches handler for events accepted by filter.
	// The returned handle stops delivery when disposed.
	Subscribe(filter Filter, handler Handler) Subscription
}

// Subscriber is anything that can be registered on a bus.
//
// OnDispatch is called once per key: first with the subscriber itself as
// key, then once for each extra key from Keys. It returns the handle to
// file under that key, or nil to file nothing. Subscribers must be
// comparable (pointer types in practice).
type Subscriber interface {
	Keys() []any
	OnDispatch(key any, src Source) Subscription
}

// Bus is the contract shared by Direct and Buffered.
type Bus interface {
	Source

	// Register subscribes sub under all its keys.
	Register(sub Subscriber) error
	// Unregister disposes every handle for sub's keys.
	Unregister(sub Subscriber)
	// Post multicasts event to current observers, or drops it.
	Post(event any)

	// AddSubscription files handle under key, disposing any previous handle.
	AddSubscription(key any, handle Subscription)
	// RemoveSubscription disposes and forgets the handle for key.
	RemoveSubscription(key any)
	// Registered reports whether key has a live handle.
	Registered(key any) bool
	// HasObservers reports whether a Post right now would reach anyone.
	HasObservers() bool

	// Name labels the bus in logs and metrics.
	Name() string
	// Close disposes every subscription and observer.
	Close()
}

// Strategy selects a bus implementation.
type Strategy string

// Known strategies.
const (
	StrategyDirect   Strategy = "direct"
	StrategyBuffered Strategy = "buffered"
)

// ParseStrategy parses a strategy name.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(strings.ToLower(s)) {
	case "", StrategyDirect:
		return StrategyDirect, nil
	case StrategyBuffered:
		return StrategyBuffered, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownStrategy, s)
}

// New builds a bus for strategy.
func New(strategy Strategy, opts ...Option) (Bus, error) {
	switch strategy {
	case StrategyDirect, "":
		return NewDirect(opts...), nil
	case StrategyBuffered:
		return NewBuffered(opts...), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, strategy)
}

// CheckKey rejects keys that would panic as map keys.
func CheckKey(key any) error {
	if key == nil {
		return fmt.Errorf("%w: nil", ErrInvalidKey)
	}
	if t := reflect.TypeOf(key); !t.Comparable() {
		return fmt.Errorf("%w: %s", ErrInvalidKey, t)
	}
	return nil
}
