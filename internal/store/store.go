package store

import (
	"context"
	"errors"

	"github.com/roach88/flux/internal/bus"
)

// Sentinel errors for the store package.
var (
	// ErrIndexOutOfRange is returned by GetItem for a bad position.
	ErrIndexOutOfRange = errors.New("item index out of range")

	// ErrPayloadType is returned when an action payload is not an entity list.
	ErrPayloadType = errors.New("unexpected payload type")

	// ErrUnsupportedObserver is returned by Register for a view that is
	// neither a bus.DataObserver nor a bus.Subscriber.
	ErrUnsupportedObserver = errors.New("view is neither a data observer nor a subscriber")

	// ErrNoIdentity is returned when an update needs an identity function.
	ErrNoIdentity = errors.New("store has no identity function")
)

// Store is what a registry manages. It is registered on the action bus
// (via bus.Subscriber) and accepts views on its change bus.
type Store interface {
	bus.Subscriber

	// Name labels the store in logs, metrics and traces.
	Name() string

	// Register attaches a view to the change bus. A bus.DataObserver is
	// subscribed to change events; a bus.Subscriber is registered as is.
	Register(view any) error

	// Unregister detaches a view. Unknown views are ignored.
	Unregister(view any)

	// Tag returns the store's tag, or nil if never tagged.
	Tag() any

	// SetTag assigns the tag. Only the first non-nil assignment sticks.
	SetTag(tag any)

	// Count returns the number of entities.
	Count() int

	// Snapshot returns copies of all entities, in order.
	Snapshot() []any

	// Wait blocks until every accepted action has been applied.
	Wait(ctx context.Context) error

	// Close disposes the change bus subscriptions.
	Close()
}
