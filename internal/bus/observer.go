package bus

import "github.com/roach88/flux/internal/ir"

// DataObserver is the view-side callback for store change events.
type DataObserver interface {
	OnDataChange(ev ir.ChangeEvent)
	OnDataError(err error)
}

// ObserverFuncs adapts two functions to DataObserver. Nil fields are skipped.
type ObserverFuncs struct {
	Change func(ir.ChangeEvent)
	Error  func(error)
}

// OnDataChange implements DataObserver.
func (f ObserverFuncs) OnDataChange(ev ir.ChangeEvent) {
	if f.Change != nil {
		f.Change(ev)
	}
}

// OnDataError implements DataObserver.
func (f ObserverFuncs) OnDataError(err error) {
	if f.Error != nil {
		f.Error(err)
	}
}

// Observe subscribes obs to the change events on src. DataError events go
// to OnDataError, everything else to OnDataChange.
func Observe(src Source, obs DataObserver) Subscription {
	return src.Subscribe(ChangeEvents, func(event any) {
		switch ev := event.(type) {
		case ir.DataError:
			obs.OnDataError(ev.Err)
		case ir.ChangeEvent:
			obs.OnDataChange(ev)
		}
	})
}

// Tap is a Subscriber with a single observer and no extra keys.
// Useful for recorders and tests.
type Tap struct {
	filter  Filter
	handler Handler
}

// NewTap creates a Tap delivering events accepted by filter to handler.
func NewTap(filter Filter, handler Handler) *Tap {
	return &Tap{filter: filter, handler: handler}
}

// Keys implements Subscriber.
func (t *Tap) Keys() []any { return nil }

// OnDispatch implements Subscriber.
func (t *Tap) OnDispatch(_ any, src Source) Subscription {
	return src.Subscribe(t.filter, t.handler)
}
