package ir

import "fmt"

// ChangeEvent is emitted by a store after its entities change.
// The set is closed: ListChanged, ItemChanged and DataError.
type ChangeEvent interface {
	changeEvent()
	// EventType is the stable name used in traces and the journal.
	EventType() string
}

// ListChanged reports a bulk change (load, append). Observers should
// re-read the whole list.
type ListChanged struct{}

func (ListChanged) changeEvent() {}

// EventType implements ChangeEvent.
func (ListChanged) EventType() string { return "list_changed" }

// ItemChanged reports that the entity at Position was replaced in place.
type ItemChanged struct {
	Position int
}

func (ItemChanged) changeEvent() {}

// EventType implements ChangeEvent.
func (ItemChanged) EventType() string { return "item_changed" }

// DataError carries a processing failure from a store to its observers.
type DataError struct {
	Err error
}

func (DataError) changeEvent() {}

// EventType implements ChangeEvent.
func (DataError) EventType() string { return "data_error" }

func (e DataError) Error() string {
	return fmt.Sprintf("store error: %v", e.Err)
}

func (e DataError) Unwrap() error {
	return e.Err
}

// EventFields flattens a change event into canonical-JSON-safe fields.
func EventFields(ev ChangeEvent) map[string]any {
	fields := map[string]any{"type": ev.EventType()}
	switch e := ev.(type) {
	case ItemChanged:
		fields["position"] = int64(e.Position)
	case DataError:
		if e.Err != nil {
			fields["error"] = e.Err.Error()
		}
	}
	return fields
}
