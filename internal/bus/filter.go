package bus

import "github.com/roach88/flux/internal/ir"

// All accepts every event.
func All(any) bool { return true }

// OfShape accepts actions whose Shape is one of shapes.
// With no shapes it accepts every action.
func OfShape(shapes ...ir.ActionShape) Filter {
	set := make(map[ir.ActionShape]struct{}, len(shapes))
	for _, s := range shapes {
		set[s] = struct{}{}
	}
	return func(event any) bool {
		a, ok := event.(ir.Action)
		if !ok {
			return false
		}
		if len(set) == 0 {
			return true
		}
		_, ok = set[a.Shape]
		return ok
	}
}

// OfKind accepts actions whose Kind is one of kinds.
func OfKind(kinds ...ir.ActionKind) Filter {
	set := make(map[ir.ActionKind]struct{}, len(kinds))
	for _, k := range kinds {
		set[k] = struct{}{}
	}
	return func(event any) bool {
		a, ok := event.(ir.Action)
		if !ok {
			return false
		}
		_, ok = set[a.Kind]
		return ok
	}
}

// ChangeEvents accepts store change events.
func ChangeEvents(event any) bool {
	_, ok := event.(ir.ChangeEvent)
	return ok
}
