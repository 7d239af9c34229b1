package action

import (
	"errors"
	"fmt"
	"reflect"
	"slices"
	"sync"

	"github.com/roach88/flux/internal/ir"
)

// Constructor builds an action of one shape from a kind and a payload that
// has already passed the shape's type check.
type Constructor func(kind ir.ActionKind, payload any) (ir.Action, error)

// Shape describes one action family.
type Shape struct {
	// Name is the discriminant stores filter on.
	Name ir.ActionShape

	// Payload is the type WrapData must produce for this shape.
	Payload reflect.Type

	// New builds the action.
	New Constructor
}

// Helper is the lookup strategy a Factory consults.
type Helper interface {
	// Shape returns the shape registered for kind.
	Shape(kind ir.ActionKind) (Shape, bool)

	// WrapData normalizes raw caller input into a payload for kind.
	// It may perform side effects and may fail.
	WrapData(kind ir.ActionKind, raw any) (any, error)
}

// WrapFunc is the payload normalization step of a Table.
type WrapFunc func(kind ir.ActionKind, raw any) (any, error)

// Table is a Helper backed by an explicit kind → shape map.
type Table struct {
	wrap WrapFunc

	mu     sync.RWMutex
	shapes map[ir.ActionKind]Shape
}

var _ Helper = (*Table)(nil)

// NewTable creates an empty table. A nil wrap passes raw input through.
func NewTable(wrap WrapFunc) *Table {
	return &Table{wrap: wrap, shapes: make(map[ir.ActionKind]Shape)}
}

// Bind registers shape for kinds. Each kind can be bound once.
func (t *Table) Bind(shape Shape, kinds ...ir.ActionKind) error {
	if len(kinds) == 0 {
		return errors.New("bind: no kinds given")
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, k := range kinds {
		if k == "" {
			return fmt.Errorf("bind %q: %w", shape.Name, ir.ErrMissingKind)
		}
		if existing, ok := t.shapes[k]; ok {
			return fmt.Errorf("bind %q: kind %q already bound to %q", shape.Name, k, existing.Name)
		}
	}
	for _, k := range kinds {
		t.shapes[k] = shape
	}
	return nil
}

// Define binds a shape whose payload type is T.
//
//	table := action.NewTable(nil)
//	action.Define[[]Todo](table, "todo", "todo.load", "todo.add")
func Define[T any](t *Table, name ir.ActionShape, kinds ...ir.ActionKind) error {
	return t.Bind(Shape{
		Name:    name,
		Payload: reflect.TypeFor[T](),
		New:     Typed[T](name),
	}, kinds...)
}

// Typed returns a Constructor for payloads of type T. A nil payload becomes
// the zero value of T.
func Typed[T any](name ir.ActionShape) Constructor {
	return func(kind ir.ActionKind, payload any) (ir.Action, error) {
		var p T
		if payload != nil {
			v, ok := payload.(T)
			if !ok {
				return ir.Action{}, fmt.Errorf("payload %T is not %s", payload, reflect.TypeFor[T]())
			}
			p = v
		}
		return ir.NewAction(name, kind, p)
	}
}

// Shape implements Helper.
func (t *Table) Shape(kind ir.ActionKind) (Shape, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	s, ok := t.shapes[kind]
	return s, ok
}

// WrapData implements Helper.
func (t *Table) WrapData(kind ir.ActionKind, raw any) (any, error) {
	if t.wrap == nil {
		return raw, nil
	}
	return t.wrap(kind, raw)
}

// Kinds lists the bound kinds in sorted order.
func (t *Table) Kinds() []ir.ActionKind {
	t.mu.RLock()
	defer t.mu.RUnlock()
	kinds := make([]ir.ActionKind, 0, len(t.shapes))
	for k := range t.shapes {
		kinds = append(kinds, k)
	}
	slices.Sort(kinds)
	return kinds
}
