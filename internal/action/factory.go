package action

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/roach88/flux/internal/ir"
)

// Factory builds actions through a Helper.
type Factory struct {
	mu     sync.RWMutex
	helper Helper
	ids    IDGenerator
	clock  Clock
}

// FactoryOption configures a Factory.
type FactoryOption func(*Factory)

// WithIDGenerator overrides the UUIDv7 default. Tests use fixed IDs.
func WithIDGenerator(g IDGenerator) FactoryOption {
	return func(f *Factory) {
		if g != nil {
			f.ids = g
		}
	}
}

// WithClock overrides the logical clock.
func WithClock(c Clock) FactoryOption {
	return func(f *Factory) {
		if c != nil {
			f.clock = c
		}
	}
}

// NewFactory creates a factory consulting helper.
func NewFactory(helper Helper, opts ...FactoryOption) *Factory {
	f := &Factory{
		helper: helper,
		ids:    UUIDv7Generator{},
		clock:  NewLogicalClock(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Helper returns the lookup strategy.
func (f *Factory) Helper() Helper {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.helper
}

// SetHelper swaps the lookup strategy. IDs and Seq continue from where the
// previous helper left off; a Create already running finishes with the
// helper it started with.
func (f *Factory) SetHelper(helper Helper) {
	f.mu.Lock()
	f.helper = helper
	f.mu.Unlock()
}

// Create resolves the shape for kind, wraps raw into its payload and
// constructs the action. The returned action carries a fresh ID and Seq.
func (f *Factory) Create(kind ir.ActionKind, raw any) (ir.Action, error) {
	if kind == "" {
		return ir.Action{}, newError(CodeUnknownActionKind, kind, "", "empty kind", ir.ErrMissingKind)
	}

	helper := f.Helper()
	shape, ok := helper.Shape(kind)
	if !ok {
		return ir.Action{}, newError(CodeUnknownActionKind, kind, "", "no shape registered", nil)
	}
	if shape.Name == "" || shape.Payload == nil || shape.New == nil {
		return ir.Action{}, newError(CodeMalformedActionShape, kind, shape.Name, "shape has no name, payload type or constructor", nil)
	}

	payload, err := guard(func() (any, error) { return helper.WrapData(kind, raw) })
	if err != nil {
		return ir.Action{}, newError(CodeActionConstructionFailed, kind, shape.Name, "wrap payload", err)
	}
	if payload != nil && !reflect.TypeOf(payload).AssignableTo(shape.Payload) {
		msg := fmt.Sprintf("payload %T is not assignable to %s", payload, shape.Payload)
		return ir.Action{}, newError(CodeActionConstructionFailed, kind, shape.Name, msg, nil)
	}

	a, err := guard(func() (ir.Action, error) { return shape.New(kind, payload) })
	if err != nil {
		return ir.Action{}, newError(CodeActionConstructionFailed, kind, shape.Name, "construct", err)
	}
	if a.Kind != kind {
		msg := fmt.Sprintf("constructor returned kind %q", a.Kind)
		return ir.Action{}, newError(CodeActionConstructionFailed, kind, shape.Name, msg, nil)
	}
	if a.Shape == "" {
		a.Shape = shape.Name
	}
	a.ID = f.ids.Generate()
	a.Seq = f.clock.Next()
	return a, nil
}

// guard turns a panic in helper or constructor code into an error.
func guard[T any](fn func() (T, error)) (v T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn()
}
