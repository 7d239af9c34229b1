package ir

import (
	"errors"
	"fmt"
)

// ActionKind identifies what an action asks stores to do.
// Kinds are opaque to the runtime; only equality matters.
type ActionKind string

// ActionShape names an action family. Stores subscribe to the shapes they
// accept and the bus filters deliveries on it.
type ActionShape string

// ErrMissingKind is returned when an action is built without a kind.
var ErrMissingKind = errors.New("action kind is required")

// Action is an immutable message posted on the action bus.
type Action struct {
	// ID is a UUIDv7 assigned by the factory.
	ID string

	// Kind selects the store behaviour.
	Kind ActionKind

	// Shape is the discriminant used for subscription filtering.
	Shape ActionShape

	// Payload is the normalised data produced by the action helper.
	Payload any

	// Seq is a monotonic logical timestamp. Two actions from the same
	// factory never share a Seq.
	Seq int64
}

// NewAction builds an action, rejecting an empty kind.
func NewAction(shape ActionShape, kind ActionKind, payload any) (Action, error) {
	if kind == "" {
		return Action{}, ErrMissingKind
	}
	return Action{Kind: kind, Shape: shape, Payload: payload}, nil
}

// String implements fmt.Stringer for log output.
func (a Action) String() string {
	if a.Shape == "" {
		return string(a.Kind)
	}
	return fmt.Sprintf("%s/%s", a.Shape, a.Kind)
}

// Is reports whether the action has the given kind.
func (a Action) Is(kind ActionKind) bool {
	return a.Kind == kind
}
