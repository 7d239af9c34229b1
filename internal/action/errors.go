package action

import (
	"errors"
	"fmt"

	"github.com/roach88/flux/internal/ir"
)

// ErrorCode categorizes construction failures.
type ErrorCode string

const (
	// CodeUnknownActionKind means no shape is registered for the kind.
	CodeUnknownActionKind ErrorCode = "UNKNOWN_ACTION_KIND"

	// CodeMalformedActionShape means the registered shape cannot say what
	// payload it takes or how to build itself.
	CodeMalformedActionShape ErrorCode = "MALFORMED_ACTION_SHAPE"

	// CodeActionConstructionFailed covers payload wrapping failures, payloads
	// of the wrong type, and constructor errors or panics.
	CodeActionConstructionFailed ErrorCode = "ACTION_CONSTRUCTION_FAILED"
)

// ConstructionError is returned by Factory.Create. Nothing is posted when
// one occurs.
type ConstructionError struct {
	Code    ErrorCode
	Kind    ir.ActionKind
	Shape   ir.ActionShape
	Message string
	Err     error
}

func (e *ConstructionError) Error() string {
	msg := fmt.Sprintf("%s: %s (kind=%q)", e.Code, e.Message, e.Kind)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ConstructionError) Unwrap() error {
	return e.Err
}

func newError(code ErrorCode, kind ir.ActionKind, shape ir.ActionShape, msg string, err error) *ConstructionError {
	return &ConstructionError{Code: code, Kind: kind, Shape: shape, Message: msg, Err: err}
}

// IsConstructionError reports whether err is any construction failure.
func IsConstructionError(err error) bool {
	var ce *ConstructionError
	return errors.As(err, &ce)
}

// IsUnknownActionKind reports whether err is CodeUnknownActionKind.
func IsUnknownActionKind(err error) bool {
	return hasCode(err, CodeUnknownActionKind)
}

// IsMalformedActionShape reports whether err is CodeMalformedActionShape.
func IsMalformedActionShape(err error) bool {
	return hasCode(err, CodeMalformedActionShape)
}

// IsActionConstructionFailed reports whether err is CodeActionConstructionFailed.
func IsActionConstructionFailed(err error) bool {
	return hasCode(err, CodeActionConstructionFailed)
}

func hasCode(err error, code ErrorCode) bool {
	var ce *ConstructionError
	if errors.As(err, &ce) {
		return ce.Code == code
	}
	return false
}

// CodeOf returns the error code of a construction error, or "OTHER".
func CodeOf(err error) string {
	var ce *ConstructionError
	if errors.As(err, &ce) {
		return string(ce.Code)
	}
	return "OTHER"
}
