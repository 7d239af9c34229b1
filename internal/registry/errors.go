package registry

import (
	"errors"
	"fmt"
)

// Configuration errors returned by Builder.Build, wrapped in
// *ConfigurationError.
var (
	ErrMissingBus          = errors.New("bus is required")
	ErrMissingActionHelper = errors.New("action helper or factory is required")
	ErrMissingStoreMap     = errors.New("store map is required")
)

var (
	// ErrUnmappedStoreKind is returned by GetStore for a kind with no
	// constructor.
	ErrUnmappedStoreKind = errors.New("store kind not mapped")

	// ErrNilStore is returned when a constructor yields no store and no error.
	ErrNilStore = errors.New("constructor returned nil store")

	// ErrClosed is returned by lookups on a closed Context.
	ErrClosed = errors.New("context closed")
)

// ConfigurationError reports an incomplete Builder.
type ConfigurationError struct {
	// Field names the missing builder input.
	Field string
	Err   error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("registry configuration: %s: %v", e.Field, e.Err)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// StoreResolutionError reports a store that could not be resolved.
type StoreResolutionError struct {
	Kind StoreKind
	Tag  any
	Err  error
}

func (e *StoreResolutionError) Error() string {
	if e.Tag != nil {
		return fmt.Sprintf("resolve store %q (tag %v): %v", e.Kind, e.Tag, e.Err)
	}
	return fmt.Sprintf("resolve store %q: %v", e.Kind, e.Err)
}

func (e *StoreResolutionError) Unwrap() error {
	return e.Err
}

// IsConfigurationError reports whether err is a *ConfigurationError.
func IsConfigurationError(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}

// IsStoreResolutionError reports whether err is a *StoreResolutionError.
// Unmapped kinds count as resolution failures too.
func IsStoreResolutionError(err error) bool {
	var re *StoreResolutionError
	return errors.As(err, &re) || errors.Is(err, ErrUnmappedStoreKind)
}
