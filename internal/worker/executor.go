package worker

import (
	"log/slog"
	"runtime/debug"
)

// Executor runs tasks. Execute must not wait for the task to finish unless
// the implementation is documented as inline.
type Executor interface {
	Execute(task func()) error
}

// ExecutorFunc adapts a function to Executor.
type ExecutorFunc func(task func()) error

// Execute implements Executor.
func (f ExecutorFunc) Execute(task func()) error {
	return f(task)
}

// Goroutine runs every task on a fresh goroutine.
type Goroutine struct{}

// Execute implements Executor.
func (Goroutine) Execute(task func()) error {
	go task()
	return nil
}

// Inline runs the task on the calling goroutine before returning.
// Useful for deterministic tests; the caller blocks for the task's duration.
var Inline Executor = ExecutorFunc(func(task func()) error {
	task()
	return nil
})

// PanicHandler is called with a recovered panic.
type PanicHandler func(err *PanicError)

// LogPanics returns a PanicHandler that logs to logger.
func LogPanics(logger *slog.Logger) PanicHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(err *PanicError) {
		logger.Error("task panicked", "panic", err.Value, "stack", string(err.Stack))
	}
}

// runSafe runs task and converts a panic into a PanicError.
func runSafe(task func(), onPanic PanicHandler) (perr *PanicError) {
	defer func() {
		if r := recover(); r != nil {
			perr = &PanicError{Value: r, Stack: debug.Stack()}
			if onPanic != nil {
				onPanic(perr)
			}
		}
	}()
	task()
	return nil
}
