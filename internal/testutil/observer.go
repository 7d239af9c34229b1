package testutil

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/roach88/flux/internal/ir"
)

// RecordingObserver is a bus.DataObserver that keeps everything it sees.
//
// Thread-safety: stores call observers from their worker goroutines, so all
// access goes through a mutex.
type RecordingObserver struct {
	mu      sync.Mutex
	changes []ir.ChangeEvent
	errs    []error
}

// NewRecordingObserver creates an empty recorder.
func NewRecordingObserver() *RecordingObserver {
	return &RecordingObserver{}
}

// OnDataChange records ev.
func (r *RecordingObserver) OnDataChange(ev ir.ChangeEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changes = append(r.changes, ev)
}

// OnDataError records err.
func (r *RecordingObserver) OnDataError(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs = append(r.errs, err)
}

// Changes returns a copy of the recorded change events.
func (r *RecordingObserver) Changes() []ir.ChangeEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]ir.ChangeEvent(nil), r.changes...)
}

// Errors returns a copy of the recorded errors.
func (r *RecordingObserver) Errors() []error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]error(nil), r.errs...)
}

// WaitForChanges fails the test unless n change events arrive within a second.
func (r *RecordingObserver) WaitForChanges(t *testing.T, n int) []ir.ChangeEvent {
	t.Helper()
	require.Eventually(t, func() bool {
		return len(r.Changes()) >= n
	}, time.Second, time.Millisecond, "expected %d change events", n)
	return r.Changes()
}

// WaitForErrors fails the test unless n errors arrive within a second.
func (r *RecordingObserver) WaitForErrors(t *testing.T, n int) []error {
	t.Helper()
	require.Eventually(t, func() bool {
		return len(r.Errors()) >= n
	}, time.Second, time.Millisecond, "expected %d errors", n)
	return r.Errors()
}
