// Package harness runs YAML scenarios against the dispatch runtime.
//
// A scenario resolves stores from the demo domain, sends actions, and
// asserts on store contents and change events. Each step is followed by a
// barrier (async sends finished, bus drained, stores idle), so the trace of
// a scenario without concurrent steps is deterministic and can be compared
// against a golden file:
//
//	go test ./internal/harness -update
//
// Action IDs and sequence numbers come from the deterministic helpers in
// internal/testutil.
package harness
