// Package worker provides the execution layer stores and action creators
// run on.
//
// Three pieces:
//   - Executor: anything that can run a task (a goroutine per task, a
//     caller-supplied function, or a Pool).
//   - Pool: a bounded worker pool with an explicit overflow policy.
//   - Serial: an ordered mailbox on top of any Executor. Tasks submitted to
//     one Serial never overlap and run in submission order, which is what
//     gives a single sender per-store ordering.
//
// Queue is the unbounded (or bounded, with a drop policy) FIFO the buffered
// bus uses per subscriber.
package worker
