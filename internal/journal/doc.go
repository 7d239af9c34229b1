// Package journal records dispatch traffic in SQLite.
//
// A Recorder is registered on the action bus like any store and writes
// every posted action; ForStore returns a view that writes a store's change
// events. Writes run on an ordered mailbox, so recording never slows the
// poster. The journal is a debugging record, not a delivery buffer: nothing
// is ever redelivered from it automatically. Replay re-posts recorded
// actions on request.
//
// # Determinism
//
//   - Payloads and event fields are stored as RFC 8785 canonical JSON.
//   - Reads order by seq, then id with binary collation.
//   - Action digests are computed by ir.ActionDigest.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
package journal
