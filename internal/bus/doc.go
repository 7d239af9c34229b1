// Package bus implements the pub/sub buses actions and change events travel on.
//
// Both strategies share one contract:
//
//   - Register(sub) subscribes the subscriber itself and every extra key it
//     reports. For each key the subscriber's OnDispatch returns a handle,
//     which the bus files in its subscription table. Filing a handle under a
//     key that already has one disposes the old handle first, so registering
//     twice leaves one live subscription per key.
//   - Unregister(sub) disposes and removes every handle for the subscriber's
//     keys. Unknown keys are ignored.
//   - Post(event) multicasts to the observers subscribed at that instant.
//     The bus is hot: with no observers the event is dropped, never held
//     for a late subscriber.
//
// Direct delivers on the posting goroutine. Buffered gives every observer
// its own queue and pump goroutine, so Post only enqueues.
package bus
