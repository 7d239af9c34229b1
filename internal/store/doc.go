// Package store provides the store side of the dispatch runtime.
//
// A store is registered on the shared action bus, filters the actions it
// accepts by shape, and applies each one on its own ordered mailbox, so a
// slow store never holds up the poster or other stores. After mutating
// its entities it emits change events on a private change bus that views
// observe. Each store gets its own change bus so one store's change traffic
// never reaches another store's observers.
//
// List is a generic base for the common case of an ordered entity list
// with load, append and in-place update kinds.
package store
