// Package ir defines the values that travel through a flux runtime.
//
// An Action is the unit posted on the action bus: an opaque Kind that stores
// dispatch on, a Shape discriminant naming the action family, and a payload
// already normalised by the action helper. A ChangeEvent is what a store
// emits on its private change bus after mutating its entities.
//
// The package also carries the canonical JSON encoding (RFC 8785 key order,
// NFC strings, no floats) used to digest payloads for the journal and to
// produce byte-stable golden traces.
package ir
