// Package registry ties the dispatch runtime together.
//
// A Context owns the action bus, the action creator and the map from store
// kind to store constructor. It resolves stores on demand, registers them on
// the bus, and optionally keeps them in a cache so later lookups reuse the
// same instance:
//
//   - A tagged lookup returns the store cached under that tag.
//   - An untagged lookup returns the kind's default store.
//
// Contexts are plain values built with a Builder. Any number may coexist,
// each with its own bus and cache.
package registry
