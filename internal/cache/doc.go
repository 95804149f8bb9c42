// Package cache provides a bounded, thread-safe LRU cache.
//
// The command engine caches immutable native state objects (depth-stencil
// states) keyed by their comparable descriptors. Objects are created at
// most once per key while cached; when the cache exceeds its capacity the
// least recently used entry is evicted and passed to the eviction callback.
package cache
