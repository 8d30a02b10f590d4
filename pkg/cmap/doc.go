// Package cmap provides a sharded concurrent map keyed by strings.
//
// Keys are spread across shards by their murmur3 hash; each shard is
// guarded by its own RWMutex, so operations on different shards never
// contend. Compute gives a read-modify-write (or delete) step that is
// atomic per key.
//
// Usage:
//
//	m := cmap.New[string, []*Endpoint]()
//	m.Compute("news", func(cur []*Endpoint, ok bool) ([]*Endpoint, bool) {
//		return append(cur, ep), true
//	})
package cmap
