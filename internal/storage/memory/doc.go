// Package memory provides the in-memory keyspace for kvmesh.
//
// A Store owns two tables: key -> domain.Value and key -> expiry deadline.
// Both are mutated together; a deadline never outlives its key.
//
// Expiry:
//
// Every accessor resolves the key's deadline before doing anything else
// (lazy expiry). SweepExpired applies the same resolution to every key
// carrying a deadline (active expiry). Both paths go through
// resolveExpiry, so they evict under identical rules.
//
// Thread Safety:
//
// Store is NOT safe for concurrent use. The storage engine serializes all
// access behind a single exclusive lock; see storage.Engine.
package memory
