// Package storage coordinates access to the kvmesh keyspace.
//
// Architecture:
//
//   - Engine: owns the memory.Store, the single exclusive lock that
//     serializes every command and the expiry sweep, and the background
//     sweep and flush loops
//   - Persister: the persistence gateway (Load at startup, Save after
//     changes); implemented by FilePersister (checksummed snapshot files),
//     BadgerPersister (badger/v3) and NopPersister
//
// Persist modes:
//
//   - sync: every successful mutating command and every sweep that evicted
//     keys saves the full keyspace before the lock is released
//   - interval: changes mark the engine dirty; a ticker flushes dirty state
//     and Close performs a final flush
//
// Save failures are logged and counted but never fail the command that
// triggered them.
package storage
