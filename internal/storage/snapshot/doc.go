// Package snapshot persists full keyspace dumps to disk.
//
// File layout:
//
//	snapshot-<timestamp>-<sequence>.snap
//	[magic:8 "KVMSNAP1"]
//	[HeaderLen:4][HeaderJSON:HeaderLen]
//	[DataLen:4][Data:DataLen]   (JSON entries, or AEAD ciphertext)
//	[checksum:32 SHA-256 of all bytes above]
//
// Files are written to a temp file, fsynced and renamed into place, so a
// crash mid-write never leaves a partial snapshot under the final name.
// Load picks the newest file that passes the checksum and magic checks.
package snapshot
