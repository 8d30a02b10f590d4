// Package domain defines the core data model for kvmesh.
//
// The package is free of IO and framework dependencies. It contains:
//
//   - Value: the typed value bound to a key (string, list, set or hash)
//   - Kind: the discriminator of a Value
//   - Errors: the command error taxonomy shared by the store, the
//     command executor and the wire encoders
package domain
