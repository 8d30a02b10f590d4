// Package main provides the entry point for kvmesh-server.
//
// The server keeps a typed keyspace (strings, lists, sets, hashes) in
// memory, serves it over the Redis protocol, and exposes health, metrics
// and admin endpoints over HTTP. The keyspace is persisted to encrypted
// snapshot files or a badger database.
//
// Usage:
//
//	kvmesh-server [flags]
//	kvmesh-server -config /etc/kvmesh/server.yaml
//	kvmesh-server -redis-addr 0.0.0.0:6379 -data-dir ./data
//
// Settings come from the config file, then KVMESH_* environment
// variables, then command-line flags.
package main
