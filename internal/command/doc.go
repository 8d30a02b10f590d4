// Package command turns tokenized commands into store operations.
//
// An Executor owns the command table. Each entry carries the command's
// arity, whether it mutates the keyspace, and its handler group. Keyspace
// handlers run under the storage engine's exclusive lock; mutating ones
// go through Engine.Update so a successful mutation is persisted
// according to the engine's persist mode. PubSub and connection commands
// never take the keyspace lock.
//
// Handlers produce an abstract Reply; wire encoding belongs to the
// transport.
package command
