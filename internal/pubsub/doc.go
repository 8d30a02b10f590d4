// Package pubsub implements the channel registry and message fanout.
//
// A Broker maps channel names to subscriber endpoints. Each Endpoint owns
// a bounded FIFO queue drained by a single delivery loop. Publish enqueues
// to every live endpoint of a channel and prunes endpoints that are closed.
//
// Overflow policy: an endpoint whose queue already holds MaxPending
// messages is closed with ErrSlowSubscriber instead of growing. Its
// delivery loop sees the error and the owning connection is dropped.
//
// The registry has its own synchronization (pkg/cmap) and never touches
// the storage engine lock.
package pubsub
