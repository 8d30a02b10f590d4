// Package metric provides Prometheus metrics for kvmesh.
//
//   - prometheus.go: the Registry of server metrics and its HTTP handler
//   - collector.go: a scrape-time collector for keyspace and pubsub gauges
//
// Every Registry method is safe on a nil receiver so components can be
// built without metrics in tests.
package metric
