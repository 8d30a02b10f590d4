// Package httpserver serves the kvmesh admin HTTP API.
//
// Routes:
//
//   - GET  /health, GET /ready        liveness and readiness
//   - GET  /metrics                   Prometheus exposition
//   - GET  /admin/v1/status/summary   version, uptime and keyspace stats
//   - POST /admin/v1/snapshots        force a save through the persister
//
// Admin routes require "Authorization: Bearer <requirepass>" when the
// server has a password configured. Every request gets a ULID request ID
// and an audit log line.
package httpserver
