// Package connection talks to a kvmesh server for the CLI.
//
//   - resp.go: RESP client over TCP (commands, AUTH, subscription stream)
//   - manager.go: lazily dialed client that reconnects once on I/O failure
//   - http.go: admin HTTP client (/health, status, snapshots)
package connection
