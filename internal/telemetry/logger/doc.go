// Package logger builds the process-wide log/slog logger for kvmesh.
//
//   - logger.go: handler construction and runtime level changes
//   - context.go: request/connection scoped loggers
//   - redact.go: masking of secret-bearing attributes
//
// Output is JSON by default. The level can be changed at runtime with
// SetLevel, which the config watcher calls when log.level changes.
package logger
