// Package config defines the kvmesh-server configuration.
//
//   - spec.go: ServerConfig struct definition
//   - default.go: default values
//   - verify.go: semantic validation (addresses, enums, key format)
//   - sanitize.go: masking of secrets before logging
//
// Values are loaded by internal/infra/confloader from a YAML file and
// KVMESH_* environment variables.
package config
