// Package config holds the kvmesh-cli settings file (~/.kvmesh/cli.yaml).
//
// The file stores defaults for the command-line flags and named server
// profiles. Flags and KVMESH_CLI_* variables always win over the file.
package config
