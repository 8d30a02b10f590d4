// Package command defines the kvmesh-cli command tree on urfave/cli/v2.
//
// Without a subcommand the CLI either runs the given server command once
// (kvmesh-cli SET k v) or, with no arguments, starts the interactive shell.
//
//	exec      run one command, or one command per stdin line
//	repl      interactive shell
//	ping      round-trip check with latency
//	status    admin status summary
//	health    admin liveness check
//	snapshot  force a snapshot through the admin API
//	config    inspect and edit ~/.kvmesh/cli.yaml
//	version   build information
package command
