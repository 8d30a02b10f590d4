// Package repl implements the interactive kvmesh-cli shell.
//
// Lines are split with redis-cli quoting rules and sent to the server
// unchanged. SUBSCRIBE switches the shell into a streaming mode that
// prints pushed messages until interrupted. History is appended to
// ~/.kvmesh/cli_history as lines are entered; AUTH lines are never
// recorded.
package repl
