package command

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"strings"
	"time"

	"github.com/yndnr/kvmesh-go/internal/core/domain"
	"github.com/yndnr/kvmesh-go/internal/pubsub"
	"github.com/yndnr/kvmesh-go/internal/storage"
	"github.com/yndnr/kvmesh-go/internal/storage/memory"
	"github.com/yndnr/kvmesh-go/internal/telemetry/metric"
)

// Config configures an Executor.
type Config struct {
	// RequirePass enables AUTH. Empty means every session is trusted.
	RequirePass string

	Logger  *slog.Logger
	Metrics *metric.Registry
}

// Executor dispatches commands against one engine and one broker.
type Executor struct {
	engine  *storage.Engine
	broker  *pubsub.Broker
	table   map[string]*Command
	pass    []byte
	logger  *slog.Logger
	metrics *metric.Registry
}

// call is one command invocation.
type call struct {
	ctx   context.Context
	x     *Executor
	sess  Session
	name  string
	args  []string // args[0] is the command name as sent
	store *memory.Store
}

// New creates an executor.
func New(cfg Config, engine *storage.Engine, broker *pubsub.Broker) *Executor {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	x := &Executor{
		engine:  engine,
		broker:  broker,
		table:   buildTable(),
		logger:  cfg.Logger.With("component", "command"),
		metrics: cfg.Metrics,
	}
	if cfg.RequirePass != "" {
		x.pass = []byte(cfg.RequirePass)
	}
	return x
}

// RequiresAuth reports whether sessions must AUTH before other commands.
func (x *Executor) RequiresAuth() bool { return len(x.pass) > 0 }

// Lookup returns the table entry for name (case-insensitive).
func (x *Executor) Lookup(name string) (*Command, bool) {
	c, ok := x.table[strings.ToUpper(name)]
	return c, ok
}

// Commands returns the table sorted by name.
func (x *Executor) Commands() []*Command {
	return sortedCommands(x.table)
}

// Execute runs one command. args[0] is the command name.
func (x *Executor) Execute(ctx context.Context, sess Session, args []string) Reply {
	if len(args) == 0 {
		return Error(domain.ErrSyntax.WithMessage("empty command"))
	}

	start := time.Now()
	name := strings.ToUpper(args[0])
	cmd, ok := x.table[name]
	if !ok {
		x.metrics.ObserveCommand("unknown", "error", time.Since(start))
		return Error(domain.UnknownCommandError(args[0]))
	}

	reply := x.run(ctx, sess, cmd, args)

	status := "ok"
	if reply.IsError() {
		status = "error"
	}
	x.metrics.ObserveCommand(cmd.Name, status, time.Since(start))
	return reply
}

func (x *Executor) run(ctx context.Context, sess Session, cmd *Command, args []string) Reply {
	if !cmd.arityOK(len(args)) {
		return Error(domain.ArityError(strings.ToLower(cmd.Name)))
	}
	if x.RequiresAuth() && cmd.Flags&FlagNoAuth == 0 && (sess == nil || !sess.Authenticated()) {
		return Error(domain.ErrNoAuth)
	}

	c := &call{ctx: ctx, x: x, sess: sess, name: cmd.Name, args: args}

	switch {
	case cmd.Flags&FlagWrite != 0:
		var reply Reply
		x.engine.Update(ctx, func(s *memory.Store) bool {
			c.store = s
			reply = cmd.handler(c)
			return !reply.IsError()
		})
		return reply

	case cmd.Flags&FlagRead != 0:
		var reply Reply
		x.engine.View(func(s *memory.Store) {
			c.store = s
			reply = cmd.handler(c)
		})
		return reply

	default:
		return cmd.handler(c)
	}
}

// checkPassword compares in constant time.
func (x *Executor) checkPassword(pass string) bool {
	return subtle.ConstantTimeCompare(x.pass, []byte(pass)) == 1
}
