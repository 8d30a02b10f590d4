package repl

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"

	"github.com/yndnr/kvmesh-go/internal/cli/output"
	"github.com/yndnr/kvmesh-go/internal/command"
)

// Conn is the server connection the shell drives.
type Conn interface {
	Do(ctx context.Context, args ...string) (command.Reply, error)
	Receive(ctx context.Context) (command.Reply, error)
	// Reset drops the connection; the next Do dials a fresh one.
	Reset()
}

// Config configures a REPL.
type Config struct {
	In      io.Reader
	Out     io.Writer
	Conn    Conn
	Format  output.Format
	History *History
	Prompt  string

	// Interruptible derives the context a SUBSCRIBE stream runs under.
	// Defaults to one cancelled by SIGINT.
	Interruptible func(ctx context.Context) (context.Context, context.CancelFunc)
}

// REPL is the read-eval-print loop.
type REPL struct {
	in        io.Reader
	out       io.Writer
	conn      Conn
	format    output.Format
	history   *History
	prompt    string
	completer *Completer
	interrupt func(ctx context.Context) (context.Context, context.CancelFunc)
}

// New creates a REPL.
func New(cfg Config) *REPL {
	r := &REPL{
		in:        cfg.In,
		out:       cfg.Out,
		conn:      cfg.Conn,
		format:    cfg.Format,
		history:   cfg.History,
		prompt:    cfg.Prompt,
		completer: NewCompleter(),
		interrupt: cfg.Interruptible,
	}
	if r.in == nil {
		r.in = os.Stdin
	}
	if r.out == nil {
		r.out = os.Stdout
	}
	if r.history == nil {
		r.history = NewHistory("")
	}
	if r.prompt == "" {
		r.prompt = "kvmesh> "
	}
	if r.interrupt == nil {
		r.interrupt = func(ctx context.Context) (context.Context, context.CancelFunc) {
			return signal.NotifyContext(ctx, os.Interrupt)
		}
	}
	return r
}

// Run reads lines until EOF, an exit builtin or ctx is done.
func (r *REPL) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		scanner := bufio.NewScanner(r.in)
		scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		readErr <- scanner.Err()
	}()

	for {
		fmt.Fprint(r.out, r.prompt)
		select {
		case <-ctx.Done():
			fmt.Fprintln(r.out)
			return nil
		case err := <-readErr:
			fmt.Fprintln(r.out)
			return err
		case line := <-lines:
			if done := r.handle(ctx, line); done {
				return nil
			}
		}
	}
}

// handle runs one line and reports whether the shell should exit.
func (r *REPL) handle(ctx context.Context, line string) bool {
	args, err := Split(line)
	if err != nil {
		fmt.Fprintf(r.out, "Error: %v\n", err)
		return false
	}
	if len(args) == 0 {
		return false
	}
	if err := r.history.Add(line); err != nil {
		fmt.Fprintf(r.out, "Warning: history: %v\n", err)
	}

	name := strings.ToUpper(args[0])
	switch name {
	case "EXIT", "QUIT":
		return true
	case "HELP":
		r.help(args[1:])
		return false
	case "CLEAR":
		fmt.Fprint(r.out, "\033[H\033[2J")
		return false
	}

	reply, err := r.conn.Do(ctx, args...)
	if err != nil {
		fmt.Fprintf(r.out, "Error: %v\n", err)
		return false
	}
	_ = output.WriteReply(r.out, r.format, reply)

	if _, known := r.completer.Lookup(name); !known && reply.IsError() {
		if s := r.completer.Suggest(name); s != "" {
			fmt.Fprintf(r.out, "(did you mean %s?)\n", s)
		}
	}
	if name == "SUBSCRIBE" && !reply.IsError() {
		r.stream(ctx)
	}
	return false
}

// stream prints pushed messages until interrupted, then drops the
// subscribed connection.
func (r *REPL) stream(ctx context.Context) {
	fmt.Fprintln(r.out, "Reading messages... (press Ctrl-C to quit)")
	sctx, cancel := r.interrupt(ctx)
	defer cancel()
	defer r.conn.Reset()

	for {
		msg, err := r.conn.Receive(sctx)
		if err != nil {
			if !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
				fmt.Fprintf(r.out, "Error: %v\n", err)
			}
			fmt.Fprintln(r.out, "(subscription ended)")
			return
		}
		_ = output.WriteReply(r.out, r.format, msg)
	}
}

func (r *REPL) help(args []string) {
	if len(args) > 0 {
		if cmd, ok := r.completer.Lookup(args[0]); ok {
			fmt.Fprintf(r.out, "  %s\n  group: %s\n", cmd.Usage, cmd.Group)
			return
		}
		matches := r.completer.Complete(args[0])
		if len(matches) == 0 {
			fmt.Fprintf(r.out, "No command matches %q\n", args[0])
			return
		}
		fmt.Fprintln(r.out, strings.Join(matches, " "))
		return
	}

	groups := make(map[command.Group][]string)
	for _, cmd := range command.Catalog() {
		groups[cmd.Group] = append(groups[cmd.Group], cmd.Name)
	}
	names := make([]string, 0, len(groups))
	for g := range groups {
		names = append(names, string(g))
	}
	sort.Strings(names)
	for _, g := range names {
		fmt.Fprintf(r.out, "  %-11s %s\n", g, strings.Join(groups[command.Group(g)], " "))
	}
	fmt.Fprintln(r.out, "Type \"help <command>\" for usage, \"exit\" to leave.")
}
