package command

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/kvmesh-go/internal/cli/connection"
	"github.com/yndnr/kvmesh-go/internal/cli/output"
	"github.com/yndnr/kvmesh-go/internal/cli/repl"
)

// ExecCommand runs server commands non-interactively.
func ExecCommand() *cli.Command {
	return &cli.Command{
		Name:      "exec",
		Aliases:   []string{"x"},
		Usage:     "Run a server command, or one command per stdin line",
		ArgsUsage: "[COMMAND [ARG...]]",
		Action: func(c *cli.Context) error {
			if c.NArg() > 0 {
				return runOnce(c, c.Args().Slice())
			}
			return runPipe(c)
		},
	}
}

// ReplCommand starts the interactive shell.
func ReplCommand() *cli.Command {
	return &cli.Command{
		Name:   "repl",
		Usage:  "Start the interactive shell",
		Action: runREPL,
	}
}

// PingCommand measures a PING round trip.
func PingCommand() *cli.Command {
	return &cli.Command{
		Name:  "ping",
		Usage: "Send PING and report the round-trip time",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "count", Aliases: []string{"n"}, Usage: "number of pings", Value: 1},
		},
		Action: runPing,
	}
}

func runOnce(c *cli.Context, args []string) error {
	s, err := getSettings(c)
	if err != nil {
		return err
	}
	mgr := s.manager()
	defer mgr.Close()

	ctx, cancel := context.WithTimeout(c.Context, s.Timeout)
	reply, err := mgr.Do(ctx, args...)
	cancel()
	if err != nil {
		return err
	}
	if err := output.WriteReply(c.App.Writer, s.Format, reply); err != nil {
		return err
	}
	if reply.IsError() {
		return ErrReplyError
	}
	if strings.EqualFold(args[0], "SUBSCRIBE") {
		return stream(c, mgr, s.Format)
	}
	return nil
}

// stream prints pushed messages until the context is done or SIGINT.
func stream(c *cli.Context, mgr *connection.Manager, format output.Format) error {
	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt)
	defer stop()
	for {
		msg, err := mgr.Receive(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		if err := output.WriteReply(c.App.Writer, format, msg); err != nil {
			return err
		}
	}
}

// runPipe reads one command per line from stdin over a single connection.
// It keeps going after error replies and fails at the end if any occurred.
func runPipe(c *cli.Context) error {
	s, err := getSettings(c)
	if err != nil {
		return err
	}
	mgr := s.manager()
	defer mgr.Close()

	failed := false
	scanner := bufio.NewScanner(c.App.Reader)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	for lineNo := 1; scanner.Scan(); lineNo++ {
		args, err := repl.Split(scanner.Text())
		if err != nil {
			return fmt.Errorf("line %d: %w", lineNo, err)
		}
		if len(args) == 0 {
			continue
		}
		ctx, cancel := context.WithTimeout(c.Context, s.Timeout)
		reply, err := mgr.Do(ctx, args...)
		cancel()
		if err != nil {
			return fmt.Errorf("line %d: %w", lineNo, err)
		}
		if err := output.WriteReply(c.App.Writer, s.Format, reply); err != nil {
			return err
		}
		failed = failed || reply.IsError()
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	if failed {
		return ErrReplyError
	}
	return nil
}

func runREPL(c *cli.Context) error {
	s, err := getSettings(c)
	if err != nil {
		return err
	}
	mgr := s.manager()
	defer mgr.Close()

	history := repl.NewHistory(s.HistoryFile)
	if err := history.Load(); err != nil {
		fmt.Fprintf(c.App.ErrWriter, "warning: history: %v\n", err)
	}

	return repl.New(repl.Config{
		In:      c.App.Reader,
		Out:     c.App.Writer,
		Conn:    mgr,
		Format:  s.Format,
		History: history,
		Prompt:  s.Server + "> ",
	}).Run(c.Context)
}

// PingResult is the machine-readable ping outcome.
type PingResult struct {
	Server    string  `json:"server" yaml:"server"`
	Reply     string  `json:"reply" yaml:"reply"`
	LatencyMS float64 `json:"latency_ms" yaml:"latency_ms"`
}

func runPing(c *cli.Context) error {
	s, err := getSettings(c)
	if err != nil {
		return err
	}
	mgr := s.manager()
	defer mgr.Close()

	count := c.Int("count")
	if count < 1 {
		return fmt.Errorf("count must be at least 1")
	}
	results := make([]PingResult, 0, count)
	for i := 0; i < count; i++ {
		ctx, cancel := context.WithTimeout(c.Context, s.Timeout)
		start := time.Now()
		reply, err := mgr.Do(ctx, "PING")
		elapsed := time.Since(start)
		cancel()
		if err != nil {
			return err
		}
		if reply.IsError() {
			_ = output.WriteReply(c.App.Writer, output.FormatTable, reply)
			return ErrReplyError
		}
		r := PingResult{
			Server:    s.Server,
			Reply:     reply.Str,
			LatencyMS: float64(elapsed.Microseconds()) / 1000,
		}
		if s.Format == output.FormatTable {
			fmt.Fprintf(c.App.Writer, "%s from %s: time=%.3f ms\n", r.Reply, r.Server, r.LatencyMS)
		}
		results = append(results, r)
	}
	if s.Format == output.FormatTable {
		return nil
	}
	return output.New(s.Format).Format(c.App.Writer, results)
}
