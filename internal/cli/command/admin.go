package command

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/kvmesh-go/internal/cli/output"
)

// StatusCommand prints the admin status summary.
func StatusCommand() *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "Show the server status summary",
		Action: func(c *cli.Context) error {
			s, err := getSettings(c)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(c.Context, s.Timeout)
			defer cancel()

			summary, err := s.adminClient().Status(ctx)
			if err != nil {
				return err
			}
			return output.New(s.Format).Format(c.App.Writer, summary)
		},
	}
}

// HealthCommand checks the admin liveness endpoint.
func HealthCommand() *cli.Command {
	return &cli.Command{
		Name:  "health",
		Usage: "Check that the server is alive",
		Action: func(c *cli.Context) error {
			s, err := getSettings(c)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(c.Context, s.Timeout)
			defer cancel()

			client := s.adminClient()
			health, err := client.Health(ctx)
			if err != nil {
				return fmt.Errorf("health check failed: %w", err)
			}
			if s.Format != output.FormatTable {
				return output.New(s.Format).Format(c.App.Writer, health)
			}
			fmt.Fprintf(c.App.Writer, "%s is %s\n", client.BaseURL(), health.Status)
			return nil
		},
	}
}

// SnapshotCommand forces a snapshot through the admin API.
func SnapshotCommand() *cli.Command {
	return &cli.Command{
		Name:  "snapshot",
		Usage: "Write a snapshot of the keyspace now",
		Action: func(c *cli.Context) error {
			s, err := getSettings(c)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(c.Context, s.Timeout)
			defer cancel()

			snap, err := s.adminClient().Snapshot(ctx)
			if err != nil {
				return err
			}
			if s.Format != output.FormatTable {
				return output.New(s.Format).Format(c.App.Writer, snap)
			}
			fmt.Fprintf(c.App.Writer, "Snapshot saved: %d keys (backend %s)\n", snap.Keys, snap.Backend)
			return nil
		},
	}
}
