package command

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/kvmesh-go/internal/cli/output"
	"github.com/yndnr/kvmesh-go/internal/infra/buildinfo"
)

// VersionCommand prints build information.
func VersionCommand() *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "Show build information",
		Action: func(c *cli.Context) error {
			s, err := getSettings(c)
			if err != nil {
				return err
			}
			if s.Format == output.FormatTable {
				fmt.Fprintf(c.App.Writer, "kvmesh-cli %s\n", buildinfo.String())
				return nil
			}
			return output.New(s.Format).Format(c.App.Writer, buildinfo.Get())
		},
	}
}
