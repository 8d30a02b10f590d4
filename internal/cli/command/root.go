package command

import (
	"errors"
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/kvmesh-go/internal/cli/config"
	"github.com/yndnr/kvmesh-go/internal/cli/connection"
	"github.com/yndnr/kvmesh-go/internal/cli/output"
	"github.com/yndnr/kvmesh-go/internal/infra/buildinfo"
)

const settingsKey = "settings"

// ErrReplyError is returned when the server answered with an error reply,
// so scripts see a non-zero exit status.
var ErrReplyError = errors.New("server returned an error reply")

// App creates the CLI application.
func App() *cli.App {
	return &cli.App{
		Name:                 "kvmesh-cli",
		Usage:                "kvmesh command-line client",
		UsageText:            "kvmesh-cli [global options] [command [args...]]",
		Version:              buildinfo.String(),
		Flags:                globalFlags(),
		EnableBashCompletion: true,
		Commands: []*cli.Command{
			ExecCommand(),
			ReplCommand(),
			PingCommand(),
			StatusCommand(),
			HealthCommand(),
			SnapshotCommand(),
			ConfigCommand(),
			VersionCommand(),
		},
		Before: loadSettings,
		Action: func(c *cli.Context) error {
			if c.NArg() > 0 {
				return runOnce(c, c.Args().Slice())
			}
			return runREPL(c)
		},
	}
}

func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "server",
			Aliases: []string{"s"},
			Usage:   "RESP server address",
			EnvVars: []string{"KVMESH_CLI_SERVER"},
			Value:   config.DefaultServer,
		},
		&cli.StringFlag{
			Name:    "admin",
			Aliases: []string{"a"},
			Usage:   "admin HTTP address",
			EnvVars: []string{"KVMESH_CLI_ADMIN"},
			Value:   config.DefaultAdmin,
		},
		&cli.StringFlag{
			Name:    "password",
			Aliases: []string{"p"},
			Usage:   "password sent with AUTH and as the admin bearer token",
			EnvVars: []string{"KVMESH_CLI_PASSWORD"},
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "output format: table, json, yaml",
			EnvVars: []string{"KVMESH_CLI_OUTPUT"},
			Value:   config.DefaultOutput,
		},
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "CLI settings file",
			EnvVars: []string{"KVMESH_CLI_CONFIG"},
		},
		&cli.StringFlag{
			Name:    "profile",
			Aliases: []string{"P"},
			Usage:   "named profile from the settings file",
			EnvVars: []string{"KVMESH_CLI_PROFILE"},
		},
		&cli.DurationFlag{
			Name:    "timeout",
			Usage:   "per-request timeout",
			EnvVars: []string{"KVMESH_CLI_TIMEOUT"},
			Value:   config.DefaultTimeout,
		},
	}
}

// settings is the effective configuration after flags, environment,
// profile and settings file have been merged.
type settings struct {
	Server      string
	Admin       string
	Password    string
	Format      output.Format
	Timeout     time.Duration
	HistoryFile string

	ConfigPath string
	File       *config.CLIConfig
}

// loadSettings fills unset flags from the settings file. Explicit flags
// and environment variables win over the file, which wins over defaults.
func loadSettings(c *cli.Context) error {
	path := c.String("config")
	if path == "" {
		path = config.DefaultConfigPath()
	}
	file, err := config.Load(path)
	if err != nil {
		return err
	}
	prof, err := file.Resolve(c.String("profile"))
	if err != nil {
		return err
	}

	s := &settings{
		Server:      pick(c, "server", prof.Server),
		Admin:       pick(c, "admin", prof.Admin),
		Password:    pick(c, "password", prof.Password),
		Timeout:     c.Duration("timeout"),
		HistoryFile: file.HistoryFile,
		ConfigPath:  path,
		File:        file,
	}
	if !c.IsSet("timeout") && file.Timeout > 0 {
		s.Timeout = file.Timeout
	}
	if s.HistoryFile == "" {
		s.HistoryFile = config.DefaultHistoryPath()
	}
	if s.Format, err = output.ParseFormat(pick(c, "output", file.Output)); err != nil {
		return err
	}

	if c.App.Metadata == nil {
		c.App.Metadata = make(map[string]any)
	}
	c.App.Metadata[settingsKey] = s
	return nil
}

func pick(c *cli.Context, flag, fromFile string) string {
	if c.IsSet(flag) || fromFile == "" {
		return c.String(flag)
	}
	return fromFile
}

func getSettings(c *cli.Context) (*settings, error) {
	s, ok := c.App.Metadata[settingsKey].(*settings)
	if !ok {
		return nil, fmt.Errorf("cli settings not loaded")
	}
	return s, nil
}

func (s *settings) manager() *connection.Manager {
	return connection.NewManager(s.Server, connection.Options{Timeout: s.Timeout, Password: s.Password})
}

func (s *settings) adminClient() *connection.AdminClient {
	return connection.NewAdminClient(s.Admin, s.Password, s.Timeout)
}
