package command

import (
	"fmt"
	"sort"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/kvmesh-go/internal/cli/config"
	"github.com/yndnr/kvmesh-go/internal/cli/output"
	"github.com/yndnr/kvmesh-go/internal/telemetry/logger"
)

// ConfigCommand manages the CLI settings file.
func ConfigCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Inspect and edit the CLI settings file",
		Subcommands: []*cli.Command{
			{
				Name:   "show",
				Usage:  "Show the effective settings (passwords masked)",
				Action: configShow,
			},
			{
				Name:      "set",
				Usage:     "Set a top-level setting",
				ArgsUsage: "KEY VALUE",
				Action:    configSet,
			},
			{
				Name:      "use",
				Usage:     "Select the current profile (empty clears it)",
				ArgsUsage: "[PROFILE]",
				Action:    configUse,
			},
			{
				Name:  "profile",
				Usage: "Manage named profiles",
				Subcommands: []*cli.Command{
					{
						Name:      "add",
						Usage:     "Add or replace a profile",
						ArgsUsage: "NAME",
						Flags: []cli.Flag{
							&cli.StringFlag{Name: "server", Usage: "RESP address", Required: true},
							&cli.StringFlag{Name: "admin", Usage: "admin HTTP address"},
							&cli.StringFlag{Name: "password", Usage: "password"},
						},
						Action: profileAdd,
					},
					{
						Name:      "remove",
						Aliases:   []string{"rm"},
						Usage:     "Remove a profile",
						ArgsUsage: "NAME",
						Action:    profileRemove,
					},
					{
						Name:    "list",
						Aliases: []string{"ls"},
						Usage:   "List profiles",
						Action:  profileList,
					},
				},
			},
		},
	}
}

// effectiveView is what config show prints.
type effectiveView struct {
	ConfigFile  string `json:"config_file" yaml:"config_file"`
	Profile     string `json:"profile" yaml:"profile"`
	Server      string `json:"server" yaml:"server"`
	Admin       string `json:"admin" yaml:"admin"`
	Password    string `json:"password" yaml:"password"`
	Output      string `json:"output" yaml:"output"`
	Timeout     string `json:"timeout" yaml:"timeout"`
	HistoryFile string `json:"history_file" yaml:"history_file"`
}

func configShow(c *cli.Context) error {
	s, err := getSettings(c)
	if err != nil {
		return err
	}
	view := effectiveView{
		ConfigFile:  s.ConfigPath,
		Profile:     c.String("profile"),
		Server:      s.Server,
		Admin:       s.Admin,
		Output:      string(s.Format),
		Timeout:     s.Timeout.String(),
		HistoryFile: s.HistoryFile,
	}
	if view.Profile == "" {
		view.Profile = s.File.CurrentProfile
	}
	if s.Password != "" {
		view.Password = logger.RedactString(s.Password)
	}
	return output.New(s.Format).Format(c.App.Writer, view)
}

func configSet(c *cli.Context) error {
	s, err := getSettings(c)
	if err != nil {
		return err
	}
	if c.NArg() != 2 {
		return fmt.Errorf("usage: config set KEY VALUE")
	}
	key, value := c.Args().Get(0), c.Args().Get(1)

	f := s.File
	switch key {
	case "server":
		f.Server = value
	case "admin":
		f.Admin = value
	case "password":
		f.Password = value
	case "output":
		format, err := output.ParseFormat(value)
		if err != nil {
			return err
		}
		f.Output = string(format)
	case "timeout":
		d, err := time.ParseDuration(value)
		if err != nil || d <= 0 {
			return fmt.Errorf("timeout must be a positive duration, got %q", value)
		}
		f.Timeout = d
	case "history_file":
		f.HistoryFile = value
	default:
		return fmt.Errorf("unknown setting %q (server, admin, password, output, timeout, history_file)", key)
	}
	if err := config.Save(f, s.ConfigPath); err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "%s updated in %s\n", key, s.ConfigPath)
	return nil
}

func configUse(c *cli.Context) error {
	s, err := getSettings(c)
	if err != nil {
		return err
	}
	name := c.Args().First()
	if name != "" {
		if _, ok := s.File.Profiles[name]; !ok {
			return fmt.Errorf("unknown profile %q (known: %v)", name, s.File.ProfileNames())
		}
	}
	s.File.CurrentProfile = name
	if err := config.Save(s.File, s.ConfigPath); err != nil {
		return err
	}
	if name == "" {
		fmt.Fprintln(c.App.Writer, "Current profile cleared")
	} else {
		fmt.Fprintf(c.App.Writer, "Switched to profile %q\n", name)
	}
	return nil
}

func profileAdd(c *cli.Context) error {
	s, err := getSettings(c)
	if err != nil {
		return err
	}
	name := c.Args().First()
	if name == "" {
		return fmt.Errorf("usage: config profile add NAME --server ADDR")
	}
	s.File.Profiles[name] = config.Profile{
		Server:   c.String("server"),
		Admin:    c.String("admin"),
		Password: c.String("password"),
	}
	if err := config.Save(s.File, s.ConfigPath); err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "Profile %q saved\n", name)
	return nil
}

func profileRemove(c *cli.Context) error {
	s, err := getSettings(c)
	if err != nil {
		return err
	}
	name := c.Args().First()
	if _, ok := s.File.Profiles[name]; !ok {
		return fmt.Errorf("unknown profile %q", name)
	}
	delete(s.File.Profiles, name)
	if s.File.CurrentProfile == name {
		s.File.CurrentProfile = ""
	}
	if err := config.Save(s.File, s.ConfigPath); err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "Profile %q removed\n", name)
	return nil
}

// profileRow is one line of config profile list.
type profileRow struct {
	Name    string `json:"name" yaml:"name"`
	Server  string `json:"server" yaml:"server"`
	Admin   string `json:"admin" yaml:"admin"`
	Current bool   `json:"current" yaml:"current"`
}

func profileList(c *cli.Context) error {
	s, err := getSettings(c)
	if err != nil {
		return err
	}
	rows := make([]profileRow, 0, len(s.File.Profiles))
	for name, p := range s.File.Profiles {
		rows = append(rows, profileRow{
			Name:    name,
			Server:  p.Server,
			Admin:   p.Admin,
			Current: name == s.File.CurrentProfile,
		})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Name < rows[j].Name })
	return output.New(s.Format).Format(c.App.Writer, rows)
}
