package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"go.yaml.in/yaml/v3"
)

// Defaults applied when neither the file nor a flag sets a value.
const (
	DefaultServer  = "127.0.0.1:6379"
	DefaultAdmin   = "127.0.0.1:6380"
	DefaultOutput  = "table"
	DefaultTimeout = 10 * time.Second
)

// CLIConfig is the content of the CLI settings file.
type CLIConfig struct {
	// Server is the RESP address used by exec, repl and ping.
	Server string `yaml:"server"`
	// Admin is the admin HTTP address used by status and snapshot.
	Admin    string        `yaml:"admin"`
	Password string        `yaml:"password,omitempty"`
	Output   string        `yaml:"output"`
	Timeout  time.Duration `yaml:"timeout"`
	// HistoryFile overrides the REPL history location.
	HistoryFile string `yaml:"history_file,omitempty"`

	Profiles       map[string]Profile `yaml:"profiles,omitempty"`
	CurrentProfile string             `yaml:"current_profile,omitempty"`
}

// Profile is a named server pair. Empty fields fall back to the top-level
// settings.
type Profile struct {
	Server   string `yaml:"server"`
	Admin    string `yaml:"admin,omitempty"`
	Password string `yaml:"password,omitempty"`
}

// Default returns the built-in CLI settings.
func Default() *CLIConfig {
	return &CLIConfig{
		Server:   DefaultServer,
		Admin:    DefaultAdmin,
		Output:   DefaultOutput,
		Timeout:  DefaultTimeout,
		Profiles: make(map[string]Profile),
	}
}

// Dir returns ~/.kvmesh, or .kvmesh when the home directory is unknown.
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return ".kvmesh"
	}
	return filepath.Join(home, ".kvmesh")
}

// DefaultConfigPath returns the default settings file path.
func DefaultConfigPath() string {
	return filepath.Join(Dir(), "cli.yaml")
}

// DefaultHistoryPath returns the default REPL history path.
func DefaultHistoryPath() string {
	return filepath.Join(Dir(), "cli_history")
}

// Load reads the settings file at path, or the default path when empty.
// A missing file yields Default(). Fields absent from the file keep their
// defaults.
func Load(path string) (*CLIConfig, error) {
	if path == "" {
		path = DefaultConfigPath()
	}
	cfg := Default()

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read cli config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse cli config %s: %w", path, err)
	}
	if cfg.Profiles == nil {
		cfg.Profiles = make(map[string]Profile)
	}
	if cfg.CurrentProfile != "" {
		if _, ok := cfg.Profiles[cfg.CurrentProfile]; !ok {
			return nil, fmt.Errorf("cli config %s: current_profile %q is not defined", path, cfg.CurrentProfile)
		}
	}
	return cfg, nil
}

// Save writes cfg to path (or the default path) with owner-only
// permissions, since the file may hold passwords.
func Save(cfg *CLIConfig, path string) error {
	if path == "" {
		path = DefaultConfigPath()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create cli config dir: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode cli config: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write cli config: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("write cli config: %w", err)
	}
	return nil
}

// Resolve returns the effective server settings for the named profile, or
// for the current profile when name is empty.
func (c *CLIConfig) Resolve(name string) (Profile, error) {
	p := Profile{Server: c.Server, Admin: c.Admin, Password: c.Password}
	if name == "" {
		name = c.CurrentProfile
	}
	if name == "" {
		return p, nil
	}
	prof, ok := c.Profiles[name]
	if !ok {
		return Profile{}, fmt.Errorf("unknown profile %q (known: %v)", name, c.ProfileNames())
	}
	if prof.Server != "" {
		p.Server = prof.Server
	}
	if prof.Admin != "" {
		p.Admin = prof.Admin
	}
	if prof.Password != "" {
		p.Password = prof.Password
	}
	return p, nil
}

// ProfileNames returns the profile names in sorted order.
func (c *CLIConfig) ProfileNames() []string {
	names := make([]string, 0, len(c.Profiles))
	for n := range c.Profiles {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
