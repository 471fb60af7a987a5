// Package config holds every path and threshold this tool reads, so
// the engine and stores receive explicit values instead of process
// globals and tests can point everything at temporary storage.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

type Config struct {
	// Identity database files.
	PasswdPath string `yaml:"passwd_path"`
	ShadowPath string `yaml:"shadow_path"`
	GroupPath  string `yaml:"group_path"`

	// Privilege grant configuration.
	SudoersPath       string `yaml:"sudoers_path"`
	SudoersIncludeDir string `yaml:"sudoers_include_dir"`

	// Tool state and artifacts.
	DataDir         string `yaml:"data_dir"`
	LedgerPath      string `yaml:"ledger_path"`
	DeletionLogPath string `yaml:"deletion_log_path"`
	ReportDir       string `yaml:"report_dir"`
	SnapshotDir     string `yaml:"snapshot_dir"`

	// Candidate filtering.
	MinUID    int      `yaml:"min_uid"`
	Protected []string `yaml:"protected"`
}

// Default returns the production layout: system identity files plus
// tool state under /var/lib/lockdown.
func Default() Config {
	return withDefaults(Config{})
}

func withDefaults(c Config) Config {
	if c.PasswdPath == "" {
		c.PasswdPath = "/etc/passwd"
	}
	if c.ShadowPath == "" {
		c.ShadowPath = "/etc/shadow"
	}
	if c.GroupPath == "" {
		c.GroupPath = "/etc/group"
	}
	if c.SudoersPath == "" {
		c.SudoersPath = "/etc/sudoers"
	}
	if c.SudoersIncludeDir == "" {
		c.SudoersIncludeDir = "/etc/sudoers.d"
	}
	if c.DataDir == "" {
		c.DataDir = "/var/lib/lockdown"
	}
	if c.LedgerPath == "" {
		c.LedgerPath = filepath.Join(c.DataDir, "disabled_users")
	}
	if c.DeletionLogPath == "" {
		c.DeletionLogPath = filepath.Join(c.DataDir, "deleted_users.log")
	}
	if c.ReportDir == "" {
		c.ReportDir = filepath.Join(c.DataDir, "reports")
	}
	if c.SnapshotDir == "" {
		c.SnapshotDir = filepath.Join(c.DataDir, "snapshots")
	}
	if c.MinUID == 0 {
		c.MinUID = 1000
	}
	return c
}

// Load reads the YAML config at path and fills in defaults for every
// unset field. A missing file is not an error: the defaults are the
// config.
func Load(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return Config{}, err
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return Config{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return withDefaults(c), nil
}

// IsProtected reports whether name is on the operator's do-not-touch
// list. The superuser is excluded earlier, unconditionally, by the
// identity source.
func (c Config) IsProtected(name string) bool {
	for _, p := range c.Protected {
		if p == name {
			return true
		}
	}
	return false
}
