// Package config holds the savepoint configuration.
//
// A Config is passed explicitly to constructors; there is no process-wide
// state, so multiple repositories can live in one process.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/keshon/savepoint/internal/util"
)

const (
	DefaultRepoDirName  = ".savepoint"
	DefaultGitBin       = "git"
	DefaultTimeTemplate = "%cd (%cr)" // %cd absolute date, %cr relative age
	DefaultDateLayout   = "2006-01-02 15:04:05"
	DefaultCompactCron  = "0 3 * * *"
)

// Config describes one backup repository and its consumers.
type Config struct {
	RepoRoot     string   `json:"repo_root"`     // backup repository location, created if absent
	GitBin       string   `json:"git_bin"`       // backend binary
	TimeTemplate string   `json:"time_template"` // history display template
	DateLayout   string   `json:"date_layout"`   // Go time layout substituted for %cd
	ExcludeRules []string `json:"exclude_rules"` // regexps matched against absolute paths
	CompactCron  string   `json:"compact_cron"`  // schedule for background compaction
	WatchDirs    []string `json:"watch_dirs"`    // directories the watch daemon observes
}

// Default returns a Config with all defaults resolved.
func Default() Config {
	root := DefaultRepoDirName
	if home, err := os.UserHomeDir(); err == nil {
		root = filepath.Join(home, DefaultRepoDirName)
	}
	return Config{
		RepoRoot:     root,
		GitBin:       DefaultGitBin,
		TimeTemplate: DefaultTimeTemplate,
		DateLayout:   DefaultDateLayout,
		CompactCron:  DefaultCompactCron,
	}
}

// LoadFile reads a JSON config file. Fields absent from the file keep their
// default values.
func LoadFile(path string) (Config, error) {
	cfg := Default()
	if err := util.ReadJSON(path, &cfg); err != nil {
		return Config{}, fmt.Errorf("read config %q: %w", path, err)
	}
	cfg.fillDefaults()
	return cfg, nil
}

// SaveFile writes the config as JSON atomically.
func (c Config) SaveFile(path string) error {
	if err := util.WriteJSON(path, c); err != nil {
		return fmt.Errorf("write config %q: %w", path, err)
	}
	return nil
}

func (c *Config) fillDefaults() {
	def := Default()
	if c.RepoRoot == "" {
		c.RepoRoot = def.RepoRoot
	}
	if c.GitBin == "" {
		c.GitBin = def.GitBin
	}
	if c.TimeTemplate == "" {
		c.TimeTemplate = def.TimeTemplate
	}
	if c.DateLayout == "" {
		c.DateLayout = def.DateLayout
	}
	if c.CompactCron == "" {
		c.CompactCron = def.CompactCron
	}
}
