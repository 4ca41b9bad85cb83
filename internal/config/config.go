package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Storage drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
	DriverMongoDB  = "mongodb"
	DriverHTTP     = "http"
)

// Config is the application configuration.
type Config struct {
	DataDir  string         `yaml:"data_dir"`
	Slug     string         `yaml:"slug"`
	Storage  StorageConfig  `yaml:"storage"`
	Editor   EditorConfig   `yaml:"editor"`
	Schedule ScheduleConfig `yaml:"schedule"`
}

// StorageConfig selects where staging and live pages are kept.
type StorageConfig struct {
	Driver         string        `yaml:"driver"`
	Path           string        `yaml:"path"` // sqlite file, defaults to <data_dir>/pages.db
	Host           string        `yaml:"host"`
	Port           int           `yaml:"port"`
	Database       string        `yaml:"database"`
	Username       string        `yaml:"username"`
	SSLMode        string        `yaml:"ssl_mode"`
	URI            string        `yaml:"uri"`      // mongodb connection string
	BaseURL        string        `yaml:"base_url"` // http backend
	PasswordSecret string        `yaml:"password_secret"`
	Timeout        time.Duration `yaml:"timeout"`
}

// EditorConfig controls the builder.
type EditorConfig struct {
	HistoryLimit    int           `yaml:"history_limit"`
	AutosaveDelay   time.Duration `yaml:"autosave_delay"`
	StatusWindow    time.Duration `yaml:"status_window"`
	AssetBaseURL    string        `yaml:"asset_base_url"`
	PresetsDir      string        `yaml:"presets_dir"`
	SystemClipboard bool          `yaml:"system_clipboard"`
}

// ScheduleConfig holds cron specs for background jobs.
type ScheduleConfig struct {
	LiveRefresh string             `yaml:"live_refresh"`
	Publish     []ScheduledPublish `yaml:"publish"`
}

// ScheduledPublish publishes a slug on a cron schedule.
type ScheduledPublish struct {
	Slug string `yaml:"slug"`
	Cron string `yaml:"cron"`
}

// Default returns the default configuration.
func Default() *Config {
	home, _ := os.UserHomeDir()
	return &Config{
		DataDir: filepath.Join(home, ".local", "share", "pagebuilder"),
		Slug:    "home",
		Storage: StorageConfig{
			Driver:  DriverSQLite,
			Timeout: 10 * time.Second,
		},
		Editor: EditorConfig{
			HistoryLimit:    100,
			AutosaveDelay:   800 * time.Millisecond,
			StatusWindow:    2 * time.Second,
			SystemClipboard: true,
		},
		Schedule: ScheduleConfig{
			LiveRefresh: "@every 30s",
		},
	}
}

// DefaultPath is $XDG_CONFIG_HOME/pagebuilder/config.yaml.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		home, _ := os.UserHomeDir()
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "pagebuilder", "config.yaml")
}

// Load reads the YAML file at path over the defaults. A missing file is
// not an error.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, cfg.Validate()
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate clamps numeric settings into range, fills derived defaults and
// rejects settings that cannot work.
func (c *Config) Validate() error {
	if c.Slug == "" {
		c.Slug = "home"
	}
	c.DataDir = expandHome(c.DataDir)
	c.Editor.PresetsDir = expandHome(c.Editor.PresetsDir)

	if c.Editor.HistoryLimit <= 0 {
		c.Editor.HistoryLimit = 100
	}
	c.Editor.HistoryLimit = min(c.Editor.HistoryLimit, 1000)
	if c.Editor.AutosaveDelay <= 0 {
		c.Editor.AutosaveDelay = 800 * time.Millisecond
	}
	if c.Editor.StatusWindow <= 0 {
		c.Editor.StatusWindow = 2 * time.Second
	}
	if c.Storage.Timeout <= 0 {
		c.Storage.Timeout = 10 * time.Second
	}

	s := &c.Storage
	s.Driver = strings.ToLower(s.Driver)
	switch s.Driver {
	case "", DriverSQLite:
		s.Driver = DriverSQLite
		if s.Path == "" {
			s.Path = filepath.Join(c.DataDir, "pages.db")
		}
		s.Path = expandHome(s.Path)
	case DriverPostgres, DriverMySQL:
		if s.Host == "" || s.Database == "" {
			return fmt.Errorf("storage: %s needs host and database", s.Driver)
		}
	case DriverMongoDB:
		if s.URI == "" && s.Host == "" {
			return fmt.Errorf("storage: mongodb needs uri or host")
		}
		if s.Database == "" {
			s.Database = "pagebuilder"
		}
	case DriverHTTP:
		if s.BaseURL == "" {
			return fmt.Errorf("storage: http needs base_url")
		}
	default:
		return fmt.Errorf("storage: unsupported driver %q", s.Driver)
	}

	for i, p := range c.Schedule.Publish {
		if p.Slug == "" || p.Cron == "" {
			return fmt.Errorf("schedule.publish[%d]: slug and cron are required", i)
		}
	}
	return nil
}

func expandHome(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, strings.TrimPrefix(p, "~"))
		}
	}
	return p
}
