package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pagebuilder/internal/config"
)

func TestLoad_MissingFileGivesDefaults(t *testing.T) {
	dir := t.TempDir()
	cfg, err := config.Load(filepath.Join(dir, "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "home", cfg.Slug)
	assert.Equal(t, config.DriverSQLite, cfg.Storage.Driver)
	assert.Equal(t, filepath.Join(cfg.DataDir, "pages.db"), cfg.Storage.Path)
	assert.Equal(t, 100, cfg.Editor.HistoryLimit)
	assert.Equal(t, 800*time.Millisecond, cfg.Editor.AutosaveDelay)
	assert.Equal(t, 2*time.Second, cfg.Editor.StatusWindow)
	assert.True(t, cfg.Editor.SystemClipboard)
	assert.Equal(t, "@every 30s", cfg.Schedule.LiveRefresh)
}

func TestLoad_OverridesAndClamps(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
slug: landing
data_dir: /tmp/pb
storage:
  driver: Postgres
  host: db.local
  database: pages
  timeout: 3s
editor:
  history_limit: 5000
  autosave_delay: 250ms
  system_clipboard: false
schedule:
  publish:
    - slug: landing
      cron: "0 9 * * 1"
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0644))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "landing", cfg.Slug)
	assert.Equal(t, config.DriverPostgres, cfg.Storage.Driver)
	assert.Equal(t, 3*time.Second, cfg.Storage.Timeout)
	assert.Equal(t, 1000, cfg.Editor.HistoryLimit)
	assert.Equal(t, 250*time.Millisecond, cfg.Editor.AutosaveDelay)
	assert.Equal(t, 2*time.Second, cfg.Editor.StatusWindow)
	assert.False(t, cfg.Editor.SystemClipboard)
	require.Len(t, cfg.Schedule.Publish, 1)
	assert.Equal(t, "0 9 * * 1", cfg.Schedule.Publish[0].Cron)
}

func TestValidate_Rejects(t *testing.T) {
	tests := []struct {
		name string
		edit func(c *config.Config)
	}{
		{"unknown driver", func(c *config.Config) { c.Storage.Driver = "redis" }},
		{"postgres without host", func(c *config.Config) { c.Storage.Driver = config.DriverPostgres }},
		{"http without base url", func(c *config.Config) { c.Storage.Driver = config.DriverHTTP }},
		{"mongodb without uri", func(c *config.Config) { c.Storage.Driver = config.DriverMongoDB }},
		{"publish without cron", func(c *config.Config) {
			c.Schedule.Publish = []config.ScheduledPublish{{Slug: "home"}}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.edit(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
