package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWithoutFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("VAREDITOR_CONFIG", "")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, Defaults(), cfg)
	require.Equal(t, 200*time.Millisecond, cfg.Panel.PollInterval)
	require.True(t, cfg.Host.Watch)
}

func TestSaveThenLoad(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("VAREDITOR_CONFIG", filepath.Join(dir, "custom", "config.toml"))

	cfg := Defaults()
	cfg.Database.Path = filepath.Join(dir, "vars.db")
	cfg.Panel.PollInterval = 50 * time.Millisecond
	cfg.Panel.DefaultSort = "length-desc"
	cfg.Panel.Width = 60
	cfg.Host.Watch = false
	require.NoError(t, Save(cfg))

	_, err := os.Stat(filepath.Join(dir, "custom", "config.toml"))
	require.NoError(t, err)

	got, err := Load()
	require.NoError(t, err)
	require.Equal(t, cfg, got)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("VAREDITOR_CONFIG", "")
	t.Setenv("VAREDITOR_PANEL_POLL_INTERVAL", "1s")
	t.Setenv("VAREDITOR_LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, time.Second, cfg.Panel.PollInterval)
	require.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadRejectsBrokenFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("this is = = not toml"), 0o644))
	t.Setenv("HOME", dir)
	t.Setenv("VAREDITOR_CONFIG", path)

	_, err := Load()
	require.Error(t, err)
}
