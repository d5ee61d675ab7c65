package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	Panel    PanelConfig    `mapstructure:"panel"`
	Host     HostConfig     `mapstructure:"host"`
	Log      LogConfig      `mapstructure:"log"`
}

// DatabaseConfig holds sqlite settings.
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// PanelConfig tunes the variable panel and its polling loop.
type PanelConfig struct {
	PollInterval  time.Duration `mapstructure:"poll_interval"`
	ErrorBackoff  time.Duration `mapstructure:"error_backoff"`
	FlashDuration time.Duration `mapstructure:"flash_duration"`
	DefaultSort   string        `mapstructure:"default_sort"`
	// Width is the panel width in columns at font size 1.0.
	Width int `mapstructure:"width"`
}

// HostConfig tunes persistence.
type HostConfig struct {
	SaveDebounce time.Duration `mapstructure:"save_debounce"`
	// Watch reloads variables when another process writes the database.
	Watch bool `mapstructure:"watch"`
}

// LogConfig holds logging settings. An empty Path disables logging.
type LogConfig struct {
	Level string `mapstructure:"level"`
	Path  string `mapstructure:"path"`
}

func home() string { return os.Getenv("HOME") }

// Defaults returns the configuration used when nothing is set.
func Defaults() Config {
	return Config{
		Database: DatabaseConfig{Path: filepath.Join(home(), ".local", "share", "vareditor", "vareditor.db")},
		Panel: PanelConfig{
			PollInterval:  200 * time.Millisecond,
			ErrorBackoff:  time.Second,
			FlashDuration: 600 * time.Millisecond,
			DefaultSort:   "key-asc",
			Width:         48,
		},
		Host: HostConfig{SaveDebounce: time.Second, Watch: true},
		Log: LogConfig{
			Level: "info",
			Path:  filepath.Join(home(), ".local", "state", "vareditor", "vareditor.log"),
		},
	}
}

// Path is the config file location. VAREDITOR_CONFIG overrides it.
func Path() string {
	if p := os.Getenv("VAREDITOR_CONFIG"); p != "" {
		return p
	}
	return filepath.Join(home(), ".config", "vareditor", "config.toml")
}

// Load reads configuration from file and env. Env var overrides use prefix VAREDITOR_.
func Load() (Config, error) {
	v := viper.New()
	setAll(Defaults(), v.SetDefault)

	v.SetConfigType("toml")

	if cfgPath := os.Getenv("VAREDITOR_CONFIG"); cfgPath != "" {
		v.SetConfigFile(cfgPath)
	} else {
		v.AddConfigPath(filepath.Join(home(), ".config", "vareditor"))
		v.SetConfigName("config")
	}

	v.SetEnvPrefix("VAREDITOR")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// a missing file is fine; a broken one is not
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	return c, nil
}

// Save writes cfg to Path, creating the config directory if needed.
func Save(cfg Config) error {
	path := Path()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir config dir: %w", err)
	}

	v := viper.New()
	v.SetConfigType("toml")
	setAll(cfg, v.Set)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

func setAll(c Config, set func(key string, value any)) {
	set("database.path", c.Database.Path)
	set("panel.poll_interval", c.Panel.PollInterval.String())
	set("panel.error_backoff", c.Panel.ErrorBackoff.String())
	set("panel.flash_duration", c.Panel.FlashDuration.String())
	set("panel.default_sort", c.Panel.DefaultSort)
	set("panel.width", c.Panel.Width)
	set("host.save_debounce", c.Host.SaveDebounce.String())
	set("host.watch", c.Host.Watch)
	set("log.level", c.Log.Level)
	set("log.path", c.Log.Path)
}
