// Package config resolves runtime configuration from an optional .env
// file, an optional YAML file and the environment, in that order of
// increasing precedence. Command-line flags override the result.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/adrg/xdg"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/lotas/tabgroups/internal/applog"
	"github.com/lotas/tabgroups/internal/storage"
)

// Defaults.
const (
	DefaultPort       = 19191
	DefaultClientPort = 19192
	DefaultTimeout    = 10 * time.Second
)

// Config holds the settings shared by every subcommand. Port is where the
// extension's background connection is served; ClientPort serves the
// connection used by the TUI and one-shot commands.
type Config struct {
	Port        int           `yaml:"port"`
	ClientPort  int           `yaml:"client_port"`
	DB          string        `yaml:"db"`
	LogDir      string        `yaml:"log_dir"`
	DownloadDir string        `yaml:"download_dir"`
	Profile     string        `yaml:"profile"`
	Timeout     time.Duration `yaml:"timeout"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	db, err := storage.DefaultDBPath()
	if err != nil {
		db = "tabgroups.db"
	}
	return &Config{
		Port:        DefaultPort,
		ClientPort:  DefaultClientPort,
		DB:          db,
		LogDir:      filepath.Join(xdg.StateHome, "tabgroups"),
		DownloadDir: xdg.UserDirs.Download,
		Timeout:     DefaultTimeout,
	}
}

// FilePath returns the YAML config location: $TABGROUPS_CONFIG, or
// $XDG_CONFIG_HOME/tabgroups/config.yaml.
func FilePath() string {
	if p := os.Getenv("TABGROUPS_CONFIG"); p != "" {
		return p
	}
	return filepath.Join(xdg.ConfigHome, "tabgroups", "config.yaml")
}

// Load builds the configuration. A missing .env or YAML file is not an
// error; a malformed one is.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		applog.Warn("config.dotenv", "error", err.Error())
	}

	cfg := Default()
	if err := cfg.loadFile(FilePath()); err != nil {
		return nil, err
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	if err := setPort(&c.Port, "TABGROUPS_PORT"); err != nil {
		return err
	}
	if err := setPort(&c.ClientPort, "TABGROUPS_CLIENT_PORT"); err != nil {
		return err
	}
	if v := os.Getenv("TABGROUPS_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return fmt.Errorf("TABGROUPS_TIMEOUT: invalid duration %q", v)
		}
		c.Timeout = d
	}
	setString(&c.DB, "TABGROUPS_DB")
	setString(&c.LogDir, "TABGROUPS_LOG_DIR")
	setString(&c.DownloadDir, "TABGROUPS_DOWNLOAD_DIR")
	setString(&c.Profile, "TABGROUPS_PROFILE")
	if c.Port == c.ClientPort {
		return fmt.Errorf("port and client_port must differ (both %d)", c.Port)
	}
	return nil
}

func setPort(dst *int, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	port, err := strconv.Atoi(v)
	if err != nil || port <= 0 || port > 65535 {
		return fmt.Errorf("%s: invalid port %q", key, v)
	}
	*dst = port
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}
