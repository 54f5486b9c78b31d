// Package config handles loading and managing application configuration
// from .env files, YAML files and environment variable overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ViewerConfig controls how generated images are opened.
type ViewerConfig struct {
	// Command is a shell command template; "{path}" is replaced with the
	// image path. Empty means the platform default viewer.
	Command string   `yaml:"command"`
	Timeout Duration `yaml:"timeout"`
}

// RenderConfig controls rasterization of QR symbols.
type RenderConfig struct {
	Border int `yaml:"border"` // quiet zone, in modules
	Scale  int `yaml:"scale"`  // pixels per module, 0 = pick from symbol size
}

// Config holds all application configuration values.
type Config struct {
	Port       int          `yaml:"port"`
	DataDir    string       `yaml:"data_dir"`
	LogLevel   string       `yaml:"log_level"`
	History    bool         `yaml:"history"`
	TempDir    string       `yaml:"temp_dir"`
	TempPrefix string       `yaml:"temp_prefix"`
	Viewer     ViewerConfig `yaml:"viewer"`
	Render     RenderConfig `yaml:"render"`
}

// Duration is a wrapper around time.Duration that supports YAML unmarshalling
// from human-readable strings like "30s", "5m", "1h".
type Duration struct {
	time.Duration
}

// UnmarshalYAML implements the yaml.Unmarshaler interface for Duration.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	d.Duration = parsed
	return nil
}

// MarshalYAML implements the yaml.Marshaler interface for Duration.
func (d Duration) MarshalYAML() (interface{}, error) {
	return d.Duration.String(), nil
}

// defaults returns a Config populated with sensible default values.
func defaults() *Config {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}
	return &Config{
		Port:       8556,
		DataDir:    filepath.Join(homeDir, ".qrpop"),
		LogLevel:   "info",
		History:    true,
		TempDir:    "",
		TempPrefix: "qrc",
		Viewer: ViewerConfig{
			Timeout: Duration{10 * time.Second},
		},
		Render: RenderConfig{
			Border: 4,
		},
	}
}

// Load reads configuration from the YAML file at path, falling back to
// defaults if the file does not exist. A .env file in the working directory
// is loaded first, then environment variables with the QRPOP_ prefix
// override any file or default values.
func Load(path string) (*Config, error) {
	cfg := defaults()

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("reading .env file: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// File doesn't exist, proceed with defaults.
	} else {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	applyEnvOverrides(cfg)
	return cfg, nil
}

// applyEnvOverrides applies QRPOP_* environment variable overrides to cfg.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("QRPOP_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.Port = p
		}
	}
	if v := os.Getenv("QRPOP_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("QRPOP_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("QRPOP_TEMP_DIR"); v != "" {
		cfg.TempDir = v
	}
	if v := os.Getenv("QRPOP_TEMP_PREFIX"); v != "" {
		cfg.TempPrefix = v
	}
	if v := os.Getenv("QRPOP_VIEWER"); v != "" {
		cfg.Viewer.Command = v
	}
	if v := os.Getenv("QRPOP_VIEWER_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Viewer.Timeout = Duration{d}
		}
	}
	if v := os.Getenv("QRPOP_SCALE"); v != "" {
		if s, err := strconv.Atoi(v); err == nil {
			cfg.Render.Scale = s
		}
	}
	if v := os.Getenv("QRPOP_BORDER"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Render.Border = n
		}
	}
	if v := os.Getenv("QRPOP_HISTORY"); v != "" {
		switch strings.ToLower(v) {
		case "true", "1", "yes":
			cfg.History = true
		case "false", "0", "no":
			cfg.History = false
		}
	}
}

// EnsureDataDir creates the DataDir if it does not already exist.
func (c *Config) EnsureDataDir() error {
	if err := os.MkdirAll(c.DataDir, 0o755); err != nil {
		return fmt.Errorf("creating data dir %s: %w", c.DataDir, err)
	}
	return nil
}

// HistoryPath returns the location of the history database.
func (c *Config) HistoryPath() string {
	return filepath.Join(c.DataDir, "history.db")
}
