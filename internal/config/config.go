// Package config handles application configuration
package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed config.sample.yaml
var sampleConfig string

// GetSampleConfig returns the embedded sample configuration content
func GetSampleConfig() string {
	return sampleConfig
}

// StorageConfig holds durable store settings
type StorageConfig struct {
	Path string `yaml:"path"`
}

// TrashConfig holds delete/undo settings
type TrashConfig struct {
	GraceWindowMs *int `yaml:"grace_window_ms"` // undo window in ms (default: 3000)
}

// PersistenceConfig holds write-coalescing settings
type PersistenceConfig struct {
	DebounceMs *int `yaml:"debounce_ms"` // quiet period in ms (default: 200)
}

// MaintenanceConfig holds archival job settings
type MaintenanceConfig struct {
	Enabled    *bool `yaml:"enabled"`      // default: true
	RunOnStart *bool `yaml:"run_on_start"` // default: true
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	BackgroundEnabled *bool `yaml:"background_enabled"` // watch-mode log file (default: true)
}

// Config represents the application configuration
type Config struct {
	Storage      StorageConfig     `yaml:"storage"`
	Trash        TrashConfig       `yaml:"trash"`
	Persistence  PersistenceConfig `yaml:"persistence"`
	Maintenance  MaintenanceConfig `yaml:"maintenance"`
	Logging      LoggingConfig     `yaml:"logging"`
	OutputFormat string            `yaml:"output_format"`
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Storage: StorageConfig{
			Path: filepath.Join(GetDataDir(), "daylist.db"),
		},
		OutputFormat: "text",
	}
}

// Load loads configuration from the specified path, or the default XDG
// path if empty. If the config file doesn't exist, one is created with
// the documented sample content.
func Load(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = filepath.Join(GetConfigDir(), "config.yaml")
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		cfg := DefaultConfig()
		if err := cfg.save(configPath); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("invalid YAML in config file: %w", err)
	}

	// Apply defaults for unset fields
	if cfg.Storage.Path == "" {
		cfg.Storage.Path = filepath.Join(GetDataDir(), "daylist.db")
	} else {
		cfg.Storage.Path = ExpandPath(cfg.Storage.Path)
	}
	if cfg.OutputFormat == "" {
		cfg.OutputFormat = "text"
	}

	return cfg, nil
}

// save writes the configuration to the specified path
func (c *Config) save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Use the embedded sample config which includes all documentation
	if err := os.WriteFile(path, []byte(sampleConfig), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.OutputFormat != "text" && c.OutputFormat != "json" {
		return fmt.Errorf("invalid output_format: %q (must be 'text' or 'json')", c.OutputFormat)
	}
	if c.Trash.GraceWindowMs != nil && *c.Trash.GraceWindowMs <= 0 {
		return fmt.Errorf("trash.grace_window_ms must be positive, got %d", *c.Trash.GraceWindowMs)
	}
	if c.Persistence.DebounceMs != nil && *c.Persistence.DebounceMs < 0 {
		return fmt.Errorf("persistence.debounce_ms cannot be negative, got %d", *c.Persistence.DebounceMs)
	}
	return nil
}

// GraceWindow returns the undo window as a duration.
func (c *Config) GraceWindow() time.Duration {
	if c.Trash.GraceWindowMs != nil {
		return time.Duration(*c.Trash.GraceWindowMs) * time.Millisecond
	}
	return 3 * time.Second
}

// Debounce returns the persistence quiet period as a duration.
func (c *Config) Debounce() time.Duration {
	if c.Persistence.DebounceMs != nil {
		return time.Duration(*c.Persistence.DebounceMs) * time.Millisecond
	}
	return 200 * time.Millisecond
}

// MaintenanceEnabled reports whether the archival job should run at all.
func (c *Config) MaintenanceEnabled() bool {
	return c.Maintenance.Enabled == nil || *c.Maintenance.Enabled
}

// MaintenanceOnStart reports whether a pass runs on command startup.
func (c *Config) MaintenanceOnStart() bool {
	return c.Maintenance.RunOnStart == nil || *c.Maintenance.RunOnStart
}

// IsBackgroundLoggingEnabled reports whether watch mode writes a log file.
func (c *Config) IsBackgroundLoggingEnabled() bool {
	return c.Logging.BackgroundEnabled == nil || *c.Logging.BackgroundEnabled
}

// GetConfigDir returns the XDG config directory for daylist
func GetConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "daylist")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".daylist"
	}
	return filepath.Join(home, ".config", "daylist")
}

// GetDataDir returns the XDG data directory for daylist
func GetDataDir() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "daylist")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".daylist"
	}
	return filepath.Join(home, ".local", "share", "daylist")
}

// ExpandPath expands a leading ~ to the user's home directory
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~/") || path == "~" {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		if path == "~" {
			return home
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
