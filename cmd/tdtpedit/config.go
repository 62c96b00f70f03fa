package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"
)

// Config represents the editor configuration file
type Config struct {
	Log    LogConfig    `yaml:"log"`
	Audit  AuditConfig  `yaml:"audit"`
	Export ExportConfig `yaml:"export"`
	Shell  ShellConfig  `yaml:"shell"`
	SQLite SQLiteConfig `yaml:"sqlite"`
}

// LogConfig contains diagnostic logging settings
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // auto, console, json
}

// AuditConfig for the operation audit trail
type AuditConfig struct {
	Enabled    bool   `yaml:"enabled"`
	Level      string `yaml:"level"` // minimal, standard, full
	File       string `yaml:"file,omitempty"`
	MaxSize    int    `yaml:"max_size_mb,omitempty"` // Max file size in MB
	MaxBackups int    `yaml:"max_backups,omitempty"`
	FormatJSON bool   `yaml:"format_json"`
	Database   string `yaml:"database,omitempty"` // SQLite file for the history command
	Console    bool   `yaml:"console,omitempty"`  // Also write entries to the log
}

// ExportConfig contains save settings
type ExportConfig struct {
	CRLF          bool   `yaml:"crlf"`           // Windows line endings in CSV
	CompressLevel int    `yaml:"compress_level"` // zstd level for .csv.zst: 1-19 (default: 3)
	VisibleOnly   bool   `yaml:"visible_only"`   // Save only filtered rows of a CSV table
	SheetName     string `yaml:"sheet_name,omitempty"`
}

// ShellConfig contains interactive shell settings
type ShellConfig struct {
	MaxRows int    `yaml:"max_rows"` // Rows printed by show (0 = all)
	Prompt  string `yaml:"prompt"`
}

// SQLiteConfig contains database handle settings
type SQLiteConfig struct {
	BusyTimeoutMS int  `yaml:"busy_timeout_ms"`
	ReadOnly      bool `yaml:"read_only"` // Only SELECT/WITH in query mode
}

// DefaultConfig returns the configuration used when no file is present
func DefaultConfig() *Config {
	return &Config{
		Log: LogConfig{
			Level:  "info",
			Format: "auto",
		},
		Audit: AuditConfig{
			Enabled:    false,
			Level:      "standard",
			MaxSize:    10,
			MaxBackups: 3,
		},
		Export: ExportConfig{
			CompressLevel: 3,
		},
		Shell: ShellConfig{
			MaxRows: 50,
			Prompt:  "tdtpedit> ",
		},
		SQLite: SQLiteConfig{
			BusyTimeoutMS: 5000,
		},
	}
}

// LoadConfig loads configuration from YAML file on top of the defaults.
// A missing file is not an error.
func LoadConfig(filename string) (*Config, error) {
	config := DefaultConfig()
	if filename == "" {
		return config, nil
	}

	data, err := os.ReadFile(filename)
	if errors.Is(err, fs.ErrNotExist) {
		return config, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", filename, err)
	}

	return config, nil
}

// Validate checks value ranges
func (c *Config) Validate() error {
	if c.Export.CompressLevel < 0 || c.Export.CompressLevel > 22 {
		return fmt.Errorf("export.compress_level must be between 1 and 22, got %d", c.Export.CompressLevel)
	}
	if c.Shell.MaxRows < 0 {
		return fmt.Errorf("shell.max_rows must not be negative")
	}
	switch c.Log.Format {
	case "", "auto", "console", "json":
	default:
		return fmt.Errorf("log.format must be auto, console or json, got %q", c.Log.Format)
	}
	if c.Audit.Enabled && c.Audit.File == "" && c.Audit.Database == "" && !c.Audit.Console {
		return fmt.Errorf("audit is enabled but no file, database or console output is configured")
	}
	return nil
}

// SaveConfig saves configuration to YAML file
func SaveConfig(filename string, config *Config) error {
	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// CreateSampleConfig creates a configuration with every section filled in
func CreateSampleConfig() *Config {
	config := DefaultConfig()
	config.Audit = AuditConfig{
		Enabled:    true,
		Level:      "standard",
		File:       "tdtpedit-audit.log",
		MaxSize:    10,
		MaxBackups: 3,
		FormatJSON: true,
		Database:   "tdtpedit-history.db",
	}
	config.Export.SheetName = ""
	return config
}
