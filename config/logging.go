package config

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/kilianp07/ridepool/core/records"
	"github.com/kilianp07/ridepool/infra/logger"
)

// LoggingConfig defines settings for run record storage, the application
// log and rotation of both files.
type LoggingConfig struct {
	// Backend selects the record store type: "jsonl", "sqlite", "memory" or
	// "none".
	Backend string `json:"backend"`
	// Path is the file location of the record store.
	Path string `json:"path"`
	// MaxSizeMB triggers rotation when the file exceeds this size in megabytes.
	MaxSizeMB int `json:"max_size_mb"`
	// MaxBackups limits the number of rotated files to keep.
	MaxBackups int `json:"max_backups"`
	// MaxAgeDays removes rotated files older than this number of days.
	MaxAgeDays int `json:"max_age_days"`

	// Level, Format and File configure the application log. An empty File
	// logs to stdout.
	Level  string `json:"level"`
	Format string `json:"format"`
	File   string `json:"file"`
}

// SetDefaults applies sane defaults.
func (c *LoggingConfig) SetDefaults() {
	if c.Backend == "" {
		c.Backend = "jsonl"
	}
	if c.Path != "" {
		return
	}
	switch c.Backend {
	case "jsonl":
		c.Path = "records.jsonl"
	case "sqlite":
		c.Path = "records.db"
	}
}

// Validate checks mandatory fields.
func (c LoggingConfig) Validate() error {
	if c.Level != "" {
		if _, err := zerolog.ParseLevel(c.Level); err != nil {
			return fmt.Errorf("level: %w", err)
		}
	}
	switch c.Format {
	case "", "json", "console":
	default:
		return fmt.Errorf("unknown format %s", c.Format)
	}
	switch c.Backend {
	case "jsonl", "sqlite":
	case "memory", "none":
		return nil
	default:
		return fmt.Errorf("unknown backend %s", c.Backend)
	}
	if c.Path == "" {
		return fmt.Errorf("path is required")
	}
	if c.MaxSizeMB < 0 || c.MaxBackups < 0 || c.MaxAgeDays < 0 {
		return fmt.Errorf("rotation limits must be >= 0")
	}
	return nil
}

// Records converts the section into a record store configuration.
func (c LoggingConfig) Records() records.Config {
	return records.Config{
		Backend:    c.Backend,
		Path:       c.Path,
		MaxSizeMB:  c.MaxSizeMB,
		MaxBackups: c.MaxBackups,
		MaxAgeDays: c.MaxAgeDays,
	}
}

// Output converts the section into the application log settings.
func (c LoggingConfig) Output() logger.Output {
	return logger.Output{
		Level:      c.Level,
		Format:     c.Format,
		File:       c.File,
		MaxSizeMB:  c.MaxSizeMB,
		MaxBackups: c.MaxBackups,
		MaxAgeDays: c.MaxAgeDays,
	}
}
