package records

import (
	"fmt"
	"strings"
)

// Config selects and configures the record store.
type Config struct {
	Backend    string `json:"backend"`
	Path       string `json:"path"`
	MaxSizeMB  int    `json:"max_size_mb"`
	MaxBackups int    `json:"max_backups"`
	MaxAgeDays int    `json:"max_age_days"`
}

// Open builds the store described by cfg. A jsonl backend with MaxSizeMB set
// rotates its file.
func Open(cfg Config) (Store, error) {
	switch strings.ToLower(cfg.Backend) {
	case "", "jsonl":
		if cfg.MaxSizeMB > 0 {
			return NewRotatingJSONLStore(cfg.Path, cfg.MaxSizeMB, cfg.MaxBackups, cfg.MaxAgeDays)
		}
		return NewJSONLStore(cfg.Path)
	case "sqlite":
		return NewSQLiteStore(cfg.Path)
	case "memory":
		return NewMemoryStore(), nil
	case "none":
		return NopStore{}, nil
	default:
		return nil, fmt.Errorf("records: unknown backend %q", cfg.Backend)
	}
}
