package records

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"
)

// RotatingJSONLStore stores records in a JSONL file with automatic rotation.
type RotatingJSONLStore struct {
	mu     sync.Mutex
	logger *lumberjack.Logger
	path   string
}

// NewRotatingJSONLStore creates a store with rotation options in megabytes and days.
func NewRotatingJSONLStore(path string, maxSizeMB, maxBackups, maxAgeDays int) (*RotatingJSONLStore, error) {
	lj := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    maxSizeMB,
		MaxBackups: maxBackups,
		MaxAge:     maxAgeDays,
		Compress:   false,
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	return &RotatingJSONLStore{logger: lj, path: path}, nil
}

// Append writes the record and triggers rotation if needed.
func (s *RotatingJSONLStore) Append(ctx context.Context, rec Record) error {
	b, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.logger.Write(append(b, '\n'))
	return err
}

// Query reads all log files including rotated ones, oldest first.
func (s *RotatingJSONLStore) Query(ctx context.Context, q Query) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ext := filepath.Ext(s.path)
	base := s.path[:len(s.path)-len(ext)]
	backups, err := filepath.Glob(base + "-*" + ext)
	if err != nil {
		return nil, err
	}
	sort.Strings(backups)
	var res []Record
	for _, name := range append(backups, s.path) {
		f, err := os.Open(name)
		if err != nil {
			continue
		}
		res, err = scan(ctx, f, q, res)
		_ = f.Close()
		if err != nil {
			return nil, err
		}
	}
	return res, nil
}

// Close closes the underlying writer.
func (s *RotatingJSONLStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.logger.Close()
}
