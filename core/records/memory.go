package records

import (
	"context"
	"sync"
)

// MemoryStore keeps records in memory. It backs tests and short runs.
type MemoryStore struct {
	mu   sync.RWMutex
	recs []Record
}

func NewMemoryStore() *MemoryStore { return &MemoryStore{} }

func (m *MemoryStore) Append(_ context.Context, rec Record) error {
	m.mu.Lock()
	m.recs = append(m.recs, rec)
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Query(_ context.Context, q Query) ([]Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var res []Record
	for _, r := range m.recs {
		if q.Match(r) {
			res = append(res, r)
		}
	}
	return res, nil
}

// All returns a copy of every record.
func (m *MemoryStore) All() []Record {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Record(nil), m.recs...)
}

// Len returns the number of records of kind k, or of all kinds when k is empty.
func (m *MemoryStore) Len(k Kind) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if k == "" {
		return len(m.recs)
	}
	n := 0
	for _, r := range m.recs {
		if r.Kind == k {
			n++
		}
	}
	return n
}

func (m *MemoryStore) Close() error { return nil }
