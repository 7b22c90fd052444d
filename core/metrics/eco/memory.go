package eco

import (
	"sort"
	"sync"
	"time"
)

// MemoryStore keeps daily records in memory.
type MemoryStore struct {
	mu   sync.Mutex
	data map[string]map[time.Time]*Record
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: map[string]map[time.Time]*Record{}}
}

// Add accumulates r into the record of its vehicle and day.
func (s *MemoryStore) Add(r Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data[r.VehicleID] == nil {
		s.data[r.VehicleID] = map[time.Time]*Record{}
	}
	d := Day(r.Date)
	rec := s.data[r.VehicleID][d]
	if rec == nil {
		rec = &Record{VehicleID: r.VehicleID, Date: d}
		s.data[r.VehicleID][d] = rec
	}
	rec.DrivingKM += r.DrivingKM
	rec.PassengerKM += r.PassengerKM
	rec.EnergyKWh += r.EnergyKWh
	return nil
}

// Query returns records between start and end inclusive, ordered by day.
func (s *MemoryStore) Query(vehicleID string, start, end time.Time) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	start = Day(start)
	end = Day(end)
	var res []Record
	for d, r := range s.data[vehicleID] {
		if d.Before(start) || d.After(end) {
			continue
		}
		res = append(res, *r)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Date.Before(res[j].Date) })
	return res, nil
}

// Vehicles lists the vehicle ids with at least one record.
func (s *MemoryStore) Vehicles() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.data))
	for id := range s.data {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}
