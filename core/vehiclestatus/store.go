package vehiclestatus

import (
	"sort"
	"sync"

	"github.com/kilianp07/ridepool/core/geo"
	"github.com/kilianp07/ridepool/core/simclock"
)

// LastAssignment mirrors the most recent request committed to a vehicle.
type LastAssignment struct {
	RequestID int64         `json:"request_id"`
	Policy    string        `json:"policy"`
	Rank      int           `json:"rank"`
	Timestamp simclock.Time `json:"timestamp"`
}

// Status captures the current known state of a vehicle.
type Status struct {
	VehicleID      string         `json:"vehicle_id"`
	CurrentStatus  string         `json:"current_status"`
	Position       geo.Position   `json:"position"`
	Capacity       int            `json:"capacity"`
	Passengers     int            `json:"passengers"`
	Requests       int            `json:"requests"`
	Leg            string         `json:"leg,omitempty"`
	UpdatedAt      simclock.Time  `json:"updated_at"`
	LastAssignment LastAssignment `json:"last_assignment"`
}

// Vacant returns the number of free seats.
func (s Status) Vacant() int { return s.Capacity - s.Passengers }

type Filter struct {
	Status    string
	MinVacant int
}

type Store interface {
	Set(Status)
	List(Filter) []Status
	RecordAssignment(id string, a LastAssignment)
}

type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]Status
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: map[string]Status{}}
}

// Set replaces the snapshot part of a vehicle's status and keeps its last
// assignment.
func (s *MemoryStore) Set(st Status) {
	s.mu.Lock()
	if prev, ok := s.data[st.VehicleID]; ok && st.LastAssignment.Timestamp.IsZero() {
		st.LastAssignment = prev.LastAssignment
	}
	s.data[st.VehicleID] = st
	s.mu.Unlock()
}

func (s *MemoryStore) RecordAssignment(id string, a LastAssignment) {
	s.mu.Lock()
	st := s.data[id]
	if st.VehicleID == "" {
		st.VehicleID = id
	}
	st.LastAssignment = a
	st.CurrentStatus = "IN_SERVICE"
	s.data[id] = st
	s.mu.Unlock()
}

func (s *MemoryStore) List(f Filter) []Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	res := make([]Status, 0, len(s.data))
	for _, st := range s.data {
		if f.Status != "" && st.CurrentStatus != f.Status {
			continue
		}
		if f.MinVacant > 0 && st.Vacant() < f.MinVacant {
			continue
		}
		res = append(res, st)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].VehicleID < res[j].VehicleID })
	return res
}
