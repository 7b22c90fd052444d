package fleet

import (
	"sort"
	"time"

	"github.com/kilianp07/ridepool/core/simclock"
)

// Fleet indexes the vehicles of a run.
type Fleet struct {
	vehicles []*Vehicle
	byID     map[string]*Vehicle
}

// New builds a fleet ordered by vehicle id.
func New(vs ...*Vehicle) *Fleet {
	f := &Fleet{byID: make(map[string]*Vehicle, len(vs))}
	for _, v := range vs {
		f.Add(v)
	}
	return f
}

// Add inserts v keeping the id order.
func (f *Fleet) Add(v *Vehicle) {
	f.byID[v.ID] = v
	i := sort.Search(len(f.vehicles), func(i int) bool { return f.vehicles[i].ID >= v.ID })
	f.vehicles = append(f.vehicles, nil)
	copy(f.vehicles[i+1:], f.vehicles[i:])
	f.vehicles[i] = v
}

func (f *Fleet) Get(id string) (*Vehicle, bool) {
	v, ok := f.byID[id]
	return v, ok
}

func (f *Fleet) All() []*Vehicle { return f.vehicles }
func (f *Fleet) Len() int        { return len(f.vehicles) }

// UpdatePositions refreshes the published position of every vehicle whose
// position is older than maxAge, or of all vehicles when force is set. It
// returns the number of vehicles refreshed.
func (f *Fleet) UpdatePositions(now simclock.Time, maxAge time.Duration, force bool) int {
	n := 0
	for _, v := range f.vehicles {
		_, at := v.SyncedPosition()
		if force || now.Sub(at) > maxAge {
			v.SyncPosition(now)
			n++
		}
	}
	return n
}

// Snapshots returns a snapshot of every vehicle.
func (f *Fleet) Snapshots(now simclock.Time) []Snapshot {
	out := make([]Snapshot, len(f.vehicles))
	for i, v := range f.vehicles {
		out[i] = v.Snapshot(now)
	}
	return out
}
