package fleet

import (
	"github.com/kilianp07/ridepool/core/geo"
	"github.com/kilianp07/ridepool/core/route"
	"github.com/kilianp07/ridepool/core/simclock"
	"github.com/kilianp07/ridepool/core/trip"
)

// Stop is a planned passenger stop.
type Stop struct {
	Kind     route.Kind
	Request  *trip.Request
	Position geo.Position
	// Latest is the deadline of the stop. A zero Latest on a dropoff means
	// the deadline depends on the pickup time still to be planned.
	Latest simclock.Time
}

// State is the view of a vehicle a solver plans from: where and when the
// vehicle becomes available, who is on board then and which committed stops
// remain, in their current order.
type State struct {
	VehicleID string
	Capacity  int
	Now       simclock.Time
	Available simclock.Time
	Position  geo.Position
	// Passengers on board at Available.
	Passengers int
	Stops      []Stop
	// RemainingKM is the distance of the current plan from Now.
	RemainingKM float64
}

// Requests lists the requests referenced by the stops.
func (s State) Requests() []*trip.Request {
	seen := map[int64]bool{}
	var out []*trip.Request
	for _, st := range s.Stops {
		if st.Request == nil || seen[st.Request.ID] {
			continue
		}
		seen[st.Request.ID] = true
		out = append(out, st.Request)
	}
	return out
}

// State captures the planning view of v. The caller should hold the commit
// lock so the view stays valid until a commit.
func (v *Vehicle) State() State {
	now := v.env.Clock.Now()
	v.mu.RLock()
	defer v.mu.RUnlock()

	st := State{
		VehicleID: v.ID, Capacity: v.Capacity, Now: now, Available: now,
		Position: v.positionLocked(now), Passengers: v.passengers,
	}
	// dropoff deadlines of passengers boarding right now are not recorded yet
	boarding := map[int64]simclock.Time{}
	if v.current != nil {
		st.RemainingKM += v.current.RemainingKM(now)
		if !v.current.Interruptible() {
			st.Available = simclock.Max(v.current.End(), now)
			st.Position = v.current.Destination()
			if r := v.committed[v.current.RequestID()]; r != nil {
				switch v.current.Kind() {
				case route.KindPickup:
					st.Passengers += r.Persons()
					boarding[r.ID] = v.env.Policy.DropoffDeadline(r.RequestedStart, v.current.End(), r.DirectDuration)
				case route.KindDropoff:
					if _, ok := v.onboard[r.ID]; ok {
						st.Passengers -= r.Persons()
					}
				}
			}
		}
	}
	if v.active != nil {
		st.RemainingKM += v.active.DistanceKM()
		for _, l := range v.active.Legs() {
			if !l.Kind().Serves() {
				continue
			}
			r := v.committed[l.RequestID()]
			if r == nil {
				continue
			}
			stop := Stop{Kind: l.Kind(), Request: r, Position: l.Origin()}
			rs := r.State()
			if l.Kind() == route.KindPickup {
				stop.Latest = rs.PickupDeadline
			} else if d, ok := boarding[r.ID]; ok {
				stop.Latest = d
			} else {
				stop.Latest = rs.DropoffDeadline
			}
			st.Stops = append(st.Stops, stop)
		}
	}
	return st
}

// Snapshot is a read-only summary used for status records and the API.
type Snapshot struct {
	ID         string        `json:"id"`
	Status     string        `json:"status"`
	Position   geo.Position  `json:"position"`
	Passengers int           `json:"passengers"`
	Requests   int           `json:"requests"`
	Capacity   int           `json:"capacity"`
	Leg        string        `json:"leg,omitempty"`
	At         simclock.Time `json:"at"`
}

func (v *Vehicle) Snapshot(now simclock.Time) Snapshot {
	v.mu.RLock()
	defer v.mu.RUnlock()
	s := Snapshot{
		ID: v.ID, Status: v.status.String(), Position: v.positionLocked(now),
		Passengers: v.passengers, Requests: len(v.committed), Capacity: v.Capacity, At: now,
	}
	if v.current != nil {
		s.Leg = v.current.Kind().String()
	}
	return s
}
