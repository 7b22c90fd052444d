// Package records defines the append-only simulation output: trip outcomes,
// status snapshots, route history, vehicle aggregates and counters, together
// with the stores that persist them.
package records

import (
	"strconv"

	"github.com/kilianp07/ridepool/core/geo"
	"github.com/kilianp07/ridepool/core/simclock"
)

// Kind identifies the payload carried by a Record.
type Kind string

const (
	KindTrip         Kind = "trip"
	KindStatus       Kind = "status"
	KindLeg          Kind = "route_leg"
	KindVehicleStats Kind = "vehicle_stats"
	KindCounters     Kind = "counters"
)

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindTrip, KindStatus, KindLeg, KindVehicleStats, KindCounters:
		return true
	}
	return false
}

// Record is one line of simulation output. Exactly one payload matching Kind
// is set.
type Record struct {
	Kind         Kind          `json:"kind"`
	RunID        string        `json:"run_id,omitempty"`
	At           simclock.Time `json:"at"`
	Trip         *Trip         `json:"trip,omitempty"`
	Status       *Status       `json:"status,omitempty"`
	Leg          *Leg          `json:"leg,omitempty"`
	VehicleStats *VehicleStats `json:"vehicle_stats,omitempty"`
	Counters     *Counters     `json:"counters,omitempty"`
}

// Trip describes a request that reached a terminal state.
type Trip struct {
	RequestID       int64         `json:"request_id"`
	UserID          string        `json:"user_id"`
	VehicleID       string        `json:"vehicle_id,omitempty"`
	Status          string        `json:"status"`
	Persons         int           `json:"persons"`
	RequestedStart  simclock.Time `json:"requested_start"`
	RequestedEnd    simclock.Time `json:"requested_end,omitempty"`
	Assigned        simclock.Time `json:"assigned,omitempty"`
	PickedUp        simclock.Time `json:"picked_up,omitempty"`
	Departed        simclock.Time `json:"departed,omitempty"`
	DroppedOff      simclock.Time `json:"dropped_off,omitempty"`
	Completed       simclock.Time `json:"completed,omitempty"`
	PickupDeadline  simclock.Time `json:"pickup_deadline,omitempty"`
	DropoffDeadline simclock.Time `json:"dropoff_deadline,omitempty"`
	Origin          geo.Position  `json:"origin"`
	Destination     geo.Position  `json:"destination"`
	DistanceKM      float64       `json:"distance_km"`
	DurationS       float64       `json:"duration_s"`
	DirectDurationS float64       `json:"direct_duration_s"`
	Shared          bool          `json:"shared"`
	Revocations     int           `json:"revocations,omitempty"`
	RouteWKT        string        `json:"route_wkt,omitempty"`
}

// Status is a periodic snapshot of a vehicle or a busy user.
type Status struct {
	ObjectType string       `json:"object_type"`
	ObjectID   string       `json:"object_id"`
	Status     string       `json:"status"`
	Passengers int          `json:"passengers"`
	Requests   int          `json:"requests"`
	Position   geo.Position `json:"position"`
}

// Leg is one archived itinerary step of a vehicle or passenger.
type Leg struct {
	RouteID    int64         `json:"route_id"`
	ObjectType string        `json:"object_type"`
	ObjectID   string        `json:"object_id"`
	Begin      simclock.Time `json:"begin"`
	End        simclock.Time `json:"end"`
	Kind       string        `json:"step_type"`
	Passengers int           `json:"passengers"`
	Requests   int           `json:"requests"`
	DurationM  float64       `json:"duration_min"`
	DistanceKM float64       `json:"distance_km"`
	WKT        string        `json:"geom_wkt,omitempty"`
}

// VehicleStats aggregates the lifetime of one vehicle.
type VehicleStats struct {
	VehicleID        string  `json:"vehicle_id"`
	DrivingKM        float64 `json:"driving_km"`
	DrivingMin       float64 `json:"driving_min"`
	EnergyKWh        float64 `json:"energy_kwh"`
	ServedRequests   int     `json:"served_requests"`
	ServedPassengers int     `json:"served_passengers"`
	MaxRequests      int     `json:"max_simultaneous_requests"`
	MaxPassengers    int     `json:"max_simultaneous_passengers"`
	IdleMaxMin       float64 `json:"idle_max_min"`
	IdleSumMin       float64 `json:"idle_sum_min"`
	RelocationSumMin float64 `json:"relocation_sum_min"`
	BusyDriveSumMin  float64 `json:"busy_drive_sum_min"`
	BusyDwellSumMin  float64 `json:"busy_dwell_sum_min"`
}

// Counters carries named totals such as solver and router calls.
type Counters struct {
	Values map[string]int64 `json:"values"`
}

// ObjectID returns the identifier the record is about, used for filtering.
func (r Record) ObjectID() string {
	switch {
	case r.Trip != nil:
		if r.Trip.VehicleID != "" {
			return r.Trip.VehicleID
		}
		return r.Trip.UserID
	case r.Status != nil:
		return r.Status.ObjectID
	case r.Leg != nil:
		return r.Leg.ObjectID
	case r.VehicleStats != nil:
		return r.VehicleStats.VehicleID
	}
	return ""
}

// Query filters records. Zero fields match everything.
type Query struct {
	Kind     Kind
	Start    simclock.Time
	End      simclock.Time
	ObjectID string
	RunID    string
}

// Match reports whether r satisfies q.
func (q Query) Match(r Record) bool {
	if q.Kind != "" && r.Kind != q.Kind {
		return false
	}
	if q.RunID != "" && r.RunID != q.RunID {
		return false
	}
	if !q.Start.IsZero() && r.At.Before(q.Start) {
		return false
	}
	if !q.End.IsZero() && r.At.After(q.End) {
		return false
	}
	if q.ObjectID != "" && !q.matchObject(r) {
		return false
	}
	return true
}

func (q Query) matchObject(r Record) bool {
	if r.Trip != nil {
		return r.Trip.VehicleID == q.ObjectID || r.Trip.UserID == q.ObjectID ||
			strconv.FormatInt(r.Trip.RequestID, 10) == q.ObjectID
	}
	return r.ObjectID() == q.ObjectID
}
