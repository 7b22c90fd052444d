package metrics

import "time"

// TripOutcome represents a request that reached a terminal state.
type TripOutcome struct {
	RequestID int64
	UserID    string
	VehicleID string
	Status    string
	Persons   int
	Shared    bool
	Wait      time.Duration
	Ride      time.Duration
	Direct    time.Duration
	Time      time.Time
}

// MetricsSink records trip outcomes for observability purposes.
type MetricsSink interface {
	RecordTripOutcome(ev TripOutcome) error
}

// FlushEvent captures one dispatch cycle.
type FlushEvent struct {
	Policy     string
	Mode       string
	Buffered   int
	Assigned   int
	Rebuffered int
	Failed     int
	Elapsed    time.Duration
	Time       time.Time
}

// FlushRecorder records dispatch cycles.
type FlushRecorder interface {
	RecordFlush(ev FlushEvent) error
}

// VehicleStateEvent is a snapshot of a vehicle.
type VehicleStateEvent struct {
	VehicleID  string
	Status     string
	Passengers int
	Committed  int
	Lon        float64
	Lat        float64
	Component  string
	Time       time.Time
}

// VehicleStateRecorder records vehicle state snapshots.
type VehicleStateRecorder interface {
	RecordVehicleState(ev VehicleStateEvent) error
}

// EnergyEvent is the consumption of one driven leg.
type EnergyEvent struct {
	VehicleID  string
	KM         float64
	KWh        float64
	Passengers int
	Time       time.Time
}

// EnergyRecorder records per-leg energy consumption.
type EnergyRecorder interface {
	RecordEnergy(ev EnergyEvent) error
}

// FleetSizeRecorder records the number of vehicles in the simulated fleet.
type FleetSizeRecorder interface {
	RecordFleetSize(size int) error
}

// NopSink implements MetricsSink with no-op methods.
type NopSink struct{}

func (NopSink) RecordTripOutcome(TripOutcome) error { return nil }

func (NopSink) RecordFlush(FlushEvent) error               { return nil }
func (NopSink) RecordVehicleState(VehicleStateEvent) error { return nil }
func (NopSink) RecordEnergy(EnergyEvent) error             { return nil }
func (NopSink) RecordFleetSize(int) error                  { return nil }
