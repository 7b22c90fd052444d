package events

import "github.com/kilianp07/ridepool/core/simclock"

// Assignment is published when a request is committed to a vehicle.
// Rank is the vehicle's position in the request's candidate list.
type Assignment struct {
	RequestID int64
	VehicleID string
	Policy    string
	Rank      int
	CostKM    float64
	At        simclock.Time
}

// Flush is published at the end of every non-empty dispatch cycle.
type Flush struct {
	Policy     string
	Buffered   int
	Assigned   int
	Rebuffered int
	Failed     int
	At         simclock.Time
}
