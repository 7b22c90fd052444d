package events

import "github.com/kilianp07/ridepool/core/fleet"

// VehicleStatus carries a periodic vehicle snapshot.
type VehicleStatus struct {
	Snapshot fleet.Snapshot
}
