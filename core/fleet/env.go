// Package fleet implements the vehicle agents: itinerary execution, commit
// locking and lifetime statistics.
package fleet

import (
	"context"

	"github.com/kilianp07/ridepool/core/logger"
	"github.com/kilianp07/ridepool/core/sim"
	"github.com/kilianp07/ridepool/core/simclock"
	"github.com/kilianp07/ridepool/core/trip"
)

// Scheduler is the part of the event kernel a vehicle needs.
type Scheduler interface {
	At(at simclock.Time, kind sim.Kind, name string, action sim.Action) (*sim.Event, error)
	Cancel(e *sim.Event) bool
}

// Rebalancer is told when a vehicle runs out of work.
type Rebalancer interface {
	Idle(ctx context.Context, v *Vehicle)
}

// EnergyModel converts driven distance into consumption.
type EnergyModel struct {
	KWhPer100KM       float64
	KWhPer100KMPerPax float64
}

// KWh is the energy used to drive km with passengers on board.
func (m EnergyModel) KWh(km float64, passengers int) float64 {
	return km * (m.KWhPer100KM + m.KWhPer100KMPerPax*float64(passengers)) / 100
}

// Env carries the collaborators shared by every vehicle of a run.
type Env struct {
	Clock  simclock.Source
	Events Scheduler
	Policy trip.Policy
	Energy EnergyModel
	// Finisher receives completed trips.
	Finisher trip.Finisher
	// Revoked receives requests dropped from a released itinerary.
	Revoked func(ctx context.Context, r *trip.Request)
	// Rebalancer is nil when rebalancing is disabled.
	Rebalancer Rebalancer
	Log        logger.Logger
}
