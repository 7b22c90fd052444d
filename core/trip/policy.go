package trip

import (
	"time"

	"github.com/kilianp07/ridepool/core/simclock"
)

// Policy holds the time-window parameters applied to every request.
type Policy struct {
	MaxWait             time.Duration
	PickupDropoffDelay  time.Duration
	PerPersonDelay      time.Duration
	ElongationFactor    float64
	AcceptableInVehicle time.Duration
	AlonsoMode          bool
	AlonsoDelay         time.Duration
}

// DefaultPolicy returns the defaults of the trip configuration section.
func DefaultPolicy() Policy {
	return Policy{
		MaxWait:             10 * time.Minute,
		PickupDropoffDelay:  time.Minute,
		PerPersonDelay:      10 * time.Second,
		ElongationFactor:    1.5,
		AcceptableInVehicle: 10 * time.Minute,
		AlonsoDelay:         10 * time.Minute,
	}
}

// ServiceTime is the dwell of a pickup or dropoff for persons travellers.
func (p Policy) ServiceTime(persons int) time.Duration {
	return p.PickupDropoffDelay + time.Duration(persons)*p.PerPersonDelay
}

// PickupDeadline is the latest pickup for a request starting at start.
func (p Policy) PickupDeadline(start simclock.Time) simclock.Time {
	return start.Add(p.MaxWait)
}

// MaxInVehicle bounds the ride time for a trip whose direct duration is
// direct: the larger of the elongated and the floor-extended direct time.
func (p Policy) MaxInVehicle(direct time.Duration) time.Duration {
	elongated := time.Duration(float64(direct) * p.ElongationFactor)
	floor := direct + p.AcceptableInVehicle
	if elongated > floor {
		return elongated
	}
	return floor
}

// DropoffDeadline is the latest dropoff once the traveller departed at
// departure. In Alonso mode the bound is anchored to the requested start.
func (p Policy) DropoffDeadline(requestedStart, departure simclock.Time, direct time.Duration) simclock.Time {
	if p.AlonsoMode {
		return requestedStart.Add(p.AlonsoDelay + direct)
	}
	return departure.Add(p.MaxInVehicle(direct))
}
