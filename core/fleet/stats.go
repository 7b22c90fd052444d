package fleet

import (
	"time"

	"github.com/kilianp07/ridepool/core/records"
	"github.com/kilianp07/ridepool/core/route"
)

// Stats are the lifetime counters of a vehicle.
type Stats struct {
	DrivingKM          float64
	Driving            time.Duration
	EnergyKWh          float64
	ServedRequests     int
	ServedPassengers   int
	MaxRequests        int
	MaxPassengers      int
	IdleMax            time.Duration
	IdleSum            time.Duration
	RelocationSum      time.Duration
	BusyDriveSum       time.Duration
	BusyDwellSum       time.Duration
	CapacityViolations int
}

func (s *Stats) addLeg(l route.Leg, passengers int, energy EnergyModel) {
	switch l.Kind() {
	case route.KindEnroute:
		s.BusyDriveSum += l.Duration()
	case route.KindEnrouteRelocation:
		s.RelocationSum += l.Duration()
	case route.KindPickup, route.KindDropoff:
		s.BusyDwellSum += l.Duration()
	}
	if l.Kind().Moving() {
		s.DrivingKM += l.DistanceKM()
		s.Driving += l.Duration()
		s.EnergyKWh += energy.KWh(l.DistanceKM(), passengers)
	}
}

func (s *Stats) addIdle(d time.Duration) {
	if d <= 0 {
		return
	}
	s.IdleSum += d
	if d > s.IdleMax {
		s.IdleMax = d
	}
}

// Record renders the statistics of vehicle id.
func (s Stats) Record(id string) *records.VehicleStats {
	return &records.VehicleStats{
		VehicleID:        id,
		DrivingKM:        s.DrivingKM,
		DrivingMin:       s.Driving.Minutes(),
		EnergyKWh:        s.EnergyKWh,
		ServedRequests:   s.ServedRequests,
		ServedPassengers: s.ServedPassengers,
		MaxRequests:      s.MaxRequests,
		MaxPassengers:    s.MaxPassengers,
		IdleMaxMin:       s.IdleMax.Minutes(),
		IdleSumMin:       s.IdleSum.Minutes(),
		RelocationSumMin: s.RelocationSum.Minutes(),
		BusyDriveSumMin:  s.BusyDriveSum.Minutes(),
		BusyDwellSumMin:  s.BusyDwellSum.Minutes(),
	}
}
