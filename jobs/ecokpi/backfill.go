package ecokpi

import (
	"github.com/kilianp07/ridepool/core/fleet"
	"github.com/kilianp07/ridepool/core/metrics/eco"
	"github.com/kilianp07/ridepool/core/records"
	"github.com/kilianp07/ridepool/core/route"
)

// Backfill rebuilds daily energy records from archived vehicle legs. Only
// driven legs count; energy uses model for every vehicle. It returns the
// number of legs added.
func Backfill(store eco.Store, legs []records.Record, model fleet.EnergyModel) (int, error) {
	moving := map[string]bool{
		route.KindEnroute.String():           true,
		route.KindEnrouteRelocation.String(): true,
	}
	n := 0
	for _, r := range legs {
		l := r.Leg
		if r.Kind != records.KindLeg || l == nil || l.ObjectType != "vehicle" || !moving[l.Kind] || l.DistanceKM <= 0 {
			continue
		}
		rec := eco.Record{
			VehicleID:   l.ObjectID,
			Date:        eco.Day(l.End.UTC()),
			DrivingKM:   l.DistanceKM,
			PassengerKM: l.DistanceKM * float64(l.Passengers),
			EnergyKWh:   model.KWh(l.DistanceKM, l.Passengers),
		}
		if err := store.Add(rec); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}
