package fleet

import (
	"context"

	"github.com/kilianp07/ridepool/core/geo"
	"github.com/kilianp07/ridepool/core/logger"
	"github.com/kilianp07/ridepool/core/route"
	"github.com/kilianp07/ridepool/core/routing"
	"github.com/kilianp07/ridepool/core/sim"
	"github.com/kilianp07/ridepool/core/simclock"
)

// homeRadiusKM is the distance under which a vehicle counts as at home.
const homeRadiusKM = 0.05

// DepotRebalancer sends vehicles that run out of work back to their home
// position. The relocation runs as its own event so it never nests inside
// another vehicle action.
type DepotRebalancer struct {
	Clock  simclock.Source
	Events Scheduler
	Router routing.Router
	Log    logger.Logger
}

func (d *DepotRebalancer) Idle(ctx context.Context, v *Vehicle) {
	if geo.DistanceKM(v.Position(d.Clock.Now()), v.Home) < homeRadiusKM {
		return
	}
	if _, err := d.Events.At(d.Clock.Now(), sim.KindRebalance, "rebalance "+v.ID, func(ctx context.Context) error {
		return d.relocate(ctx, v)
	}); err != nil {
		d.Log.Errorf("rebalance %s: %v", v.ID, err)
	}
}

// relocate builds the drive home. Routing failures leave the vehicle idle.
func (d *DepotRebalancer) relocate(ctx context.Context, v *Vehicle) error {
	return v.Exclusive(func() error {
		if !v.Idle() {
			return nil
		}
		now := d.Clock.Now()
		from := v.Position(now)
		if geo.DistanceKM(from, v.Home) < homeRadiusKM {
			return nil
		}
		track, err := d.Router.Route(ctx, from, v.Home, routing.ModeCar, now)
		if err != nil {
			d.Log.Warnf("rebalance %s: %v", v.ID, err)
			return nil
		}
		plan := route.New(now)
		plan.Append(route.NewEnroute(route.KindEnrouteRelocation, track), true)
		plan.Append(route.NewStationary(route.KindRelocationArrived, 0, 0, v.Home, 0), true)
		return v.ReplaceItinerary(ctx, plan)
	})
}
