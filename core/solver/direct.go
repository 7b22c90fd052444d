package solver

import (
	"context"
	"fmt"

	"github.com/kilianp07/ridepool/core/fleet"
	"github.com/kilianp07/ridepool/core/geo"
	"github.com/kilianp07/ridepool/core/route"
	"github.com/kilianp07/ridepool/core/routing"
	"github.com/kilianp07/ridepool/core/trip"
)

// Direct plans pickup then dropoff for a vehicle without committed stops.
type Direct struct {
	router routing.Router
	policy trip.Policy
}

func NewDirect(r routing.Router, p trip.Policy) *Direct {
	return &Direct{router: r, policy: p}
}

func (d *Direct) Solve(ctx context.Context, st fleet.State, req *trip.Request) (*route.Route, error) {
	if len(st.Stops) > 0 || st.Passengers > 0 {
		return nil, fmt.Errorf("%w: vehicle %s is not empty", ErrInfeasible, st.VehicleID)
	}
	if req.Persons() > st.Capacity {
		return nil, ErrInfeasible
	}
	p := &planner{ctx: ctx, router: d.router, policy: d.policy, tracks: map[[2]geo.Position]route.Track{}}
	seq := []fleet.Stop{
		{Kind: route.KindPickup, Request: req, Position: req.Origin, Latest: d.policy.PickupDeadline(req.RequestedStart)},
		{Kind: route.KindDropoff, Request: req, Position: req.Destination},
	}
	ev, err := p.evaluate(st, seq)
	if err != nil {
		return nil, err
	}
	if !ev.feasible {
		return nil, ErrInfeasible
	}
	return p.build(st, seq)
}
