// Package solver decides whether a vehicle can take one more request and
// builds the resulting itinerary.
package solver

import (
	"context"
	"errors"

	"github.com/kilianp07/ridepool/core/fleet"
	"github.com/kilianp07/ridepool/core/route"
	"github.com/kilianp07/ridepool/core/trip"
)

// ErrInfeasible is returned when no itinerary satisfies the constraints.
var ErrInfeasible = errors.New("solver: infeasible")

// Solver plans the itinerary of a vehicle serving its committed stops plus
// req. The returned route starts at st.Available.
type Solver interface {
	Solve(ctx context.Context, st fleet.State, req *trip.Request) (*route.Route, error)
}

// Func adapts a function to Solver.
type Func func(ctx context.Context, st fleet.State, req *trip.Request) (*route.Route, error)

func (f Func) Solve(ctx context.Context, st fleet.State, req *trip.Request) (*route.Route, error) {
	return f(ctx, st, req)
}
