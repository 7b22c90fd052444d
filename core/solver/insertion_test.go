package solver

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/ridepool/core/fleet"
	"github.com/kilianp07/ridepool/core/geo"
	"github.com/kilianp07/ridepool/core/route"
	"github.com/kilianp07/ridepool/core/routing"
	"github.com/kilianp07/ridepool/core/simclock"
	"github.com/kilianp07/ridepool/core/trip"
)

var (
	base   = geo.Position{Lon: 11.50, Lat: 48.10}
	router = routing.NewStraightLine(30, 5, 1, routing.Factors{})
	policy = trip.DefaultPolicy()
)

func at(eastKM, northKM float64) geo.Position { return geo.Offset(base, eastKM, northKM) }

func request(id int64, from, to geo.Position, start simclock.Time) *trip.Request {
	d, _ := routing.Duration(context.Background(), router, from, to, routing.ModeCar)
	return &trip.Request{ID: id, User: trip.NewUser("u", from), RequestedStart: start, Origin: from, Destination: to, DirectDuration: d}
}

func emptyState(pos geo.Position, now simclock.Time, capacity int) fleet.State {
	return fleet.State{VehicleID: "v1", Capacity: capacity, Now: now, Available: now, Position: pos}
}

func stopKinds(r *route.Route) []route.Kind {
	var out []route.Kind
	for _, l := range r.Legs() {
		if l.Kind().Serves() {
			out = append(out, l.Kind())
		}
	}
	return out
}

func stopIDs(r *route.Route) []int64 {
	var out []int64
	for _, l := range r.Legs() {
		if l.Kind().Serves() {
			out = append(out, l.RequestID())
		}
	}
	return out
}

func TestInsertionEmptyVehicle(t *testing.T) {
	s := NewInsertion(router, policy)
	req := request(1, at(1, 0), at(1, 3), 0)
	plan, err := s.Solve(context.Background(), emptyState(base, 1000, 4), req)
	require.NoError(t, err)
	require.NoError(t, plan.CheckContiguous())
	assert.Equal(t, simclock.Time(1000), plan.Start())
	assert.Equal(t, simclock.Time(1000), plan.First().Start())
	assert.Equal(t, []route.Kind{route.KindEnroute, route.KindPickup, route.KindEnroute, route.KindDropoff}, kindsOf(plan))
	assert.InDelta(t, geo.DistanceKM(base, at(1, 0))+geo.DistanceKM(at(1, 0), at(1, 3)), plan.DistanceKM(), 1e-9)
}

func kindsOf(r *route.Route) []route.Kind {
	var out []route.Kind
	for _, l := range r.Legs() {
		out = append(out, l.Kind())
	}
	return out
}

func TestInsertionSkipsShortDrives(t *testing.T) {
	s := NewInsertion(router, policy)
	req := request(1, at(0.01, 0), at(2, 0), 0)
	plan, err := s.Solve(context.Background(), emptyState(base, 0, 4), req)
	require.NoError(t, err)
	assert.Equal(t, []route.Kind{route.KindPickup, route.KindEnroute, route.KindDropoff}, kindsOf(plan))
	assert.Equal(t, policy.ServiceTime(1), plan.First().Duration())
}

func TestInsertionRejectsLatePickup(t *testing.T) {
	s := NewInsertion(router, policy)
	// 30 km at 30 km/h is an hour away, the pickup window is ten minutes
	req := request(1, at(30, 0), at(31, 0), 0)
	_, err := s.Solve(context.Background(), emptyState(base, 0, 4), req)
	assert.ErrorIs(t, err, ErrInfeasible)
}

func TestInsertionRespectsCapacity(t *testing.T) {
	s := NewInsertion(router, policy)
	onboard := request(1, base, at(4, 0), 0)
	st := emptyState(base, 0, 1)
	st.Passengers = 1
	st.Stops = []fleet.Stop{{Kind: route.KindDropoff, Request: onboard, Position: at(4, 0), Latest: 3_600_000}}

	// pooling would be shorter but the single seat is taken until the dropoff,
	// a later start leaves room to serve the request afterwards
	req := request(2, at(2, 0), at(5, 0), 300_000)
	plan, err := s.Solve(context.Background(), st, req)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 2}, stopIDs(plan))

	st.Capacity = 2
	pooled, err := s.Solve(context.Background(), st, req)
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 1, 2}, stopIDs(pooled))
	assert.Less(t, pooled.DistanceKM(), plan.DistanceKM()+1e-9)
}

func TestInsertionKeepsCommittedDeadlines(t *testing.T) {
	s := NewInsertion(router, policy)
	onboard := request(1, base, at(4, 0), 0)
	st := emptyState(base, 0, 4)
	st.Passengers = 1
	// exactly the direct drive plus no slack
	direct, _ := routing.Duration(context.Background(), router, base, at(4, 0), routing.ModeCar)
	st.Stops = []fleet.Stop{{Kind: route.KindDropoff, Request: onboard, Position: at(4, 0), Latest: simclock.Time(0).Add(direct)}}

	req := request(2, at(2, 1), at(5, 0), 300_000)
	plan, err := s.Solve(context.Background(), st, req)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 2}, stopIDs(plan))
}

func TestInsertionDoesNotRepeatFixedDelayAtSamePlace(t *testing.T) {
	s := NewInsertion(router, policy)
	waiting := request(1, at(1, 0), at(3, 0), 0)
	require.NoError(t, waiting.Assign("v1", 0, policy))
	st := emptyState(base, 0, 4)
	st.Stops = []fleet.Stop{
		{Kind: route.KindPickup, Request: waiting, Position: at(1, 0), Latest: policy.PickupDeadline(0)},
		{Kind: route.KindDropoff, Request: waiting, Position: at(3, 0)},
	}
	req := request(2, at(1, 0), at(3, 0), 0)
	plan, err := s.Solve(context.Background(), st, req)
	require.NoError(t, err)
	assert.Equal(t, []route.Kind{route.KindPickup, route.KindPickup, route.KindDropoff, route.KindDropoff}, stopKinds(plan))

	var dwell []time.Duration
	for _, l := range plan.Legs() {
		if l.Kind().Serves() {
			dwell = append(dwell, l.Duration())
		}
	}
	assert.Equal(t, []time.Duration{policy.ServiceTime(1), policy.PerPersonDelay, policy.ServiceTime(1), policy.PerPersonDelay}, dwell)
	require.NoError(t, plan.CheckContiguous())
}

type brokenRouter struct{}

func (brokenRouter) Route(context.Context, geo.Position, geo.Position, routing.Mode, simclock.Time) (route.Track, error) {
	return route.Track{}, routing.ErrNoRoute
}

func TestInsertionPropagatesRoutingErrors(t *testing.T) {
	s := NewInsertion(brokenRouter{}, policy)
	_, err := s.Solve(context.Background(), emptyState(base, 0, 4), request(1, at(1, 0), at(2, 0), 0))
	require.Error(t, err)
	assert.True(t, errors.Is(err, routing.ErrNoRoute))
	assert.False(t, errors.Is(err, ErrInfeasible))
}

func TestDirectSolver(t *testing.T) {
	d := NewDirect(router, policy)
	req := request(1, at(1, 0), at(1, 2), 0)
	plan, err := d.Solve(context.Background(), emptyState(base, 0, 4), req)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 1}, stopIDs(plan))

	busy := emptyState(base, 0, 4)
	busy.Passengers = 1
	_, err = d.Solve(context.Background(), busy, req)
	assert.ErrorIs(t, err, ErrInfeasible)

	tooMany := request(2, at(1, 0), at(1, 2), 0)
	tooMany.ExtraPassengers = 4
	_, err = d.Solve(context.Background(), emptyState(base, 0, 4), tooMany)
	assert.ErrorIs(t, err, ErrInfeasible)
}

func TestFuncAdapter(t *testing.T) {
	called := false
	var s Solver = Func(func(context.Context, fleet.State, *trip.Request) (*route.Route, error) {
		called = true
		return nil, ErrInfeasible
	})
	_, err := s.Solve(context.Background(), fleet.State{}, &trip.Request{})
	assert.ErrorIs(t, err, ErrInfeasible)
	assert.True(t, called)
}
