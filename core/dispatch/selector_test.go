package dispatch

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/ridepool/core/fleet"
	"github.com/kilianp07/ridepool/core/geo"
	"github.com/kilianp07/ridepool/core/route"
	"github.com/kilianp07/ridepool/core/routing"
	"github.com/kilianp07/ridepool/core/simclock"
	"github.com/kilianp07/ridepool/core/solver"
	"github.com/kilianp07/ridepool/core/trip"
)

// failingRouter refuses to route from one position.
type failingRouter struct {
	from geo.Position
}

func (f failingRouter) Route(ctx context.Context, from, to geo.Position, mode routing.Mode, t simclock.Time) (route.Track, error) {
	if from == f.from {
		return route.Track{}, routing.ErrNoRoute
	}
	return router.Route(ctx, from, to, mode, t)
}

func solverPlan(h *harness, v *fleet.Vehicle, r *trip.Request) (*route.Route, error) {
	return solver.NewInsertion(router, h.env.Policy).Solve(context.Background(), v.State(), r)
}

func ids(vs []*fleet.Vehicle) []string {
	out := make([]string, len(vs))
	for i, v := range vs {
		out[i] = v.ID
	}
	return out
}

func TestSearchRadius(t *testing.T) {
	assert.Equal(t, 120*time.Second, searchRadius(1, 5, 10*time.Minute))
	assert.Equal(t, 10*time.Minute, searchRadius(5, 5, 10*time.Minute))
	assert.Equal(t, 33*time.Second, searchRadius(1, 3, 100*time.Second))
}

func TestSelectorStopsWideningWhenShortlistIsFull(t *testing.T) {
	h := newHarness()
	h.vehicle("c", 4, at(2.9, 0))
	h.vehicle("b", 4, at(1.9, 0))
	h.vehicle("a", 4, at(0.9, 0))
	h.vehicle("z", 4, at(0.9, 0))
	h.vehicle("far", 4, at(50, 0))
	s := &Selector{Fleet: h.fleet, Router: router, MaxWait: 10 * time.Minute, Steps: 5, Size: 2}
	req := newRequest(t, 1, base, at(0, 3))

	// step 1 finds a and z, step 2 adds b and exceeds the shortlist
	assert.Equal(t, []string{"a", "z"}, ids(s.Select(context.Background(), req, false)))

	s.Size = 10
	assert.Equal(t, []string{"a", "z", "b", "c"}, ids(s.Select(context.Background(), req, false)))
}

func TestSelectorEligibility(t *testing.T) {
	h := newHarness()
	h.vehicle("small", 1, at(0.5, 0))
	busy := h.vehicle("busy", 4, at(0.6, 0))
	h.vehicle("idle", 4, at(0.7, 0))
	s := &Selector{Fleet: h.fleet, Router: router, MaxWait: 10 * time.Minute, Steps: 5, Size: 10}

	req := newRequest(t, 1, base, at(0, 3))
	req.ExtraPassengers = 1
	assert.Equal(t, []string{"busy", "idle"}, ids(s.Select(context.Background(), req, false)))

	other := newRequest(t, 2, at(0.6, 0), at(0.6, 3))
	plan, err := solverPlan(h, busy, other)
	require.NoError(t, err)
	require.NoError(t, busy.Exclusive(func() error { return busy.Commit(context.Background(), other, plan) }))
	assert.Equal(t, []string{"small", "idle"}, ids(s.Select(context.Background(), newRequest(t, 3, base, at(0, 3)), true)))
}

func TestSelectorSkipsUnroutableVehicles(t *testing.T) {
	h := newHarness()
	h.vehicle("broken", 4, at(0.2, 0))
	h.vehicle("ok", 4, at(0.4, 0))
	s := &Selector{Fleet: h.fleet, Router: failingRouter{from: at(0.2, 0)}, MaxWait: 10 * time.Minute, Steps: 5, Size: 10}
	assert.Equal(t, []string{"ok"}, ids(s.Select(context.Background(), newRequest(t, 1, base, at(0, 3)), false)))
}

func TestSelectorEmptyWhenNothingInRange(t *testing.T) {
	h := newHarness()
	h.vehicle("far", 4, at(50, 0))
	s := &Selector{Fleet: h.fleet, Router: router, MaxWait: 10 * time.Minute, Steps: 5, Size: 10}
	assert.Empty(t, s.Select(context.Background(), newRequest(t, 1, base, at(0, 3)), false))
}
