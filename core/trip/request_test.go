package trip

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/ridepool/core/geo"
	"github.com/kilianp07/ridepool/core/records"
	"github.com/kilianp07/ridepool/core/route"
	"github.com/kilianp07/ridepool/core/simclock"
)

var (
	home = geo.Position{Lon: 11.50, Lat: 48.10}
	work = geo.Position{Lon: 11.56, Lat: 48.14}
)

func newRequest(id int64) *Request {
	u := NewUser("u1", home)
	return &Request{
		ID: id, User: u, RequestedStart: simclock.Time(60_000),
		Origin: home, Destination: work, ExtraPassengers: 1,
		DirectDuration: 10 * time.Minute,
	}
}

func TestPolicyDeadlines(t *testing.T) {
	p := DefaultPolicy()
	assert.Equal(t, 80*time.Second, p.ServiceTime(2))
	assert.Equal(t, simclock.Time(60_000+600_000), p.PickupDeadline(60_000))

	// floor wins for short trips, elongation for long ones
	assert.Equal(t, 15*time.Minute, p.MaxInVehicle(5*time.Minute))
	assert.Equal(t, 45*time.Minute, p.MaxInVehicle(30*time.Minute))

	dep := simclock.Time(1_000_000)
	assert.Equal(t, dep.Add(20*time.Minute), p.DropoffDeadline(0, dep, 10*time.Minute))
	p.AlonsoMode = true
	assert.Equal(t, simclock.Time(0).Add(20*time.Minute), p.DropoffDeadline(0, dep, 10*time.Minute))
}

func TestRequestLifecycleCompleted(t *testing.T) {
	r := newRequest(1)
	p := DefaultPolicy()
	require.True(t, r.User.TryRequest(home))
	assert.Equal(t, UserRequestingPickup, r.User.Status())

	require.NoError(t, r.Assign("v1", 70_000, p))
	assert.Equal(t, UserWaitingForPickup, r.User.Status())
	st := r.State()
	assert.Equal(t, "v1", st.VehicleID)
	assert.Equal(t, simclock.Time(660_000), st.PickupDeadline)

	require.NoError(t, r.Pickup(300_000, 370_000, p))
	assert.True(t, r.OnBoard())
	assert.Equal(t, UserInTransit, r.User.Status())
	assert.Equal(t, simclock.Time(370_000).Add(20*time.Minute), r.State().DropoffDeadline)

	r.AddLeg(route.NewStationary(route.KindPickup, 300_000, 70*time.Second, home, 1))
	r.AddLeg(route.NewEnroute(route.KindEnroute, route.NewTrack(home, work, 370_000, 10*time.Minute, 5)))

	require.NoError(t, r.Dropoff(970_000))
	require.NoError(t, r.Complete(1_040_000))
	assert.Equal(t, StatusCompleted, r.Status())
	assert.Equal(t, UserIdle, r.User.Status())
	assert.Equal(t, work, r.User.Position())

	rec := r.Record()
	assert.Equal(t, records.KindTrip, rec.Kind)
	assert.Equal(t, "COMPLETED", rec.Trip.Status)
	assert.Equal(t, 2, rec.Trip.Persons)
	assert.InDelta(t, 5, rec.Trip.DistanceKM, 1e-9)
	assert.InDelta(t, 670, rec.Trip.DurationS, 1e-9)
	assert.Contains(t, rec.Trip.RouteWKT, "LINESTRING")
	assert.LessOrEqual(t, rec.Trip.PickedUp, rec.Trip.DroppedOff)
	assert.LessOrEqual(t, rec.Trip.DroppedOff, rec.Trip.Completed)
}

func TestTerminalTransitionsAreRejected(t *testing.T) {
	r := newRequest(2)
	require.True(t, r.User.TryRequest(home))
	require.NoError(t, r.Fail(100))
	assert.Equal(t, UserIdle, r.User.Status())

	assert.ErrorIs(t, r.Fail(200), ErrTerminal)
	assert.ErrorIs(t, r.Complete(200), ErrTerminal)
	assert.ErrorIs(t, r.FailUserBusy(200), ErrTerminal)
	assert.ErrorIs(t, r.Assign("v1", 200, DefaultPolicy()), ErrTerminal)
	assert.ErrorIs(t, r.Pickup(200, 200, DefaultPolicy()), ErrTerminal)
	assert.Equal(t, StatusFailed, r.Status())
	assert.Equal(t, simclock.Time(100), r.State().Completed)
}

func TestBusyUser(t *testing.T) {
	u := NewUser("u", home)
	require.True(t, u.TryRequest(home))
	assert.False(t, u.TryRequest(work))

	r := &Request{ID: 3, User: u}
	require.NoError(t, r.FailUserBusy(5))
	assert.Equal(t, StatusFailedUserBusy, r.Status())
	assert.Equal(t, UserRequestingPickup, u.Status())
}

func TestPickupDeadlineNeverIncreases(t *testing.T) {
	r := newRequest(4)
	strict := DefaultPolicy()
	strict.MaxWait = time.Minute
	require.NoError(t, r.Assign("v1", 0, strict))
	first := r.State().PickupDeadline

	require.NoError(t, r.Assign("v2", 10, DefaultPolicy()))
	assert.Equal(t, first, r.State().PickupDeadline)
}

func TestRevoke(t *testing.T) {
	r := newRequest(5)
	require.NoError(t, r.Assign("v1", 0, DefaultPolicy()))
	require.NoError(t, r.Revoke())
	st := r.State()
	assert.Empty(t, st.VehicleID)
	assert.Zero(t, st.PickupDeadline)
	assert.Equal(t, 1, st.Revocations)
	assert.Equal(t, UserWaitingForPickup, r.User.Status())

	require.NoError(t, r.Pickup(10, 20, DefaultPolicy()))
	assert.Error(t, r.Revoke())
}

func TestCloneIsDetached(t *testing.T) {
	r := newRequest(6)
	c := r.Clone()
	require.NoError(t, c.Assign("v9", 1, DefaultPolicy()))
	assert.Empty(t, r.State().VehicleID)
	assert.Equal(t, r.ID, c.ID)
	assert.Same(t, r.User, c.User)
}

func TestFinisherFunc(t *testing.T) {
	var got *Request
	f := FinisherFunc(func(_ context.Context, r *Request) { got = r })
	r := newRequest(7)
	f.Finish(context.Background(), r)
	assert.Same(t, r, got)
}
