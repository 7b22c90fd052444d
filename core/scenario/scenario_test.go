package scenario

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/ridepool/core/dispatch"
	"github.com/kilianp07/ridepool/core/fleet"
	"github.com/kilianp07/ridepool/core/geo"
	"github.com/kilianp07/ridepool/core/input"
	"github.com/kilianp07/ridepool/core/metrics"
	"github.com/kilianp07/ridepool/core/records"
	"github.com/kilianp07/ridepool/core/routing"
	"github.com/kilianp07/ridepool/core/simclock"
	"github.com/kilianp07/ridepool/infra/logger"
)

var (
	base = geo.Position{Lon: 11.50, Lat: 48.10}
	t0   = simclock.Time(8 * 3600 * 1000)
)

func at(eastKM, northKM float64) geo.Position { return geo.Offset(base, eastKM, northKM) }

type sink struct {
	mu       sync.Mutex
	outcomes []metrics.TripOutcome
	energy   []metrics.EnergyEvent
}

func (s *sink) RecordTripOutcome(ev metrics.TripOutcome) error {
	s.mu.Lock()
	s.outcomes = append(s.outcomes, ev)
	s.mu.Unlock()
	return nil
}

func (s *sink) RecordEnergy(ev metrics.EnergyEvent) error {
	s.mu.Lock()
	s.energy = append(s.energy, ev)
	s.mu.Unlock()
	return nil
}

func vehicle(id string, capacity int, pos geo.Position) input.Vehicle {
	return input.Vehicle{ID: id, Capacity: capacity, Position: pos}
}

func request(id int64, user string, start simclock.Time, from, to geo.Position) input.Request {
	return input.Request{ID: id, UserID: user, RequestedStart: start, Origin: from, Destination: to}
}

func run(t *testing.T, cfg Config, vs []input.Vehicle, rs []input.Request) (Summary, *records.MemoryStore, *Scenario) {
	t.Helper()
	store := records.NewMemoryStore()
	if cfg.Start == 0 {
		cfg.Start = t0
	}
	s, err := New(cfg, Deps{
		Router:  routing.NewStraightLine(30, 5, 1, routing.Factors{}),
		Records: store,
		Log:     logger.NopLogger{},
	}, vs, rs)
	require.NoError(t, err)
	sum, err := s.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, sum.Conserved(), "%+v", sum)
	return sum, store, s
}

func trips(store *records.MemoryStore) map[int64]*records.Trip {
	out := map[int64]*records.Trip{}
	for _, r := range store.All() {
		if r.Kind == records.KindTrip {
			out[r.Trip.RequestID] = r.Trip
		}
	}
	return out
}

func TestSingleRequestCompletes(t *testing.T) {
	m := &sink{}
	store := records.NewMemoryStore()
	s, err := New(Config{Start: t0, Energy: fleet.EnergyModel{KWhPer100KM: 15}}, Deps{
		Router:  routing.NewStraightLine(30, 5, 1, routing.Factors{}),
		Records: store,
		Metrics: m,
		Log:     logger.NopLogger{},
	}, []input.Vehicle{vehicle("v1", 4, base)}, []input.Request{request(1, "u1", t0, at(1, 0), at(1, 3))})
	require.NoError(t, err)
	sum, err := s.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, sum.Submitted)
	assert.Equal(t, 1, sum.Completed)
	assert.Zero(t, sum.Open)
	tr := trips(store)[1]
	require.NotNil(t, tr)
	assert.Equal(t, "COMPLETED", tr.Status)
	assert.Equal(t, "v1", tr.VehicleID)
	assert.False(t, tr.PickedUp.IsZero())
	assert.LessOrEqual(t, tr.PickedUp, tr.DroppedOff)
	assert.LessOrEqual(t, tr.DroppedOff, tr.Completed)
	assert.Positive(t, tr.DirectDurationS)

	require.Len(t, m.outcomes, 1)
	assert.Positive(t, m.outcomes[0].Wait)
	assert.Positive(t, m.outcomes[0].Ride)
	assert.NotEmpty(t, m.energy)
	for _, e := range m.energy {
		assert.Equal(t, "v1", e.VehicleID)
		assert.Positive(t, e.KWh)
	}
	assert.Equal(t, 1, store.Len(records.KindVehicleStats))
	assert.Equal(t, 1, store.Len(records.KindCounters))
	assert.Positive(t, store.Len(records.KindStatus))
}

func TestUnreachableRequestFailsAtDeadline(t *testing.T) {
	sum, store, _ := run(t, Config{}, []input.Vehicle{vehicle("far", 4, at(50, 0))},
		[]input.Request{request(1, "u1", t0, base, at(0, 3))})

	assert.Equal(t, 1, sum.Failed)
	assert.Equal(t, 1, store.Len(records.KindTrip))
	tr := trips(store)[1]
	assert.Equal(t, "FAILED", tr.Status)
	assert.Empty(t, tr.VehicleID)
	// the request waited for its pickup window to run out
	assert.GreaterOrEqual(t, tr.Completed.Sub(t0), 9*time.Minute)
	assert.LessOrEqual(t, tr.Completed.Sub(t0), 10*time.Minute)
}

func TestSingleRunNoRetryFailsAtOnce(t *testing.T) {
	off := false
	sum, store, _ := run(t, Config{Dispatch: dispatch.Config{RepeatedAssignment: &off}},
		[]input.Vehicle{vehicle("far", 4, at(50, 0))},
		[]input.Request{request(1, "u1", t0, base, at(0, 3))})

	assert.Equal(t, 1, sum.Failed)
	assert.Equal(t, t0.Add(30*time.Second), trips(store)[1].Completed)
}

func TestCapacityOneVehicleNeverCarriesTwo(t *testing.T) {
	for _, policy := range []string{dispatch.PolicyGreedy, dispatch.PolicyMarginal} {
		t.Run(policy, func(t *testing.T) {
			sum, store, _ := run(t, Config{Dispatch: dispatch.Config{Policy: policy}},
				[]input.Vehicle{vehicle("v1", 1, base)},
				[]input.Request{
					request(1, "a", t0, at(1, 0), at(1, 2)),
					request(2, "b", t0, at(0, 1), at(2, 1)),
				})

			assert.Equal(t, 2, sum.Submitted)
			assert.GreaterOrEqual(t, sum.Completed, 1)
			for _, r := range store.All() {
				if r.Kind == records.KindVehicleStats {
					assert.LessOrEqual(t, r.VehicleStats.MaxPassengers, 1)
				}
			}
		})
	}
}

func TestBusyUserFailsWithoutSearch(t *testing.T) {
	sum, store, s := run(t, Config{}, []input.Vehicle{vehicle("v1", 4, base)},
		[]input.Request{
			request(1, "u1", t0, at(1, 0), at(1, 5)),
			request(2, "u1", t0.Add(2*time.Minute), at(1, 5), base),
		})

	assert.Equal(t, 1, sum.Completed)
	assert.Equal(t, 1, sum.FailedUserBusy)
	tr := trips(store)[2]
	assert.Equal(t, "FAILED_USER_BUSY", tr.Status)
	assert.Empty(t, tr.VehicleID)
	assert.Equal(t, t0.Add(2*time.Minute), tr.Completed)
	assert.Equal(t, int64(1), s.Engine().Stats().Assigned.Load())
}

func TestMidDriveReplacementIsLogged(t *testing.T) {
	_, store, _ := run(t, Config{LogRouteHistory: true}, []input.Vehicle{vehicle("v1", 4, base)},
		[]input.Request{
			request(1, "a", t0, at(3, 0), at(3, 2)),
			request(2, "b", t0.Add(50*time.Second), at(1.5, 0), at(1.5, 1)),
		})

	var legs []*records.Leg
	for _, r := range store.All() {
		if r.Kind == records.KindLeg && r.Leg.ObjectID == "v1" {
			legs = append(legs, r.Leg)
		}
	}
	cut := -1
	for i, l := range legs {
		if l.Kind == "ENROUTE" && l.End == t0.Add(time.Minute) {
			cut = i
			break
		}
	}
	require.GreaterOrEqual(t, cut, 0, "no truncated leg")
	require.Greater(t, len(legs), cut+2)
	assert.Less(t, legs[cut].DistanceKM, geo.DistanceKM(base, at(3, 0)))
	assert.Equal(t, "ROUTE_UPDATE", legs[cut+1].Kind)
	assert.Equal(t, legs[cut].End, legs[cut+1].Begin)
	assert.Equal(t, legs[cut+1].End, legs[cut+2].Begin)
	assert.Contains(t, legs[cut].WKT, "LINESTRING")
}

func TestRequestsOutsideWindowAreSkipped(t *testing.T) {
	sum, store, _ := run(t, Config{Start: t0, End: t0.Add(30 * time.Minute)},
		[]input.Vehicle{vehicle("v1", 4, base)},
		[]input.Request{
			request(1, "a", t0.Add(-time.Minute), at(1, 0), at(1, 1)),
			request(2, "b", t0, at(1, 0), at(1, 1)),
			request(3, "c", t0.Add(40*time.Minute), at(1, 0), at(1, 1)),
		})

	assert.Equal(t, 3, sum.Total)
	assert.Equal(t, 2, sum.Skipped)
	assert.Equal(t, 1, sum.Submitted)
	assert.Equal(t, 1, sum.Completed)
	assert.Equal(t, 1, store.Len(records.KindTrip))
	assert.Positive(t, sum.SkippedEvents)
}

func TestNewRejectsDuplicateVehicle(t *testing.T) {
	_, err := New(Config{Start: t0}, Deps{
		Router: routing.NewStraightLine(30, 5, 1, routing.Factors{}),
		Log:    logger.NopLogger{},
	}, []input.Vehicle{vehicle("v1", 4, base), vehicle("v1", 2, base)}, nil)
	assert.Error(t, err)
}

func TestRunIDIsStamped(t *testing.T) {
	_, store, _ := run(t, Config{RunID: "run-1"}, []input.Vehicle{vehicle("v1", 4, base)},
		[]input.Request{request(1, "a", t0, at(1, 0), at(1, 1))})
	for _, r := range store.All() {
		assert.Equal(t, "run-1", r.RunID)
	}
}
