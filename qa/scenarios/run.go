package scenarios

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/ridepool/core/dispatch"
	"github.com/kilianp07/ridepool/core/input"
	"github.com/kilianp07/ridepool/core/records"
	"github.com/kilianp07/ridepool/core/routing"
	"github.com/kilianp07/ridepool/core/scenario"
	"github.com/kilianp07/ridepool/infra/logger"
)

// RunScenario simulates sc end to end and checks its expectations.
func RunScenario(t *testing.T, sc *Scenario) {
	t.Helper()
	vs := make([]input.Vehicle, len(sc.Vehicles))
	for i, v := range sc.Vehicles {
		vs[i] = v.ToInput()
	}
	rs := make([]input.Request, len(sc.Requests))
	for i, r := range sc.Requests {
		rs[i] = r.ToInput()
	}
	cfg := scenario.Config{
		Start:    Start,
		Dispatch: dispatch.Config{Policy: sc.Policy, Mode: sc.Mode, RepeatedAssignment: sc.Repeated},
	}
	if sc.EndSec > 0 {
		cfg.End = Start.Add(time.Duration(sc.EndSec) * time.Second)
	}
	store := records.NewMemoryStore()
	s, err := scenario.New(cfg, scenario.Deps{
		Router:  routing.NewStraightLine(30, 5, 1, routing.Factors{}),
		Records: store,
		Log:     logger.NopLogger{},
	}, vs, rs)
	require.NoError(t, err)

	sum, err := s.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, sum.Conserved(), "requests not conserved: %+v", sum)

	check := func(name string, want *int, got int) {
		if want != nil {
			assert.Equal(t, *want, got, "scenario %s: %s", sc.Name, name)
		}
	}
	e := sc.Expected
	check("completed", e.Completed, sum.Completed)
	check("failed", e.Failed, sum.Failed)
	check("failed_user_busy", e.FailedUserBusy, sum.FailedUserBusy)
	check("open", e.Open, sum.Open)
	check("skipped", e.Skipped, sum.Skipped)
	if e.MaxPassengers != nil {
		for _, r := range store.All() {
			if r.Kind == records.KindVehicleStats {
				assert.LessOrEqual(t, r.VehicleStats.MaxPassengers, *e.MaxPassengers, "vehicle %s", r.VehicleStats.VehicleID)
			}
		}
	}
}
