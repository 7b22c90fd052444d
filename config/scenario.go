package config

import (
	"github.com/kilianp07/ridepool/core/scenario"
)

// Scenario converts the run sections into a scenario configuration.
func (c Config) Scenario(runID string) (scenario.Config, error) {
	start, end, err := c.Simulation.Window()
	if err != nil {
		return scenario.Config{}, err
	}
	return scenario.Config{
		Start:                start,
		End:                  end,
		BufferInterval:       seconds(c.Simulation.RequestBufferSeconds),
		StatusInterval:       seconds(c.Simulation.StatusIntervalSeconds),
		RouteHistoryInterval: seconds(c.Simulation.RouteHistoryIntervalSeconds),
		LogRouteHistory:      c.Simulation.LogRouteHistory,
		MaxPositionAge:       seconds(c.Simulation.MaxPositionAgeSeconds),
		Policy:               c.Trip.Policy(),
		Energy:               c.Vehicle.Energy(),
		Rebalancing:          c.Vehicle.Rebalancing,
		Dispatch:             c.Dispatch,
		RunID:                runID,
	}, nil
}
