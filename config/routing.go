package config

import (
	"context"
	"fmt"

	"github.com/kilianp07/ridepool/core/routing"
)

// RoutingConfig selects the travel time oracle.
type RoutingConfig struct {
	// Type is "straight" or "grid". The grid router answers from a
	// cell matrix built on top of the straight line router.
	Type                 string             `json:"type"`
	SpeedKMH             float64            `json:"speed_kmh"`
	FootSpeedKMH         float64            `json:"foot_speed_kmh"`
	DetourFactor         float64            `json:"detour_factor"`
	TravelTimeFactorCar  float64            `json:"travel_time_factor_car"`
	TravelTimeFactorFoot float64            `json:"travel_time_factor_foot"`
	Grid                 routing.GridConfig `json:"grid"`
}

func (c *RoutingConfig) SetDefaults() {
	if c.Type == "" {
		c.Type = "straight"
	}
	if c.SpeedKMH <= 0 {
		c.SpeedKMH = 30
	}
	if c.FootSpeedKMH <= 0 {
		c.FootSpeedKMH = 5
	}
	if c.DetourFactor <= 0 {
		c.DetourFactor = 1.3
	}
	if c.TravelTimeFactorCar <= 0 {
		c.TravelTimeFactorCar = 1
	}
	if c.TravelTimeFactorFoot <= 0 {
		c.TravelTimeFactorFoot = 1
	}
}

func (c RoutingConfig) Validate() error {
	switch c.Type {
	case "straight":
		return nil
	case "grid":
		if c.Grid.CellKM <= 0 || c.Grid.WidthKM <= 0 || c.Grid.HeightKM <= 0 {
			return fmt.Errorf("grid needs cell_km, width_km and height_km")
		}
		return nil
	default:
		return fmt.Errorf("unknown router type %q", c.Type)
	}
}

// Router builds the configured router. A grid is loaded from its cache
// file when present and filled otherwise.
func (c RoutingConfig) Router(ctx context.Context) (routing.Router, error) {
	straight := routing.NewStraightLine(c.SpeedKMH, c.FootSpeedKMH, c.DetourFactor, routing.Factors{
		Car:  c.TravelTimeFactorCar,
		Foot: c.TravelTimeFactorFoot,
	})
	if c.Type != "grid" {
		return straight, nil
	}
	g, err := routing.OpenGrid(ctx, c.Grid, straight)
	if err != nil {
		return nil, fmt.Errorf("grid router: %w", err)
	}
	return g, nil
}
