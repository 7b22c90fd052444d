package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/kilianp07/ridepool/core/fleet"
	"github.com/kilianp07/ridepool/core/simclock"
	"github.com/kilianp07/ridepool/core/trip"
)

// SimulationConfig bounds the run and sets the periodic tasks.
type SimulationConfig struct {
	// Start and End accept RFC 3339 or "2006-01-02 15:04:05". An empty Start
	// begins at the first event, an empty End leaves the run open.
	Start                       string `json:"start"`
	End                         string `json:"end"`
	RequestBufferSeconds        int    `json:"request_buffer_seconds"`
	StatusIntervalSeconds       int    `json:"status_interval_seconds"`
	RouteHistoryIntervalSeconds int    `json:"route_history_interval_seconds"`
	LogRouteHistory             bool   `json:"log_route_history"`
	MaxPositionAgeSeconds       int    `json:"max_position_age_seconds"`
}

func (c *SimulationConfig) SetDefaults() {
	if c.RequestBufferSeconds <= 0 {
		c.RequestBufferSeconds = 30
	}
	if c.StatusIntervalSeconds <= 0 {
		c.StatusIntervalSeconds = 60
	}
	if c.RouteHistoryIntervalSeconds <= 0 {
		c.RouteHistoryIntervalSeconds = 300
	}
	if c.MaxPositionAgeSeconds <= 0 {
		c.MaxPositionAgeSeconds = 30
	}
}

func (c SimulationConfig) Validate() error {
	start, end, err := c.Window()
	if err != nil {
		return err
	}
	if !end.IsZero() && !end.After(start) {
		return errors.New("end must be after start")
	}
	return nil
}

// Window parses Start and End. Unset bounds are zero.
func (c SimulationConfig) Window() (start, end simclock.Time, err error) {
	if c.Start != "" {
		if start, err = simclock.Parse(c.Start); err != nil {
			return 0, 0, fmt.Errorf("start: %w", err)
		}
	}
	if c.End != "" {
		if end, err = simclock.Parse(c.End); err != nil {
			return 0, 0, fmt.Errorf("end: %w", err)
		}
	}
	return start, end, nil
}

// TripConfig holds the service promises made to travellers.
type TripConfig struct {
	MaxWaitSeconds             int     `json:"max_wait_seconds"`
	PickupDropoffDelaySeconds  int     `json:"pickup_dropoff_delay_seconds"`
	PerPersonSeconds           int     `json:"per_person_seconds"`
	ElongationFactor           float64 `json:"elongation_factor"`
	AcceptableInVehicleSeconds int     `json:"acceptable_in_vehicle_seconds"`
	AlonsoMode                 bool    `json:"alonso_mode"`
	AlonsoDelaySeconds         int     `json:"alonso_delay_seconds"`
}

func (c *TripConfig) SetDefaults() {
	def := trip.DefaultPolicy()
	if c.MaxWaitSeconds <= 0 {
		c.MaxWaitSeconds = int(def.MaxWait.Seconds())
	}
	if c.PickupDropoffDelaySeconds <= 0 {
		c.PickupDropoffDelaySeconds = int(def.PickupDropoffDelay.Seconds())
	}
	if c.PerPersonSeconds <= 0 {
		c.PerPersonSeconds = int(def.PerPersonDelay.Seconds())
	}
	if c.ElongationFactor <= 0 {
		c.ElongationFactor = def.ElongationFactor
	}
	if c.AcceptableInVehicleSeconds <= 0 {
		c.AcceptableInVehicleSeconds = int(def.AcceptableInVehicle.Seconds())
	}
	if c.AlonsoDelaySeconds <= 0 {
		c.AlonsoDelaySeconds = int(def.AlonsoDelay.Seconds())
	}
}

func (c TripConfig) Validate() error {
	if c.ElongationFactor < 1 {
		return errors.New("elongation_factor must be >= 1")
	}
	return nil
}

// Policy converts the section into trip timing rules.
func (c TripConfig) Policy() trip.Policy {
	return trip.Policy{
		MaxWait:             seconds(c.MaxWaitSeconds),
		PickupDropoffDelay:  seconds(c.PickupDropoffDelaySeconds),
		PerPersonDelay:      seconds(c.PerPersonSeconds),
		ElongationFactor:    c.ElongationFactor,
		AcceptableInVehicle: seconds(c.AcceptableInVehicleSeconds),
		AlonsoMode:          c.AlonsoMode,
		AlonsoDelay:         seconds(c.AlonsoDelaySeconds),
	}
}

// VehicleConfig holds fleet-wide vehicle settings. Per-vehicle energy
// columns of the fleet file override the defaults.
type VehicleConfig struct {
	KWhPer100KM       float64 `json:"kwh_per_100km"`
	KWhPer100KMPerPax float64 `json:"kwh_per_100km_per_pax"`
	Rebalancing       bool    `json:"rebalancing"`
}

func (c *VehicleConfig) SetDefaults() {
	if c.KWhPer100KM == 0 {
		c.KWhPer100KM = 15
	}
	if c.KWhPer100KMPerPax == 0 {
		c.KWhPer100KMPerPax = 0.5
	}
}

func (c VehicleConfig) Validate() error {
	if c.KWhPer100KM < 0 || c.KWhPer100KMPerPax < 0 {
		return errors.New("energy consumption must be >= 0")
	}
	return nil
}

func (c VehicleConfig) Energy() fleet.EnergyModel {
	return fleet.EnergyModel{KWhPer100KM: c.KWhPer100KM, KWhPer100KMPerPax: c.KWhPer100KMPerPax}
}

func seconds(n int) time.Duration { return time.Duration(n) * time.Second }
