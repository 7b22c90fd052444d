package scenarios

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kilianp07/ridepool/core/geo"
	"github.com/kilianp07/ridepool/core/input"
	"github.com/kilianp07/ridepool/core/simclock"
)

// Origin anchors the kilometre offsets of a scenario file.
var Origin = geo.Position{Lon: 11.50, Lat: 48.10}

// Start is the simulated time of offset zero.
var Start = simclock.Time(8 * 3600 * 1000)

// Point is an east/north offset in kilometres from Origin.
type Point [2]float64

func (p Point) Position() geo.Position { return geo.Offset(Origin, p[0], p[1]) }

type VehicleDef struct {
	ID       string `yaml:"id"`
	Capacity int    `yaml:"capacity"`
	At       Point  `yaml:"at"`
}

func (v VehicleDef) ToInput() input.Vehicle {
	return input.Vehicle{ID: v.ID, Capacity: v.Capacity, Position: v.At.Position()}
}

type RequestDef struct {
	ID      int64  `yaml:"id"`
	User    string `yaml:"user"`
	AtSec   int    `yaml:"at_s"`
	From    Point  `yaml:"from"`
	To      Point  `yaml:"to"`
	Persons int    `yaml:"persons"`
}

func (r RequestDef) ToInput() input.Request {
	user := r.User
	if user == "" {
		user = fmt.Sprintf("u%d", r.ID)
	}
	extra := 0
	if r.Persons > 1 {
		extra = r.Persons - 1
	}
	return input.Request{
		ID:              r.ID,
		UserID:          user,
		RequestedStart:  Start.Add(time.Duration(r.AtSec) * time.Second),
		Origin:          r.From.Position(),
		Destination:     r.To.Position(),
		ExtraPassengers: extra,
	}
}

// Expected lists the outcome counts to check. Unset fields are not checked.
type Expected struct {
	Completed      *int `yaml:"completed"`
	Failed         *int `yaml:"failed"`
	FailedUserBusy *int `yaml:"failed_user_busy"`
	Open           *int `yaml:"open"`
	Skipped        *int `yaml:"skipped"`
	MaxPassengers  *int `yaml:"max_passengers"`
}

type Scenario struct {
	Name        string       `yaml:"name"`
	Description string       `yaml:"description,omitempty"`
	Policy      string       `yaml:"policy"`
	Mode        string       `yaml:"mode,omitempty"`
	Repeated    *bool        `yaml:"repeated,omitempty"`
	EndSec      int          `yaml:"end_s,omitempty"`
	Vehicles    []VehicleDef `yaml:"vehicles"`
	Requests    []RequestDef `yaml:"requests"`
	Expected    Expected     `yaml:"expected"`
}

func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, err
	}
	if sc.Name == "" {
		return nil, fmt.Errorf("%s: name is required", path)
	}
	return &sc, nil
}
