// Package routing defines the routing oracle consumed by the dispatch engine
// and the vehicles, together with reference implementations.
package routing

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync/atomic"
	"time"

	"github.com/kilianp07/ridepool/core/geo"
	"github.com/kilianp07/ridepool/core/route"
	"github.com/kilianp07/ridepool/core/simclock"
)

// ErrNoRoute is returned when no track connects two positions.
var ErrNoRoute = errors.New("routing: no route")

// Mode selects the travel mode.
type Mode int

const (
	ModeCar Mode = iota
	ModeFoot
)

func (m Mode) String() string {
	switch m {
	case ModeCar:
		return "car"
	case ModeFoot:
		return "foot"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// Router resolves the track between two positions for a travel mode. The
// returned track starts at at.
type Router interface {
	Route(ctx context.Context, from, to geo.Position, mode Mode, at simclock.Time) (route.Track, error)
}

// Factors scale travel times per mode. Non-positive values mean 1.
type Factors struct {
	Car  float64 `json:"car"`
	Foot float64 `json:"foot"`
}

// For returns the factor configured for m.
func (f Factors) For(m Mode) float64 {
	v := f.Car
	if m == ModeFoot {
		v = f.Foot
	}
	if v <= 0 {
		return 1
	}
	return v
}

// StraightLine estimates tracks from the great-circle distance stretched by a
// detour factor and a constant speed per mode.
type StraightLine struct {
	carKMH  float64
	footKMH float64
	detour  float64
	factors Factors
}

// NewStraightLine returns a StraightLine router. Zero speeds default to 30 km/h
// by car and 5 km/h on foot; a detour below 1 is treated as 1.
func NewStraightLine(carKMH, footKMH, detour float64, f Factors) *StraightLine {
	if carKMH <= 0 {
		carKMH = 30
	}
	if footKMH <= 0 {
		footKMH = 5
	}
	if detour < 1 {
		detour = 1
	}
	return &StraightLine{carKMH: carKMH, footKMH: footKMH, detour: detour, factors: f}
}

func (s *StraightLine) Route(ctx context.Context, from, to geo.Position, mode Mode, at simclock.Time) (route.Track, error) {
	if err := ctx.Err(); err != nil {
		return route.Track{}, err
	}
	dist := geo.DistanceKM(from, to) * s.detour
	if math.IsNaN(dist) || math.IsInf(dist, 0) {
		return route.Track{}, fmt.Errorf("%w: %s -> %s", ErrNoRoute, from, to)
	}
	speed := s.carKMH
	if mode == ModeFoot {
		speed = s.footKMH
	}
	hours := dist / speed * s.factors.For(mode)
	ms := math.Round(hours * float64(time.Hour.Milliseconds()))
	d := time.Duration(ms) * time.Millisecond
	return route.NewTrack(from, to, at, d, dist), nil
}

// Counting wraps a router and counts calls and failures.
type Counting struct {
	next   Router
	calls  atomic.Int64
	failed atomic.Int64
}

// NewCounting wraps next.
func NewCounting(next Router) *Counting { return &Counting{next: next} }

func (c *Counting) Route(ctx context.Context, from, to geo.Position, mode Mode, at simclock.Time) (route.Track, error) {
	c.calls.Add(1)
	t, err := c.next.Route(ctx, from, to, mode, at)
	if err != nil {
		c.failed.Add(1)
	}
	return t, err
}

func (c *Counting) Calls() int64  { return c.calls.Load() }
func (c *Counting) Failed() int64 { return c.failed.Load() }

// Duration is a convenience returning only the travel time.
func Duration(ctx context.Context, r Router, from, to geo.Position, mode Mode) (time.Duration, error) {
	t, err := r.Route(ctx, from, to, mode, 0)
	if err != nil {
		return 0, err
	}
	return t.Duration, nil
}
