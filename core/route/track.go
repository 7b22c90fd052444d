package route

import (
	"sort"
	"time"

	"github.com/kilianp07/ridepool/core/geo"
	"github.com/kilianp07/ridepool/core/simclock"
)

// TrackPoint is one timed position of a track.
type TrackPoint struct {
	At  simclock.Time `json:"at"`
	Pos geo.Position  `json:"pos"`
}

// Track is the time-indexed movement between two positions as returned by a
// router. Points are ordered by time.
type Track struct {
	Points     []TrackPoint  `json:"points"`
	DistanceKM float64       `json:"distance_km"`
	Duration   time.Duration `json:"duration"`
}

// NewTrack builds a two-point track starting at start.
func NewTrack(from, to geo.Position, start simclock.Time, d time.Duration, distanceKM float64) Track {
	return Track{
		Points:     []TrackPoint{{At: start, Pos: from}, {At: start.Add(d), Pos: to}},
		DistanceKM: distanceKM,
		Duration:   d,
	}
}

func (t Track) Start() simclock.Time {
	if len(t.Points) == 0 {
		return 0
	}
	return t.Points[0].At
}

func (t Track) End() simclock.Time { return t.Start().Add(t.Duration) }

func (t Track) Origin() geo.Position {
	if len(t.Points) == 0 {
		return geo.Position{}
	}
	return t.Points[0].Pos
}

func (t Track) Destination() geo.Position {
	if len(t.Points) == 0 {
		return geo.Position{}
	}
	return t.Points[len(t.Points)-1].Pos
}

// Shift returns a copy of t moved so that it starts at start.
func (t Track) Shift(start simclock.Time) Track {
	delta := start - t.Start()
	out := Track{DistanceKM: t.DistanceKM, Duration: t.Duration, Points: make([]TrackPoint, len(t.Points))}
	for i, p := range t.Points {
		out.Points[i] = TrackPoint{At: p.At + delta, Pos: p.Pos}
	}
	return out
}

// PositionAt interpolates the position at instant at between the surrounding
// points. Instants outside the track clamp to its ends.
func (t Track) PositionAt(at simclock.Time) geo.Position {
	n := len(t.Points)
	if n == 0 {
		return geo.Position{}
	}
	if at <= t.Points[0].At {
		return t.Points[0].Pos
	}
	if at >= t.Points[n-1].At {
		return t.Points[n-1].Pos
	}
	i := sort.Search(n, func(i int) bool { return t.Points[i].At > at })
	prev, next := t.Points[i-1], t.Points[i]
	span := float64(next.At - prev.At)
	if span <= 0 {
		return next.Pos
	}
	return geo.Interpolate(prev.Pos, next.Pos, float64(at-prev.At)/span)
}

// Fraction returns the share of the track's duration elapsed at instant at.
func (t Track) Fraction(at simclock.Time) float64 {
	if t.Duration <= 0 {
		if at >= t.Start() {
			return 1
		}
		return 0
	}
	f := float64(at.Sub(t.Start())) / float64(t.Duration)
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}

// Until returns the part of t travelled before at. Distance is prorated by
// elapsed time.
func (t Track) Until(at simclock.Time) Track {
	if at <= t.Start() {
		pos := t.Origin()
		return Track{Points: []TrackPoint{{At: t.Start(), Pos: pos}, {At: t.Start(), Pos: pos}}}
	}
	if at >= t.End() {
		return t.Shift(t.Start())
	}
	out := Track{Duration: at.Sub(t.Start()), DistanceKM: t.DistanceKM * t.Fraction(at)}
	for _, p := range t.Points {
		if p.At >= at {
			break
		}
		out.Points = append(out.Points, p)
	}
	out.Points = append(out.Points, TrackPoint{At: at, Pos: t.PositionAt(at)})
	return out
}
