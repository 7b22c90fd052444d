// Package route models itineraries: ordered, time-contiguous sequences of
// stationary and moving legs followed by a vehicle or a passenger.
package route

import (
	"fmt"
	"sort"
	"sync/atomic"
	"time"

	"github.com/kilianp07/ridepool/core/geo"
	"github.com/kilianp07/ridepool/core/simclock"
)

var lastRouteID atomic.Int64

// Route is an ordered collection of legs with running totals. Legs are kept
// sorted by (start, end, seq) where seq is assigned on append.
type Route struct {
	id         int64
	start      simclock.Time
	legs       []Leg
	nextSeq    int64
	distanceKM float64
	duration   time.Duration
}

// New returns an empty route anchored at start.
func New(start simclock.Time) *Route {
	return &Route{id: lastRouteID.Add(1), start: start}
}

func (r *Route) ID() int64               { return r.id }
func (r *Route) Len() int                { return len(r.legs) }
func (r *Route) Empty() bool             { return len(r.legs) == 0 }
func (r *Route) DistanceKM() float64     { return r.distanceKM }
func (r *Route) Duration() time.Duration { return r.duration }
func (r *Route) Start() simclock.Time    { return r.start }
func (r *Route) Legs() []Leg             { return append([]Leg(nil), r.legs...) }
func (r *Route) Leg(i int) Leg           { return r.legs[i] }

// End is the end of the last leg, or the anchor of an empty route.
func (r *Route) End() simclock.Time {
	if len(r.legs) == 0 {
		return r.start
	}
	return r.legs[len(r.legs)-1].End()
}

func (r *Route) First() Leg {
	if len(r.legs) == 0 {
		return nil
	}
	return r.legs[0]
}

func (r *Route) Last() Leg {
	if len(r.legs) == 0 {
		return nil
	}
	return r.legs[len(r.legs)-1]
}

func (r *Route) Origin() geo.Position {
	if l := r.First(); l != nil {
		return l.Origin()
	}
	return geo.Position{}
}

func (r *Route) Destination() geo.Position {
	if l := r.Last(); l != nil {
		return l.Destination()
	}
	return geo.Position{}
}

func less(a, b Leg) bool {
	if a.Start() != b.Start() {
		return a.Start() < b.Start()
	}
	if a.End() != b.End() {
		return a.End() < b.End()
	}
	return a.Seq() < b.Seq()
}

// Append adds l to the route. With retime the leg is moved to start at the
// current end of the route so the itinerary stays contiguous.
func (r *Route) Append(l Leg, retime bool) {
	if retime {
		l.setStart(r.End())
	}
	r.nextSeq++
	l.setSeq(r.nextSeq)
	i := sort.Search(len(r.legs), func(i int) bool { return less(l, r.legs[i]) })
	r.legs = append(r.legs, nil)
	copy(r.legs[i+1:], r.legs[i:])
	r.legs[i] = l
	r.distanceKM += l.DistanceKM()
	r.duration += l.Duration()
}

// Remove deletes l and reports whether it was part of the route.
func (r *Route) Remove(l Leg) bool {
	for i, cur := range r.legs {
		if cur == l {
			r.removeAt(i)
			return true
		}
	}
	return false
}

// PopFirst removes and returns the earliest leg.
func (r *Route) PopFirst() Leg {
	if len(r.legs) == 0 {
		return nil
	}
	l := r.legs[0]
	r.removeAt(0)
	return l
}

func (r *Route) removeAt(i int) {
	l := r.legs[i]
	r.legs = append(r.legs[:i], r.legs[i+1:]...)
	r.distanceKM -= l.DistanceKM()
	r.duration -= l.Duration()
	if len(r.legs) == 0 {
		r.distanceKM = 0
		r.duration = 0
	}
}

// Clear drops every leg and re-anchors the route at its former end.
func (r *Route) Clear() {
	r.start = r.End()
	r.legs = nil
	r.distanceKM = 0
	r.duration = 0
}

// PositionAt returns the position at t using the leg that started last at or
// before t.
func (r *Route) PositionAt(t simclock.Time) geo.Position {
	if len(r.legs) == 0 {
		return geo.Position{}
	}
	i := sort.Search(len(r.legs), func(i int) bool { return r.legs[i].Start() > t })
	if i == 0 {
		return r.legs[0].Origin()
	}
	return r.legs[i-1].PositionAt(t)
}

// RemainingKM is the distance still to drive on the route from instant t.
func (r *Route) RemainingKM(t simclock.Time) float64 {
	sum := 0.0
	for _, l := range r.legs {
		sum += l.RemainingKM(t)
	}
	return sum
}

// RequestIDs lists the requests served by the stops in itinerary order,
// each once.
func (r *Route) RequestIDs() []int64 {
	seen := map[int64]bool{}
	var ids []int64
	for _, l := range r.legs {
		id := l.RequestID()
		if id == 0 || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	return ids
}

// Copy returns a deep copy with the same id.
func (r *Route) Copy() *Route {
	c := &Route{id: r.id, start: r.start, nextSeq: r.nextSeq, distanceKM: r.distanceKM, duration: r.duration}
	c.legs = make([]Leg, len(r.legs))
	for i, l := range r.legs {
		cp := l.Copy()
		cp.setSeq(l.Seq())
		c.legs[i] = cp
	}
	return c
}

// Path lists the positions visited, following track points of moving legs.
func (r *Route) Path() []geo.Position {
	var out []geo.Position
	add := func(p geo.Position) {
		if n := len(out); n > 0 && out[n-1] == p {
			return
		}
		out = append(out, p)
	}
	for _, l := range r.legs {
		if e, ok := l.(*Enroute); ok {
			for _, p := range e.track.Points {
				add(p.Pos)
			}
			continue
		}
		add(l.Origin())
	}
	return out
}

// WKT renders the route path as a WKT geometry.
func (r *Route) WKT() string { return geo.LineWKT(r.Path()) }

// CheckContiguous verifies that each leg starts where the previous one ended
// and that the cached totals match the legs.
func (r *Route) CheckContiguous() error {
	var dist float64
	var dur time.Duration
	for i, l := range r.legs {
		if i > 0 && r.legs[i-1].End() != l.Start() {
			return fmt.Errorf("route %d: leg %d starts at %s, previous ended at %s", r.id, i, l.Start(), r.legs[i-1].End())
		}
		dist += l.DistanceKM()
		dur += l.Duration()
	}
	if dur != r.duration {
		return fmt.Errorf("route %d: duration %s, legs sum to %s", r.id, r.duration, dur)
	}
	if d := dist - r.distanceKM; d > 1e-9 || d < -1e-9 {
		return fmt.Errorf("route %d: distance %.6f, legs sum to %.6f", r.id, r.distanceKM, dist)
	}
	return nil
}
