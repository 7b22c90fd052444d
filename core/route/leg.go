package route

import (
	"time"

	"github.com/kilianp07/ridepool/core/geo"
	"github.com/kilianp07/ridepool/core/simclock"
)

// Leg is one contiguous segment of an itinerary. The interface is sealed to
// the Stationary and Enroute variants.
type Leg interface {
	Kind() Kind
	Start() simclock.Time
	End() simclock.Time
	Duration() time.Duration
	DistanceKM() float64
	Origin() geo.Position
	Destination() geo.Position
	PositionAt(t simclock.Time) geo.Position
	// RemainingKM is the distance still to travel on the leg at instant t.
	RemainingKM(t simclock.Time) float64
	Interruptible() bool
	// RequestID is the request served at a stationary stop, zero otherwise.
	RequestID() int64
	// Occupancy is the passenger and request count recorded when the leg was
	// archived.
	Occupancy() (passengers, requests int)
	SetOccupancy(passengers, requests int)
	Seq() int64
	// Copy returns an independent leg with the same timing and payload.
	Copy() Leg

	setStart(simclock.Time)
	setSeq(int64)
}

type base struct {
	kind       Kind
	seq        int64
	passengers int
	requests   int
}

func (b *base) Kind() Kind          { return b.kind }
func (b *base) Seq() int64          { return b.seq }
func (b *base) setSeq(s int64)      { b.seq = s }
func (b *base) Interruptible() bool { return b.kind.Interruptible() }

func (b *base) Occupancy() (int, int) { return b.passengers, b.requests }

func (b *base) SetOccupancy(passengers, requests int) {
	b.passengers = passengers
	b.requests = requests
}

// Stationary is a leg spent at one position: passenger stops and markers.
type Stationary struct {
	base
	start     simclock.Time
	duration  time.Duration
	pos       geo.Position
	requestID int64
}

// NewStationary returns a stationary leg of kind k.
func NewStationary(k Kind, start simclock.Time, d time.Duration, pos geo.Position, requestID int64) *Stationary {
	return &Stationary{base: base{kind: k}, start: start, duration: d, pos: pos, requestID: requestID}
}

func (s *Stationary) Start() simclock.Time                  { return s.start }
func (s *Stationary) End() simclock.Time                    { return s.start.Add(s.duration) }
func (s *Stationary) Duration() time.Duration               { return s.duration }
func (s *Stationary) DistanceKM() float64                   { return 0 }
func (s *Stationary) Origin() geo.Position                  { return s.pos }
func (s *Stationary) Destination() geo.Position             { return s.pos }
func (s *Stationary) PositionAt(simclock.Time) geo.Position { return s.pos }
func (s *Stationary) RemainingKM(simclock.Time) float64     { return 0 }
func (s *Stationary) RequestID() int64                      { return s.requestID }
func (s *Stationary) setStart(t simclock.Time)              { s.start = t }

func (s *Stationary) Copy() Leg {
	c := *s
	return &c
}

// Enroute is a leg travelling along a routed track.
type Enroute struct {
	base
	track Track
}

// NewEnroute wraps a track into a moving leg of kind k.
func NewEnroute(k Kind, t Track) *Enroute {
	return &Enroute{base: base{kind: k}, track: t}
}

func (e *Enroute) Track() Track                            { return e.track }
func (e *Enroute) Start() simclock.Time                    { return e.track.Start() }
func (e *Enroute) End() simclock.Time                      { return e.track.End() }
func (e *Enroute) Duration() time.Duration                 { return e.track.Duration }
func (e *Enroute) DistanceKM() float64                     { return e.track.DistanceKM }
func (e *Enroute) Origin() geo.Position                    { return e.track.Origin() }
func (e *Enroute) Destination() geo.Position               { return e.track.Destination() }
func (e *Enroute) PositionAt(t simclock.Time) geo.Position { return e.track.PositionAt(t) }
func (e *Enroute) RequestID() int64                        { return 0 }
func (e *Enroute) setStart(t simclock.Time)                { e.track = e.track.Shift(t) }

func (e *Enroute) RemainingKM(t simclock.Time) float64 {
	return (1 - e.track.Fraction(t)) * e.track.DistanceKM
}

func (e *Enroute) Copy() Leg {
	c := *e
	c.track = e.track.Shift(e.track.Start())
	return &c
}

// Truncate returns the portion of e driven before at, ending at the
// interpolated position.
func (e *Enroute) Truncate(at simclock.Time) *Enroute {
	return &Enroute{base: base{kind: e.kind, passengers: e.passengers, requests: e.requests}, track: e.track.Until(at)}
}
