package solver

import (
	"context"
	"fmt"
	"time"

	"github.com/kilianp07/ridepool/core/fleet"
	"github.com/kilianp07/ridepool/core/geo"
	"github.com/kilianp07/ridepool/core/route"
	"github.com/kilianp07/ridepool/core/routing"
	"github.com/kilianp07/ridepool/core/simclock"
	"github.com/kilianp07/ridepool/core/trip"
)

// MinLegKM is the distance under which two consecutive stops count as the
// same place: no drive is planned and the fixed stop delay is not repeated.
const MinLegKM = 0.05

// Insertion tries every position of the new pickup and dropoff in the
// committed stop order and keeps the feasible sequence with the least
// distance.
type Insertion struct {
	router routing.Router
	policy trip.Policy
}

func NewInsertion(r routing.Router, p trip.Policy) *Insertion {
	return &Insertion{router: r, policy: p}
}

func (s *Insertion) Solve(ctx context.Context, st fleet.State, req *trip.Request) (*route.Route, error) {
	n := len(st.Stops)
	pickup := fleet.Stop{Kind: route.KindPickup, Request: req, Position: req.Origin, Latest: s.policy.PickupDeadline(req.RequestedStart)}
	dropoff := fleet.Stop{Kind: route.KindDropoff, Request: req, Position: req.Destination}
	if ps := req.State().PickupDeadline; !ps.IsZero() && ps < pickup.Latest {
		pickup.Latest = ps
	}

	p := &planner{ctx: ctx, router: s.router, policy: s.policy, tracks: map[[2]geo.Position]route.Track{}}
	var best []fleet.Stop
	var bestEval evaluation
	seq := make([]fleet.Stop, 0, n+2)
	for i := 0; i <= n; i++ {
		for j := i; j <= n; j++ {
			seq = seq[:0]
			seq = append(seq, st.Stops[:i]...)
			seq = append(seq, pickup)
			seq = append(seq, st.Stops[i:j]...)
			seq = append(seq, dropoff)
			seq = append(seq, st.Stops[j:]...)
			ev, err := p.evaluate(st, seq)
			if err != nil {
				return nil, err
			}
			if !ev.feasible {
				continue
			}
			if best == nil || ev.km < bestEval.km-1e-9 || (ev.km < bestEval.km+1e-9 && ev.finish < bestEval.finish) {
				best = append([]fleet.Stop(nil), seq...)
				bestEval = ev
			}
		}
	}
	if best == nil {
		return nil, ErrInfeasible
	}
	return p.build(st, best)
}

// planner evaluates stop sequences, caching routed tracks for one Solve call.
type planner struct {
	ctx    context.Context
	router routing.Router
	policy trip.Policy
	tracks map[[2]geo.Position]route.Track
}

type evaluation struct {
	feasible bool
	km       float64
	finish   simclock.Time
}

// track returns the car track between from and to anchored at zero, or
// false when both are the same place.
func (p *planner) track(from, to geo.Position) (route.Track, bool, error) {
	if geo.DistanceKM(from, to) < MinLegKM {
		return route.Track{}, false, nil
	}
	key := [2]geo.Position{from, to}
	if t, ok := p.tracks[key]; ok {
		return t, true, nil
	}
	t, err := p.router.Route(p.ctx, from, to, routing.ModeCar, 0)
	if err != nil {
		return route.Track{}, false, fmt.Errorf("route %s -> %s: %w", from, to, err)
	}
	p.tracks[key] = t
	return t, true, nil
}

// service is the dwell at a stop. The fixed delay is only paid once per
// place.
func (p *planner) service(r *trip.Request, samePlace bool) time.Duration {
	if samePlace {
		return time.Duration(r.Persons()) * p.policy.PerPersonDelay
	}
	return p.policy.ServiceTime(r.Persons())
}

func (p *planner) evaluate(st fleet.State, seq []fleet.Stop) (evaluation, error) {
	t := st.Available
	pos := st.Position
	load := st.Passengers
	km := 0.0
	departed := map[int64]simclock.Time{}
	stopped := false
	for _, s := range seq {
		tr, moves, err := p.track(pos, s.Position)
		if err != nil {
			return evaluation{}, err
		}
		if moves {
			t = t.Add(tr.Duration)
			km += tr.DistanceKM
		}
		arrival := t
		r := s.Request
		dwell := p.service(r, stopped && !moves)
		switch s.Kind {
		case route.KindPickup:
			if !s.Latest.IsZero() && arrival > s.Latest {
				return evaluation{}, nil
			}
			load += r.Persons()
			if load > st.Capacity {
				return evaluation{}, nil
			}
			departed[r.ID] = arrival.Add(dwell)
		case route.KindDropoff:
			latest := s.Latest
			if dep, ok := departed[r.ID]; ok {
				latest = p.policy.DropoffDeadline(r.RequestedStart, dep, r.DirectDuration)
			}
			if !latest.IsZero() && arrival > latest {
				return evaluation{}, nil
			}
			load -= r.Persons()
		}
		t = arrival.Add(dwell)
		pos = s.Position
		stopped = true
	}
	return evaluation{feasible: true, km: km, finish: t}, nil
}

// build turns a feasible sequence into a contiguous route.
func (p *planner) build(st fleet.State, seq []fleet.Stop) (*route.Route, error) {
	plan := route.New(st.Available)
	pos := st.Position
	stopped := false
	for _, s := range seq {
		tr, moves, err := p.track(pos, s.Position)
		if err != nil {
			return nil, err
		}
		if moves {
			plan.Append(route.NewEnroute(route.KindEnroute, tr), true)
		}
		dwell := p.service(s.Request, stopped && !moves)
		plan.Append(route.NewStationary(s.Kind, 0, dwell, s.Position, s.Request.ID), true)
		pos = s.Position
		stopped = true
	}
	return plan, nil
}
