package scenario

import (
	"context"

	"github.com/kilianp07/ridepool/core/events"
	"github.com/kilianp07/ridepool/core/geo"
	"github.com/kilianp07/ridepool/core/metrics"
	"github.com/kilianp07/ridepool/core/records"
	"github.com/kilianp07/ridepool/core/route"
	"github.com/kilianp07/ridepool/core/routing"
	"github.com/kilianp07/ridepool/core/sim"
	"github.com/kilianp07/ridepool/core/simclock"
	"github.com/kilianp07/ridepool/core/trip"
)

// arrive handles a request at its requested start. A busy user fails the
// request at once without searching for a vehicle.
func (s *Scenario) arrive(ctx context.Context, r *trip.Request) error {
	now := s.kernel.Now()
	s.tally.submit(r)
	if !r.User.TryRequest(r.Origin) {
		s.deps.Log.Warnf("user %s is not idle, request %d fails", r.User.ID, r.ID)
		if err := r.FailUserBusy(now); err != nil {
			return err
		}
		s.tally.Finish(ctx, r)
		return nil
	}
	d, err := routing.Duration(ctx, s.router, r.Origin, r.Destination, routing.ModeCar)
	if err != nil {
		s.deps.Log.Warnf("request %d: no direct route: %v", r.ID, err)
		if err := r.Fail(now); err != nil {
			return err
		}
		s.tally.Finish(ctx, r)
		return nil
	}
	r.DirectDuration = d
	s.engine.Submit(r)
	return nil
}

// skipped accounts request arrivals outside the executed window.
func (s *Scenario) skipped(_ context.Context, e *sim.Event) {
	if r, ok := s.arrivals[e]; ok {
		s.tally.skip()
		s.deps.Log.Debugf("request %d outside the simulated window", r.ID)
	}
}

// resubmit hands a request dropped from a released itinerary back to
// dispatch.
func (s *Scenario) resubmit(_ context.Context, r *trip.Request) {
	s.engine.Submit(r)
}

// activity reports whether arrivals or vehicle actions are still queued.
func (s *Scenario) activity() bool {
	return s.kernel.Pending(sim.KindUserRequest, sim.KindVehicleActivity) > 0
}

func (s *Scenario) scheduleRecurring(now simclock.Time) error {
	flushMore := func() bool { return s.activity() || s.engine.Pending() > 0 }
	if _, err := s.kernel.Every(sim.KindFlush, "flush", now.Add(s.cfg.BufferInterval), s.cfg.BufferInterval, flushMore, s.engine.Flush); err != nil {
		return err
	}
	if _, err := s.kernel.Every(sim.KindStatus, "status", now, s.cfg.StatusInterval, s.activity, s.logStatus); err != nil {
		return err
	}
	_, err := s.kernel.Every(sim.KindRouteHistory, "route history", now, s.cfg.RouteHistoryInterval, s.activity, s.flushHistory)
	return err
}

// logStatus snapshots every vehicle and every user on a trip.
func (s *Scenario) logStatus(ctx context.Context) error {
	now := s.kernel.Now()
	for _, snap := range s.fleet.Snapshots(now) {
		s.appendRecord(ctx, records.Record{Kind: records.KindStatus, At: now, Status: &records.Status{
			ObjectType: "vehicle",
			ObjectID:   snap.ID,
			Status:     snap.Status,
			Passengers: snap.Passengers,
			Requests:   snap.Requests,
			Position:   snap.Position,
		}})
		if s.deps.Bus != nil {
			s.deps.Bus.Publish(events.VehicleStatus{Snapshot: snap})
		}
	}
	for _, u := range sortedUsers(s.users) {
		st := u.Status()
		if st == trip.UserIdle {
			continue
		}
		s.appendRecord(ctx, records.Record{Kind: records.KindStatus, At: now, Status: &records.Status{
			ObjectType: "user",
			ObjectID:   u.ID,
			Status:     st.String(),
			Position:   u.Position(),
		}})
	}
	return nil
}

// flushHistory drains the archived legs of every vehicle. Driven legs feed
// the energy recorder; all legs become records when route history logging
// is on.
func (s *Scenario) flushHistory(ctx context.Context) error {
	er, _ := s.deps.Metrics.(metrics.EnergyRecorder)
	for _, v := range s.fleet.All() {
		id, legs := v.DrainHistory()
		for _, l := range legs {
			pax, reqs := l.Occupancy()
			if er != nil && l.Kind().Moving() && l.DistanceKM() > 0 {
				if err := er.RecordEnergy(metrics.EnergyEvent{
					VehicleID:  v.ID,
					KM:         l.DistanceKM(),
					KWh:        s.energy[v.ID].KWh(l.DistanceKM(), pax),
					Passengers: pax,
					Time:       l.End().UTC(),
				}); err != nil {
					s.deps.Log.Warnf("record energy: %v", err)
				}
			}
			if !s.cfg.LogRouteHistory {
				continue
			}
			s.appendRecord(ctx, records.Record{Kind: records.KindLeg, At: l.End(), Leg: &records.Leg{
				RouteID:    id,
				ObjectType: "vehicle",
				ObjectID:   v.ID,
				Begin:      l.Start(),
				End:        l.End(),
				Kind:       l.Kind().String(),
				Passengers: pax,
				Requests:   reqs,
				DurationM:  l.Duration().Minutes(),
				DistanceKM: l.DistanceKM(),
				WKT:        legWKT(l),
			}})
		}
	}
	return nil
}

func (s *Scenario) appendRecord(ctx context.Context, rec records.Record) {
	if err := s.deps.Records.Append(ctx, rec); err != nil {
		s.deps.Log.Errorf("append %s record: %v", rec.Kind, err)
	}
}

func legWKT(l route.Leg) string {
	e, ok := l.(*route.Enroute)
	if !ok {
		return l.Origin().WKT()
	}
	pts := e.Track().Points
	path := make([]geo.Position, 0, len(pts))
	for _, p := range pts {
		path = append(path, p.Pos)
	}
	return geo.LineWKT(path)
}
