package fleet

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/kilianp07/ridepool/core/geo"
	"github.com/kilianp07/ridepool/core/route"
	"github.com/kilianp07/ridepool/core/sim"
	"github.com/kilianp07/ridepool/core/simclock"
	"github.com/kilianp07/ridepool/core/trip"
)

// ErrOnboard is returned when releasing a vehicle that still carries passengers.
var ErrOnboard = errors.New("fleet: vehicle has passengers on board")

// Status of a vehicle.
type Status int

const (
	StatusIdle Status = iota
	StatusInService
	StatusRelocating
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "IDLE"
	case StatusInService:
		return "IN_SERVICE"
	case StatusRelocating:
		return "RELOCATING"
	default:
		return "UNKNOWN"
	}
}

func statusFor(k route.Kind) Status {
	if k == route.KindEnrouteRelocation || k == route.KindRelocationArrived {
		return StatusRelocating
	}
	return StatusInService
}

// Vehicle is one fleet member. The commit lock serialises solve-and-commit
// sequences; the state lock guards the fields below it and is only held for
// short reads and mutations.
type Vehicle struct {
	ID       string
	Capacity int
	// Home is the depot used by the rebalancer.
	Home geo.Position

	env    *Env
	commit sync.Mutex

	mu         sync.RWMutex
	status     Status
	position   geo.Position
	syncedPos  geo.Position
	syncedAt   simclock.Time
	current    route.Leg
	active     *route.Route
	next       *sim.Event
	committed  map[int64]*trip.Request
	onboard    map[int64]*trip.Request
	passengers int
	history    *route.Route
	idleSince  simclock.Time
	stats      Stats
}

// NewVehicle returns an idle vehicle standing at pos.
func NewVehicle(id string, capacity int, pos geo.Position, env *Env) *Vehicle {
	now := env.Clock.Now()
	return &Vehicle{
		ID: id, Capacity: capacity, Home: pos, env: env,
		position: pos, syncedPos: pos, syncedAt: now,
		committed: map[int64]*trip.Request{}, onboard: map[int64]*trip.Request{},
		history: route.New(now), idleSince: now,
	}
}

// Exclusive runs fn while holding the commit lock.
func (v *Vehicle) Exclusive(fn func() error) error {
	v.commit.Lock()
	defer v.commit.Unlock()
	return fn()
}

func (v *Vehicle) Status() Status {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.status
}

// Idle reports whether the vehicle has neither a leg nor committed requests.
func (v *Vehicle) Idle() bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.status == StatusIdle && len(v.committed) == 0
}

// VacantSeats is the capacity left by the passengers currently on board.
func (v *Vehicle) VacantSeats() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.Capacity - v.passengers
}

// Passengers is the number of travellers on board.
func (v *Vehicle) Passengers() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.passengers
}

// Committed lists the requests assigned to the vehicle, by id.
func (v *Vehicle) Committed() []*trip.Request {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return sortedRequests(v.committed)
}

// Position returns the position at instant now, interpolated along the
// current leg.
func (v *Vehicle) Position(now simclock.Time) geo.Position {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.positionLocked(now)
}

func (v *Vehicle) positionLocked(now simclock.Time) geo.Position {
	if v.current != nil {
		return v.current.PositionAt(now)
	}
	return v.position
}

// SyncedPosition is the position last published by SyncPosition, as used by
// candidate selection.
func (v *Vehicle) SyncedPosition() (geo.Position, simclock.Time) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.syncedPos, v.syncedAt
}

// SyncPosition refreshes the published position.
func (v *Vehicle) SyncPosition(now simclock.Time) {
	v.mu.Lock()
	v.syncedPos = v.positionLocked(now)
	v.syncedAt = now
	v.mu.Unlock()
}

// History returns a copy of the archived legs not yet drained.
func (v *Vehicle) History() *route.Route {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.history.Copy()
}

// DrainHistory removes and returns the archived legs.
func (v *Vehicle) DrainHistory() (int64, []route.Leg) {
	v.mu.Lock()
	defer v.mu.Unlock()
	id, legs := v.history.ID(), v.history.Legs()
	v.history.Clear()
	return id, legs
}

// Plan returns a copy of the legs still ahead, current leg first.
func (v *Vehicle) Plan() []route.Leg {
	v.mu.RLock()
	defer v.mu.RUnlock()
	var out []route.Leg
	if v.current != nil {
		out = append(out, v.current.Copy())
	}
	if v.active != nil {
		for _, l := range v.active.Legs() {
			out = append(out, l.Copy())
		}
	}
	return out
}

// Stats returns the lifetime counters, counting an ongoing idle period up to now.
func (v *Vehicle) Stats(now simclock.Time) Stats {
	v.mu.RLock()
	defer v.mu.RUnlock()
	s := v.stats
	if v.status == StatusIdle {
		s.addIdle(now.Sub(v.idleSince))
	}
	return s
}

// archiveLocked moves a finished or truncated leg into the vehicle history
// and the history of every passenger on board.
func (v *Vehicle) archiveLocked(l route.Leg) {
	l.SetOccupancy(v.passengers, len(v.onboard))
	v.stats.addLeg(l, v.passengers, v.env.Energy)
	v.history.Append(l, false)
	for _, r := range v.onboard {
		r.AddLeg(l)
	}
	v.position = l.Destination()
}

// Commit assigns req to the vehicle and installs plan. The caller holds the
// commit lock.
func (v *Vehicle) Commit(ctx context.Context, req *trip.Request, plan *route.Route) error {
	if err := req.Assign(v.ID, v.env.Clock.Now(), v.env.Policy); err != nil {
		return err
	}
	v.mu.Lock()
	v.committed[req.ID] = req
	v.mu.Unlock()
	return v.ReplaceItinerary(ctx, plan)
}

// ReplaceItinerary installs plan as the vehicle's itinerary. The caller holds
// the commit lock. A nil plan releases the vehicle: requests waiting for
// pickup are revoked and the vehicle becomes idle. Releasing a vehicle with
// passengers on board fails with ErrOnboard and leaves it unchanged.
func (v *Vehicle) ReplaceItinerary(ctx context.Context, plan *route.Route) error {
	now := v.env.Clock.Now()
	v.mu.Lock()
	if plan == nil && len(v.onboard) > 0 {
		v.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrOnboard, v.ID)
	}

	at := now
	if v.current != nil && v.current.Interruptible() {
		if e, ok := v.current.(*route.Enroute); ok && now > e.Start() {
			v.archiveLocked(e.Truncate(now))
		} else {
			v.position = v.current.PositionAt(now)
		}
		v.current = nil
	} else if v.current != nil {
		// the new plan starts once the stop in progress ends
		at = v.current.End()
	}
	v.archiveLocked(route.NewStationary(route.KindRouteUpdate, at, 0, v.positionLocked(at), 0))

	if plan == nil {
		return v.releaseLocked(ctx, now)
	}
	if v.current != nil {
		// a stop in progress finishes first, its completion event pops the plan
		v.active = plan
		v.mu.Unlock()
		return nil
	}
	v.env.Events.Cancel(v.next)
	v.next = nil
	v.active = plan
	err := v.startNextLocked(now)
	v.mu.Unlock()
	return err
}

// releaseLocked unlocks v.mu.
func (v *Vehicle) releaseLocked(ctx context.Context, now simclock.Time) error {
	var revoked []*trip.Request
	if v.current == nil {
		v.env.Events.Cancel(v.next)
		v.next = nil
		revoked = sortedRequests(v.committed)
		v.committed = map[int64]*trip.Request{}
		v.active = nil
		v.becomeIdleLocked(now)
	} else {
		// keep the request whose stop is in progress
		keep := v.current.RequestID()
		for id, r := range v.committed {
			if id != keep {
				revoked = append(revoked, r)
				delete(v.committed, id)
			}
		}
		v.active = nil
	}
	v.mu.Unlock()

	for _, r := range revoked {
		if err := r.Revoke(); err != nil {
			v.env.Log.Warnf("vehicle %s: revoke %d: %v", v.ID, r.ID, err)
			continue
		}
		if v.env.Revoked != nil {
			v.env.Revoked(ctx, r)
		}
	}
	v.notifyIdle(ctx)
	return nil
}

// startNextLocked pops the next leg of the active plan and schedules its
// completion, or turns the vehicle idle.
func (v *Vehicle) startNextLocked(now simclock.Time) error {
	if v.active == nil || v.active.Empty() {
		v.active = nil
		v.current = nil
		v.becomeIdleLocked(now)
		return nil
	}
	leg := v.active.PopFirst()
	if leg.Start() < now {
		v.env.Log.Errorf("vehicle %s: leg %s starts at %s before now %s", v.ID, leg.Kind(), leg.Start(), now)
	}
	if v.status == StatusIdle {
		v.stats.addIdle(now.Sub(v.idleSince))
	}
	v.current = leg
	v.status = statusFor(leg.Kind())
	e, err := v.env.Events.At(simclock.Max(leg.End(), now), sim.KindVehicleActivity, "vehicle "+v.ID, v.Advance)
	if err != nil {
		return fmt.Errorf("vehicle %s: schedule: %w", v.ID, err)
	}
	v.next = e
	return nil
}

func (v *Vehicle) becomeIdleLocked(now simclock.Time) {
	if v.status != StatusIdle {
		v.idleSince = now
	}
	v.status = StatusIdle
}

func (v *Vehicle) notifyIdle(ctx context.Context) {
	if v.env.Rebalancer == nil {
		return
	}
	if v.Idle() {
		v.env.Rebalancer.Idle(ctx, v)
	}
}

// Advance completes the current leg. It is the action of the vehicle's
// activity event.
func (v *Vehicle) Advance(ctx context.Context) error {
	v.commit.Lock()
	defer v.commit.Unlock()
	now := v.env.Clock.Now()

	v.mu.Lock()
	leg := v.current
	if leg == nil {
		v.mu.Unlock()
		return nil
	}
	v.next = nil
	var done *trip.Request
	switch leg.Kind() {
	case route.KindPickup:
		v.archiveLocked(leg)
		v.pickupLocked(leg)
	case route.KindDropoff:
		done = v.dropoffLocked(leg, now)
		v.archiveLocked(leg)
	default:
		v.archiveLocked(leg)
	}
	v.current = nil
	err := v.startNextLocked(now)
	idle := v.status == StatusIdle
	v.mu.Unlock()

	if done != nil {
		if cerr := done.Complete(now); cerr != nil {
			v.env.Log.Errorf("vehicle %s: complete %d: %v", v.ID, done.ID, cerr)
		} else if v.env.Finisher != nil {
			v.env.Finisher.Finish(ctx, done)
		}
	}
	if idle {
		v.notifyIdle(ctx)
	}
	return err
}

func (v *Vehicle) pickupLocked(leg route.Leg) {
	r, ok := v.committed[leg.RequestID()]
	if !ok {
		v.env.Log.Errorf("vehicle %s: pickup of unknown request %d", v.ID, leg.RequestID())
		return
	}
	if err := r.Pickup(leg.Start(), leg.End(), v.env.Policy); err != nil {
		v.env.Log.Errorf("vehicle %s: pickup %d: %v", v.ID, r.ID, err)
		return
	}
	r.AddLeg(leg)
	v.onboard[r.ID] = r
	v.passengers += r.Persons()
	if v.passengers > v.Capacity {
		v.stats.CapacityViolations++
		v.env.Log.Errorf("vehicle %s: %d passengers exceed capacity %d", v.ID, v.passengers, v.Capacity)
	}
	if len(v.onboard) > 1 {
		for _, o := range v.onboard {
			o.MarkShared()
		}
	}
	if v.passengers > v.stats.MaxPassengers {
		v.stats.MaxPassengers = v.passengers
	}
	if len(v.onboard) > v.stats.MaxRequests {
		v.stats.MaxRequests = len(v.onboard)
	}
}

// dropoffLocked unloads the request served by leg. Its history receives the
// dropoff leg before it leaves the vehicle.
func (v *Vehicle) dropoffLocked(leg route.Leg, now simclock.Time) *trip.Request {
	r, ok := v.onboard[leg.RequestID()]
	if !ok {
		v.env.Log.Errorf("vehicle %s: dropoff of request %d not on board", v.ID, leg.RequestID())
		return nil
	}
	if err := r.Dropoff(leg.Start()); err != nil {
		v.env.Log.Errorf("vehicle %s: dropoff %d: %v", v.ID, r.ID, err)
	}
	r.AddLeg(leg)
	delete(v.onboard, r.ID)
	delete(v.committed, r.ID)
	v.passengers -= r.Persons()
	v.stats.ServedRequests++
	v.stats.ServedPassengers += r.Persons()
	return r
}

func sortedRequests(m map[int64]*trip.Request) []*trip.Request {
	out := make([]*trip.Request, 0, len(m))
	for _, r := range m {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
