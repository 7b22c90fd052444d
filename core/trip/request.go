// Package trip models travel requests and the users issuing them.
package trip

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/kilianp07/ridepool/core/geo"
	"github.com/kilianp07/ridepool/core/records"
	"github.com/kilianp07/ridepool/core/route"
	"github.com/kilianp07/ridepool/core/simclock"
)

// ErrTerminal is returned when a terminal request is transitioned again.
var ErrTerminal = errors.New("trip: request already terminal")

// Status of a request. Transitions only go from Open to a terminal state.
type Status int

const (
	StatusOpen Status = iota
	StatusCompleted
	StatusFailed
	StatusFailedUserBusy
)

func (s Status) String() string {
	switch s {
	case StatusOpen:
		return "OPEN"
	case StatusCompleted:
		return "COMPLETED"
	case StatusFailed:
		return "FAILED"
	case StatusFailedUserBusy:
		return "FAILED_USER_BUSY"
	default:
		return "UNKNOWN"
	}
}

// Terminal reports whether s is final.
func (s Status) Terminal() bool { return s != StatusOpen }

// Finisher receives requests that reached a terminal state.
type Finisher interface {
	Finish(ctx context.Context, r *Request)
}

// FinisherFunc adapts a function to Finisher.
type FinisherFunc func(ctx context.Context, r *Request)

func (f FinisherFunc) Finish(ctx context.Context, r *Request) { f(ctx, r) }

// Request is one passenger trip. Identity and demand fields are fixed at load
// time; the lifecycle state is guarded by an internal mutex.
type Request struct {
	ID              int64
	User            *User
	RequestedStart  simclock.Time
	RequestedEnd    simclock.Time
	Origin          geo.Position
	Destination     geo.Position
	ExtraPassengers int
	// DirectDuration is the unshared car travel time, zero until known.
	DirectDuration time.Duration

	mu              sync.Mutex
	status          Status
	vehicleID       string
	pickupDeadline  simclock.Time
	dropoffDeadline simclock.Time
	assigned        simclock.Time
	pickedUp        simclock.Time
	departed        simclock.Time
	droppedOff      simclock.Time
	completed       simclock.Time
	history         *route.Route
	shared          bool
	revocations     int
}

// State is a consistent copy of the lifecycle fields.
type State struct {
	Status          Status
	VehicleID       string
	PickupDeadline  simclock.Time
	DropoffDeadline simclock.Time
	Assigned        simclock.Time
	PickedUp        simclock.Time
	Departed        simclock.Time
	DroppedOff      simclock.Time
	Completed       simclock.Time
	Shared          bool
	Revocations     int
}

// Persons counts the requester plus companions.
func (r *Request) Persons() int { return 1 + r.ExtraPassengers }

func (r *Request) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stateLocked()
}

func (r *Request) stateLocked() State {
	return State{
		Status: r.status, VehicleID: r.vehicleID,
		PickupDeadline: r.pickupDeadline, DropoffDeadline: r.dropoffDeadline,
		Assigned: r.assigned, PickedUp: r.pickedUp, Departed: r.departed,
		DroppedOff: r.droppedOff, Completed: r.completed,
		Shared: r.shared, Revocations: r.revocations,
	}
}

func (r *Request) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

// OnBoard reports whether the traveller has been picked up and not dropped off.
func (r *Request) OnBoard() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return !r.pickedUp.IsZero() && r.droppedOff.IsZero()
}

func (r *Request) String() string {
	return fmt.Sprintf("request %d (user %s)", r.ID, r.userID())
}

func (r *Request) userID() string {
	if r.User == nil {
		return ""
	}
	return r.User.ID
}

// Assign commits the request to vehicleID at now. The pickup deadline is set
// from the requested start and never moves later once set.
func (r *Request) Assign(vehicleID string, now simclock.Time, p Policy) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.status.Terminal() {
		return ErrTerminal
	}
	r.vehicleID = vehicleID
	r.assigned = now
	if d := p.PickupDeadline(r.RequestedStart); r.pickupDeadline.IsZero() || d < r.pickupDeadline {
		r.pickupDeadline = d
	}
	if r.User != nil {
		r.User.set(UserWaitingForPickup)
	}
	return nil
}

// Revoke undoes an assignment that was abandoned before pickup.
func (r *Request) Revoke() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.status.Terminal() {
		return ErrTerminal
	}
	if !r.pickedUp.IsZero() {
		return fmt.Errorf("trip: revoke %d after pickup", r.ID)
	}
	r.vehicleID = ""
	r.assigned = 0
	r.pickupDeadline = 0
	r.revocations++
	if r.User != nil {
		r.User.set(UserWaitingForPickup)
	}
	return nil
}

// Pickup records the boarding leg: the traveller boarded at pickedUp and the
// vehicle left at departed. The dropoff deadline is fixed here.
func (r *Request) Pickup(pickedUp, departed simclock.Time, p Policy) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.status.Terminal() {
		return ErrTerminal
	}
	r.pickedUp = pickedUp
	r.departed = departed
	if d := p.DropoffDeadline(r.RequestedStart, departed, r.DirectDuration); d > r.dropoffDeadline {
		r.dropoffDeadline = d
	}
	r.history = route.New(pickedUp)
	if r.User != nil {
		r.User.set(UserInTransit)
	}
	return nil
}

// Dropoff records the arrival at the destination.
func (r *Request) Dropoff(at simclock.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.status.Terminal() {
		return ErrTerminal
	}
	r.droppedOff = at
	return nil
}

// Complete terminates a delivered request and frees the user.
func (r *Request) Complete(now simclock.Time) error {
	if err := r.finish(StatusCompleted, now); err != nil {
		return err
	}
	if r.User != nil {
		r.User.Release(r.Destination)
	}
	return nil
}

// Fail terminates a request that could not be served and frees the user.
func (r *Request) Fail(now simclock.Time) error {
	if err := r.finish(StatusFailed, now); err != nil {
		return err
	}
	if r.User != nil {
		r.User.Release(geo.Position{})
	}
	return nil
}

// FailUserBusy terminates a request whose user was already travelling. The
// user keeps its current trip.
func (r *Request) FailUserBusy(now simclock.Time) error {
	return r.finish(StatusFailedUserBusy, now)
}

func (r *Request) finish(s Status, now simclock.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.status.Terminal() {
		return ErrTerminal
	}
	r.status = s
	r.completed = now
	return nil
}

// MarkShared flags the trip as having shared the vehicle with another one.
func (r *Request) MarkShared() {
	r.mu.Lock()
	r.shared = true
	r.mu.Unlock()
}

// AddLeg archives a copy of l into the per-trip history. Legs before pickup
// are ignored.
func (r *Request) AddLeg(l route.Leg) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.history == nil {
		return
	}
	r.history.Append(l.Copy(), false)
}

// History returns a copy of the legs travelled since pickup.
func (r *Request) History() *route.Route {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.history == nil {
		return nil
	}
	return r.history.Copy()
}

// Clone returns a detached copy for tentative evaluation. The user is
// shared, the history is not.
func (r *Request) Clone() *Request {
	r.mu.Lock()
	defer r.mu.Unlock()
	return &Request{
		ID: r.ID, User: r.User, RequestedStart: r.RequestedStart, RequestedEnd: r.RequestedEnd,
		Origin: r.Origin, Destination: r.Destination, ExtraPassengers: r.ExtraPassengers,
		DirectDuration: r.DirectDuration,
		status:         r.status, vehicleID: r.vehicleID,
		pickupDeadline: r.pickupDeadline, dropoffDeadline: r.dropoffDeadline,
		assigned: r.assigned, pickedUp: r.pickedUp, departed: r.departed,
		droppedOff: r.droppedOff, completed: r.completed,
		shared: r.shared, revocations: r.revocations,
	}
}

// Record renders the request as a trip record.
func (r *Request) Record() records.Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	t := &records.Trip{
		RequestID: r.ID, UserID: r.userID(), VehicleID: r.vehicleID,
		Status: r.status.String(), Persons: r.Persons(),
		RequestedStart: r.RequestedStart, RequestedEnd: r.RequestedEnd,
		Assigned: r.assigned, PickedUp: r.pickedUp, Departed: r.departed,
		DroppedOff: r.droppedOff, Completed: r.completed,
		PickupDeadline: r.pickupDeadline, DropoffDeadline: r.dropoffDeadline,
		Origin: r.Origin, Destination: r.Destination,
		DirectDurationS: r.DirectDuration.Seconds(),
		Shared:          r.shared, Revocations: r.revocations,
	}
	if !r.pickedUp.IsZero() && !r.droppedOff.IsZero() {
		t.DurationS = r.droppedOff.Sub(r.pickedUp).Seconds()
	}
	if r.history != nil {
		t.DistanceKM = r.history.DistanceKM()
		t.RouteWKT = r.history.WKT()
	}
	return records.Record{Kind: records.KindTrip, At: r.completed, Trip: t}
}
