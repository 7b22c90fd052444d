// Package sim is the discrete-event kernel: a time-ordered event queue driving
// a logical clock.
package sim

import (
	"context"
	"fmt"

	"github.com/kilianp07/ridepool/core/simclock"
)

// Kind classifies events. At equal times events run in Kind order.
type Kind int

const (
	KindVehicleActivity Kind = iota
	KindUserRequest
	KindRebalance
	KindFlush
	KindStatus
	KindRouteHistory
	numKinds
)

func (k Kind) String() string {
	switch k {
	case KindVehicleActivity:
		return "vehicle_activity"
	case KindUserRequest:
		return "user_request"
	case KindRebalance:
		return "rebalance"
	case KindFlush:
		return "flush"
	case KindStatus:
		return "status"
	case KindRouteHistory:
		return "route_history"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Action is the body of an event. A returned error aborts the run.
type Action func(ctx context.Context) error

// Event is a scheduled action. An event is owned by whoever scheduled it and
// only the owner cancels it.
type Event struct {
	At     simclock.Time
	Kind   Kind
	Name   string
	Action Action

	seq   uint64
	index int
}

// NewEvent returns an unscheduled event.
func NewEvent(at simclock.Time, kind Kind, name string, action Action) *Event {
	return &Event{At: at, Kind: kind, Name: name, Action: action, index: -1}
}

func (e *Event) String() string {
	return fmt.Sprintf("%s %q at %s", e.Kind, e.Name, e.At)
}

// Less is the total event order: time, then kind priority, then scheduling
// sequence.
func Less(a, b *Event) bool {
	if a.At != b.At {
		return a.At < b.At
	}
	if a.Kind != b.Kind {
		return a.Kind < b.Kind
	}
	return a.seq < b.seq
}

type eventHeap []*Event

func (h eventHeap) Len() int           { return len(h) }
func (h eventHeap) Less(i, j int) bool { return Less(h[i], h[j]) }
func (h eventHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *eventHeap) Push(x any) {
	e := x.(*Event)
	e.index = len(*h)
	*h = append(*h, e)
}

func (h *eventHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	e.index = -1
	*h = old[:n-1]
	return e
}
