package vehiclestatus

import (
	"context"

	"github.com/kilianp07/ridepool/core/events"
	"github.com/kilianp07/ridepool/internal/eventbus"
)

// Follow keeps store up to date from bus events until ctx is done or the
// bus is closed.
func Follow(ctx context.Context, bus eventbus.EventBus, store Store) {
	if bus == nil || store == nil {
		return
	}
	sub := bus.Subscribe()
	go func() {
		defer bus.Unsubscribe(sub)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-sub:
				if !ok {
					return
				}
				Apply(store, ev)
			}
		}
	}()
}

// Apply updates store with a single event. Unknown events are ignored.
func Apply(store Store, ev eventbus.Event) {
	switch e := ev.(type) {
	case events.VehicleStatus:
		s := e.Snapshot
		store.Set(Status{
			VehicleID:     s.ID,
			CurrentStatus: s.Status,
			Position:      s.Position,
			Capacity:      s.Capacity,
			Passengers:    s.Passengers,
			Requests:      s.Requests,
			Leg:           s.Leg,
			UpdatedAt:     s.At,
		})
	case events.Assignment:
		store.RecordAssignment(e.VehicleID, LastAssignment{
			RequestID: e.RequestID,
			Policy:    e.Policy,
			Rank:      e.Rank,
			Timestamp: e.At,
		})
	}
}
