package metrics

import (
	"context"

	"github.com/kilianp07/ridepool/core/events"
	coremetrics "github.com/kilianp07/ridepool/core/metrics"
	"github.com/kilianp07/ridepool/internal/eventbus"
)

// StartEventCollector subscribes to the event bus and records vehicle
// snapshots in sinks that accept them. It stops when the context is canceled.
func StartEventCollector(ctx context.Context, bus eventbus.EventBus, sink coremetrics.MetricsSink) {
	if bus == nil || sink == nil {
		return
	}
	rec, ok := sink.(coremetrics.VehicleStateRecorder)
	if !ok {
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
				if e, ok := ev.(events.VehicleStatus); ok {
					s := e.Snapshot
					_ = rec.RecordVehicleState(coremetrics.VehicleStateEvent{
						VehicleID:  s.ID,
						Status:     s.Status,
						Passengers: s.Passengers,
						Committed:  s.Requests,
						Lon:        s.Position.Lon,
						Lat:        s.Position.Lat,
						Component:  "status",
						Time:       s.At.UTC(),
					})
				}
			}
		}
	}()
}
