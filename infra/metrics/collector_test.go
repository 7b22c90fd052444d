package metrics

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/kilianp07/ridepool/core/events"
	"github.com/kilianp07/ridepool/core/fleet"
	"github.com/kilianp07/ridepool/core/geo"
	coremetrics "github.com/kilianp07/ridepool/core/metrics"
	"github.com/kilianp07/ridepool/internal/eventbus"
)

type stateSink struct {
	coremetrics.NopSink
	mu     sync.Mutex
	states []coremetrics.VehicleStateEvent
}

func (s *stateSink) RecordVehicleState(ev coremetrics.VehicleStateEvent) error {
	s.mu.Lock()
	s.states = append(s.states, ev)
	s.mu.Unlock()
	return nil
}

func (s *stateSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.states)
}

func TestStartEventCollector(t *testing.T) {
	bus := eventbus.New()
	defer bus.Close()
	sink := &stateSink{}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	StartEventCollector(ctx, bus, sink)

	bus.Publish(events.Flush{Policy: "greedy"})
	bus.Publish(events.VehicleStatus{Snapshot: fleet.Snapshot{
		ID: "v1", Status: "IDLE", Position: geo.Position{Lon: 11.5, Lat: 48.1}, Requests: 2,
	}})

	assert.Eventually(t, func() bool { return sink.count() == 1 }, time.Second, 10*time.Millisecond)
	sink.mu.Lock()
	defer sink.mu.Unlock()
	assert.Equal(t, "v1", sink.states[0].VehicleID)
	assert.Equal(t, 2, sink.states[0].Committed)
	assert.Equal(t, "status", sink.states[0].Component)
}
