package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coremetrics "github.com/kilianp07/ridepool/core/metrics"
)

func TestPromSink_RecordTripOutcome(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink, err := NewPromSinkWithRegistry(reg)
	require.NoError(t, err)

	require.NoError(t, sink.RecordTripOutcome(coremetrics.TripOutcome{
		RequestID: 1, Status: "COMPLETED", Shared: true,
		Wait: 90 * time.Second, Ride: 12 * time.Minute, Direct: 10 * time.Minute,
	}))
	require.NoError(t, sink.RecordTripOutcome(coremetrics.TripOutcome{RequestID: 2, Status: "FAILED"}))

	expected := `
# HELP trips_total Requests that reached a terminal state
# TYPE trips_total counter
trips_total{shared="false",status="FAILED"} 1
trips_total{shared="true",status="COMPLETED"} 1
`
	assert.NoError(t, testutil.CollectAndCompare(sink.trips, strings.NewReader(expected)))
	assert.Equal(t, 1, testutil.CollectAndCount(sink.wait))
	assert.Equal(t, 1, testutil.CollectAndCount(sink.detour))
}

func TestPromSink_Gauges(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink, err := NewPromSinkWithRegistry(reg)
	require.NoError(t, err)

	require.NoError(t, sink.RecordFleetSize(42))
	assert.Equal(t, 42.0, testutil.ToFloat64(sink.fleet))

	require.NoError(t, sink.RecordVehicleState(coremetrics.VehicleStateEvent{VehicleID: "v1", Status: "IN_SERVICE", Passengers: 2}))
	require.NoError(t, sink.RecordVehicleState(coremetrics.VehicleStateEvent{VehicleID: "v1", Status: "IDLE"}))
	assert.Equal(t, 1, testutil.CollectAndCount(sink.passengers))
	assert.Equal(t, 0.0, testutil.ToFloat64(sink.passengers.WithLabelValues("v1", "IDLE")))

	require.NoError(t, sink.RecordEnergy(coremetrics.EnergyEvent{VehicleID: "v1", KWh: 0.5}))
	require.NoError(t, sink.RecordEnergy(coremetrics.EnergyEvent{VehicleID: "v1", KWh: 0.25}))
	assert.InDelta(t, 0.75, testutil.ToFloat64(sink.energy.WithLabelValues("v1")), 1e-9)
}

func TestPromSink_ReusesRegisteredCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := NewPromSinkWithRegistry(reg)
	require.NoError(t, err)
	second, err := NewPromSinkWithRegistry(reg)
	require.NoError(t, err)
	assert.Same(t, first.trips, second.trips)
}
