package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coremetrics "github.com/kilianp07/ridepool/core/metrics"
	"github.com/kilianp07/ridepool/core/metrics/eco"
)

func TestEcoSink_RecordEnergy(t *testing.T) {
	reg := prometheus.NewRegistry()
	store := eco.NewMemoryStore()
	sink, err := NewEcoSink(store, 100, reg)
	require.NoError(t, err)

	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	require.NoError(t, sink.RecordEnergy(coremetrics.EnergyEvent{VehicleID: "v1", KM: 2, KWh: 0.4, Passengers: 0, Time: now}))
	require.NoError(t, sink.RecordEnergy(coremetrics.EnergyEvent{VehicleID: "v1", KM: 3, KWh: 0.6, Passengers: 2, Time: now.Add(time.Hour)}))

	recs, err := store.Query("v1", now, now)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.InDelta(t, 6.0, recs[0].PassengerKM, 1e-9)

	assert.InDelta(t, 5.0, testutil.ToFloat64(sink.km.WithLabelValues("v1", "2024-03-01")), 1e-9)
	assert.InDelta(t, 1.0, testutil.ToFloat64(sink.kwh.WithLabelValues("v1", "2024-03-01")), 1e-9)
	assert.InDelta(t, 1.2, testutil.ToFloat64(sink.occupancy.WithLabelValues("v1", "2024-03-01")), 1e-9)
	assert.InDelta(t, 100.0, testutil.ToFloat64(sink.co2.WithLabelValues("v1", "2024-03-01")), 1e-9)
	assert.Same(t, store, sink.Store())
}

func TestFindEcoSink(t *testing.T) {
	sink, err := NewEcoSink(nil, 0, prometheus.NewRegistry())
	require.NoError(t, err)

	found, ok := FindEcoSink(coremetrics.NewMultiSink(coremetrics.NopSink{}, sink))
	require.True(t, ok)
	assert.Same(t, sink, found)

	_, ok = FindEcoSink(coremetrics.NopSink{})
	assert.False(t, ok)
}
