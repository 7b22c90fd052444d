package metrics

import (
	"errors"
	"strconv"

	coremetrics "github.com/kilianp07/ridepool/core/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

// PromSink records simulation outcomes in Prometheus metrics.
type PromSink struct {
	trips      *prometheus.CounterVec
	wait       prometheus.Histogram
	ride       prometheus.Histogram
	detour     prometheus.Histogram
	batch      prometheus.Histogram
	passengers *prometheus.GaugeVec
	energy     *prometheus.CounterVec
	fleet      prometheus.Gauge
}

// NewPromSink registers the metrics on the default Prometheus registerer.
// The HTTP endpoint is started separately with StartPromServer.
func NewPromSink() (*PromSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer. Collectors
// already registered by an earlier sink are reused.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PromSink{}
	var err error
	if s.trips, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "trips_total",
		Help: "Requests that reached a terminal state",
	}, []string{"status", "shared"})); err != nil {
		return nil, err
	}
	if s.wait, err = register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "trip_wait_seconds",
		Help:    "Simulated time between requested start and pickup",
		Buckets: prometheus.LinearBuckets(0, 60, 16),
	})); err != nil {
		return nil, err
	}
	if s.ride, err = register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "trip_ride_seconds",
		Help:    "Simulated time between pickup and dropoff",
		Buckets: prometheus.ExponentialBuckets(60, 1.5, 12),
	})); err != nil {
		return nil, err
	}
	if s.detour, err = register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "trip_detour_ratio",
		Help:    "Ride time divided by the direct travel time",
		Buckets: prometheus.LinearBuckets(1, 0.1, 11),
	})); err != nil {
		return nil, err
	}
	if s.batch, err = register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "dispatch_batch_size",
		Help:    "Requests handled per dispatch cycle",
		Buckets: prometheus.ExponentialBuckets(1, 2, 10),
	})); err != nil {
		return nil, err
	}
	if s.passengers, err = register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "vehicle_passengers",
		Help: "Passengers on board at the last snapshot",
	}, []string{"vehicle_id", "status"})); err != nil {
		return nil, err
	}
	if s.energy, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "vehicle_energy_kwh_total",
		Help: "Energy consumed by driving",
	}, []string{"vehicle_id"})); err != nil {
		return nil, err
	}
	if s.fleet, err = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "fleet_vehicles_total",
		Help: "Number of vehicles in the simulated fleet",
	})); err != nil {
		return nil, err
	}
	return s, nil
}

// register returns the collector already registered under the same
// descriptor when there is one.
func register[T prometheus.Collector](reg prometheus.Registerer, c T) (T, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing, nil
			}
		}
		var zero T
		return zero, err
	}
	return c, nil
}

// RecordTripOutcome counts the outcome and observes times of served trips.
func (s *PromSink) RecordTripOutcome(ev coremetrics.TripOutcome) error {
	s.trips.WithLabelValues(ev.Status, strconv.FormatBool(ev.Shared)).Inc()
	if ev.Status != "COMPLETED" {
		return nil
	}
	s.wait.Observe(ev.Wait.Seconds())
	s.ride.Observe(ev.Ride.Seconds())
	if ev.Direct > 0 {
		s.detour.Observe(ev.Ride.Seconds() / ev.Direct.Seconds())
	}
	return nil
}

// RecordFlush observes the batch size of a dispatch cycle.
func (s *PromSink) RecordFlush(ev coremetrics.FlushEvent) error {
	s.batch.Observe(float64(ev.Buffered))
	return nil
}

// RecordVehicleState sets the passenger gauge of the vehicle.
func (s *PromSink) RecordVehicleState(ev coremetrics.VehicleStateEvent) error {
	s.passengers.DeletePartialMatch(prometheus.Labels{"vehicle_id": ev.VehicleID})
	s.passengers.WithLabelValues(ev.VehicleID, ev.Status).Set(float64(ev.Passengers))
	return nil
}

// RecordEnergy adds the consumption of a leg.
func (s *PromSink) RecordEnergy(ev coremetrics.EnergyEvent) error {
	s.energy.WithLabelValues(ev.VehicleID).Add(ev.KWh)
	return nil
}

// RecordFleetSize sets the gauge to the number of vehicles.
func (s *PromSink) RecordFleetSize(size int) error {
	s.fleet.Set(float64(size))
	return nil
}
