package metrics

import (
	"io"

	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/kilianp07/ridepool/core/metrics"
	"github.com/kilianp07/ridepool/core/metrics/eco"
)

// EcoSink turns driven legs into daily energy KPIs.
type EcoSink struct {
	store     eco.Store
	factor    float64
	km        *prometheus.GaugeVec
	kwh       *prometheus.GaugeVec
	occupancy *prometheus.GaugeVec
	co2       *prometheus.GaugeVec
}

// NewEcoSink creates a sink with Prometheus gauges registered on reg.
// factor is the emission factor in grams of CO2 per kWh.
func NewEcoSink(store eco.Store, factor float64, reg prometheus.Registerer) (*EcoSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if store == nil {
		store = eco.NewMemoryStore()
	}
	s := &EcoSink{store: store, factor: factor}
	labels := []string{"vehicle_id", "day"}
	var err error
	if s.km, err = register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "vehicle_daily_driving_km",
		Help: "Daily driven distance per vehicle",
	}, labels)); err != nil {
		return nil, err
	}
	if s.kwh, err = register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "vehicle_daily_energy_kwh",
		Help: "Daily energy consumed per vehicle",
	}, labels)); err != nil {
		return nil, err
	}
	if s.occupancy, err = register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "vehicle_daily_occupancy",
		Help: "Average passengers per driven kilometre",
	}, labels)); err != nil {
		return nil, err
	}
	if s.co2, err = register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "vehicle_daily_co2_grams",
		Help: "Daily CO2 emitted per vehicle",
	}, labels)); err != nil {
		return nil, err
	}
	return s, nil
}

// Close closes the ledger when it is backed by a database.
func (s *EcoSink) Close() error {
	if c, ok := s.store.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Store exposes the ledger backing the sink.
func (s *EcoSink) Store() eco.Store { return s.store }

// Factor returns the emission factor in g/kWh.
func (s *EcoSink) Factor() float64 { return s.factor }

func (s *EcoSink) RecordTripOutcome(coremetrics.TripOutcome) error { return nil }

// RecordEnergy adds the leg to the ledger and refreshes the gauges of its day.
func (s *EcoSink) RecordEnergy(ev coremetrics.EnergyEvent) error {
	rec := eco.Record{
		VehicleID:   ev.VehicleID,
		Date:        ev.Time,
		DrivingKM:   ev.KM,
		PassengerKM: ev.KM * float64(ev.Passengers),
		EnergyKWh:   ev.KWh,
	}
	if err := s.store.Add(rec); err != nil {
		return err
	}
	records, err := s.store.Query(ev.VehicleID, ev.Time, ev.Time)
	if err != nil || len(records) == 0 {
		return err
	}
	r := records[0]
	day := eco.Day(ev.Time).Format("2006-01-02")
	s.km.WithLabelValues(ev.VehicleID, day).Set(r.DrivingKM)
	s.kwh.WithLabelValues(ev.VehicleID, day).Set(r.EnergyKWh)
	s.occupancy.WithLabelValues(ev.VehicleID, day).Set(r.Occupancy())
	s.co2.WithLabelValues(ev.VehicleID, day).Set(r.Emissions(s.factor))
	return nil
}

// FindEcoSink returns the EcoSink in sink, looking inside a MultiSink.
func FindEcoSink(sink coremetrics.MetricsSink) (*EcoSink, bool) {
	switch s := sink.(type) {
	case *EcoSink:
		return s, true
	case *coremetrics.MultiSink:
		for _, inner := range s.Sinks {
			if e, ok := FindEcoSink(inner); ok {
				return e, true
			}
		}
	}
	return nil, false
}
