package metrics

import (
	"errors"
	"io"
)

// MultiSink fans out events to multiple sinks.
type MultiSink struct {
	Sinks []MetricsSink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...MetricsSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordTripOutcome forwards the outcome to all sinks and joins their errors.
func (m *MultiSink) RecordTripOutcome(ev TripOutcome) error {
	var errs []error
	for _, s := range m.Sinks {
		errs = append(errs, s.RecordTripOutcome(ev))
	}
	return errors.Join(errs...)
}

// RecordFlush forwards dispatch cycles.
func (m *MultiSink) RecordFlush(ev FlushEvent) error {
	var errs []error
	for _, s := range m.Sinks {
		if rec, ok := s.(FlushRecorder); ok {
			errs = append(errs, rec.RecordFlush(ev))
		}
	}
	return errors.Join(errs...)
}

// RecordVehicleState forwards vehicle snapshots.
func (m *MultiSink) RecordVehicleState(ev VehicleStateEvent) error {
	var errs []error
	for _, s := range m.Sinks {
		if rec, ok := s.(VehicleStateRecorder); ok {
			errs = append(errs, rec.RecordVehicleState(ev))
		}
	}
	return errors.Join(errs...)
}

// RecordEnergy forwards leg consumption.
func (m *MultiSink) RecordEnergy(ev EnergyEvent) error {
	var errs []error
	for _, s := range m.Sinks {
		if rec, ok := s.(EnergyRecorder); ok {
			errs = append(errs, rec.RecordEnergy(ev))
		}
	}
	return errors.Join(errs...)
}

// RecordFleetSize forwards fleet size metrics when supported by the sink.
func (m *MultiSink) RecordFleetSize(size int) error {
	var errs []error
	for _, s := range m.Sinks {
		if rec, ok := s.(FleetSizeRecorder); ok {
			errs = append(errs, rec.RecordFleetSize(size))
		}
	}
	return errors.Join(errs...)
}

// Close closes every sink that holds resources.
func (m *MultiSink) Close() error {
	var errs []error
	for _, s := range m.Sinks {
		if c, ok := s.(io.Closer); ok {
			errs = append(errs, c.Close())
		}
	}
	return errors.Join(errs...)
}
