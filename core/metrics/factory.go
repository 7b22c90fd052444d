package metrics

import (
	"fmt"
	"io"

	"github.com/kilianp07/ridepool/core/factory"
)

var sinkRegistry = factory.NewRegistry[MetricsSink]()

// RegisterMetricsSink adds a metrics sink factory identified by name.
func RegisterMetricsSink(name string, f factory.Factory[MetricsSink]) error {
	return sinkRegistry.Register(name, f)
}

// NewMetricsSink builds the configured sinks. No configuration yields a
// NopSink, several yield a MultiSink. If one sink fails to build, the ones
// already built are closed.
func NewMetricsSink(cfgs []factory.ModuleConfig) (MetricsSink, error) {
	if len(cfgs) == 0 {
		return NopSink{}, nil
	}
	sinks := make([]MetricsSink, 0, len(cfgs))
	for i, c := range cfgs {
		s, err := sinkRegistry.Create(c)
		if err != nil {
			for _, built := range sinks {
				if cl, ok := built.(io.Closer); ok {
					_ = cl.Close()
				}
			}
			return nil, fmt.Errorf("sink %d (%s): %w", i, c.Type, err)
		}
		sinks = append(sinks, s)
	}
	if len(sinks) == 1 {
		return sinks[0], nil
	}
	return NewMultiSink(sinks...), nil
}
