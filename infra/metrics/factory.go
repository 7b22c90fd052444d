package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/kilianp07/ridepool/core/factory"
	coremetrics "github.com/kilianp07/ridepool/core/metrics"
	"github.com/kilianp07/ridepool/core/metrics/eco"
	"github.com/kilianp07/ridepool/infra/kpi"
)

// init registers built-in metrics sinks.
func init() {
	_ = coremetrics.RegisterMetricsSink("nop", func(map[string]any) (coremetrics.MetricsSink, error) {
		return coremetrics.NopSink{}, nil
	})

	_ = coremetrics.RegisterMetricsSink("prometheus", func(map[string]any) (coremetrics.MetricsSink, error) {
		return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
	})

	_ = coremetrics.RegisterMetricsSink("influx", func(conf map[string]any) (coremetrics.MetricsSink, error) {
		var c struct {
			URL    string            `json:"url"`
			Token  string            `json:"token"`
			Org    string            `json:"org"`
			Bucket string            `json:"bucket"`
			Tags   map[string]string `json:"tags"`
		}
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return NewInfluxSinkWithFallback(c.URL, c.Token, c.Org, c.Bucket, WithTags(c.Tags)), nil
	})

	_ = coremetrics.RegisterMetricsSink("eco", func(conf map[string]any) (coremetrics.MetricsSink, error) {
		var c struct {
			EmissionFactor float64 `json:"emission_factor"`
			StorePath      string  `json:"store_path"`
		}
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		var store eco.Store = eco.NewMemoryStore()
		if c.StorePath != "" {
			s, err := kpi.NewSQLiteStore(c.StorePath)
			if err != nil {
				return nil, err
			}
			store = s
		}
		return NewEcoSink(store, c.EmissionFactor, prometheus.DefaultRegisterer)
	})
}
