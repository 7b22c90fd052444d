package metrics_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/kilianp07/ridepool/core/factory"
	metrics "github.com/kilianp07/ridepool/core/metrics"
	_ "github.com/kilianp07/ridepool/infra/metrics"
)

func TestMetricsFactory_Builtins(t *testing.T) {
	s, err := metrics.NewMetricsSink([]factory.ModuleConfig{{Type: "nop"}})
	require.NoError(t, err)
	assert.NotNil(t, s)

	_, err = metrics.NewMetricsSink([]factory.ModuleConfig{{Type: "missing"}})
	assert.Error(t, err)
}

func TestNewMetricsSink_Multi(t *testing.T) {
	s, err := metrics.NewMetricsSink(nil)
	require.NoError(t, err)
	assert.IsType(t, metrics.NopSink{}, s)

	s, err = metrics.NewMetricsSink([]factory.ModuleConfig{{Type: "nop"}, {Type: "nop"}})
	require.NoError(t, err)
	m, ok := s.(*metrics.MultiSink)
	require.True(t, ok, "expected MultiSink, got %T", s)
	assert.Len(t, m.Sinks, 2)
}

func TestMetricsConfigDecodeYAML(t *testing.T) {
	data := `sinks:
  - type: nop
  - type: nop
`
	var cfg metrics.Config
	require.NoError(t, yaml.Unmarshal([]byte(data), &cfg))
	require.NoError(t, cfg.Validate())
	s, err := metrics.NewMetricsSink(cfg.Sinks)
	require.NoError(t, err)
	assert.IsType(t, &metrics.MultiSink{}, s)
}

func TestMetricsConfigDecodeJSON_Invalid(t *testing.T) {
	var cfg metrics.Config
	require.NoError(t, json.Unmarshal([]byte(`{"sinks":[{"type":"missing"}]}`), &cfg))
	_, err := metrics.NewMetricsSink(cfg.Sinks)
	assert.Error(t, err)

	assert.Error(t, metrics.Config{Sinks: []factory.ModuleConfig{{}}}.Validate())
}
