package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/ridepool/core/geo"
	"github.com/kilianp07/ridepool/core/routing"
	"github.com/kilianp07/ridepool/core/simclock"
)

func write(t *testing.T, name, data string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))
	return path
}

const sample = `simulation:
  start: "2024-03-01 06:00:00"
  end: "2024-03-01 10:00:00"
  request_buffer_seconds: 60
  log_route_history: true
trip:
  max_wait_seconds: 300
  alonso_mode: true
vehicle:
  kwh_per_100km: 18
  rebalancing: true
dispatch:
  policy: "PSRA"
  shortlist_size: 5
routing:
  type: "straight"
  speed_kmh: 25
input:
  vehicles: "fleet.csv"
  requests: "requests.csv"
logging:
  backend: "sqlite"
  path: "run.db"
metrics:
  sinks:
    - type: "nop"
  http_addr: ":9100"
mqtt:
  broker: "tcp://localhost:1883"
  topic_prefix: "sim"
`

func TestLoad(t *testing.T) {
	cfg, err := Load(write(t, "config.yaml", sample))
	require.NoError(t, err)

	checks := []struct {
		name string
		got  any
		want any
	}{
		{"start", cfg.Simulation.Start, "2024-03-01 06:00:00"},
		{"buffer", cfg.Simulation.RequestBufferSeconds, 60},
		{"status default", cfg.Simulation.StatusIntervalSeconds, 60},
		{"history default", cfg.Simulation.RouteHistoryIntervalSeconds, 300},
		{"max wait", cfg.Trip.MaxWaitSeconds, 300},
		{"elongation default", cfg.Trip.ElongationFactor, 1.5},
		{"kwh", cfg.Vehicle.KWhPer100KM, 18.0},
		{"kwh per pax default", cfg.Vehicle.KWhPer100KMPerPax, 0.5},
		{"policy", cfg.Dispatch.Policy, "PSRA"},
		{"shortlist", cfg.Dispatch.ShortlistSize, 5},
		{"speed", cfg.Routing.SpeedKMH, 25.0},
		{"detour default", cfg.Routing.DetourFactor, 1.3},
		{"vehicles", cfg.Input.Vehicles, "fleet.csv"},
		{"backend", cfg.Logging.Backend, "sqlite"},
		{"http addr", cfg.Metrics.HTTPAddr, ":9100"},
		{"sinks", len(cfg.Metrics.Sinks), 1},
		{"broker", cfg.MQTT.Broker, "tcp://localhost:1883"},
		{"prefix", cfg.MQTT.TopicPrefix, "sim"},
	}
	for _, c := range checks {
		assert.Equal(t, c.want, c.got, c.name)
	}
}

func TestLoadJSON(t *testing.T) {
	cfg, err := Load(write(t, "config.json", `{"input": {"vehicles": "v.csv", "requests": "r.csv"}}`))
	require.NoError(t, err)
	assert.Equal(t, "jsonl", cfg.Logging.Backend)
	assert.Equal(t, "records.jsonl", cfg.Logging.Path)
	assert.Equal(t, "straight", cfg.Routing.Type)
	assert.Equal(t, "greedy", cfg.Dispatch.Policy)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("K_DISPATCH__POLICY", "marginal")
	cfg, err := Load(write(t, "config.yaml", sample))
	require.NoError(t, err)
	assert.Equal(t, "marginal", cfg.Dispatch.Policy)
}

func TestLoadErrors(t *testing.T) {
	cases := map[string]string{
		"config.toml": "x = 1",
		"missing.yaml": `input:
  vehicles: "v.csv"
`,
		"window.yaml": `simulation:
  start: "2024-03-01 10:00:00"
  end: "2024-03-01 09:00:00"
input: {vehicles: v.csv, requests: r.csv}
`,
		"backend.yaml": `logging: {backend: postgres}
input: {vehicles: v.csv, requests: r.csv}
`,
		"router.yaml": `routing: {type: osrm}
input: {vehicles: v.csv, requests: r.csv}
`,
		"grid.yaml": `routing: {type: grid}
input: {vehicles: v.csv, requests: r.csv}
`,
		"loglevel.yaml": `logging: {level: loud}
input: {vehicles: v.csv, requests: r.csv}
`,
		"mqtt.yaml": `mqtt: {broker: "tcp://localhost:1883", kinds: [trips]}
input: {vehicles: v.csv, requests: r.csv}
`,
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(write(t, name, data))
			assert.Error(t, err)
		})
	}
}

func TestScenarioConversion(t *testing.T) {
	cfg, err := Load(write(t, "config.yaml", sample))
	require.NoError(t, err)
	sc, err := cfg.Scenario("run-7")
	require.NoError(t, err)

	start, err := simclock.Parse("2024-03-01 06:00:00")
	require.NoError(t, err)
	assert.Equal(t, start, sc.Start)
	assert.Equal(t, start.Add(4*time.Hour), sc.End)
	assert.Equal(t, time.Minute, sc.BufferInterval)
	assert.Equal(t, 5*time.Minute, sc.Policy.MaxWait)
	assert.True(t, sc.Policy.AlonsoMode)
	assert.True(t, sc.LogRouteHistory)
	assert.True(t, sc.Rebalancing)
	assert.Equal(t, 18.0, sc.Energy.KWhPer100KM)
	assert.Equal(t, "run-7", sc.RunID)

	rc := cfg.Logging.Records()
	assert.Equal(t, "sqlite", rc.Backend)
	assert.Equal(t, "run.db", rc.Path)
}

func TestRouterSelection(t *testing.T) {
	c := RoutingConfig{}
	c.SetDefaults()
	r, err := c.Router(context.Background())
	require.NoError(t, err)
	assert.IsType(t, &routing.StraightLine{}, r)

	c.Type = "grid"
	c.Grid = routing.GridConfig{TopLeft: geo.Position{Lon: 11.5, Lat: 48.2}, CellKM: 1, WidthKM: 2, HeightKM: 2}
	r, err = c.Router(context.Background())
	require.NoError(t, err)
	assert.IsType(t, &routing.Grid{}, r)
}
