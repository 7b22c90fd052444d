package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/kilianp07/ridepool/core/dispatch"
	"github.com/kilianp07/ridepool/core/input"
	"github.com/kilianp07/ridepool/core/metrics"
	"github.com/kilianp07/ridepool/infra/mqtt"
)

type Config struct {
	Simulation SimulationConfig `json:"simulation"`
	Trip       TripConfig       `json:"trip"`
	Vehicle    VehicleConfig    `json:"vehicle"`
	Dispatch   dispatch.Config  `json:"dispatch"`
	Routing    RoutingConfig    `json:"routing"`
	Input      input.Config     `json:"input"`
	Logging    LoggingConfig    `json:"logging"`
	Metrics    metrics.Config   `json:"metrics"`
	// MQTT mirrors records to a broker when Broker is set.
	MQTT mqtt.Config `json:"mqtt"`
}

func Load(path string) (*Config, error) {
	k := koanf.New(".")
	ext := strings.ToLower(filepath.Ext(path))
	var parser koanf.Parser
	switch ext {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}
	// Optional environment overrides
	if err := k.Load(env.Provider("K_", ".", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "k_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SetDefaults fills every section.
func (c *Config) SetDefaults() {
	c.Simulation.SetDefaults()
	c.Trip.SetDefaults()
	c.Vehicle.SetDefaults()
	c.Dispatch.SetDefaults()
	c.Routing.SetDefaults()
	c.Logging.SetDefaults()
	c.MQTT.SetDefaults()
}

// Validate checks every section and names the first broken one.
func (c Config) Validate() error {
	checks := []struct {
		name string
		err  error
	}{
		{"simulation", c.Simulation.Validate()},
		{"trip", c.Trip.Validate()},
		{"vehicle", c.Vehicle.Validate()},
		{"dispatch", c.Dispatch.Validate()},
		{"routing", c.Routing.Validate()},
		{"input", c.Input.Validate()},
		{"logging", c.Logging.Validate()},
		{"metrics", c.Metrics.Validate()},
		{"mqtt", c.MQTT.Validate()},
	}
	for _, ch := range checks {
		if ch.err != nil {
			return fmt.Errorf("%s: %w", ch.name, ch.err)
		}
	}
	return nil
}
