package metrics

import (
	"fmt"

	"github.com/kilianp07/ridepool/core/factory"
)

// Config defines settings for metrics sinks.
type Config struct {
	Sinks          []factory.ModuleConfig `json:"sinks"`
	EmissionFactor float64                `json:"emission_factor"`
	// HTTPAddr serves /metrics and the vehicle API when set.
	HTTPAddr string `json:"http_addr"`
	// APIToken protects /api/records when set.
	APIToken string `json:"api_token"`
}

// Validate reports obviously broken sink settings.
func (c Config) Validate() error {
	for i, s := range c.Sinks {
		if s.Type == "" {
			return fmt.Errorf("metrics.sinks[%d]: type is required", i)
		}
	}
	if c.EmissionFactor < 0 {
		return fmt.Errorf("metrics.emission_factor must be >= 0")
	}
	return nil
}
