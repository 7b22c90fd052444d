package dispatch

import (
	"fmt"
	"runtime"
)

// Execution modes.
const (
	ModeSequential = "sequential"
	ModeParallel   = "parallel"
)

// legacyNames maps the historical strategy names onto a policy and a mode.
var legacyNames = map[string][2]string{
	"SCVA": {PolicyGreedy, ModeSequential},
	"PCVA": {PolicyGreedy, ModeParallel},
	"SSRA": {PolicyMarginal, ModeSequential},
	"PSRA": {PolicyMarginal, ModeParallel},
}

// Config defines dispatch-related settings.
type Config struct {
	Policy string `json:"policy"`
	// PolicyConf is decoded by the policy factory.
	PolicyConf    map[string]any `json:"policy_conf"`
	Mode          string         `json:"mode"`
	Workers       int            `json:"workers"`
	ShortlistSize int            `json:"shortlist_size"`
	SearchSteps   int            `json:"search_steps"`
	// RepeatedAssignment is nil when unset, which means enabled.
	RepeatedAssignment *bool `json:"repeated_assignment"`
	DirectAssignment   bool  `json:"direct_assignment"`
	// IdleOnly restricts candidates to idle vehicles, disabling pooling.
	IdleOnly bool `json:"idle_only"`
}

// SetDefaults fills unset fields.
func (c *Config) SetDefaults() {
	if c.Policy == "" {
		c.Policy = PolicyGreedy
	}
	if c.Mode == "" {
		c.Mode = ModeSequential
	}
	if c.Workers <= 0 {
		c.Workers = runtime.GOMAXPROCS(0)
	}
	if c.ShortlistSize <= 0 {
		c.ShortlistSize = 10
	}
	if c.SearchSteps <= 0 {
		c.SearchSteps = 5
	}
}

// Validate checks the settings after defaults were applied.
func (c Config) Validate() error {
	policy, mode := c.Resolve()
	if !policyRegistry.Has(policy) {
		return fmt.Errorf("dispatch.policy: unknown policy %q (known: %v)", c.Policy, policyRegistry.Names())
	}
	if mode != ModeSequential && mode != ModeParallel {
		return fmt.Errorf("dispatch.mode: unknown mode %q", c.Mode)
	}
	if c.ShortlistSize < 1 {
		return fmt.Errorf("dispatch.shortlist_size must be >= 1")
	}
	if c.SearchSteps < 1 {
		return fmt.Errorf("dispatch.search_steps must be >= 1")
	}
	if c.Workers < 0 {
		return fmt.Errorf("dispatch.workers must be >= 0")
	}
	return nil
}

// Repeated reports whether unassigned requests go back to the buffer.
func (c Config) Repeated() bool {
	return c.RepeatedAssignment == nil || *c.RepeatedAssignment
}

// Resolve returns the policy and mode to use, expanding legacy names.
func (c Config) Resolve() (policy, mode string) {
	if l, ok := legacyNames[c.Policy]; ok {
		return l[0], l[1]
	}
	return c.Policy, c.Mode
}
