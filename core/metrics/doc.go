package metrics

// Package metrics defines the interfaces used to observe a simulation run.
// Sinks such as PromSink and InfluxSink record trip outcomes, dispatch
// cycles, vehicle snapshots and energy use, and can be combined with
// NewMultiSink. The factory helpers return a MultiSink automatically when
// multiple sinks are configured.
