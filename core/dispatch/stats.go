package dispatch

import "sync/atomic"

// Stats are the engine's running counters. They are safe for concurrent use.
type Stats struct {
	Flushes        atomic.Int64
	SolverCalls    atomic.Int64
	Infeasible     atomic.Int64
	OracleErrors   atomic.Int64
	FirstCandidate atomic.Int64
	LaterCandidate atomic.Int64
	Collisions     atomic.Int64
	Assigned       atomic.Int64
	Rebuffered     atomic.Int64
	Failed         atomic.Int64
}

// Counters returns a copy of the counters keyed by name.
func (s *Stats) Counters() map[string]int64 {
	return map[string]int64{
		"dispatch_flushes":         s.Flushes.Load(),
		"solver_calls":             s.SolverCalls.Load(),
		"solver_infeasible":        s.Infeasible.Load(),
		"oracle_errors":            s.OracleErrors.Load(),
		"assigned_first_candidate": s.FirstCandidate.Load(),
		"assigned_later_candidate": s.LaterCandidate.Load(),
		"collisions_recomputed":    s.Collisions.Load(),
		"requests_assigned":        s.Assigned.Load(),
		"requests_rebuffered":      s.Rebuffered.Load(),
		"requests_failed":          s.Failed.Load(),
	}
}
