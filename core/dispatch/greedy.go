package dispatch

import (
	"context"

	"github.com/kilianp07/ridepool/core/trip"
)

// Greedy gives each request to the closest candidate the solver accepts.
// Requests are evaluated in batch order; in parallel mode the commit lock
// makes concurrent evaluations of one vehicle see each other's commits.
type Greedy struct {
	// MaxCandidates caps the candidates tried per request, 0 tries all.
	MaxCandidates int `json:"max_candidates"`
}

func (g *Greedy) Name() string { return PolicyGreedy }

func (g *Greedy) Assign(ctx context.Context, e *Engine, batch []*trip.Request) []*trip.Request {
	done := make([]bool, len(batch))
	e.runner.run(ctx, len(batch), func(ctx context.Context, i int) {
		done[i] = g.assign(ctx, e, batch[i])
	})
	return unassigned(batch, done)
}

func (g *Greedy) assign(ctx context.Context, e *Engine, r *trip.Request) bool {
	cands := e.candidates(ctx, r)
	if g.MaxCandidates > 0 && len(cands) > g.MaxCandidates {
		cands = cands[:g.MaxCandidates]
	}
	for rank, v := range cands {
		if ctx.Err() != nil {
			return false
		}
		ok := false
		_ = v.Exclusive(func() error {
			st := v.State()
			plan, err := e.evaluate(ctx, st, r)
			if err != nil {
				return nil
			}
			if err := e.commit(ctx, v, r, plan, rank, plan.DistanceKM()-st.RemainingKM); err != nil {
				return err
			}
			ok = true
			return nil
		})
		if ok {
			return true
		}
	}
	return false
}
