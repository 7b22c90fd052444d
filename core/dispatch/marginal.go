package dispatch

import (
	"container/heap"
	"context"
	"sort"

	"github.com/kilianp07/ridepool/core/fleet"
	"github.com/kilianp07/ridepool/core/route"
	"github.com/kilianp07/ridepool/core/trip"
)

// Marginal evaluates every (request, candidate) pair of the batch, then
// commits pairs in ascending order of the extra distance they add to the
// vehicle's plan. Only the cheapest offer of each request competes at a
// time. An offer whose vehicle was claimed earlier in the cycle is
// recomputed against the new plan and committed if it got no more expensive,
// otherwise it goes back into the competition at its new cost.
type Marginal struct {
	// MaxOffers caps the offers kept per request, 0 keeps all.
	MaxOffers int `json:"max_offers"`
}

func (m *Marginal) Name() string { return PolicyMarginal }

type offer struct {
	idx     int
	req     *trip.Request
	vehicle *fleet.Vehicle
	rank    int
	plan    *route.Route
	cost    float64
}

// before orders offers by (cost, request id, vehicle id).
func (o *offer) before(p *offer) bool {
	if o.cost != p.cost {
		return o.cost < p.cost
	}
	if o.req.ID != p.req.ID {
		return o.req.ID < p.req.ID
	}
	return o.vehicle.ID < p.vehicle.ID
}

type offerHeap []*offer

func (h offerHeap) Len() int           { return len(h) }
func (h offerHeap) Less(i, j int) bool { return h[i].before(h[j]) }
func (h offerHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *offerHeap) Push(x any)        { *h = append(*h, x.(*offer)) }
func (h *offerHeap) Pop() any {
	old := *h
	n := len(old)
	o := old[n-1]
	*h = old[:n-1]
	return o
}

func sortOffers(os []*offer) {
	sort.SliceStable(os, func(i, j int) bool { return os[i].before(os[j]) })
}

func (m *Marginal) Assign(ctx context.Context, e *Engine, batch []*trip.Request) []*trip.Request {
	offers := make([][]*offer, len(batch))
	e.runner.run(ctx, len(batch), func(ctx context.Context, i int) {
		offers[i] = m.offers(ctx, e, i, batch[i])
	})

	h := &offerHeap{}
	for _, os := range offers {
		if len(os) > 0 {
			heap.Push(h, os[0])
		}
	}
	done := make([]bool, len(batch))
	claimed := map[string]bool{}
	for h.Len() > 0 && ctx.Err() == nil {
		o := heap.Pop(h).(*offer)
		if done[o.idx] {
			continue
		}
		if !claimed[o.vehicle.ID] {
			err := o.vehicle.Exclusive(func() error {
				return e.commit(ctx, o.vehicle, o.req, o.plan, o.rank, o.cost)
			})
			if err == nil {
				done[o.idx] = true
				claimed[o.vehicle.ID] = true
			} else {
				offers[o.idx] = m.drop(h, offers[o.idx])
			}
			continue
		}
		e.stats.Collisions.Add(1)
		done[o.idx] = m.recompute(ctx, e, h, offers, o)
	}
	return unassigned(batch, done)
}

// offers evaluates r against its candidates on clones, so no request or
// vehicle changes in this phase.
func (m *Marginal) offers(ctx context.Context, e *Engine, idx int, r *trip.Request) []*offer {
	var out []*offer
	for rank, v := range e.candidates(ctx, r) {
		if ctx.Err() != nil {
			return nil
		}
		st := v.State()
		plan, err := e.evaluate(ctx, st, r.Clone())
		if err != nil {
			continue
		}
		out = append(out, &offer{
			idx: idx, req: r, vehicle: v, rank: rank,
			plan: plan, cost: plan.DistanceKM() - st.RemainingKM,
		})
	}
	sortOffers(out)
	if m.MaxOffers > 0 && len(out) > m.MaxOffers {
		out = out[:m.MaxOffers]
	}
	return out
}

// recompute re-evaluates o against its vehicle's current plan. o is the head
// of its request's offers.
func (m *Marginal) recompute(ctx context.Context, e *Engine, h *offerHeap, offers [][]*offer, o *offer) bool {
	committed := false
	_ = o.vehicle.Exclusive(func() error {
		st := o.vehicle.State()
		plan, err := e.evaluate(ctx, st, o.req)
		if err != nil {
			offers[o.idx] = m.drop(h, offers[o.idx])
			return nil
		}
		cost := plan.DistanceKM() - st.RemainingKM
		if cost <= o.cost {
			if err := e.commit(ctx, o.vehicle, o.req, plan, o.rank, cost); err != nil {
				offers[o.idx] = m.drop(h, offers[o.idx])
				return err
			}
			committed = true
			return nil
		}
		o.plan, o.cost = plan, cost
		sortOffers(offers[o.idx])
		heap.Push(h, offers[o.idx][0])
		return nil
	})
	return committed
}

// drop removes the head offer and lets the next one compete.
func (m *Marginal) drop(h *offerHeap, os []*offer) []*offer {
	os = os[1:]
	if len(os) > 0 {
		heap.Push(h, os[0])
	}
	return os
}
