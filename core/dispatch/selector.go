package dispatch

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/samber/lo"

	"github.com/kilianp07/ridepool/core/fleet"
	"github.com/kilianp07/ridepool/core/routing"
	"github.com/kilianp07/ridepool/core/trip"
)

// Selector shortlists the vehicles worth handing to the solver for a
// request. The search radius, expressed as a driving time, grows in Steps
// equal increments up to the maximum waiting time.
type Selector struct {
	Fleet   *fleet.Fleet
	Router  routing.Router
	MaxWait time.Duration
	Steps   int
	Size    int
}

type candidate struct {
	vehicle  *fleet.Vehicle
	duration time.Duration
}

// Select returns at most Size vehicles ordered by driving time to the
// request origin, ties broken by vehicle id. With onlyIdle set only idle
// vehicles qualify, otherwise any vehicle with enough vacant seats. A
// vehicle the router cannot reach is left out.
func (s *Selector) Select(ctx context.Context, req *trip.Request, onlyIdle bool) []*fleet.Vehicle {
	eligible := lo.Filter(s.Fleet.All(), func(v *fleet.Vehicle, _ int) bool {
		if onlyIdle {
			return v.Idle()
		}
		return v.VacantSeats() >= req.Persons()
	})

	cands := make([]candidate, 0, len(eligible))
	for _, v := range eligible {
		if ctx.Err() != nil {
			return nil
		}
		pos, _ := v.SyncedPosition()
		d, err := routing.Duration(ctx, s.Router, pos, req.Origin, routing.ModeCar)
		if err != nil {
			continue
		}
		cands = append(cands, candidate{vehicle: v, duration: d})
	}
	sortCandidates(cands)

	found := 0
	for k := 1; k <= s.Steps; k++ {
		radius := searchRadius(k, s.Steps, s.MaxWait)
		found = sort.Search(len(cands), func(i int) bool { return cands[i].duration > radius })
		if found > s.Size {
			break
		}
	}
	return lo.Map(cands[:min(found, s.Size)], func(c candidate, _ int) *fleet.Vehicle { return c.vehicle })
}

// searchRadius is round(k/n × maxWait) in whole seconds.
func searchRadius(k, n int, maxWait time.Duration) time.Duration {
	secs := math.Round(float64(k) / float64(n) * maxWait.Seconds())
	return time.Duration(secs) * time.Second
}

func sortCandidates(cs []candidate) {
	sort.Slice(cs, func(i, j int) bool {
		if cs[i].duration != cs[j].duration {
			return cs[i].duration < cs[j].duration
		}
		return cs[i].vehicle.ID < cs[j].vehicle.ID
	})
}
