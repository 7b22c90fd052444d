package scenario

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/kilianp07/ridepool/core/logger"
	"github.com/kilianp07/ridepool/core/metrics"
	"github.com/kilianp07/ridepool/core/records"
	"github.com/kilianp07/ridepool/core/simclock"
	"github.com/kilianp07/ridepool/core/trip"
)

// Tally is the finisher of every request: it writes the trip record,
// reports the outcome and keeps the run counts.
type Tally struct {
	records records.Appender
	metrics metrics.MetricsSink
	log     logger.Logger

	mu        sync.Mutex
	skipped   int
	submitted []*trip.Request
	completed int
	failed    int
	busy      int
}

func newTally(rec records.Appender, m metrics.MetricsSink, log logger.Logger) *Tally {
	return &Tally{records: rec, metrics: m, log: log}
}

func (t *Tally) submit(r *trip.Request) {
	t.mu.Lock()
	t.submitted = append(t.submitted, r)
	t.mu.Unlock()
}

func (t *Tally) skip() {
	t.mu.Lock()
	t.skipped++
	t.mu.Unlock()
}

// Finish records a request that reached a terminal state.
func (t *Tally) Finish(ctx context.Context, r *trip.Request) {
	st := r.State()
	t.mu.Lock()
	switch st.Status {
	case trip.StatusCompleted:
		t.completed++
	case trip.StatusFailedUserBusy:
		t.busy++
	default:
		t.failed++
	}
	t.mu.Unlock()

	if err := t.records.Append(ctx, r.Record()); err != nil {
		t.log.Errorf("append trip record %d: %v", r.ID, err)
	}
	ev := metrics.TripOutcome{
		RequestID: r.ID,
		UserID:    r.User.ID,
		VehicleID: st.VehicleID,
		Status:    st.Status.String(),
		Persons:   r.Persons(),
		Shared:    st.Shared,
		Direct:    r.DirectDuration,
		Time:      st.Completed.UTC(),
	}
	if !st.PickedUp.IsZero() {
		ev.Wait = st.PickedUp.Sub(r.RequestedStart)
		if !st.DroppedOff.IsZero() {
			ev.Ride = st.DroppedOff.Sub(st.PickedUp)
		}
	}
	if err := t.metrics.RecordTripOutcome(ev); err != nil {
		t.log.Warnf("record trip outcome %d: %v", r.ID, err)
	}
}

// Summary is the outcome of a run.
type Summary struct {
	Total          int
	Skipped        int
	Submitted      int
	Completed      int
	Failed         int
	FailedUserBusy int
	// Open counts submitted requests still without a terminal state.
	Open          int
	Executed      int64
	SkippedEvents int64
	SimStart      simclock.Time
	SimEnd        simclock.Time
	Elapsed       time.Duration
}

// Conserved reports whether every submitted request is accounted for.
func (s Summary) Conserved() bool {
	return s.Completed+s.Failed+s.FailedUserBusy+s.Open == s.Submitted
}

func (t *Tally) summary() Summary {
	t.mu.Lock()
	defer t.mu.Unlock()
	sum := Summary{
		Skipped:        t.skipped,
		Submitted:      len(t.submitted),
		Completed:      t.completed,
		Failed:         t.failed,
		FailedUserBusy: t.busy,
	}
	for _, r := range t.submitted {
		if !r.Status().Terminal() {
			sum.Open++
		}
	}
	return sum
}

// close drains the remaining route history and writes the end-of-run
// records.
func (s *Scenario) close(ctx context.Context, simStart simclock.Time, elapsed time.Duration) Summary {
	if err := s.flushHistory(ctx); err != nil {
		s.deps.Log.Warnf("final route history: %v", err)
	}
	now := s.kernel.Now()
	for _, v := range s.fleet.All() {
		s.appendRecord(ctx, records.Record{Kind: records.KindVehicleStats, At: now, VehicleStats: v.Stats(now).Record(v.ID)})
	}

	sum := s.tally.summary()
	sum.Total = len(s.reqs)
	sum.SimStart = simStart
	sum.SimEnd = now
	sum.Elapsed = elapsed
	sum.Executed, sum.SkippedEvents = s.kernel.Stats()

	counters := s.engine.Stats().Counters()
	counters["router_calls"] = s.router.Calls()
	counters["router_failed"] = s.router.Failed()
	counters["events_executed"] = sum.Executed
	counters["events_skipped"] = sum.SkippedEvents
	counters["requests_submitted"] = int64(sum.Submitted)
	counters["requests_completed"] = int64(sum.Completed)
	counters["requests_failed_total"] = int64(sum.Failed)
	counters["requests_failed_user_busy"] = int64(sum.FailedUserBusy)
	counters["requests_open"] = int64(sum.Open)
	s.appendRecord(ctx, records.Record{Kind: records.KindCounters, At: now, Counters: &records.Counters{Values: counters}})

	if !sum.Conserved() {
		s.deps.Log.Errorf("request accounting mismatch: %+v", sum)
	}
	s.deps.Log.Infow("simulation finished", map[string]any{
		"end":              now.String(),
		"submitted":        sum.Submitted,
		"completed":        sum.Completed,
		"failed":           sum.Failed,
		"failed_user_busy": sum.FailedUserBusy,
		"open":             sum.Open,
		"skipped":          sum.Skipped,
		"elapsed":          elapsed.String(),
	})
	return sum
}

func sortedUsers(users map[string]*trip.User) []*trip.User {
	out := make([]*trip.User, 0, len(users))
	for _, u := range users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
