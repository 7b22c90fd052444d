package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/kilianp07/ridepool/core/events"
	"github.com/kilianp07/ridepool/core/fleet"
	"github.com/kilianp07/ridepool/core/logger"
	"github.com/kilianp07/ridepool/core/metrics"
	"github.com/kilianp07/ridepool/core/route"
	"github.com/kilianp07/ridepool/core/routing"
	"github.com/kilianp07/ridepool/core/simclock"
	"github.com/kilianp07/ridepool/core/solver"
	"github.com/kilianp07/ridepool/core/trip"
	"github.com/kilianp07/ridepool/internal/eventbus"
)

// Deps are the collaborators of an Engine.
type Deps struct {
	Fleet  *fleet.Fleet
	Router routing.Router
	Solver solver.Solver
	// Direct serves idle vehicles when direct assignment is enabled.
	Direct   solver.Solver
	Clock    simclock.Source
	Policy   trip.Policy
	Finisher trip.Finisher
	// Interval is the time between two flushes.
	Interval time.Duration
	// MaxPositionAge bounds the staleness of the positions the selector
	// routes from.
	MaxPositionAge time.Duration
	Log            logger.Logger
	Metrics        metrics.MetricsSink
	// Bus is optional.
	Bus eventbus.EventBus
}

// Engine buffers incoming requests and matches them in batches.
type Engine struct {
	cfg      Config
	deps     Deps
	policy   Policy
	mode     string
	runner   runner
	selector *Selector
	stats    Stats

	mu     sync.Mutex
	buffer []*trip.Request
}

// NewEngine validates cfg and builds the configured policy.
func NewEngine(cfg Config, deps Deps) (*Engine, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if deps.Fleet == nil || deps.Router == nil || deps.Solver == nil || deps.Clock == nil || deps.Finisher == nil || deps.Log == nil {
		return nil, errors.New("dispatch: nil dependency provided to NewEngine")
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.NopSink{}
	}
	if deps.Direct == nil {
		deps.Direct = solver.NewDirect(deps.Router, deps.Policy)
	}
	name, mode := cfg.Resolve()
	p, err := NewPolicy(name, cfg.PolicyConf)
	if err != nil {
		return nil, fmt.Errorf("dispatch: %w", err)
	}
	return &Engine{
		cfg:    cfg,
		deps:   deps,
		policy: p,
		mode:   mode,
		runner: newRunner(mode, cfg.Workers),
		selector: &Selector{
			Fleet:   deps.Fleet,
			Router:  deps.Router,
			MaxWait: deps.Policy.MaxWait,
			Steps:   cfg.SearchSteps,
			Size:    cfg.ShortlistSize,
		},
	}, nil
}

// Submit adds r to the buffer of the next flush.
func (e *Engine) Submit(r *trip.Request) {
	e.mu.Lock()
	e.buffer = append(e.buffer, r)
	e.mu.Unlock()
}

// Pending returns the number of buffered requests.
func (e *Engine) Pending() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.buffer)
}

func (e *Engine) Stats() *Stats       { return &e.stats }
func (e *Engine) Policy() Policy      { return e.policy }
func (e *Engine) Mode() string        { return e.mode }
func (e *Engine) Config() Config      { return e.cfg }
func (e *Engine) Selector() *Selector { return e.selector }

// Flush runs one dispatch cycle over the buffered requests. Requests the
// policy leaves unassigned are kept for the next cycle while their pickup
// window outlasts it, and failed otherwise. An empty buffer is a no-op.
func (e *Engine) Flush(ctx context.Context) error {
	e.mu.Lock()
	batch := e.buffer
	e.buffer = nil
	e.mu.Unlock()
	if len(batch) == 0 {
		return nil
	}

	started := time.Now()
	now := e.deps.Clock.Now()
	e.stats.Flushes.Add(1)
	e.deps.Fleet.UpdatePositions(now, e.deps.MaxPositionAge, false)

	open := batch[:0:0]
	for _, r := range batch {
		if !r.Status().Terminal() {
			open = append(open, r)
		}
	}
	left := e.policy.Assign(ctx, e, open)
	if err := ctx.Err(); err != nil {
		e.requeue(left)
		return err
	}

	var retry []*trip.Request
	failed := 0
	for _, r := range left {
		if e.keep(r, now) {
			retry = append(retry, r)
			continue
		}
		if e.fail(ctx, r, now) {
			failed++
		}
	}
	e.requeue(retry)

	assigned := len(open) - len(left)
	e.stats.Rebuffered.Add(int64(len(retry)))
	e.stats.Failed.Add(int64(failed))
	name := e.policy.Name()
	requestsRebuffered.WithLabelValues(name).Add(float64(len(retry)))
	requestsFailed.WithLabelValues(name).Add(float64(failed))
	bufferedRequests.Set(float64(e.Pending()))
	elapsed := time.Since(started)
	flushDuration.Observe(elapsed.Seconds())

	if fr, ok := e.deps.Metrics.(metrics.FlushRecorder); ok {
		if err := fr.RecordFlush(metrics.FlushEvent{
			Policy: name, Mode: e.mode, Buffered: len(batch), Assigned: assigned,
			Rebuffered: len(retry), Failed: failed, Elapsed: elapsed, Time: now.UTC(),
		}); err != nil {
			e.deps.Log.Warnf("record flush: %v", err)
		}
	}
	e.publish(events.Flush{
		Policy: name, Buffered: len(batch), Assigned: assigned,
		Rebuffered: len(retry), Failed: failed, At: now,
	})
	e.deps.Log.Infow("dispatch cycle", map[string]any{
		"at":         now.String(),
		"buffered":   len(batch),
		"assigned":   assigned,
		"rebuffered": len(retry),
		"failed":     failed,
	})
	return nil
}

// keep reports whether r gets another cycle.
func (e *Engine) keep(r *trip.Request, now simclock.Time) bool {
	if !e.cfg.Repeated() {
		return false
	}
	return now.Add(e.deps.Interval) < e.deps.Policy.PickupDeadline(r.RequestedStart)
}

func (e *Engine) requeue(rs []*trip.Request) {
	if len(rs) == 0 {
		return
	}
	e.mu.Lock()
	e.buffer = append(append([]*trip.Request(nil), rs...), e.buffer...)
	e.mu.Unlock()
}

// fail finishes r as FAILED and hands it to the finisher, which writes its
// only trip record.
func (e *Engine) fail(ctx context.Context, r *trip.Request, now simclock.Time) bool {
	if err := r.Fail(now); err != nil {
		e.deps.Log.Warnf("fail request %d: %v", r.ID, err)
		return false
	}
	e.deps.Finisher.Finish(ctx, r)
	return true
}

// candidates shortlists vehicles for r.
func (e *Engine) candidates(ctx context.Context, r *trip.Request) []*fleet.Vehicle {
	return e.selector.Select(ctx, r, e.cfg.IdleOnly)
}

// evaluate asks the solver for a plan serving r on top of st. Solver
// errors and panics make the candidate infeasible.
func (e *Engine) evaluate(ctx context.Context, st fleet.State, r *trip.Request) (plan *route.Route, err error) {
	defer func() {
		if p := recover(); p != nil {
			plan, err = nil, fmt.Errorf("dispatch: solver panic: %v", p)
		}
		e.countSolve(st.VehicleID, r, err)
	}()
	s := e.deps.Solver
	if e.cfg.DirectAssignment && len(st.Stops) == 0 && st.Passengers == 0 && st.RemainingKM == 0 {
		s = e.deps.Direct
	}
	return s.Solve(ctx, st, r)
}

func (e *Engine) countSolve(vehicleID string, r *trip.Request, err error) {
	e.stats.SolverCalls.Add(1)
	switch {
	case err == nil:
		solverCalls.WithLabelValues("feasible").Inc()
	case errors.Is(err, solver.ErrInfeasible):
		e.stats.Infeasible.Add(1)
		solverCalls.WithLabelValues("infeasible").Inc()
	default:
		e.stats.OracleErrors.Add(1)
		solverCalls.WithLabelValues("error").Inc()
		e.deps.Log.Warnf("solve request %d on %s: %v", r.ID, vehicleID, err)
	}
}

// commit installs plan on v for r. The caller holds v's commit lock.
func (e *Engine) commit(ctx context.Context, v *fleet.Vehicle, r *trip.Request, plan *route.Route, rank int, cost float64) error {
	if err := v.Commit(ctx, r, plan); err != nil {
		e.deps.Log.Errorf("commit request %d to %s: %v", r.ID, v.ID, err)
		return err
	}
	e.stats.Assigned.Add(1)
	if rank == 0 {
		e.stats.FirstCandidate.Add(1)
	} else {
		e.stats.LaterCandidate.Add(1)
	}
	requestsAssigned.WithLabelValues(e.policy.Name()).Inc()
	e.publish(events.Assignment{
		RequestID: r.ID, VehicleID: v.ID, Policy: e.policy.Name(),
		Rank: rank, CostKM: cost, At: e.deps.Clock.Now(),
	})
	e.deps.Log.Debugw("request assigned", map[string]any{
		"request": r.ID, "vehicle": v.ID, "rank": rank, "cost_km": cost,
	})
	return nil
}

func (e *Engine) publish(ev eventbus.Event) {
	if e.deps.Bus != nil {
		e.deps.Bus.Publish(ev)
	}
}
