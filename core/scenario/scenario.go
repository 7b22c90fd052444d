// Package scenario assembles a simulation run: it loads the fleet and the
// requests into the event kernel, drives the dispatch engine and writes the
// run output.
package scenario

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kilianp07/ridepool/core/dispatch"
	"github.com/kilianp07/ridepool/core/fleet"
	"github.com/kilianp07/ridepool/core/input"
	"github.com/kilianp07/ridepool/core/logger"
	"github.com/kilianp07/ridepool/core/metrics"
	"github.com/kilianp07/ridepool/core/records"
	"github.com/kilianp07/ridepool/core/routing"
	"github.com/kilianp07/ridepool/core/sim"
	"github.com/kilianp07/ridepool/core/simclock"
	"github.com/kilianp07/ridepool/core/solver"
	"github.com/kilianp07/ridepool/core/trip"
	"github.com/kilianp07/ridepool/internal/eventbus"
)

// Config holds the run parameters.
type Config struct {
	// Start and End bound the executed window. A zero End leaves it open.
	Start simclock.Time
	End   simclock.Time
	// BufferInterval is the time between two dispatch flushes.
	BufferInterval       time.Duration
	StatusInterval       time.Duration
	RouteHistoryInterval time.Duration
	// LogRouteHistory writes every archived leg as a record.
	LogRouteHistory bool
	MaxPositionAge  time.Duration
	Policy          trip.Policy
	Energy          fleet.EnergyModel
	Rebalancing     bool
	Dispatch        dispatch.Config
	RunID           string
}

// SetDefaults fills unset intervals.
func (c *Config) SetDefaults() {
	if c.BufferInterval <= 0 {
		c.BufferInterval = 30 * time.Second
	}
	if c.StatusInterval <= 0 {
		c.StatusInterval = time.Minute
	}
	if c.RouteHistoryInterval <= 0 {
		c.RouteHistoryInterval = 5 * time.Minute
	}
	if c.MaxPositionAge <= 0 {
		c.MaxPositionAge = 30 * time.Second
	}
	if c.Policy == (trip.Policy{}) {
		c.Policy = trip.DefaultPolicy()
	}
}

// Deps are the collaborators of a run.
type Deps struct {
	Router routing.Router
	// Solver defaults to the insertion solver.
	Solver  solver.Solver
	Records records.Appender
	Metrics metrics.MetricsSink
	// Bus receives best-effort events for live observers.
	Bus eventbus.EventBus
	Log logger.Logger
}

// Scenario is one simulation run.
type Scenario struct {
	cfg    Config
	deps   Deps
	kernel *sim.Kernel
	router *routing.Counting
	fleet  *fleet.Fleet
	engine *dispatch.Engine
	energy map[string]fleet.EnergyModel
	users  map[string]*trip.User
	reqs   []*trip.Request
	tally  *Tally
	// arrivals maps arrival events to their request for the skip hook.
	arrivals map[*sim.Event]*trip.Request
}

// New builds a run over the given fleet and requests. Request arrivals are
// scheduled at their requested start.
func New(cfg Config, deps Deps, vehicles []input.Vehicle, requests []input.Request) (*Scenario, error) {
	cfg.SetDefaults()
	if deps.Router == nil || deps.Log == nil {
		return nil, errors.New("scenario: router and logger are required")
	}
	if deps.Records == nil {
		deps.Records = records.NopStore{}
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.NopSink{}
	}
	if cfg.RunID != "" {
		deps.Records = records.WithRunID(deps.Records, cfg.RunID)
	}

	s := &Scenario{
		cfg:    cfg,
		deps:   deps,
		kernel: sim.NewKernel(simclock.New(cfg.Start), cfg.Start, cfg.End, deps.Log),
		router: routing.NewCounting(deps.Router),
		fleet:  fleet.New(),
		energy: map[string]fleet.EnergyModel{},
		users:  map[string]*trip.User{},

		arrivals: map[*sim.Event]*trip.Request{},
	}
	s.tally = newTally(deps.Records, deps.Metrics, deps.Log)
	if deps.Solver == nil {
		s.deps.Solver = solver.NewInsertion(s.router, cfg.Policy)
	}

	env := &fleet.Env{
		Clock:    s.kernel.Clock(),
		Events:   s.kernel,
		Policy:   cfg.Policy,
		Energy:   cfg.Energy,
		Finisher: s.tally,
		Revoked:  s.resubmit,
		Log:      deps.Log,
	}
	if cfg.Rebalancing {
		env.Rebalancer = &fleet.DepotRebalancer{Clock: s.kernel.Clock(), Events: s.kernel, Router: s.router, Log: deps.Log}
	}
	for _, iv := range vehicles {
		if _, dup := s.fleet.Get(iv.ID); dup {
			return nil, fmt.Errorf("scenario: duplicate vehicle %s", iv.ID)
		}
		venv := env
		if iv.KWhPer100KM != 0 || iv.KWhPer100KMPerPax != 0 {
			own := *env
			own.Energy = fleet.EnergyModel{KWhPer100KM: iv.KWhPer100KM, KWhPer100KMPerPax: iv.KWhPer100KMPerPax}
			venv = &own
		}
		s.energy[iv.ID] = venv.Energy
		s.fleet.Add(fleet.NewVehicle(iv.ID, iv.Capacity, iv.Position, venv))
	}

	engine, err := dispatch.NewEngine(cfg.Dispatch, dispatch.Deps{
		Fleet:          s.fleet,
		Router:         s.router,
		Solver:         s.deps.Solver,
		Clock:          s.kernel.Clock(),
		Policy:         cfg.Policy,
		Finisher:       s.tally,
		Interval:       cfg.BufferInterval,
		MaxPositionAge: cfg.MaxPositionAge,
		Log:            deps.Log,
		Metrics:        deps.Metrics,
		Bus:            deps.Bus,
	})
	if err != nil {
		return nil, err
	}
	s.engine = engine

	s.kernel.OnSkip(s.skipped)
	for _, ir := range requests {
		if err := s.addRequest(ir); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *Scenario) addRequest(ir input.Request) error {
	u, ok := s.users[ir.UserID]
	if !ok {
		u = trip.NewUser(ir.UserID, ir.Origin)
		s.users[ir.UserID] = u
	}
	r := &trip.Request{
		ID:              ir.ID,
		User:            u,
		RequestedStart:  ir.RequestedStart,
		RequestedEnd:    ir.RequestedEnd,
		Origin:          ir.Origin,
		Destination:     ir.Destination,
		ExtraPassengers: ir.ExtraPassengers,
	}
	s.reqs = append(s.reqs, r)
	e, err := s.kernel.At(r.RequestedStart, sim.KindUserRequest, fmt.Sprintf("request %d", r.ID), func(ctx context.Context) error {
		return s.arrive(ctx, r)
	})
	if err != nil {
		return err
	}
	s.arrivals[e] = r
	return nil
}

func (s *Scenario) Kernel() *sim.Kernel          { return s.kernel }
func (s *Scenario) Fleet() *fleet.Fleet          { return s.fleet }
func (s *Scenario) Engine() *dispatch.Engine     { return s.engine }
func (s *Scenario) Router() *routing.Counting    { return s.router }
func (s *Scenario) Requests() []*trip.Request    { return s.reqs }
func (s *Scenario) Users() map[string]*trip.User { return s.users }

// Run executes the simulation and writes the end-of-run records. The
// records are written even when the run stops early.
func (s *Scenario) Run(ctx context.Context) (Summary, error) {
	started := time.Now()
	s.kernel.Init()
	simStart := s.kernel.Now()
	if fs, ok := s.deps.Metrics.(metrics.FleetSizeRecorder); ok {
		if err := fs.RecordFleetSize(s.fleet.Len()); err != nil {
			s.deps.Log.Warnf("record fleet size: %v", err)
		}
	}
	s.deps.Log.Infow("simulation started", map[string]any{
		"start":    simStart.String(),
		"vehicles": s.fleet.Len(),
		"requests": len(s.reqs),
		"policy":   s.engine.Policy().Name(),
		"mode":     s.engine.Mode(),
	})
	if err := s.scheduleRecurring(simStart); err != nil {
		return Summary{}, err
	}

	runErr := s.kernel.Run(ctx)
	if runErr != nil {
		s.deps.Log.Errorf("simulation aborted: %v", runErr)
	}
	sum := s.close(context.WithoutCancel(ctx), simStart, time.Since(started))
	return sum, runErr
}
