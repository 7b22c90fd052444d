package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"

	apirecords "github.com/kilianp07/ridepool/api/records"
	"github.com/kilianp07/ridepool/api/vehicles"
	"github.com/kilianp07/ridepool/config"
	"github.com/kilianp07/ridepool/core/input"
	coremetrics "github.com/kilianp07/ridepool/core/metrics"
	"github.com/kilianp07/ridepool/core/records"
	"github.com/kilianp07/ridepool/core/scenario"
	"github.com/kilianp07/ridepool/core/vehiclestatus"
	"github.com/kilianp07/ridepool/infra/logger"
	"github.com/kilianp07/ridepool/infra/metrics"
	"github.com/kilianp07/ridepool/infra/mqtt"
	"github.com/kilianp07/ridepool/internal/eventbus"
)

// Service wires one simulation run to its outputs and observers.
type Service struct {
	RunID    string
	Scenario *scenario.Scenario

	cfg      *config.Config
	log      logger.Logger
	store    records.Store
	out      records.Appender
	sink     coremetrics.MetricsSink
	bus      *eventbus.Bus
	statuses *vehiclestatus.MemoryStore
}

// busBuffer absorbs the per-tick burst of vehicle status events.
const busBuffer = 1024

// New creates a Service from the configuration. Input files are read and
// the scenario is built, nothing runs yet.
func New(ctx context.Context, cfg *config.Config) (*Service, error) {
	logg := logger.New("service")

	router, err := cfg.Routing.Router(ctx)
	if err != nil {
		return nil, fmt.Errorf("router: %w", err)
	}
	vs, err := input.LoadVehicles(cfg.Input.Vehicles)
	if err != nil {
		return nil, fmt.Errorf("vehicles: %w", err)
	}
	rs, err := input.LoadRequests(cfg.Input.Requests)
	if err != nil {
		return nil, fmt.Errorf("requests: %w", err)
	}

	store, err := records.Open(cfg.Logging.Records())
	if err != nil {
		return nil, fmt.Errorf("record store: %w", err)
	}
	svc := &Service{
		RunID:    uuid.NewString(),
		cfg:      cfg,
		log:      logg,
		store:    store,
		out:      store,
		bus:      eventbus.New(eventbus.WithBuffer(busBuffer)),
		statuses: vehiclestatus.NewMemoryStore(),
	}
	if cfg.MQTT.Broker != "" {
		pub, err := mqtt.NewPublisher(cfg.MQTT)
		if err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("mqtt publisher: %w", err)
		}
		svc.out = records.NewMulti(store, pub)
	}

	sink, err := coremetrics.NewMetricsSink(cfg.Metrics.Sinks)
	if err != nil {
		_ = svc.Close()
		return nil, fmt.Errorf("metrics sink: %w", err)
	}
	svc.sink = sink

	sc, err := cfg.Scenario(svc.RunID)
	if err != nil {
		_ = svc.Close()
		return nil, err
	}
	svc.Scenario, err = scenario.New(sc, scenario.Deps{
		Router:  router,
		Records: svc.out,
		Metrics: sink,
		Bus:     svc.bus,
		Log:     logger.New("simulation"),
	}, vs, rs)
	if err != nil {
		_ = svc.Close()
		return nil, fmt.Errorf("scenario: %w", err)
	}
	return svc, nil
}

// Run executes the simulation. With linger set the HTTP endpoints stay up
// after the run until ctx is cancelled.
func (s *Service) Run(ctx context.Context, linger bool) (scenario.Summary, error) {
	obsCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	vehiclestatus.Follow(obsCtx, s.bus, s.statuses)
	metrics.StartEventCollector(obsCtx, s.bus, s.sink)

	served := make(chan error, 1)
	if addr := s.cfg.Metrics.HTTPAddr; addr != "" {
		go func() { served <- metrics.StartPromServer(obsCtx, addr, s.handlers()) }()
	}

	s.log.Infof("run %s started", s.RunID)
	sum, err := s.Scenario.Run(ctx)
	if err != nil {
		return sum, err
	}
	if linger && s.cfg.Metrics.HTTPAddr != "" {
		s.log.Infof("serving %s until interrupted", s.cfg.Metrics.HTTPAddr)
		select {
		case <-ctx.Done():
		case err := <-served:
			if err != nil {
				return sum, fmt.Errorf("http server: %w", err)
			}
		}
	}
	return sum, nil
}

func (s *Service) handlers() map[string]http.Handler {
	h := map[string]http.Handler{
		"/api/vehicles/status": vehicles.NewStatusHandler(s.statuses),
		"/api/records":         apirecords.NewHandler(s.store, s.cfg.Metrics.APIToken),
	}
	if es, ok := metrics.FindEcoSink(s.sink); ok {
		factor := es.Factor()
		if factor == 0 {
			factor = s.cfg.Metrics.EmissionFactor
		}
		h["/api/vehicles/"] = vehicles.NewKPIHandler(es.Store(), factor)
	}
	return h
}

// Records returns the store the run writes to.
func (s *Service) Records() records.Store { return s.store }

// Close releases the record store, the broker connection and the sinks.
func (s *Service) Close() error {
	var errs []error
	s.bus.Close()
	if n := s.bus.Dropped(); n > 0 {
		s.log.Warnf("event bus dropped %d deliveries", n)
	}
	if c, ok := s.out.(io.Closer); ok {
		errs = append(errs, c.Close())
	}
	if c, ok := s.sink.(io.Closer); ok {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}
