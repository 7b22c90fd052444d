package metrics

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/kilianp07/ridepool/core/metrics"
	"github.com/kilianp07/ridepool/infra/logger"
)

// InfluxSink writes simulation events to an InfluxDB instance using the
// official client. Points carry the simulated time.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	tags     map[string]string
	log      logger.Logger
}

// InfluxOption configures an InfluxSink.
type InfluxOption func(*InfluxSink)

// WithTags adds static tags, such as a scenario name, to every point.
func WithTags(tags map[string]string) InfluxOption {
	return func(s *InfluxSink) { s.tags = tags }
}

// NewInfluxSink creates a new sink configured for the given InfluxDB endpoint.
func NewInfluxSink(url, token, org, bucket string, opts ...InfluxOption) *InfluxSink {
	base := strings.TrimSuffix(url, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	s := &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(org, bucket),
		log:      logger.New("influx-sink"),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// NewInfluxSinkWithFallback tries to ping the InfluxDB instance and
// returns a NopSink if the health check fails.
func NewInfluxSinkWithFallback(url, token, org, bucket string, opts ...InfluxOption) coremetrics.MetricsSink {
	sink := NewInfluxSink(url, token, org, bucket, opts...)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// point starts a point carrying the static tags.
func (s *InfluxSink) point(measurement string, at time.Time) *write.Point {
	p := write.NewPointWithMeasurement(measurement).SetTime(at)
	for k, v := range s.tags {
		p.AddTag(k, v)
	}
	return p
}

func (s *InfluxSink) write(p *write.Point) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordTripOutcome writes one point per terminal request.
func (s *InfluxSink) RecordTripOutcome(ev coremetrics.TripOutcome) error {
	p := s.point("trip_outcome", ev.Time).
		AddTag("status", ev.Status).
		AddTag("shared", strconv.FormatBool(ev.Shared)).
		AddField("request_id", ev.RequestID).
		AddField("persons", ev.Persons).
		AddField("wait_s", round3(ev.Wait.Seconds())).
		AddField("ride_s", round3(ev.Ride.Seconds())).
		AddField("direct_s", round3(ev.Direct.Seconds()))
	if ev.VehicleID != "" {
		p = p.AddTag("vehicle_id", ev.VehicleID)
	}
	return s.write(p)
}

// RecordFlush writes a dispatch cycle summary.
func (s *InfluxSink) RecordFlush(ev coremetrics.FlushEvent) error {
	p := s.point("dispatch_cycle", ev.Time).
		AddTag("policy", ev.Policy).
		AddTag("mode", ev.Mode).
		AddField("buffered", ev.Buffered).
		AddField("assigned", ev.Assigned).
		AddField("rebuffered", ev.Rebuffered).
		AddField("failed", ev.Failed).
		AddField("elapsed_ms", round3(ev.Elapsed.Seconds()*1000))
	return s.write(p)
}

// RecordVehicleState writes a snapshot of a vehicle.
func (s *InfluxSink) RecordVehicleState(ev coremetrics.VehicleStateEvent) error {
	p := s.point("vehicle_state", ev.Time).
		AddTag("vehicle_id", ev.VehicleID)
	if ev.Component != "" {
		p = p.AddTag("component", ev.Component)
	}
	p = p.AddField("status", ev.Status).
		AddField("passengers", ev.Passengers).
		AddField("committed", ev.Committed).
		AddField("lon", ev.Lon).
		AddField("lat", ev.Lat)
	return s.write(p)
}

// RecordEnergy writes the consumption of a driven leg.
func (s *InfluxSink) RecordEnergy(ev coremetrics.EnergyEvent) error {
	p := s.point("vehicle_energy", ev.Time).
		AddTag("vehicle_id", ev.VehicleID).
		AddField("km", round3(ev.KM)).
		AddField("kwh", round3(ev.KWh)).
		AddField("passengers", ev.Passengers)
	return s.write(p)
}

// Close flushes and releases the client.
func (s *InfluxSink) Close() error {
	s.client.Close()
	return nil
}

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
