package dispatch

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	flushDuration      prometheus.Histogram
	requestsAssigned   *prometheus.CounterVec
	requestsRebuffered *prometheus.CounterVec
	requestsFailed     *prometheus.CounterVec
	solverCalls        *prometheus.CounterVec
	bufferedRequests   prometheus.Gauge
)

// newCollectors creates new metric collectors.
func newCollectors() (prometheus.Histogram, *prometheus.CounterVec, *prometheus.CounterVec, *prometheus.CounterVec, *prometheus.CounterVec, prometheus.Gauge) {
	dur := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "dispatch_flush_duration_seconds",
		Help:    "Wall-clock time spent in one dispatch cycle",
		Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14),
	})
	assigned := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dispatch_requests_assigned_total",
		Help: "Requests committed to a vehicle",
	}, []string{"policy"})
	rebuffered := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dispatch_requests_rebuffered_total",
		Help: "Unassigned requests kept for the next cycle",
	}, []string{"policy"})
	failed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dispatch_requests_failed_total",
		Help: "Requests failed after their last dispatch attempt",
	}, []string{"policy"})
	solver := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dispatch_solver_calls_total",
		Help: "Feasibility solver calls by outcome",
	}, []string{"outcome"})
	buffered := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "dispatch_buffered_requests",
		Help: "Requests waiting in the dispatch buffer after the last cycle",
	})
	return dur, assigned, rebuffered, failed, solver, buffered
}

func init() {
	flushDuration, requestsAssigned, requestsRebuffered, requestsFailed, solverCalls, bufferedRequests = newCollectors()
	MustRegisterMetrics(nil)
}

// MustRegisterMetrics registers dispatch metrics on the provided registry.
// If reg is nil, prometheus.DefaultRegisterer is used.
func MustRegisterMetrics(reg prometheus.Registerer) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(flushDuration, requestsAssigned, requestsRebuffered, requestsFailed, solverCalls, bufferedRequests)
}

// ResetMetrics reinitializes metrics collectors for testing purposes and
// registers them on the provided registry if not nil.
func ResetMetrics(reg prometheus.Registerer) {
	flushDuration, requestsAssigned, requestsRebuffered, requestsFailed, solverCalls, bufferedRequests = newCollectors()
	if reg != nil {
		MustRegisterMetrics(reg)
	}
}
