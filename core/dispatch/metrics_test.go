package dispatch

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsRegistration(t *testing.T) {
	ResetMetrics(nil)
	t.Cleanup(func() { ResetMetrics(nil) })
	reg := prometheus.NewRegistry()
	MustRegisterMetrics(reg)
	// touch metrics so they are exported
	flushDuration.Observe(0.01)
	requestsAssigned.WithLabelValues(PolicyGreedy).Inc()
	requestsRebuffered.WithLabelValues(PolicyGreedy).Inc()
	requestsFailed.WithLabelValues(PolicyGreedy).Inc()
	solverCalls.WithLabelValues("feasible").Inc()
	bufferedRequests.Set(3)

	mfs, err := reg.Gather()
	require.NoError(t, err)
	names := map[string]bool{}
	for _, mf := range mfs {
		names[mf.GetName()] = true
	}
	for _, n := range []string{
		"dispatch_flush_duration_seconds",
		"dispatch_requests_assigned_total",
		"dispatch_requests_rebuffered_total",
		"dispatch_requests_failed_total",
		"dispatch_solver_calls_total",
		"dispatch_buffered_requests",
	} {
		assert.True(t, names[n], "metric %s not registered", n)
	}
}
