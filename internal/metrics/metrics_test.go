package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordUpstreamRequest(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		failure    string
		outcome    string
	}{
		{name: "success", statusCode: 200, outcome: "ok"},
		{name: "rate limited", statusCode: 429, outcome: "429"},
		{name: "transport failure", failure: "transport_error", outcome: "transport_error"},
		{name: "bad body", statusCode: 200, failure: "decode_error", outcome: "decode_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := UpstreamRequests.WithLabelValues("test-source", tt.outcome)
			before := testutil.ToFloat64(c)
			RecordUpstreamRequest("test-source", tt.statusCode, tt.failure, 15*time.Millisecond)
			if got := testutil.ToFloat64(c) - before; got != 1 {
				t.Errorf("expected counter to increase by 1, got %v", got)
			}
		})
	}
}

func TestRecordPublish(t *testing.T) {
	ok := BusPublishes.WithLabelValues("test/topic", "ok")
	failed := BusPublishes.WithLabelValues("test/topic", "error")
	okBefore, failedBefore := testutil.ToFloat64(ok), testutil.ToFloat64(failed)

	RecordPublish("test/topic", nil)
	RecordPublish("test/topic", errors.New("broker unavailable"))
	RecordPublish("test/topic", nil)

	if got := testutil.ToFloat64(ok) - okBefore; got != 2 {
		t.Errorf("expected 2 successful publishes, got %v", got)
	}
	if got := testutil.ToFloat64(failed) - failedBefore; got != 1 {
		t.Errorf("expected 1 failed publish, got %v", got)
	}
}

func TestMetricsLint(t *testing.T) {
	RecordRouteLookup("cache_hit")
	RecordUnchanged("test/topic")
	RecordCycle(time.Second)
	RecordCycleError("aircraft")

	problems, err := testutil.GatherAndLint(prometheus.DefaultGatherer,
		"flight_tracker_upstream_requests_total",
		"flight_tracker_route_lookups_total",
		"flight_tracker_bus_publishes_total",
		"flight_tracker_bus_unchanged_total",
		"flight_tracker_cycle_errors_total",
	)
	if err != nil {
		t.Fatal(err)
	}
	for _, p := range problems {
		t.Errorf("metric %s: %s", p.Metric, p.Text)
	}
}
