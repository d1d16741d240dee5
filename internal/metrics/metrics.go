package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Upstream API metrics
var (
	UpstreamRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flight_tracker_upstream_requests_total",
			Help: "Requests made to upstream APIs by source and outcome",
		},
		[]string{"source", "outcome"}, // outcome: "ok", "transport_error", "decode_error", or the HTTP status code
	)

	UpstreamRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "flight_tracker_upstream_request_duration_seconds",
			Help:    "Latency of upstream API requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"source"},
	)
)

// Route resolution metrics
var (
	RouteLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flight_tracker_route_lookups_total",
			Help: "Route resolutions by result",
		},
		[]string{"result"}, // "skipped", "cache_hit", "fetched", "failed"
	)
)

// Bus metrics
var (
	BusPublishes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flight_tracker_bus_publishes_total",
			Help: "Bus publish attempts by topic and outcome",
		},
		[]string{"topic", "outcome"}, // "ok", "error"
	)

	BusUnchanged = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flight_tracker_bus_unchanged_total",
			Help: "Snapshots not published because they equal the last published value",
		},
		[]string{"topic"},
	)
)

// Loop metrics
var (
	CycleDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "flight_tracker_cycle_duration_seconds",
			Help:    "Duration of one driver loop iteration",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
	)

	CycleErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flight_tracker_cycle_errors_total",
			Help: "Errors raised inside a loop iteration by stage",
		},
		[]string{"stage"}, // "aircraft", "weather", "publish", "panic"
	)

	TrackedAircraft = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "flight_tracker_tracked_aircraft",
			Help: "Aircraft in the monitored area at the last successful fetch",
		},
	)
)

// RecordUpstreamRequest records one upstream call. A zero status code with
// a non-empty failure means the request never got a response.
func RecordUpstreamRequest(source string, statusCode int, failure string, duration time.Duration) {
	outcome := "ok"
	switch {
	case failure != "":
		outcome = failure
	case statusCode < 200 || statusCode > 299:
		outcome = strconv.Itoa(statusCode)
	}
	UpstreamRequests.WithLabelValues(source, outcome).Inc()
	UpstreamRequestDuration.WithLabelValues(source).Observe(duration.Seconds())
}

// RecordRouteLookup records the result of resolving one flight identifier
func RecordRouteLookup(result string) {
	RouteLookups.WithLabelValues(result).Inc()
}

// RecordPublish records a bus publish attempt
func RecordPublish(topic string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	BusPublishes.WithLabelValues(topic, outcome).Inc()
}

// RecordUnchanged records a snapshot that was skipped by change detection
func RecordUnchanged(topic string) {
	BusUnchanged.WithLabelValues(topic).Inc()
}

// RecordCycle records the duration of a loop iteration
func RecordCycle(duration time.Duration) {
	CycleDuration.Observe(duration.Seconds())
}

// RecordCycleError records a failure in one stage of a loop iteration
func RecordCycleError(stage string) {
	CycleErrors.WithLabelValues(stage).Inc()
}
