// Package observability owns the dashboard's Prometheus collectors.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds every relaydash collector plus the Go and process collectors.
var Registry = prometheus.NewRegistry()

var (
	relayRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relaydash_relay_requests_total",
			Help: "Outbound relay requests by operation and result.",
		},
		[]string{"op", "result"},
	)
	relayDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "relaydash_relay_request_duration_seconds",
			Help:    "Duration of outbound relay requests in seconds.",
			Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"op"},
	)
	storeWrites = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relaydash_store_writes_total",
			Help: "Device file rewrites by operation and result.",
		},
		[]string{"op", "result"},
	)
	storeWriteDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "relaydash_store_write_duration_seconds",
			Help:    "Duration of device file load-modify-save cycles in seconds.",
			Buckets: prometheus.DefBuckets,
		},
	)
	logins = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relaydash_logins_total",
			Help: "Login attempts by result.",
		},
		[]string{"result"},
	)
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		relayRequests,
		relayDuration,
		storeWrites,
		storeWriteDuration,
		logins,
	)
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// ObserveRelay records one outbound device call.
func ObserveRelay(op string, err error, start time.Time) {
	relayRequests.WithLabelValues(op, result(err)).Inc()
	relayDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

// ObserveStoreWrite records one device file rewrite.
func ObserveStoreWrite(op string, err error, start time.Time) {
	storeWrites.WithLabelValues(op, result(err)).Inc()
	storeWriteDuration.Observe(time.Since(start).Seconds())
}

func ObserveLogin(ok bool) {
	if ok {
		logins.WithLabelValues("ok").Inc()
		return
	}
	logins.WithLabelValues("invalid").Inc()
}

// Handler serves Registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{Registry: Registry})
}
