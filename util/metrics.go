package util

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds every collector served at /metrics. A private registry keeps
// tests independent of the process-wide default.
var Registry = prometheus.NewRegistry()

var (
	HTTPRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mindery",
		Name:      "http_requests_total",
		Help:      "HTTP requests by method, route and status code.",
	}, []string{"method", "route", "status"})

	HTTPDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "mindery",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by method and route.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})

	// Bookings counts booking attempts by outcome: booked, conflict, invalid.
	Bookings = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mindery",
		Name:      "bookings_total",
		Help:      "Appointment booking attempts by outcome.",
	}, []string{"outcome"})

	StatusTransitions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mindery",
		Name:      "appointment_status_transitions_total",
		Help:      "Appointment status changes by source and target status.",
	}, []string{"from", "to"})

	// SlotQueries counts slot lookups: "schedule", "day" or "dates".
	SlotQueries = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mindery",
		Name:      "slot_queries_total",
		Help:      "Availability lookups by kind.",
	}, []string{"kind"})
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		HTTPRequests,
		HTTPDuration,
		Bookings,
		StatusTransitions,
		SlotQueries,
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "mindery",
			Name:      "geoip_cache_items",
			Help:      "Entries in the GeoIP lookup cache.",
		}, func() float64 {
			_, _, size := GetGeoIPCacheMetrics()
			return float64(size)
		}),
	)
}

// MetricsHandler serves the registry in the prometheus text format.
func MetricsHandler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{Registry: Registry})
}
