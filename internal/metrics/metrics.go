// Package metrics defines the backend's prometheus collectors.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "screentime_requests_total",
			Help: "Total HTTP requests processed",
		},
		[]string{"route", "method", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "screentime_request_duration_seconds",
			Help:    "Request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)

	UsageRowsIngested = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "screentime_usage_rows_ingested_total",
			Help: "Usage log rows accepted from agents",
		},
	)

	AuthFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "screentime_auth_failures_total",
			Help: "Requests rejected for bad device credentials",
		},
	)

	DevicesPaired = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "screentime_devices_paired_total",
			Help: "Devices minted through pairing",
		},
	)
)

func init() {
	prometheus.MustRegister(
		RequestsTotal,
		RequestDuration,
		UsageRowsIngested,
		AuthFailures,
		DevicesPaired,
	)
}

// Handler returns the /metrics endpoint handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
