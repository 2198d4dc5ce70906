package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests by method, path and status",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	ReportsCreatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pop_test_reports_created_total",
			Help: "POP test reports created",
		},
	)

	ReportStatusTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pop_test_report_status_transitions_total",
			Help: "Approve and reject decisions by outcome",
		},
		[]string{"status"},
	)
)
