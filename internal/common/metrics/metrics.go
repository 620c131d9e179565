// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "admin_http_requests_total",
			Help: "Total number of HTTP requests handled",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "admin_http_request_duration_seconds",
			Help: "Duration of HTTP request handling in seconds",
		},
		[]string{"method", "route"},
	)

	StoreOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "admin_store_operations_total",
			Help: "Total number of document store operations",
		},
		[]string{"operation", "collection", "result"},
	)

	ImportRowsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "admin_import_rows_total",
			Help: "Total number of imported workbook rows by outcome",
		},
		[]string{"template", "outcome"},
	)

	CriteriaSavesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "admin_criteria_saves_total",
			Help: "Total number of assessment criteria save attempts",
		},
		[]string{"type", "result"},
	)
)
