// Package http provides HTTP server functionality for the ECC directory recorder.
package http

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the recorder.
type Metrics struct {
	// API request metrics
	APIRequestsTotal   *prometheus.CounterVec
	APIRequestDuration *prometheus.HistogramVec

	// Recording metrics
	LastRecordTimestamp *prometheus.GaugeVec
	EstimatesReturned   *prometheus.GaugeVec

	// Database metrics
	DBOperationsTotal *prometheus.CounterVec
}

// NewMetrics creates Prometheus metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		APIRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "eccdirectory_api_requests_total",
				Help: "Total number of ECC API requests by endpoint and status",
			},
			[]string{"endpoint", "status"},
		),
		APIRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "eccdirectory_api_request_duration_seconds",
				Help:    "ECC API request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"endpoint"},
		),
		LastRecordTimestamp: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "eccdirectory_last_record_timestamp",
				Help: "Timestamp of the last successful recording by lookup",
			},
			[]string{"lookup"},
		),
		EstimatesReturned: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "eccdirectory_estimates_returned",
				Help: "Number of estimates returned by the last recording of a lookup",
			},
			[]string{"lookup"},
		),
		DBOperationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "eccdirectory_db_operations_total",
				Help: "Total number of database operations by type and status",
			},
			[]string{"operation", "status"},
		),
	}
}

// RecordAPIRequest records an API request metric.
func (m *Metrics) RecordAPIRequest(endpoint, status string, duration float64) {
	m.APIRequestsTotal.WithLabelValues(endpoint, status).Inc()
	m.APIRequestDuration.WithLabelValues(endpoint).Observe(duration)
}

// RecordLastRecord records the last successful recording timestamp.
func (m *Metrics) RecordLastRecord(lookup string, timestamp float64) {
	m.LastRecordTimestamp.WithLabelValues(lookup).Set(timestamp)
}

// RecordEstimatesReturned records how many estimates a lookup returned.
func (m *Metrics) RecordEstimatesReturned(lookup string, count float64) {
	m.EstimatesReturned.WithLabelValues(lookup).Set(count)
}

// RecordDBOperation records a database operation metric.
func (m *Metrics) RecordDBOperation(operation, status string) {
	m.DBOperationsTotal.WithLabelValues(operation, status).Inc()
}
