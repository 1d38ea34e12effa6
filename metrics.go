/*
Copyright © 2026 Acronis International GmbH.

Released under MIT license.
*/

package dbjournal

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Prometheus labels.
const (
	MetricsLabelDialect   = "dialect"
	MetricsLabelOperation = "operation"
)

// DefaultQueryDurationBuckets is default buckets into which observations of journal statement durations are counted.
var DefaultQueryDurationBuckets = []float64{0.001, 0.01, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}

// PrometheusMetricsOpts represents options for PrometheusMetrics.
type PrometheusMetricsOpts struct {
	// Namespace is a namespace for metrics. It will be prepended to all metric names.
	Namespace string
	// QueryDurationBuckets is a list of buckets into which observations of statement durations are counted.
	QueryDurationBuckets []float64
	// ConstLabels is a set of labels that will be applied to all metrics.
	ConstLabels prometheus.Labels
}

// PrometheusMetrics represents a collector of metrics for journal operations.
type PrometheusMetrics struct {
	QueryDurations *prometheus.HistogramVec
}

// NewPrometheusMetrics creates a new metrics collector with default options.
func NewPrometheusMetrics() *PrometheusMetrics {
	return NewPrometheusMetricsWithOpts(PrometheusMetricsOpts{})
}

// NewPrometheusMetricsWithOpts creates a new metrics collector with the given options.
func NewPrometheusMetricsWithOpts(opts PrometheusMetricsOpts) *PrometheusMetrics {
	buckets := opts.QueryDurationBuckets
	if buckets == nil {
		buckets = DefaultQueryDurationBuckets
	}
	queryDurations := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   opts.Namespace,
		Name:        "db_journal_query_duration_seconds",
		Help:        "Duration of statements issued by the migration journal client.",
		Buckets:     buckets,
		ConstLabels: opts.ConstLabels,
	}, []string{MetricsLabelDialect, MetricsLabelOperation})
	return &PrometheusMetrics{QueryDurations: queryDurations}
}

// MustRegister does registration of metrics collector in Prometheus and panics if any error occurs.
func (pm *PrometheusMetrics) MustRegister() {
	prometheus.MustRegister(pm.QueryDurations)
}

// Unregister cancels registration of metrics collector in Prometheus.
func (pm *PrometheusMetrics) Unregister() {
	prometheus.Unregister(pm.QueryDurations)
}

// ObserveQueryDuration observes the duration of a journal statement.
func (pm *PrometheusMetrics) ObserveQueryDuration(dialect Dialect, operation string, duration time.Duration) {
	pm.QueryDurations.With(prometheus.Labels{
		MetricsLabelDialect:   string(dialect),
		MetricsLabelOperation: operation,
	}).Observe(duration.Seconds())
}
