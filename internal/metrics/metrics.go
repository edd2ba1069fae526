package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector provides application metrics collection.
// All methods are safe to call on a nil *Collector.
type Collector struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Upstream provider metrics
	UpstreamRequestsTotal   *prometheus.CounterVec
	UpstreamRequestDuration *prometheus.HistogramVec

	// Pipeline metrics
	AggregationsTotal    *prometheus.CounterVec
	HistoryWriteFailures prometheus.Counter
	HistoryEntriesPruned prometheus.Counter
}

// NewCollector registers the collector's metrics with reg.
func NewCollector(namespace string, reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)

	return &Collector{
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests by route, method, and status",
			},
			[]string{"route", "method", "status"},
		),

		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.2, 0.5, 1.0, 2.0, 5.0, 10.0},
			},
			[]string{"route"},
		),

		UpstreamRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "upstream_requests_total",
				Help:      "Total number of weather provider calls by endpoint and outcome",
			},
			[]string{"provider", "endpoint", "outcome"},
		),

		UpstreamRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "upstream_request_duration_seconds",
				Help:      "Weather provider call duration in seconds",
				Buckets:   []float64{0.05, 0.1, 0.2, 0.5, 1.0, 2.0, 5.0, 10.0},
			},
			[]string{"provider", "endpoint"},
		),

		AggregationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "aggregations_total",
				Help:      "Total number of weather aggregations by outcome",
			},
			[]string{"outcome"},
		),

		HistoryWriteFailures: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "history_write_failures_total",
				Help:      "Searches whose history write was skipped or failed",
			},
		),

		HistoryEntriesPruned: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "history_entries_pruned_total",
				Help:      "History entries removed by the retention job",
			},
		),
	}
}

// RecordHTTPRequest records a served HTTP request.
func (c *Collector) RecordHTTPRequest(route, method, status string, d time.Duration) {
	if c == nil {
		return
	}
	c.HTTPRequestsTotal.WithLabelValues(route, method, status).Inc()
	c.HTTPRequestDuration.WithLabelValues(route).Observe(d.Seconds())
}

// RecordUpstream records one provider call.
func (c *Collector) RecordUpstream(provider, endpoint, outcome string, d time.Duration) {
	if c == nil {
		return
	}
	c.UpstreamRequestsTotal.WithLabelValues(provider, endpoint, outcome).Inc()
	c.UpstreamRequestDuration.WithLabelValues(provider, endpoint).Observe(d.Seconds())
}

// RecordAggregation increments the aggregation counter for outcome.
func (c *Collector) RecordAggregation(outcome string) {
	if c == nil {
		return
	}
	c.AggregationsTotal.WithLabelValues(outcome).Inc()
}

// RecordHistoryFailure increments the history write failure counter.
func (c *Collector) RecordHistoryFailure() {
	if c == nil {
		return
	}
	c.HistoryWriteFailures.Inc()
}

// RecordPruned adds n to the pruned entries counter.
func (c *Collector) RecordPruned(n int) {
	if c == nil || n <= 0 {
		return
	}
	c.HistoryEntriesPruned.Add(float64(n))
}
