// Package metrics holds the Prometheus instruments for the analysis
// pipeline and the HTTP API.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters and histograms shared across the
// pipeline, the cache decorator and the HTTP server.
type Metrics struct {
	PipelineRuns  *prometheus.CounterVec   // labels: stage={retrieve,travel,render}, outcome={success,error}
	StageDuration *prometheus.HistogramVec // labels: stage={retrieve,travel,render}

	CitiesRetained  prometheus.Histogram
	RoutesEvaluated prometheus.Counter

	CacheLookups *prometheus.CounterVec // labels: api={geocode,directions}, result={hit,miss}
	HTTPRequests *prometheus.CounterVec // labels: route, code
}

// NewMetrics creates and registers all instruments with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		PipelineRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "transit_ratio",
			Name:      "pipeline_runs_total",
			Help:      "Pipeline stage executions by stage and outcome.",
		}, []string{"stage", "outcome"}),
		StageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "transit_ratio",
			Name:      "stage_duration_seconds",
			Help:      "Duration of a pipeline stage.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}, []string{"stage"}),
		CitiesRetained: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "transit_ratio",
			Name:      "cities_retained",
			Help:      "Number of cities kept per retrieval after the population filter.",
			Buckets:   []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
		}),
		RoutesEvaluated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "transit_ratio",
			Name:      "routes_evaluated_total",
			Help:      "Total cities that received a defined transit/driving ratio.",
		}),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "transit_ratio",
			Name:      "cache_lookups_total",
			Help:      "Response cache lookups by API and result.",
		}, []string{"api", "result"}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "transit_ratio",
			Name:      "http_requests_total",
			Help:      "API requests by route pattern and status code.",
		}, []string{"route", "code"}),
	}

	prometheus.MustRegister(
		m.PipelineRuns,
		m.StageDuration,
		m.CitiesRetained,
		m.RoutesEvaluated,
		m.CacheLookups,
		m.HTTPRequests,
	)

	return m
}

// NewMetricsForTesting creates unregistered instruments so tests can
// run in parallel without "already registered" panics.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		PipelineRuns:    prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "transit_ratio", Name: "pipeline_runs_total"}, []string{"stage", "outcome"}),
		StageDuration:   prometheus.NewHistogramVec(prometheus.HistogramOpts{Namespace: "transit_ratio", Name: "stage_duration_seconds"}, []string{"stage"}),
		CitiesRetained:  prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "transit_ratio", Name: "cities_retained"}),
		RoutesEvaluated: prometheus.NewCounter(prometheus.CounterOpts{Namespace: "transit_ratio", Name: "routes_evaluated_total"}),
		CacheLookups:    prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "transit_ratio", Name: "cache_lookups_total"}, []string{"api", "result"}),
		HTTPRequests:    prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "transit_ratio", Name: "http_requests_total"}, []string{"route", "code"}),
	}
}
