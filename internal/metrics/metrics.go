// Package metrics defines the Prometheus collectors the CLI front ends
// (cmd/imdb-ingest, cmd/imdb-query) expose on their optional -metrics-addr
// scrape endpoint. The search and index-build core never imports this
// package: only a front-end observes it.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the collectors the imdb-ingest and imdb-query processes
// report.
type Metrics struct {
	TokenizeDuration    prometheus.Histogram
	IngestRowsTotal     *prometheus.CounterVec
	QueriesTotal        *prometheus.CounterVec
	QueryLatency        *prometheus.HistogramVec
	CandidatesGenerated prometheus.Histogram
}

// New creates and registers the metric collectors.
func New() *Metrics {
	m := &Metrics{
		TokenizeDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "tokenize_duration_seconds",
				Help:    "Latency of tokenizing a single name or query string.",
				Buckets: prometheus.DefBuckets,
			},
		),
		IngestRowsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ingest_rows_total",
				Help: "Total TSV rows processed during ingest, by outcome (accepted, rejected).",
			},
			[]string{"outcome"},
		),
		QueriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "queries_total",
				Help: "Total search queries by result type (hit, zero_result, error).",
			},
			[]string{"result_type"},
		),
		QueryLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "query_latency_seconds",
				Help:    "End-to-end Search() latency in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
			},
			[]string{"scorer"},
		),
		CandidatesGenerated: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "candidates_generated",
				Help:    "Number of candidate name entries surviving the minimum-overlap cutoff per query.",
				Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 500},
			},
		),
	}

	prometheus.MustRegister(
		m.TokenizeDuration,
		m.IngestRowsTotal,
		m.QueriesTotal,
		m.QueryLatency,
		m.CandidatesGenerated,
	)

	return m
}

// Handler returns the Prometheus scrape HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
