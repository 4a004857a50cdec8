// Package metrics exposes Prometheus counters for the scraper and tile server.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// FetchAttempts counts every tile fetch attempt, successful or not.
	FetchAttempts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tilemirror_fetch_attempts_total",
		Help: "Total tile fetch attempts.",
	})

	// FetchSuccesses counts fetch attempts that produced a stored tile.
	FetchSuccesses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tilemirror_fetch_successes_total",
		Help: "Total tile fetches stored successfully.",
	})

	// FetchFailures counts fetch attempts that failed in transport or storage.
	FetchFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tilemirror_fetch_failures_total",
		Help: "Total tile fetch attempts that failed.",
	})

	// ServeHits counts tile requests answered from the store.
	ServeHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tilemirror_serve_hits_total",
		Help: "Total tile requests served from the store.",
	})

	// ServeMisses counts tile requests with no stored record.
	ServeMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tilemirror_serve_misses_total",
		Help: "Total tile requests with no stored record.",
	})
)
