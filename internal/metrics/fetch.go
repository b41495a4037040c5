// Package metrics holds the Prometheus collectors of the search pipeline.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Fetch outcomes.
const (
	OutcomeSuccess = "success"
	OutcomeEmpty   = "empty"
	OutcomeError   = "error"
)

// Fetch records remote page fetches and the rows merged from them.
// A nil *Fetch records nothing.
type Fetch struct {
	fetches  *prometheus.CounterVec
	duration *prometheus.HistogramVec
	merged   *prometheus.CounterVec
}

// NewFetch creates the collectors and registers them on reg.
func NewFetch(reg prometheus.Registerer) (*Fetch, error) {
	m := &Fetch{
		fetches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reposearch_remote_fetches_total",
				Help: "Total number of remote search page fetches by outcome.",
			},
			[]string{"outcome"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "reposearch_remote_fetch_duration_seconds",
				Help:    "Duration of remote search page fetches including the local merge.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"outcome"},
		),
		merged: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reposearch_merged_rows_total",
				Help: "Total number of rows upserted into the local cache.",
			},
			[]string{"table"},
		),
	}

	for _, c := range []prometheus.Collector{m.fetches, m.duration, m.merged} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Observe counts one fetch that ended with outcome after d.
func (m *Fetch) Observe(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.fetches.WithLabelValues(outcome).Inc()
	m.duration.WithLabelValues(outcome).Observe(d.Seconds())
}

// Merged counts rows written by one merge.
func (m *Fetch) Merged(owners, repositories int) {
	if m == nil {
		return
	}
	m.merged.WithLabelValues("owners").Add(float64(owners))
	m.merged.WithLabelValues("repositories").Add(float64(repositories))
}
