// Copyright 2025 Certen Protocol
//
// Package metrics instruments the sidecar ledger with Prometheus counters
// and a histogram (C8). The registerer-passed-in shape and the per-metric
// Register error handling follow luxfi-consensus's metrics.Metrics and
// protocol/nova's newMetrics constructor; no HTTP listener is started here
// (exposition is the embedder's concern, per SPEC_FULL.md §4.8).
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds every Prometheus instrument the store and audit sink write
// to. The zero value is not usable; construct with New.
type Metrics struct {
	AuditEntriesTotal *prometheus.CounterVec
	EntitiesTotal     *prometheus.CounterVec
	ChainSoftness     prometheus.Histogram
}

// New creates and registers the sidecar ledger's instruments against reg.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		AuditEntriesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sidecar_ledger_audit_entries_total",
			Help: "Number of audit entries appended, by audit-type.",
		}, []string{"audit_type"}),
		EntitiesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sidecar_ledger_entities_total",
			Help: "Number of entities successfully committed, by kind.",
		}, []string{"kind"}),
		ChainSoftness: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "sidecar_ledger_chain_softness_average",
			Help:    "Distribution of average softness across built chains.",
			Buckets: prometheus.LinearBuckets(0, 0.1, 11),
		}),
	}

	if err := reg.Register(m.AuditEntriesTotal); err != nil {
		return nil, err
	}
	if err := reg.Register(m.EntitiesTotal); err != nil {
		return nil, err
	}
	if err := reg.Register(m.ChainSoftness); err != nil {
		return nil, err
	}
	return m, nil
}

// ObserveEntity increments the commit counter for the given entity kind
// ("proposal", "promotion", "evidence", "action", "fact", "bridge-triple",
// "chain").
func (m *Metrics) ObserveEntity(kind string) {
	if m == nil {
		return
	}
	m.EntitiesTotal.WithLabelValues(kind).Inc()
}

// ObserveChainSoftness records a built chain's average softness.
func (m *Metrics) ObserveChainSoftness(average float64) {
	if m == nil {
		return
	}
	m.ChainSoftness.Observe(average)
}
