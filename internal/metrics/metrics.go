// Package metrics counts ledger activity with Prometheus collectors.
//
// Collectors live on a private registry so that several ledgers (e.g. in tests)
// never collide on the default registry.
package metrics

import (
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

// Metrics holds the ledger collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry        *prometheus.Registry
	mutations       *prometheus.CounterVec
	splits          *prometheus.CounterVec
	persistFailures prometheus.Counter
}

// New creates the collectors and registers them on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "udhari",
			Subsystem: "ledger",
			Name:      "mutations_total",
			Help:      "Committed ledger mutations by operation.",
		}, []string{"op"}),
		splits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "udhari",
			Name:      "splits_total",
			Help:      "Group expense split attempts by strategy and result.",
		}, []string{"strategy", "result"}),
		persistFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "udhari",
			Name:      "persist_failures_total",
			Help:      "State saves that failed and were dropped.",
		}),
	}
	m.registry.MustRegister(m.mutations, m.splits, m.persistFailures)
	return m
}

// Registry exposes the registry, e.g. for serving or testing.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Mutation records a committed ledger operation.
func (m *Metrics) Mutation(op string) {
	if m == nil {
		return
	}
	m.mutations.WithLabelValues(op).Inc()
}

// Split records a split attempt; err decides the result label.
func (m *Metrics) Split(strategy string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "rejected"
	}
	m.splits.WithLabelValues(strategy, result).Inc()
}

// PersistFailure records a dropped save.
func (m *Metrics) PersistFailure() {
	if m == nil {
		return
	}
	m.persistFailures.Inc()
}

// WriteText writes every collected metric in the Prometheus text format.
func (m *Metrics) WriteText(w io.Writer) error {
	families, err := m.registry.Gather()
	if err != nil {
		return fmt.Errorf("failed to gather metrics: %w", err)
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("failed to write metric %s: %w", mf.GetName(), err)
		}
	}
	return nil
}
