package engine

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dmdqy/doranet/internal/meta"
)

// Proposal outcomes, used as the "outcome" label.
const (
	OutcomeAccepted = "accepted"
	OutcomeRejected = "rejected"
	OutcomeNoUpdate = "no_update"
)

// Metrics holds the propagator's Prometheus collectors.
// A nil *Metrics records nothing.
type Metrics struct {
	deliveries prometheus.Counter
	reactions  prometheus.Counter
	proposals  *prometheus.CounterVec
	pending    prometheus.Gauge
}

// NewMetrics creates the collectors and registers them on reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		deliveries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "doranet",
			Subsystem: "engine",
			Name:      "deliveries_total",
			Help:      "Reaction deliveries evaluated by the propagator.",
		}),
		reactions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "doranet",
			Subsystem: "engine",
			Name:      "reactions_total",
			Help:      "Distinct reactions observed.",
		}),
		proposals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "doranet",
			Subsystem: "engine",
			Name:      "proposals_total",
			Help:      "Calculator proposals by metadata key and outcome.",
		}, []string{"key", "outcome"}),
		pending: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "doranet",
			Subsystem: "engine",
			Name:      "pending_reactions",
			Help:      "Reactions waiting in the worklist.",
		}),
	}

	for _, c := range []prometheus.Collector{m.deliveries, m.reactions, m.proposals, m.pending} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("engine: register metrics: %w", err)
		}
	}
	return m, nil
}

func (m *Metrics) delivered() {
	if m == nil {
		return
	}
	m.deliveries.Inc()
}

func (m *Metrics) observed() {
	if m == nil {
		return
	}
	m.reactions.Inc()
}

func (m *Metrics) proposal(key meta.Key, outcome string) {
	if m == nil {
		return
	}
	m.proposals.WithLabelValues(string(key), outcome).Inc()
}

func (m *Metrics) setPending(n int) {
	if m == nil {
		return
	}
	m.pending.Set(float64(n))
}
