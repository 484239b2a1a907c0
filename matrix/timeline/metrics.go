package timeline

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Outcomes recorded per processed event.
const (
	outcomeCreated   = "created"
	outcomeEdited    = "edited"
	outcomeReacted   = "reacted"
	outcomeLinked    = "linked"
	outcomeStashed   = "stashed"
	outcomeRedundant = "redundant"
	outcomeIgnored   = "ignored"
	outcomeInvalid   = "invalid"
)

// Metrics are shared by all reconcilers of a process. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	Events     *prometheus.CounterVec
	Replayed   prometheus.Counter
	Violations prometheus.Counter
}

// NewMetrics creates the timeline counters and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "roomline",
			Subsystem: "timeline",
			Name:      "events_total",
			Help:      "Events processed by the timeline reconciler, by kind and outcome.",
		}, []string{"kind", "outcome"}),
		Replayed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "roomline",
			Subsystem: "timeline",
			Name:      "replayed_total",
			Help:      "Stashed events replayed after their target arrived.",
		}),
		Violations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "roomline",
			Subsystem: "timeline",
			Name:      "invariant_violations_total",
			Help:      "Internal index/map mismatches detected.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.Events, m.Replayed, m.Violations)
	}
	return m
}

func (m *Metrics) observe(kind, outcome string) {
	if m == nil {
		return
	}
	m.Events.WithLabelValues(kind, outcome).Inc()
}

func (m *Metrics) replayed(n int) {
	if m == nil || n == 0 {
		return
	}
	m.Replayed.Add(float64(n))
}

func (m *Metrics) violation() {
	if m == nil {
		return
	}
	m.Violations.Inc()
}
