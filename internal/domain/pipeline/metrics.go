package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts pipeline outcomes. Registration is left to the caller so
// tests can use throwaway registries.
type Metrics struct {
	outcomes    *prometheus.CounterVec
	classified  *prometheus.CounterVec
	clarified   *prometheus.CounterVec
	denied      *prometheus.CounterVec
	aiFallbacks prometheus.Counter
	converted   prometheus.Counter
	skippedConv prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pipeline_messages_total",
			Help: "Messages handled, by final outcome.",
		}, []string{"outcome"}),
		classified: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pipeline_classified_total",
			Help: "Classifier verdicts, by label.",
		}, []string{"label"}),
		clarified: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pipeline_clarifications_total",
			Help: "Messages bounced back for clarification, by reason.",
		}, []string{"reason"}),
		denied: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pipeline_denied_total",
			Help: "Messages rejected by a capability check, by reason.",
		}, []string{"reason"}),
		aiFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pipeline_ai_fallbacks_total",
			Help: "Transactions parsed by the AI fallback rather than the heuristic.",
		}),
		converted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pipeline_conversions_total",
			Help: "Transactions auto-converted to the main currency.",
		}),
		skippedConv: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pipeline_conversions_skipped_total",
			Help: "Auto-conversions attempted but skipped for lack of a rate.",
		}),
	}

	if reg != nil {
		reg.MustRegister(
			m.outcomes, m.classified, m.clarified, m.denied,
			m.aiFallbacks, m.converted, m.skippedConv,
		)
	}
	return m
}

func (m *Metrics) observeOutcome(kind OutcomeKind) {
	if m == nil {
		return
	}
	m.outcomes.WithLabelValues(kind.String()).Inc()
}

func (m *Metrics) observeLabel(label string) {
	if m == nil {
		return
	}
	m.classified.WithLabelValues(label).Inc()
}

func (m *Metrics) observeClarification(reason string) {
	if m == nil {
		return
	}
	m.clarified.WithLabelValues(reason).Inc()
}

func (m *Metrics) observeDenial(reason string) {
	if m == nil {
		return
	}
	m.denied.WithLabelValues(reason).Inc()
}

func (m *Metrics) observeAIFallback() {
	if m == nil {
		return
	}
	m.aiFallbacks.Inc()
}

func (m *Metrics) observeConversion(skipped bool) {
	if m == nil {
		return
	}
	if skipped {
		m.skippedConv.Inc()
		return
	}
	m.converted.Inc()
}
