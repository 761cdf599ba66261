package metrics

import "github.com/prometheus/client_golang/prometheus"

// ModerationMetrics counts image moderation outcomes.
type ModerationMetrics struct {
	decisions *prometheus.CounterVec
}

func NewModerationMetrics(reg prometheus.Registerer) *ModerationMetrics {
	if reg == nil {
		return &ModerationMetrics{}
	}
	decisions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "moderation_decisions_total",
		Help: "Image moderation decisions by outcome.",
	}, []string{"decision"})
	reg.MustRegister(decisions)
	return &ModerationMetrics{decisions: decisions}
}

// IncDecision increments the counter for approved, rejected, skipped or error.
func (m *ModerationMetrics) IncDecision(decision string) {
	if m == nil || m.decisions == nil {
		return
	}
	m.decisions.WithLabelValues(normalizeLabel(decision)).Inc()
}
