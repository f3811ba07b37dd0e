package metrics

import "github.com/prometheus/client_golang/prometheus"

// DecisionMetrics exposes counters/histograms for gate decisions.
type DecisionMetrics struct {
	decisionsTotal  *prometheus.CounterVec
	validationTotal *prometheus.CounterVec
	retrievalTier   *prometheus.CounterVec
	topScore        prometheus.Histogram
	cacheTotal      *prometheus.CounterVec
}

func NewDecisionMetrics(reg prometheus.Registerer) *DecisionMetrics {
	m := &DecisionMetrics{
		decisionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "telehealth",
			Subsystem: "gate",
			Name:      "decisions_total",
			Help:      "Total verdicts by kind, outcome and reason code",
		}, []string{"kind", "outcome", "reason"}),
		validationTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "telehealth",
			Subsystem: "gate",
			Name:      "validation_errors_total",
			Help:      "Requests rejected before evaluation",
		}, []string{"kind", "field"}),
		retrievalTier: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "telehealth",
			Subsystem: "knowledge",
			Name:      "search_tier_total",
			Help:      "Knowledge searches by confidence tier",
		}, []string{"tier", "ambiguous"}),
		topScore: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "telehealth",
			Subsystem: "knowledge",
			Name:      "top_score",
			Help:      "Top similarity score per knowledge search",
			Buckets:   []float64{40, 50, 60, 70, 80, 85, 90, 95, 100},
		}),
		cacheTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "telehealth",
			Subsystem: "knowledge",
			Name:      "search_cache_total",
			Help:      "Search cache lookups by result",
		}, []string{"result"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.decisionsTotal, m.validationTotal, m.retrievalTier, m.topScore, m.cacheTotal)
	return m
}

// ObserveDecision counts a verdict. outcome is "resolved", "escalated" or
// "declined".
func (m *DecisionMetrics) ObserveDecision(kind, outcome, reason string) {
	if m == nil {
		return
	}
	if reason == "" {
		reason = "none"
	}
	m.decisionsTotal.WithLabelValues(kind, outcome, reason).Inc()
}

func (m *DecisionMetrics) ObserveValidationError(kind, field string) {
	if m == nil {
		return
	}
	m.validationTotal.WithLabelValues(kind, field).Inc()
}

func (m *DecisionMetrics) ObserveRetrieval(tier string, ambiguous bool, topScore float64) {
	if m == nil {
		return
	}
	label := "false"
	if ambiguous {
		label = "true"
	}
	m.retrievalTier.WithLabelValues(tier, label).Inc()
	m.topScore.Observe(topScore)
}

func (m *DecisionMetrics) ObserveCache(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheTotal.WithLabelValues(result).Inc()
}
