package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
)

// Metrics groups the settlement and resolver collectors. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	settlements   *prometheus.CounterVec
	payoutTotal   prometheus.Counter
	resolverRuns  *prometheus.CounterVec
	evaluations   *prometheus.CounterVec
	providerCalls *prometheus.CounterVec
	runDuration   *prometheus.HistogramVec
}

// New creates the collectors and registers them on reg
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		settlements: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "binarybets_settlements_total",
			Help: "settlement attempts by trigger and outcome",
		}, []string{"resolved_by", "outcome"}),
		payoutTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "binarybets_payout_total",
			Help: "virtual currency paid to winners",
		}),
		resolverRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "binarybets_resolver_runs_total",
			Help: "resolver passes by policy",
		}, []string{"policy"}),
		evaluations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "binarybets_resolver_evaluations_total",
			Help: "per-market resolver outcomes",
		}, []string{"policy", "outcome"}),
		providerCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "binarybets_ai_provider_calls_total",
			Help: "AI provider calls by provider and result",
		}, []string{"provider", "result"}),
		runDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "binarybets_resolver_run_seconds",
			Help:    "duration of a resolver pass",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
		}, []string{"policy"}),
	}
	reg.MustRegister(m.settlements, m.payoutTotal, m.resolverRuns, m.evaluations, m.providerCalls, m.runDuration)
	return m
}

func (m *Metrics) ObserveSettlement(resolvedBy, outcome string, payout decimal.Decimal) {
	if m == nil {
		return
	}
	m.settlements.WithLabelValues(resolvedBy, outcome).Inc()
	if payout.IsPositive() {
		m.payoutTotal.Add(payout.InexactFloat64())
	}
}

func (m *Metrics) ObserveRun(policy string, seconds float64) {
	if m == nil {
		return
	}
	m.resolverRuns.WithLabelValues(policy).Inc()
	m.runDuration.WithLabelValues(policy).Observe(seconds)
}

func (m *Metrics) ObserveEvaluation(policy, outcome string) {
	if m == nil {
		return
	}
	m.evaluations.WithLabelValues(policy, outcome).Inc()
}

func (m *Metrics) ObserveProviderCall(provider, result string) {
	if m == nil {
		return
	}
	m.providerCalls.WithLabelValues(provider, result).Inc()
}
