package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveSettlement(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveSettlement("admin", "resolved", decimal.RequireFromString("200.00"))
	m.ObserveSettlement("admin", "already_resolved", decimal.Zero)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.settlements.WithLabelValues("admin", "resolved")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.settlements.WithLabelValues("admin", "already_resolved")))
	assert.Equal(t, 200.0, testutil.ToFloat64(m.payoutTotal))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	require.NotPanics(t, func() {
		m.ObserveSettlement("admin", "resolved", decimal.NewFromInt(1))
		m.ObserveRun("continuous", 1)
		m.ObserveEvaluation("deadline", "kept_open")
		m.ObserveProviderCall("openai", "ok")
	})
}
