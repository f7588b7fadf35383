package metrics

import (
	"io"
	"math/big"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAgentMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewAgentMetrics(reg, "test_agent")
	require.NotNil(t, m)

	m.Scans.Inc()
	assert.Equal(t, float64(1), testutil.ToFloat64(m.Scans))

	m.PairsEvaluated.Add(3)
	assert.Equal(t, float64(3), testutil.ToFloat64(m.PairsEvaluated))

	m.Executions.WithLabelValues(OutcomeSuccess).Inc()
	m.Executions.WithLabelValues(OutcomeRejected).Add(2)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.Executions.WithLabelValues(OutcomeSuccess)))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.Executions.WithLabelValues(OutcomeRejected)))

	m.Active.Set(1)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.Active))

	// histograms only accept observations
	m.ExecutionTime.Observe(0.2)
}

func TestAgentMetricsSeparateRegistries(t *testing.T) {
	assert.NotPanics(t, func() {
		NewAgentMetrics(prometheus.NewRegistry(), "agent")
		NewAgentMetrics(prometheus.NewRegistry(), "agent")
	})
}

func TestHandlerExposesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewAgentMetrics(reg, "scrape")
	m.Opportunities.Add(5)

	srv := httptest.NewServer(Handler(reg))
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body), "scrape_opportunities_total 5"))
}

func TestTokens(t *testing.T) {
	huge, ok := new(big.Int).SetString("1000000000000000000000000000000", 10) // 1e30 base units
	require.True(t, ok)

	assert.Equal(t, 1.5, Tokens(big.NewInt(15e17)))
	assert.Equal(t, 1e12, Tokens(huge))
	assert.Equal(t, -2.0, Tokens(big.NewInt(-2e18)))
	assert.Zero(t, Tokens(nil))
}
