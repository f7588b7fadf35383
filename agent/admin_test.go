package agent

import (
	"context"
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/michaelpento.lv/arbagent/audit"
	"github.com/michaelpento.lv/arbagent/utils/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestNewDefaults(t *testing.T) {
	f := newFixture(t, 75)

	s := f.agent.Snapshot()
	assert.Equal(t, owner, s.Owner)
	assert.True(t, s.Active)
	assert.Equal(t, "VenueA", s.VenueA)
	assert.Equal(t, "VenueB", s.VenueB)
	assert.Equal(t, uint16(75), s.MinProfitBps)
	assert.Equal(t, e18(1), s.MaxTradeAmount)
	assert.Equal(t, uint16(50), s.MaxSlippageBps)
	assert.Equal(t, owner, f.agent.Account())
}

func TestNewRequiresCollaborators(t *testing.T) {
	venue := newMockVenue("V", nil)

	_, err := New(Params{Owner: owner, VenueA: venue, Balances: newBook()})
	assert.Error(t, err)

	_, err = New(Params{Owner: owner, VenueA: venue, VenueB: venue})
	assert.Error(t, err)
}

func TestSnapshotIsACopy(t *testing.T) {
	f := newFixture(t, 50)

	s := f.agent.Snapshot()
	s.MaxTradeAmount.SetInt64(1)
	assert.Equal(t, e18(1), f.agent.Snapshot().MaxTradeAmount)
}

func TestUpdateConfig(t *testing.T) {
	f := newFixture(t, 50)
	ctx := context.Background()

	maxTrade := e18(3)
	require.NoError(t, f.agent.UpdateConfig(ctx, owner, 120, maxTrade, 30))
	maxTrade.SetInt64(0)

	s := f.agent.Snapshot()
	assert.Equal(t, uint16(120), s.MinProfitBps)
	assert.Equal(t, e18(3), s.MaxTradeAmount)
	assert.Equal(t, uint16(30), s.MaxSlippageBps)

	events := f.audit.Events()
	require.Len(t, events, 1)
	assert.Equal(t, audit.KindConfigUpdated, events[0].Kind)
	payload := events[0].Payload.(audit.ConfigUpdated)
	assert.Equal(t, uint16(120), payload.MinProfitBps)
	assert.Equal(t, e18(3), payload.MaxTradeAmount)
}

func TestUpdateConfigRange(t *testing.T) {
	ctx := context.Background()

	t.Run("full uint256 range accepted", func(t *testing.T) {
		f := newFixture(t, 50)
		require.NoError(t, f.agent.UpdateConfig(ctx, owner, 0, math.MaxBig256, 65535))
		require.NoError(t, f.agent.UpdateConfig(ctx, owner, 65535, big.NewInt(0), 0))
	})

	t.Run("out of range rejected", func(t *testing.T) {
		f := newFixture(t, 50)
		tooBig := new(big.Int).Add(math.MaxBig256, big.NewInt(1))
		for _, amount := range []*big.Int{nil, big.NewInt(-1), tooBig} {
			assert.ErrorIs(t, f.agent.UpdateConfig(ctx, owner, 10, amount, 10), ErrAmountOutOfRange)
		}
		assert.Equal(t, uint16(50), f.agent.Snapshot().MinProfitBps)
		assert.Empty(t, f.audit.Events())
	})
}

func TestApproveToken(t *testing.T) {
	f := newFixture(t, 50)
	ctx := context.Background()

	assert.False(t, f.agent.IsApproved(tokenA))
	require.NoError(t, f.agent.ApproveToken(ctx, owner, tokenA, true))
	assert.True(t, f.agent.IsApproved(tokenA))
	require.NoError(t, f.agent.ApproveToken(ctx, owner, tokenA, false))
	assert.False(t, f.agent.IsApproved(tokenA))

	events := f.audit.Events()
	require.Len(t, events, 2)
	assert.Equal(t, audit.TokenApproval{Caller: owner, Token: tokenA, Approved: true}, events[0].Payload)
	assert.Equal(t, audit.TokenApproval{Caller: owner, Token: tokenA, Approved: false}, events[1].Payload)
}

func TestOwnerOnlyOperations(t *testing.T) {
	f := newFixture(t, 50)
	ctx := context.Background()

	assert.ErrorIs(t, f.agent.UpdateConfig(ctx, stranger, 1, e18(1), 1), ErrUnauthorized)
	assert.ErrorIs(t, f.agent.ApproveToken(ctx, stranger, tokenA, true), ErrUnauthorized)
	assert.ErrorIs(t, f.agent.EmergencyStop(ctx, stranger, "nope"), ErrUnauthorized)

	s := f.agent.Snapshot()
	assert.True(t, s.Active)
	assert.Equal(t, uint16(50), s.MinProfitBps)
	assert.False(t, f.agent.IsApproved(tokenA))
	assert.Empty(t, f.audit.Events())
	assert.Zero(t, f.venueCalls())
}

func TestEmergencyStop(t *testing.T) {
	f := newFixture(t, 50)
	f.approve(t, tokenA, tokenB)
	ctx := context.Background()

	require.NoError(t, f.agent.EmergencyStop(ctx, owner, "oracle-divergence"))
	assert.False(t, f.agent.Snapshot().Active)

	for _, caller := range []common.Address{owner, stranger} {
		_, err := f.agent.FindOpportunities(ctx, []common.Address{tokenA, tokenB})
		assert.ErrorIs(t, err, ErrNotActive)
		_, err = f.agent.ExecuteArbitrage(ctx, caller, tokenA, tokenB, big.NewInt(1))
		assert.ErrorIs(t, err, ErrNotActive)
	}
	assert.Zero(t, f.venueCalls())

	// configuration stays owner-editable while stopped
	require.NoError(t, f.agent.UpdateConfig(ctx, owner, 10, e18(1), 10))
	assert.False(t, f.agent.Snapshot().Active)

	kinds := f.audit.Kinds()
	assert.Equal(t, audit.KindEmergencyStop, kinds[2])
	stop := f.audit.Events()[2].Payload.(audit.EmergencyStop)
	assert.Equal(t, "oracle-divergence", stop.Reason)
}

func TestEmergencyStopReasonLength(t *testing.T) {
	f := newFixture(t, 50)
	ctx := context.Background()

	assert.ErrorIs(t, f.agent.EmergencyStop(ctx, owner, strings.Repeat("x", 33)), ErrReasonTooLong)
	assert.True(t, f.agent.Snapshot().Active)
	require.NoError(t, f.agent.EmergencyStop(ctx, owner, strings.Repeat("x", 32)))
}

func TestAgentMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewAgentMetrics(reg, "agent_test")
	f := newFixture(t, 50)

	a, err := New(Params{
		Owner:    owner,
		VenueA:   f.venueA,
		VenueB:   f.venueB,
		Balances: f.book,
		Metrics:  m,
		Logger:   zaptest.NewLogger(t),
	})
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, a.ApproveToken(ctx, owner, tokenA, true))
	require.NoError(t, a.ApproveToken(ctx, owner, tokenB, true))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.Active))

	_, err = a.FindOpportunities(ctx, []common.Address{tokenA, tokenB})
	require.NoError(t, err)
	_, err = a.ExecuteArbitrage(ctx, owner, tokenA, tokenB, big.NewInt(1e17))
	require.NoError(t, err)
	_, err = a.ExecuteArbitrage(ctx, stranger, tokenA, tokenB, big.NewInt(1e17))
	require.Error(t, err)
	require.NoError(t, a.EmergencyStop(ctx, owner, "done"))

	assert.Equal(t, float64(1), testutil.ToFloat64(m.Scans))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.PairsEvaluated))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.Opportunities))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.Executions.WithLabelValues(metrics.OutcomeSuccess)))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.Executions.WithLabelValues(metrics.OutcomeRejected)))
	assert.InDelta(t, 0.002, testutil.ToFloat64(m.RealizedProfit), 1e-12)
	assert.Equal(t, float64(0), testutil.ToFloat64(m.Active))
}
