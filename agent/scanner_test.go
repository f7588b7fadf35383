package agent

import (
	"context"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/michaelpento.lv/arbagent/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindOpportunitiesScenario(t *testing.T) {
	f := newFixture(t, 50)
	f.approve(t, tokenA, tokenB)

	opps, err := f.agent.FindOpportunities(context.Background(), []common.Address{tokenA, tokenB})
	require.NoError(t, err)
	assert.Equal(t, []types.Opportunity{
		{Token0: tokenA, Token1: tokenB, ProfitBps: 200, BuyOnVenueA: true},
	}, opps)
}

func TestFindOpportunitiesEvaluatesEveryPair(t *testing.T) {
	all := []common.Address{tokenA, tokenB, tokenC, tokenD}
	for n := 0; n <= len(all); n++ {
		f := newFixture(t, 50)
		f.approve(t, all...)

		opps, err := f.agent.FindOpportunities(context.Background(), all[:n])
		require.NoError(t, err)

		quotesA, _ := f.venueA.calls()
		assert.Equal(t, n*(n-1)/2, quotesA, "n=%d", n)
		assert.Len(t, opps, n*(n-1)/2, "n=%d", n)

		// ascending index order
		idx := make(map[common.Address]int)
		for i, tok := range all[:n] {
			idx[tok] = i
		}
		for k := 1; k < len(opps); k++ {
			prev := [2]int{idx[opps[k-1].Token0], idx[opps[k-1].Token1]}
			cur := [2]int{idx[opps[k].Token0], idx[opps[k].Token1]}
			assert.True(t, prev[0] < cur[0] || (prev[0] == cur[0] && prev[1] < cur[1]))
		}
	}
}

func TestFindOpportunitiesSkipsUnapproved(t *testing.T) {
	f := newFixture(t, 0)
	f.approve(t, tokenA, tokenC)

	opps, err := f.agent.FindOpportunities(context.Background(), []common.Address{tokenA, tokenB, tokenC})
	require.NoError(t, err)
	require.Len(t, opps, 1)
	assert.Equal(t, tokenA, opps[0].Token0)
	assert.Equal(t, tokenC, opps[0].Token1)

	for _, o := range opps {
		assert.NotEqual(t, tokenB, o.Token0)
		assert.NotEqual(t, tokenB, o.Token1)
	}
	quotesA, _ := f.venueA.calls()
	assert.Equal(t, 1, quotesA, "unapproved pairs are never priced")
}

func TestFindOpportunitiesThreshold(t *testing.T) {
	tests := []struct {
		name      string
		minProfit uint16
		want      int
	}{
		{"below spread", 199, 1},
		{"equal to spread", 200, 0},
		{"above spread", 500, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, tt.minProfit)
			f.approve(t, tokenA, tokenB)

			opps, err := f.agent.FindOpportunities(context.Background(), []common.Address{tokenA, tokenB})
			require.NoError(t, err)
			assert.Len(t, opps, tt.want)
		})
	}
}

func TestFindOpportunitiesIdenticalQuotes(t *testing.T) {
	f := newFixture(t, 0)
	f.venueA.setRate(tokenA, tokenB, 1, 1)
	f.approve(t, tokenA, tokenB)

	opps, err := f.agent.FindOpportunities(context.Background(), []common.Address{tokenA, tokenB})
	require.NoError(t, err)
	assert.Empty(t, opps)
}

func TestFindOpportunitiesDuplicates(t *testing.T) {
	f := newFixture(t, 50)
	f.approve(t, tokenA, tokenB)

	opps, err := f.agent.FindOpportunities(context.Background(), []common.Address{tokenA, tokenA, tokenB})
	require.NoError(t, err)

	quotesA, _ := f.venueA.calls()
	assert.Equal(t, 3, quotesA)
	// (A, A) has no spread, both (A, B) pairs are reported
	assert.Len(t, opps, 2)
}

func TestFindOpportunitiesIsReadOnly(t *testing.T) {
	f := newFixture(t, 50)
	f.approve(t, tokenA, tokenB, tokenC)
	before := len(f.audit.Events())
	snap := f.agent.Snapshot()

	_, err := f.agent.FindOpportunities(context.Background(), []common.Address{tokenA, tokenB, tokenC})
	require.NoError(t, err)

	assert.Len(t, f.audit.Events(), before)
	assert.Equal(t, snap, f.agent.Snapshot())
	_, execs := f.venueA.calls()
	assert.Zero(t, execs)
}

func TestFindOpportunitiesFailsOnQuoteError(t *testing.T) {
	f := newFixture(t, 50)
	f.approve(t, tokenA, tokenB)
	f.venueB.quoteErr = errVenueDown

	opps, err := f.agent.FindOpportunities(context.Background(), []common.Address{tokenA, tokenB})
	assert.ErrorIs(t, err, errVenueDown)
	assert.Nil(t, opps)
}
