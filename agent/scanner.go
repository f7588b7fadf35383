package agent

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/michaelpento.lv/arbagent/types"
	"go.uber.org/zap"
)

// FindOpportunities prices every unordered pair of whitelisted tokens and
// returns the pairs whose spread is strictly above the profit threshold, in
// (i, j) order. It does not change state or write audit records. A pricing
// error on any pair fails the whole scan.
func (a *Agent) FindOpportunities(ctx context.Context, tokens []common.Address) ([]types.Opportunity, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.state.Active {
		return nil, ErrNotActive
	}
	a.metrics.Scans.Inc()

	minProfit := a.state.MinProfitBps
	var opportunities []types.Opportunity

	for i := 0; i < len(tokens); i++ {
		for j := i + 1; j < len(tokens); j++ {
			token0, token1 := tokens[i], tokens[j]
			if !a.whitelist[token0] || !a.whitelist[token1] {
				continue
			}

			bps, buyOnVenueA, err := a.calculateProfit(ctx, token0, token1)
			if err != nil {
				return nil, fmt.Errorf("failed to price pair %s/%s: %w", token0.Hex(), token1.Hex(), err)
			}
			a.metrics.PairsEvaluated.Inc()

			if bps <= minProfit {
				continue
			}
			opportunities = append(opportunities, types.Opportunity{
				Token0:      token0,
				Token1:      token1,
				ProfitBps:   bps,
				BuyOnVenueA: buyOnVenueA,
			})
		}
	}

	a.metrics.Opportunities.Add(float64(len(opportunities)))
	a.logger.Debug("Scan finished",
		zap.Int("tokens", len(tokens)),
		zap.Int("opportunities", len(opportunities)))
	return opportunities, nil
}
