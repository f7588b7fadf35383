package agent

import (
	"context"
	"fmt"
	"math"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/michaelpento.lv/arbagent/dex"
	"github.com/michaelpento.lv/arbagent/types"
)

var bpsScale = big.NewInt(BpsScale)

// CalculateProfit prices the reference notional of token0 into token1 on both
// venues and returns the spread in basis points together with the direction.
// buyOnVenueA is true when venue A pays more token1.
func (a *Agent) CalculateProfit(ctx context.Context, token0, token1 common.Address) (uint16, bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calculateProfit(ctx, token0, token1)
}

func (a *Agent) calculateProfit(ctx context.Context, token0, token1 common.Address) (uint16, bool, error) {
	qA, err := quote(ctx, a.venueA, token0, token1, types.ReferenceAmount)
	if err != nil {
		return 0, false, err
	}
	qB, err := quote(ctx, a.venueB, token0, token1, types.ReferenceAmount)
	if err != nil {
		return 0, false, err
	}
	return ProfitBps(qA.AmountOut, qB.AmountOut)
}

// ProfitBps compares two quotes for the same notional. The spread is measured
// against the lower quote and rounded down.
func ProfitBps(pA, pB *big.Int) (uint16, bool, error) {
	if pA == nil || pB == nil || pA.Sign() <= 0 || pB.Sign() <= 0 {
		return 0, false, ErrQuoteDivisionByZero
	}

	buyOnVenueA := pA.Cmp(pB) > 0
	high, low := pB, pA
	if buyOnVenueA {
		high, low = pA, pB
	}

	bps := new(big.Int).Sub(high, low)
	bps.Mul(bps, bpsScale)
	bps.Quo(bps, low)
	if !bps.IsUint64() || bps.Uint64() > math.MaxUint16 {
		return 0, false, fmt.Errorf("%w: %s bps", ErrQuoteOverflow, bps)
	}
	return uint16(bps.Uint64()), buyOnVenueA, nil
}

// quote asks venue for a price and rejects empty answers
func quote(ctx context.Context, venue dex.Venue, tokenIn, tokenOut common.Address, amountIn *big.Int) (types.Quote, error) {
	out, err := venue.Quote(ctx, tokenIn, tokenOut, amountIn)
	if err != nil {
		return types.Quote{}, fmt.Errorf("failed to quote %s->%s on %s: %w", tokenIn.Hex(), tokenOut.Hex(), venue.Name(), err)
	}
	if out == nil || out.Sign() <= 0 {
		return types.Quote{}, fmt.Errorf("%w: %s->%s on %s", ErrQuoteDivisionByZero, tokenIn.Hex(), tokenOut.Hex(), venue.Name())
	}
	return types.Quote{
		Venue:     venue.Name(),
		TokenIn:   tokenIn,
		TokenOut:  tokenOut,
		AmountIn:  amountIn,
		AmountOut: out,
	}, nil
}
