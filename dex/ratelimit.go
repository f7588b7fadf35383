package dex

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/michaelpento.lv/arbagent/types"
	"golang.org/x/time/rate"
)

// RateLimited wraps a Venue so that every call waits for a limiter token.
// Quotes and executions share one budget since both hit the same RPC endpoint.
type RateLimited struct {
	venue   Venue
	limiter *rate.Limiter
}

// NewRateLimited creates a rate limited venue allowing rps calls per second
func NewRateLimited(venue Venue, rps float64, burst int) *RateLimited {
	return &RateLimited{
		venue:   venue,
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
	}
}

// Name returns the wrapped venue name
func (r *RateLimited) Name() string {
	return r.venue.Name()
}

// Quote waits for the limiter and forwards the quote
func (r *RateLimited) Quote(ctx context.Context, tokenIn, tokenOut common.Address, amountIn *big.Int) (*big.Int, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("failed to wait for rate limiter: %w", err)
	}
	return r.venue.Quote(ctx, tokenIn, tokenOut, amountIn)
}

// Execute waits for the limiter and forwards the swap
func (r *RateLimited) Execute(ctx context.Context, req types.SwapRequest) (*big.Int, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, NotSubmitted(fmt.Errorf("failed to wait for rate limiter: %w", err))
	}
	return r.venue.Execute(ctx, req)
}

// GetRouterAddress returns the wrapped venue's router, or the zero address for
// venues without one
func (r *RateLimited) GetRouterAddress() common.Address {
	if rp, ok := r.venue.(RouterProvider); ok {
		return rp.GetRouterAddress()
	}
	return common.Address{}
}
