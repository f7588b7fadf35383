package dex

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/michaelpento.lv/arbagent/types"
)

// ErrNotSubmitted marks an Execute failure where the swap never reached the
// pool or the chain. Any other Execute error leaves the outcome unknown.
var ErrNotSubmitted = errors.New("swap not submitted")

// NotSubmitted wraps err as a rejection that moved no funds
func NotSubmitted(err error) error {
	if err == nil || errors.Is(err, ErrNotSubmitted) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrNotSubmitted, err)
}

// Venue is a price and execution source the agent trades against
type Venue interface {
	// Name returns the venue identifier
	Name() string

	// Quote returns the output amount for swapping amountIn of tokenIn into
	// tokenOut. It must not change any state.
	Quote(ctx context.Context, tokenIn, tokenOut common.Address, amountIn *big.Int) (*big.Int, error)

	// Execute submits the swap and returns the output actually received.
	// Failures before submission must match ErrNotSubmitted.
	Execute(ctx context.Context, req types.SwapRequest) (*big.Int, error)
}

// BalanceReader reports token balances of an account
type BalanceReader interface {
	BalanceOf(ctx context.Context, token, account common.Address) (*big.Int, error)
}

// RouterProvider defines an interface for venues that trade through a router contract
type RouterProvider interface {
	GetRouterAddress() common.Address
}
