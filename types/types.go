package types

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// ReferenceAmount is the notional used to compare venue prices: one unit of an
// 18-decimal asset.
var ReferenceAmount = big.NewInt(1e18)

// Quote is a single venue price observation
type Quote struct {
	Venue     string
	TokenIn   common.Address
	TokenOut  common.Address
	AmountIn  *big.Int
	AmountOut *big.Int
}

// SwapRequest describes one leg submitted to a venue
type SwapRequest struct {
	TokenIn      common.Address
	TokenOut     common.Address
	AmountIn     *big.Int
	IsBuy        bool
	MinAmountOut *big.Int // nil disables the output floor
}

// Opportunity is a detected, not yet executed, cross-venue price gap
type Opportunity struct {
	Token0      common.Address `json:"token0"`
	Token1      common.Address `json:"token1"`
	ProfitBps   uint16         `json:"profit_bps"`
	BuyOnVenueA bool           `json:"buy_on_venue_a"`
}

// LegResult records one settled leg of a round trip
type LegResult struct {
	Venue     string         `json:"venue"`
	TokenIn   common.Address `json:"token_in"`
	TokenOut  common.Address `json:"token_out"`
	AmountIn  *big.Int       `json:"amount_in"`
	AmountOut *big.Int       `json:"amount_out"`
	IsBuy     bool           `json:"is_buy"`
}

// TradeResult is the outcome of a completed arbitrage.
// ProfitAmount is the gross token0 gain of the two legs (leg 2 output minus the
// amount spent); NetProfit is the measured change of the account's token0 balance.
type TradeResult struct {
	Token0       common.Address `json:"token0"`
	Token1       common.Address `json:"token1"`
	AmountIn     *big.Int       `json:"amount_in"`
	ProfitAmount *big.Int       `json:"profit_amount"`
	NetProfit    *big.Int       `json:"net_profit"`
	BuyOnVenueA  bool           `json:"buy_on_venue_a"`
	Legs         [2]LegResult   `json:"legs"`
	Timestamp    time.Time      `json:"timestamp"`
}
