package uniswap

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/michaelpento.lv/arbagent/dex"
	v2 "github.com/michaelpento.lv/arbagent/dex/v2"
	"go.uber.org/zap"
)

// VenueName is the default venue identifier
const VenueName = "UniswapV2"

// MainnetRouter is the Uniswap V2 router on Ethereum mainnet
var MainnetRouter = common.HexToAddress("0x7a250d5630B4cF539739dF2C5dAcb4c659F2488D")

// Fee numerator and denominator of a 0.3% V2 pool
var (
	feeNumerator   = big.NewInt(997)
	feeDenominator = big.NewInt(1000)
)

// NewVenue creates a Uniswap V2 router venue. A zero router selects mainnet.
func NewVenue(router common.Address, backend v2.Backend, tokens *dex.ERC20, auth *bind.TransactOpts, logger *zap.Logger) (*v2.RouterVenue, error) {
	if router == (common.Address{}) {
		router = MainnetRouter
	}
	venue, err := v2.NewRouterVenue(v2.Config{Name: VenueName, Router: router}, backend, tokens, auth, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Uniswap V2: %w", err)
	}
	return venue, nil
}

// GetAmountOut calculates the output amount for an input amount against a
// constant-product pool with the 0.3% fee
func GetAmountOut(amountIn, reserveIn, reserveOut *big.Int) *big.Int {
	if amountIn.Sign() <= 0 || reserveIn.Sign() <= 0 || reserveOut.Sign() <= 0 {
		return big.NewInt(0)
	}

	amountInWithFee := new(big.Int).Mul(amountIn, feeNumerator)
	numerator := new(big.Int).Mul(amountInWithFee, reserveOut)
	denominator := new(big.Int).Add(
		new(big.Int).Mul(reserveIn, feeDenominator),
		amountInWithFee,
	)
	return new(big.Int).Div(numerator, denominator)
}

// GetAmountIn calculates the input amount required for a desired output.
// It returns nil when the pool cannot provide amountOut.
func GetAmountIn(amountOut, reserveIn, reserveOut *big.Int) *big.Int {
	if amountOut.Sign() <= 0 || reserveIn.Sign() <= 0 || reserveOut.Cmp(amountOut) <= 0 {
		return nil
	}

	numerator := new(big.Int).Mul(
		new(big.Int).Mul(reserveIn, amountOut),
		feeDenominator,
	)
	denominator := new(big.Int).Mul(
		new(big.Int).Sub(reserveOut, amountOut),
		feeNumerator,
	)
	return new(big.Int).Add(
		new(big.Int).Div(numerator, denominator),
		big.NewInt(1),
	)
}
