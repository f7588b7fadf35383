// Package v2 implements dex.Venue on top of a Uniswap-V2-compatible router
// contract. Quotes come from getAmountsOut; swaps go through
// swapExactTokensForTokens and the realized output is measured as the
// recipient's balance change.
package v2

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/michaelpento.lv/arbagent/dex"
	"github.com/michaelpento.lv/arbagent/types"
	"go.uber.org/zap"
)

const routerABIJson = `[
{"inputs":[{"name":"amountIn","type":"uint256"},{"name":"path","type":"address[]"}],"name":"getAmountsOut","outputs":[{"name":"amounts","type":"uint256[]"}],"stateMutability":"view","type":"function"},
{"inputs":[{"name":"amountIn","type":"uint256"},{"name":"amountOutMin","type":"uint256"},{"name":"path","type":"address[]"},{"name":"to","type":"address"},{"name":"deadline","type":"uint256"}],"name":"swapExactTokensForTokens","outputs":[{"name":"amounts","type":"uint256[]"}],"stateMutability":"nonpayable","type":"function"}
]`

// ErrReadOnly is returned by Execute when the venue has no signer
var ErrReadOnly = errors.New("venue has no transaction signer")

// SubmittedError is returned when a swap was broadcast but its outcome could
// not be confirmed. The swap may have been mined.
type SubmittedError struct {
	TxHash common.Hash
	Err    error
}

func (e *SubmittedError) Error() string {
	return fmt.Sprintf("swap %s submitted, outcome unknown: %v", e.TxHash.Hex(), e.Err)
}

func (e *SubmittedError) Unwrap() error { return e.Err }

// Backend is the chain access a router venue needs
type Backend interface {
	bind.ContractBackend
	bind.DeployBackend
}

// Config describes one router deployment
type Config struct {
	Name     string
	Router   common.Address
	Deadline time.Duration // swap deadline from submission, defaults to 2 minutes
}

// RouterVenue trades through a V2 router
type RouterVenue struct {
	name     string
	router   common.Address
	deadline time.Duration
	backend  Backend
	contract *bind.BoundContract
	tokens   *dex.ERC20
	auth     *bind.TransactOpts
	logger   *zap.Logger
}

// NewRouterVenue creates a router venue. auth may be nil for a quote-only venue.
func NewRouterVenue(cfg Config, backend Backend, tokens *dex.ERC20, auth *bind.TransactOpts, logger *zap.Logger) (*RouterVenue, error) {
	parsedABI, err := abi.JSON(strings.NewReader(routerABIJson))
	if err != nil {
		return nil, fmt.Errorf("failed to parse router ABI: %w", err)
	}
	if cfg.Deadline <= 0 {
		cfg.Deadline = 2 * time.Minute
	}

	return &RouterVenue{
		name:     cfg.Name,
		router:   cfg.Router,
		deadline: cfg.Deadline,
		backend:  backend,
		contract: bind.NewBoundContract(cfg.Router, parsedABI, backend, backend, backend),
		tokens:   tokens,
		auth:     auth,
		logger:   logger.With(zap.String("venue", cfg.Name)),
	}, nil
}

// Name returns the venue name
func (v *RouterVenue) Name() string {
	return v.name
}

// GetRouterAddress returns the router contract address
func (v *RouterVenue) GetRouterAddress() common.Address {
	return v.router
}

// Quote returns the router's output estimate for a direct tokenIn -> tokenOut hop
func (v *RouterVenue) Quote(ctx context.Context, tokenIn, tokenOut common.Address, amountIn *big.Int) (*big.Int, error) {
	var out []interface{}
	path := []common.Address{tokenIn, tokenOut}
	if err := v.contract.Call(&bind.CallOpts{Context: ctx}, &out, "getAmountsOut", amountIn, path); err != nil {
		return nil, fmt.Errorf("failed to get amounts out: %w", err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("empty getAmountsOut result")
	}
	amounts, ok := out[0].([]*big.Int)
	if !ok || len(amounts) != len(path) {
		return nil, fmt.Errorf("failed to parse getAmountsOut result")
	}
	return amounts[len(amounts)-1], nil
}

// Execute approves the router if needed, swaps and waits for the receipt.
// The returned amount is the signer's tokenOut balance delta.
func (v *RouterVenue) Execute(ctx context.Context, req types.SwapRequest) (*big.Int, error) {
	if v.auth == nil {
		return nil, dex.NotSubmitted(ErrReadOnly)
	}
	account := v.auth.From

	if err := v.ensureAllowance(ctx, req.TokenIn, req.AmountIn); err != nil {
		return nil, dex.NotSubmitted(err)
	}

	before, err := v.tokens.BalanceOf(ctx, req.TokenOut, account)
	if err != nil {
		return nil, dex.NotSubmitted(fmt.Errorf("failed to read balance before swap: %w", err))
	}

	minOut := req.MinAmountOut
	if minOut == nil {
		minOut = new(big.Int)
	}
	deadline := big.NewInt(time.Now().Add(v.deadline).Unix())

	tx, err := v.contract.Transact(v.transactOpts(ctx), "swapExactTokensForTokens",
		req.AmountIn, minOut, []common.Address{req.TokenIn, req.TokenOut}, account, deadline)
	if err != nil {
		return nil, dex.NotSubmitted(fmt.Errorf("failed to submit swap: %w", err))
	}
	v.logger.Info("Swap submitted",
		zap.String("tx_hash", tx.Hash().Hex()),
		zap.String("token_in", req.TokenIn.Hex()),
		zap.String("token_out", req.TokenOut.Hex()),
		zap.String("amount_in", req.AmountIn.String()),
		zap.Bool("is_buy", req.IsBuy))

	if err := v.waitSuccess(ctx, tx); err != nil {
		return nil, &SubmittedError{TxHash: tx.Hash(), Err: err}
	}

	after, err := v.tokens.BalanceOf(ctx, req.TokenOut, account)
	if err != nil {
		return nil, &SubmittedError{TxHash: tx.Hash(), Err: fmt.Errorf("failed to read balance after swap: %w", err)}
	}
	return new(big.Int).Sub(after, before), nil
}

func (v *RouterVenue) ensureAllowance(ctx context.Context, token common.Address, amount *big.Int) error {
	allowance, err := v.tokens.Allowance(ctx, token, v.auth.From, v.router)
	if err != nil {
		return err
	}
	if allowance.Cmp(amount) >= 0 {
		return nil
	}

	tx, err := v.tokens.Approve(v.transactOpts(ctx), token, v.router, math.MaxBig256)
	if err != nil {
		return err
	}
	v.logger.Info("Router approval submitted",
		zap.String("tx_hash", tx.Hash().Hex()),
		zap.String("token", token.Hex()))
	return v.waitSuccess(ctx, tx)
}

func (v *RouterVenue) waitSuccess(ctx context.Context, tx *ethtypes.Transaction) error {
	receipt, err := bind.WaitMined(ctx, v.backend, tx)
	if err != nil {
		return fmt.Errorf("failed to wait for %s: %w", tx.Hash().Hex(), err)
	}
	if receipt.Status != ethtypes.ReceiptStatusSuccessful {
		return fmt.Errorf("transaction %s reverted", tx.Hash().Hex())
	}
	return nil
}

func (v *RouterVenue) transactOpts(ctx context.Context) *bind.TransactOpts {
	opts := *v.auth
	opts.Context = ctx
	return &opts
}

var (
	_ dex.Venue          = (*RouterVenue)(nil)
	_ dex.RouterProvider = (*RouterVenue)(nil)
)
