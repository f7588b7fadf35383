// Package simulator provides an in-memory paper trading venue. Pools follow
// the V2 constant-product rule with a 0.3% fee, and balances live in a Ledger
// that can be shared between several simulated venues.
package simulator

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/michaelpento.lv/arbagent/dex"
	"github.com/michaelpento.lv/arbagent/dex/uniswap"
	"github.com/michaelpento.lv/arbagent/types"
	"go.uber.org/zap"
)

var (
	ErrNoPool              = errors.New("no pool for token pair")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrSlippageExceeded    = errors.New("output below minimum amount")
)

type pairKey struct {
	lo, hi common.Address
}

func keyFor(a, b common.Address) pairKey {
	if bytes.Compare(a.Bytes(), b.Bytes()) > 0 {
		a, b = b, a
	}
	return pairKey{lo: a, hi: b}
}

// pool reserves are stored in pairKey order
type pool struct {
	reserveLo *big.Int
	reserveHi *big.Int
}

func (p *pool) reserves(tokenIn common.Address, key pairKey) (in, out *big.Int) {
	if tokenIn == key.lo {
		return p.reserveLo, p.reserveHi
	}
	return p.reserveHi, p.reserveLo
}

// Simulator is a paper venue trading on behalf of one account
type Simulator struct {
	name    string
	account common.Address
	ledger  *Ledger
	logger  *zap.Logger

	mu    sync.Mutex
	pools map[pairKey]*pool
}

// NewSimulator creates an empty paper venue
func NewSimulator(name string, account common.Address, ledger *Ledger, logger *zap.Logger) *Simulator {
	return &Simulator{
		name:    name,
		account: account,
		ledger:  ledger,
		logger:  logger.With(zap.String("venue", name)),
		pools:   make(map[pairKey]*pool),
	}
}

// AddPool registers (or replaces) the pool for token0/token1
func (s *Simulator) AddPool(token0, token1 common.Address, reserve0, reserve1 *big.Int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := keyFor(token0, token1)
	p := &pool{}
	if token0 == key.lo {
		p.reserveLo, p.reserveHi = new(big.Int).Set(reserve0), new(big.Int).Set(reserve1)
	} else {
		p.reserveLo, p.reserveHi = new(big.Int).Set(reserve1), new(big.Int).Set(reserve0)
	}
	s.pools[key] = p
}

// Reserves returns copies of the pool reserves ordered as (token0, token1)
func (s *Simulator) Reserves(token0, token1 common.Address) (*big.Int, *big.Int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := keyFor(token0, token1)
	p, ok := s.pools[key]
	if !ok {
		return nil, nil, ErrNoPool
	}
	r0, r1 := p.reserves(token0, key)
	return new(big.Int).Set(r0), new(big.Int).Set(r1), nil
}

// Name returns the venue name
func (s *Simulator) Name() string {
	return s.name
}

// Quote returns the constant-product output for amountIn
func (s *Simulator) Quote(_ context.Context, tokenIn, tokenOut common.Address, amountIn *big.Int) (*big.Int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := keyFor(tokenIn, tokenOut)
	p, ok := s.pools[key]
	if !ok {
		return nil, fmt.Errorf("%s %s/%s: %w", s.name, tokenIn.Hex(), tokenOut.Hex(), ErrNoPool)
	}
	reserveIn, reserveOut := p.reserves(tokenIn, key)
	return uniswap.GetAmountOut(amountIn, reserveIn, reserveOut), nil
}

// Execute swaps against the pool, moving reserves and ledger balances
func (s *Simulator) Execute(ctx context.Context, req types.SwapRequest) (*big.Int, error) {
	if err := ctx.Err(); err != nil {
		return nil, dex.NotSubmitted(err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := keyFor(req.TokenIn, req.TokenOut)
	p, ok := s.pools[key]
	if !ok {
		return nil, dex.NotSubmitted(fmt.Errorf("%s %s/%s: %w", s.name, req.TokenIn.Hex(), req.TokenOut.Hex(), ErrNoPool))
	}
	reserveIn, reserveOut := p.reserves(req.TokenIn, key)
	amountOut := uniswap.GetAmountOut(req.AmountIn, reserveIn, reserveOut)
	if req.MinAmountOut != nil && amountOut.Cmp(req.MinAmountOut) < 0 {
		return nil, dex.NotSubmitted(fmt.Errorf("%s: got %s, want at least %s: %w",
			s.name, amountOut, req.MinAmountOut, ErrSlippageExceeded))
	}

	if err := s.ledger.transfer(req.TokenIn, req.TokenOut, s.account, req.AmountIn, amountOut); err != nil {
		return nil, dex.NotSubmitted(err)
	}
	reserveIn.Add(reserveIn, req.AmountIn)
	reserveOut.Sub(reserveOut, amountOut)

	s.logger.Debug("Paper swap executed",
		zap.String("token_in", req.TokenIn.Hex()),
		zap.String("token_out", req.TokenOut.Hex()),
		zap.String("amount_in", req.AmountIn.String()),
		zap.String("amount_out", amountOut.String()),
		zap.Bool("is_buy", req.IsBuy))

	return amountOut, nil
}

var _ dex.Venue = (*Simulator)(nil)
