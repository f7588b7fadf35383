package agent

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/michaelpento.lv/arbagent/audit"
	"github.com/michaelpento.lv/arbagent/dex"
	"github.com/michaelpento.lv/arbagent/types"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

var (
	owner    = common.HexToAddress("0x00000000000000000000000000000000000000aa")
	stranger = common.HexToAddress("0x00000000000000000000000000000000000000bb")

	tokenA = common.HexToAddress("0x0000000000000000000000000000000000000001")
	tokenB = common.HexToAddress("0x0000000000000000000000000000000000000002")
	tokenC = common.HexToAddress("0x0000000000000000000000000000000000000003")
	tokenD = common.HexToAddress("0x0000000000000000000000000000000000000004")

	errVenueDown = errors.New("venue down")
)

func e18(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), big.NewInt(1e18))
}

// book tracks balances of a single account
type book struct {
	mu       sync.Mutex
	balances map[common.Address]*big.Int
	err      error
}

func newBook() *book {
	return &book{balances: make(map[common.Address]*big.Int)}
}

func (b *book) BalanceOf(_ context.Context, token, _ common.Address) (*big.Int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return nil, b.err
	}
	if bal, ok := b.balances[token]; ok {
		return new(big.Int).Set(bal), nil
	}
	return new(big.Int), nil
}

func (b *book) add(token common.Address, amount *big.Int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	bal, ok := b.balances[token]
	if !ok {
		bal = new(big.Int)
		b.balances[token] = bal
	}
	bal.Add(bal, amount)
}

type rate struct{ num, den int64 }

// mockVenue prices swaps at fixed rates and counts every call
type mockVenue struct {
	name  string
	rates map[[2]common.Address]rate
	book  *book

	// execNum/execDen scale the realized output relative to the quote
	execNum, execDen int64
	quoteErr         error
	execErr          error

	// settleErr is returned after the swap has moved the book
	settleErr error

	mu         sync.Mutex
	quoteCalls int
	execCalls  int
	requests   []types.SwapRequest
}

func newMockVenue(name string, b *book) *mockVenue {
	return &mockVenue{
		name:    name,
		rates:   make(map[[2]common.Address]rate),
		book:    b,
		execNum: 1,
		execDen: 1,
	}
}

func (m *mockVenue) setRate(tokenIn, tokenOut common.Address, num, den int64) {
	m.rates[[2]common.Address{tokenIn, tokenOut}] = rate{num, den}
}

func (m *mockVenue) Name() string { return m.name }

func (m *mockVenue) price(tokenIn, tokenOut common.Address, amountIn *big.Int) *big.Int {
	r, ok := m.rates[[2]common.Address{tokenIn, tokenOut}]
	if !ok {
		r = rate{1, 1}
	}
	out := new(big.Int).Mul(amountIn, big.NewInt(r.num))
	return out.Quo(out, big.NewInt(r.den))
}

func (m *mockVenue) Quote(_ context.Context, tokenIn, tokenOut common.Address, amountIn *big.Int) (*big.Int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.quoteCalls++
	if m.quoteErr != nil {
		return nil, m.quoteErr
	}
	return m.price(tokenIn, tokenOut, amountIn), nil
}

func (m *mockVenue) Execute(_ context.Context, req types.SwapRequest) (*big.Int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.execCalls++
	m.requests = append(m.requests, req)
	if m.execErr != nil {
		return nil, m.execErr
	}

	out := m.price(req.TokenIn, req.TokenOut, req.AmountIn)
	out.Mul(out, big.NewInt(m.execNum))
	out.Quo(out, big.NewInt(m.execDen))
	if req.MinAmountOut != nil && out.Cmp(req.MinAmountOut) < 0 {
		return nil, dex.NotSubmitted(errors.New("slippage exceeded"))
	}
	if m.book != nil {
		m.book.add(req.TokenIn, new(big.Int).Neg(req.AmountIn))
		m.book.add(req.TokenOut, out)
	}
	if m.settleErr != nil {
		return nil, m.settleErr
	}
	return out, nil
}

func (m *mockVenue) calls() (quotes, execs int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.quoteCalls, m.execCalls
}

type fixture struct {
	agent  *Agent
	venueA *mockVenue
	venueB *mockVenue
	book   *book
	audit  *audit.Recorder
}

// newFixture builds an agent whose venue A pays 2% more token1 per token0 than
// venue B for every pair, so the spread is 200 bps in favour of buying on A.
func newFixture(t *testing.T, minProfitBps uint16) *fixture {
	t.Helper()

	b := newBook()
	b.add(tokenA, e18(10))
	venueA := newMockVenue("VenueA", b)
	venueB := newMockVenue("VenueB", b)
	for _, t0 := range []common.Address{tokenA, tokenB, tokenC, tokenD} {
		for _, t1 := range []common.Address{tokenA, tokenB, tokenC, tokenD} {
			if t0 != t1 && t0.Big().Cmp(t1.Big()) < 0 {
				venueA.setRate(t0, t1, 102, 100)
			}
		}
	}

	rec := &audit.Recorder{}
	a, err := New(Params{
		Owner:        owner,
		VenueA:       venueA,
		VenueB:       venueB,
		Balances:     b,
		MinProfitBps: minProfitBps,
		Audit:        rec,
		Logger:       zaptest.NewLogger(t),
	})
	require.NoError(t, err)

	return &fixture{agent: a, venueA: venueA, venueB: venueB, book: b, audit: rec}
}

func (f *fixture) approve(t *testing.T, tokens ...common.Address) {
	t.Helper()
	for _, tok := range tokens {
		require.NoError(t, f.agent.ApproveToken(context.Background(), owner, tok, true))
	}
}

func (f *fixture) venueCalls() int {
	qa, ea := f.venueA.calls()
	qb, eb := f.venueB.calls()
	return qa + ea + qb + eb
}
