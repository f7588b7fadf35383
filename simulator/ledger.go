package simulator

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/michaelpento.lv/arbagent/dex"
)

type balanceKey struct {
	token   common.Address
	account common.Address
}

// Ledger holds paper token balances
type Ledger struct {
	mu       sync.Mutex
	balances map[balanceKey]*big.Int
}

// NewLedger creates an empty ledger
func NewLedger() *Ledger {
	return &Ledger{balances: make(map[balanceKey]*big.Int)}
}

// Credit adds amount of token to account
func (l *Ledger) Credit(token, account common.Address, amount *big.Int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.add(balanceKey{token, account}, amount)
}

// BalanceOf returns a copy of the account balance
func (l *Ledger) BalanceOf(_ context.Context, token, account common.Address) (*big.Int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if b, ok := l.balances[balanceKey{token, account}]; ok {
		return new(big.Int).Set(b), nil
	}
	return new(big.Int), nil
}

// transfer debits amountIn of tokenIn and credits amountOut of tokenOut atomically
func (l *Ledger) transfer(tokenIn, tokenOut, account common.Address, amountIn, amountOut *big.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	in := balanceKey{tokenIn, account}
	have, ok := l.balances[in]
	if !ok || have.Cmp(amountIn) < 0 {
		return fmt.Errorf("%s has %v of %s, needs %s: %w",
			account.Hex(), have, tokenIn.Hex(), amountIn, ErrInsufficientBalance)
	}
	have.Sub(have, amountIn)
	l.add(balanceKey{tokenOut, account}, amountOut)
	return nil
}

func (l *Ledger) add(key balanceKey, amount *big.Int) {
	if b, ok := l.balances[key]; ok {
		b.Add(b, amount)
		return
	}
	l.balances[key] = new(big.Int).Set(amount)
}

var _ dex.BalanceReader = (*Ledger)(nil)
