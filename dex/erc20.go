package dex

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	lru "github.com/hashicorp/golang-lru"
)

const erc20ABIJson = `[
{"constant":true,"inputs":[{"name":"owner","type":"address"}],"name":"balanceOf","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
{"constant":true,"inputs":[{"name":"owner","type":"address"},{"name":"spender","type":"address"}],"name":"allowance","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
{"constant":false,"inputs":[{"name":"spender","type":"address"},{"name":"amount","type":"uint256"}],"name":"approve","outputs":[{"name":"","type":"bool"}],"stateMutability":"nonpayable","type":"function"}
]`

// ERC20 reads and approves ERC-20 token balances over a contract backend.
// Bound contracts are cached per token address.
type ERC20 struct {
	backend   bind.ContractBackend
	erc20ABI  abi.ABI
	contracts *lru.Cache
}

// NewERC20 creates a token helper caching up to cacheSize bound contracts
func NewERC20(backend bind.ContractBackend, cacheSize int) (*ERC20, error) {
	parsedABI, err := abi.JSON(strings.NewReader(erc20ABIJson))
	if err != nil {
		return nil, fmt.Errorf("failed to parse erc20 ABI: %w", err)
	}
	cache, err := lru.New(cacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create contract cache: %w", err)
	}

	return &ERC20{
		backend:   backend,
		erc20ABI:  parsedABI,
		contracts: cache,
	}, nil
}

// BalanceOf returns the token balance of account
func (e *ERC20) BalanceOf(ctx context.Context, token, account common.Address) (*big.Int, error) {
	return e.callUint(ctx, token, "balanceOf", account)
}

// Allowance returns how much spender may move on behalf of owner
func (e *ERC20) Allowance(ctx context.Context, token, owner, spender common.Address) (*big.Int, error) {
	return e.callUint(ctx, token, "allowance", owner, spender)
}

// Approve submits an approve transaction and returns it unmined
func (e *ERC20) Approve(opts *bind.TransactOpts, token, spender common.Address, amount *big.Int) (*ethtypes.Transaction, error) {
	tx, err := e.contract(token).Transact(opts, "approve", spender, amount)
	if err != nil {
		return nil, fmt.Errorf("failed to approve %s: %w", token.Hex(), err)
	}
	return tx, nil
}

func (e *ERC20) callUint(ctx context.Context, token common.Address, method string, args ...interface{}) (*big.Int, error) {
	var out []interface{}
	if err := e.contract(token).Call(&bind.CallOpts{Context: ctx}, &out, method, args...); err != nil {
		return nil, fmt.Errorf("failed to call %s on %s: %w", method, token.Hex(), err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("empty %s result from %s", method, token.Hex())
	}
	value, ok := out[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("failed to parse %s result", method)
	}
	return value, nil
}

func (e *ERC20) contract(token common.Address) *bind.BoundContract {
	if c, ok := e.contracts.Get(token); ok {
		return c.(*bind.BoundContract)
	}
	c := bind.NewBoundContract(token, e.erc20ABI, e.backend, e.backend, e.backend)
	e.contracts.Add(token, c)
	return c
}
