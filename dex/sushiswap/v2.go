package sushiswap

import (
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/michaelpento.lv/arbagent/dex"
	v2 "github.com/michaelpento.lv/arbagent/dex/v2"
	"go.uber.org/zap"
)

// VenueName is the default venue identifier
const VenueName = "SushiswapV2"

// MainnetRouter is the Sushiswap router on Ethereum mainnet
var MainnetRouter = common.HexToAddress("0xd9e1cE17f2641f24aE83637ab66a2cca9C378B9F")

// NewVenue creates a Sushiswap router venue. A zero router selects mainnet.
func NewVenue(router common.Address, backend v2.Backend, tokens *dex.ERC20, auth *bind.TransactOpts, logger *zap.Logger) (*v2.RouterVenue, error) {
	if router == (common.Address{}) {
		router = MainnetRouter
	}
	venue, err := v2.NewRouterVenue(v2.Config{Name: VenueName, Router: router}, backend, tokens, auth, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Sushiswap V2: %w", err)
	}
	return venue, nil
}
