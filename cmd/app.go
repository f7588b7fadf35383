package cmd

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/michaelpento.lv/arbagent/agent"
	"github.com/michaelpento.lv/arbagent/audit"
	"github.com/michaelpento.lv/arbagent/config"
	"github.com/michaelpento.lv/arbagent/dex"
	"github.com/michaelpento.lv/arbagent/dex/sushiswap"
	"github.com/michaelpento.lv/arbagent/dex/uniswap"
	v2 "github.com/michaelpento.lv/arbagent/dex/v2"
	"github.com/michaelpento.lv/arbagent/simulator"
	"github.com/michaelpento.lv/arbagent/utils/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

const erc20CacheSize = 256

// app holds everything built from a configuration file
type app struct {
	cfg      *config.Config
	agent    *agent.Agent
	audit    audit.Log
	registry *prometheus.Registry
	closers  []func()
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// newApp wires venues, audit sinks and metrics, creates the agent and applies
// the configured thresholds and whitelist as the owner
func newApp(ctx context.Context, cfg *config.Config, log *zap.Logger) (*app, error) {
	a := &app{cfg: cfg, registry: prometheus.NewRegistry()}
	a.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	sinks, err := a.openAuditSinks(ctx, log)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.audit = sinks

	owner := common.HexToAddress(cfg.Agent.Owner)
	account := owner
	if cfg.Agent.Account != "" {
		account = common.HexToAddress(cfg.Agent.Account)
	}

	var (
		venueA, venueB dex.Venue
		balances       dex.BalanceReader
	)
	if cfg.DryRun() {
		ledger := simulator.NewLedger()
		for _, b := range cfg.Simulation.Balances {
			amount, _ := config.ParseAmount(b.Amount)
			ledger.Credit(common.HexToAddress(b.Token), account, amount)
		}
		venueA = newSimVenue(cfg.VenueA, account, ledger, log)
		venueB = newSimVenue(cfg.VenueB, account, ledger, log)
		balances = ledger
	} else {
		venueA, venueB, balances, account, err = a.openChainVenues(ctx, log)
		if err != nil {
			a.Close()
			return nil, err
		}
	}

	log.Info("Venues ready",
		zap.String("venueA", venueA.Name()),
		zap.String("routerA", venueRouter(venueA)),
		zap.String("venueB", venueB.Name()),
		zap.String("routerB", venueRouter(venueB)))

	ag, err := agent.New(agent.Params{
		Owner:        owner,
		Account:      account,
		VenueA:       venueA,
		VenueB:       venueB,
		Balances:     balances,
		MinProfitBps: cfg.Agent.MinProfitBps,
		Audit:        a.audit,
		Metrics:      metrics.NewAgentMetrics(a.registry, cfg.Metrics.Namespace),
		Logger:       log,
	})
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to create agent: %w", err)
	}
	a.agent = ag

	maxTrade, _ := config.ParseAmount(cfg.Agent.MaxTradeAmount)
	if err := ag.UpdateConfig(ctx, owner, cfg.Agent.MinProfitBps, maxTrade, cfg.Agent.MaxSlippageBps); err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to apply agent config: %w", err)
	}
	for _, tok := range config.Addresses(cfg.Agent.ApprovedTokens) {
		if err := ag.ApproveToken(ctx, owner, tok, true); err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to approve %s: %w", tok.Hex(), err)
		}
	}
	return a, nil
}

func (a *app) openAuditSinks(ctx context.Context, log *zap.Logger) (audit.Multi, error) {
	sinks := audit.Multi{audit.NewLogSink(log)}
	cfg := a.cfg.Audit

	if cfg.SQLitePath != "" {
		store, err := audit.NewSQLiteStore(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() { _ = store.Close() })
		sinks = append(sinks, store)
	}
	if cfg.PostgresDSN != "" {
		store, err := audit.NewPostgresStore(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, store.Close)
		sinks = append(sinks, store)
	}
	if cfg.RedisAddr != "" {
		secure, err := config.LoadSecureConfig(false)
		if err != nil {
			return nil, err
		}
		pub, err := audit.NewRedisPublisher(ctx, cfg.RedisAddr, secure.RedisPassword, cfg.RedisChannel)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() { _ = pub.Close() })
		sinks = append(sinks, pub)
	}
	return sinks, nil
}

func (a *app) openChainVenues(ctx context.Context, log *zap.Logger) (dex.Venue, dex.Venue, dex.BalanceReader, common.Address, error) {
	cfg := a.cfg
	secure, err := config.LoadSecureConfig(true)
	if err != nil {
		return nil, nil, nil, common.Address{}, err
	}
	key, err := crypto.HexToECDSA(strings.TrimPrefix(secure.PrivateKey, "0x"))
	if err != nil {
		return nil, nil, nil, common.Address{}, fmt.Errorf("failed to parse private key: %w", err)
	}
	auth, err := bind.NewKeyedTransactorWithChainID(key, big.NewInt(cfg.Network.ChainID))
	if err != nil {
		return nil, nil, nil, common.Address{}, fmt.Errorf("failed to create transactor: %w", err)
	}

	client, err := ethclient.DialContext(ctx, cfg.Network.RPCEndpoint)
	if err != nil {
		return nil, nil, nil, common.Address{}, fmt.Errorf("failed to connect to Ethereum node: %w", err)
	}
	a.closers = append(a.closers, client.Close)

	tokens, err := dex.NewERC20(client, erc20CacheSize)
	if err != nil {
		return nil, nil, nil, common.Address{}, err
	}

	venueA, err := newChainVenue(cfg.VenueA, client, tokens, auth, log)
	if err != nil {
		return nil, nil, nil, common.Address{}, err
	}
	venueB, err := newChainVenue(cfg.VenueB, client, tokens, auth, log)
	if err != nil {
		return nil, nil, nil, common.Address{}, err
	}

	rl := cfg.RPCRateLimit
	return dex.NewRateLimited(venueA, rl.RequestsPerSecond, rl.BurstSize),
		dex.NewRateLimited(venueB, rl.RequestsPerSecond, rl.BurstSize),
		tokens, auth.From, nil
}

func newChainVenue(vc config.VenueConfig, client *ethclient.Client, tokens *dex.ERC20, auth *bind.TransactOpts, log *zap.Logger) (dex.Venue, error) {
	var router common.Address
	if vc.Router != "" {
		router = common.HexToAddress(vc.Router)
	}
	switch vc.Kind {
	case config.VenueUniswap:
		return uniswap.NewVenue(router, client, tokens, auth, log)
	case config.VenueSushiswap:
		return sushiswap.NewVenue(router, client, tokens, auth, log)
	default:
		name := vc.Name
		if name == "" {
			name = router.Hex()
		}
		return v2.NewRouterVenue(v2.Config{Name: name, Router: router}, client, tokens, auth, log)
	}
}

// venueRouter names the contract a venue trades through
func venueRouter(v dex.Venue) string {
	if rp, ok := v.(dex.RouterProvider); ok && rp.GetRouterAddress() != (common.Address{}) {
		return rp.GetRouterAddress().Hex()
	}
	return "paper"
}

func newSimVenue(vc config.VenueConfig, account common.Address, ledger *simulator.Ledger, log *zap.Logger) *simulator.Simulator {
	sim := simulator.NewSimulator(vc.Name, account, ledger, log)
	for _, p := range vc.Pools {
		r0, _ := config.ParseAmount(p.Reserve0)
		r1, _ := config.ParseAmount(p.Reserve1)
		sim.AddPool(common.HexToAddress(p.Token0), common.HexToAddress(p.Token1), r0, r1)
	}
	return sim
}
