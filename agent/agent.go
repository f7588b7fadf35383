// Package agent holds the arbitrage agent: its configuration, token
// whitelist, profit engine, opportunity scanner and execution controller.
package agent

import (
	"errors"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/michaelpento.lv/arbagent/audit"
	"github.com/michaelpento.lv/arbagent/dex"
	"github.com/michaelpento.lv/arbagent/types"
	"github.com/michaelpento.lv/arbagent/utils/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

const (
	// BpsScale is the basis-point denominator
	BpsScale = 10000

	// DefaultMaxSlippageBps is the slippage tolerance set at construction
	DefaultMaxSlippageBps = 50

	// MaxReasonLength bounds the emergency stop reason code in bytes
	MaxReasonLength = 32
)

// DefaultMaxTradeAmount is one unit of an 18-decimal asset
var DefaultMaxTradeAmount = new(big.Int).Set(types.ReferenceAmount)

// State is a point-in-time copy of the agent configuration
type State struct {
	Owner          common.Address
	Active         bool
	VenueA         string
	VenueB         string
	MinProfitBps   uint16
	MaxTradeAmount *big.Int
	MaxSlippageBps uint16
}

// Params configures a new Agent
type Params struct {
	Owner common.Address

	// Account holds the traded balances; defaults to Owner
	Account      common.Address
	VenueA       dex.Venue
	VenueB       dex.Venue
	Balances     dex.BalanceReader
	MinProfitBps uint16
	Audit        audit.Log
	Metrics      *metrics.AgentMetrics
	Logger       *zap.Logger
}

// Agent detects and executes two-venue round trips. Every exported method
// holds the agent lock for its whole duration, so calls never interleave.
type Agent struct {
	mu        sync.Mutex
	state     State
	whitelist map[common.Address]bool

	account  common.Address
	venueA   dex.Venue
	venueB   dex.Venue
	balances dex.BalanceReader

	audit   audit.Log
	metrics *metrics.AgentMetrics
	logger  *zap.Logger
	now     func() time.Time
}

// New creates an active agent with the default trade cap and slippage
func New(p Params) (*Agent, error) {
	if p.VenueA == nil || p.VenueB == nil {
		return nil, errors.New("both venues are required")
	}
	if p.Balances == nil {
		return nil, errors.New("balance reader is required")
	}
	if p.Logger == nil {
		p.Logger = zap.NewNop()
	}
	if p.Metrics == nil {
		p.Metrics = metrics.NewAgentMetrics(prometheus.NewRegistry(), "arbagent")
	}
	if p.Audit == nil {
		p.Audit = audit.NewLogSink(p.Logger)
	}
	account := p.Account
	if account == (common.Address{}) {
		account = p.Owner
	}

	a := &Agent{
		state: State{
			Owner:          p.Owner,
			Active:         true,
			VenueA:         p.VenueA.Name(),
			VenueB:         p.VenueB.Name(),
			MinProfitBps:   p.MinProfitBps,
			MaxTradeAmount: new(big.Int).Set(DefaultMaxTradeAmount),
			MaxSlippageBps: DefaultMaxSlippageBps,
		},
		whitelist: make(map[common.Address]bool),
		account:   account,
		venueA:    p.VenueA,
		venueB:    p.VenueB,
		balances:  p.Balances,
		audit:     p.Audit,
		metrics:   p.Metrics,
		logger:    p.Logger.Named("agent"),
		now:       time.Now,
	}
	a.metrics.Active.Set(1)

	a.logger.Info("Agent created",
		zap.String("owner", p.Owner.Hex()),
		zap.String("account", account.Hex()),
		zap.String("venueA", a.state.VenueA),
		zap.String("venueB", a.state.VenueB),
		zap.Uint16("minProfitBps", p.MinProfitBps))
	return a, nil
}

// Snapshot returns a copy of the current configuration
func (a *Agent) Snapshot() State {
	a.mu.Lock()
	defer a.mu.Unlock()

	s := a.state
	s.MaxTradeAmount = new(big.Int).Set(a.state.MaxTradeAmount)
	return s
}

// IsApproved reports whether token is whitelisted
func (a *Agent) IsApproved(token common.Address) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.whitelist[token]
}

// Account returns the address whose balances the agent trades
func (a *Agent) Account() common.Address {
	return a.account
}
