package bot

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/ethereum/go-ethereum/common"
	lru "github.com/hashicorp/golang-lru"
	"github.com/michaelpento.lv/arbagent/agent"
	"github.com/michaelpento.lv/arbagent/audit"
	"github.com/michaelpento.lv/arbagent/types"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Config controls the scan loop
type Config struct {
	Owner    common.Address
	Tokens   []common.Address
	Interval time.Duration

	// RecordOpportunities writes an audit record for every newly seen opportunity
	RecordOpportunities bool
	DedupeCacheSize     int
	DedupeWindow        time.Duration

	// AutoExecute trades the best opportunity of a scan with TradeAmount
	AutoExecute         bool
	TradeAmount         *big.Int
	ExecutionsPerMinute float64
}

// Cycle is the outcome of one scan
type Cycle struct {
	Opportunities []types.Opportunity
	Recorded      int
	Trade         *types.TradeResult
}

// Bot periodically scans for opportunities and optionally executes them
type Bot struct {
	cfg     Config
	agent   *agent.Agent
	audit   audit.Log
	seen    *lru.Cache
	limiter *rate.Limiter
	logger  *zap.Logger
	now     func() time.Time
	wg      sync.WaitGroup

	mu     sync.Mutex
	halted bool
}

// New creates a runner for a
func New(cfg Config, a *agent.Agent, log audit.Log, logger *zap.Logger) (*Bot, error) {
	if cfg.Interval <= 0 {
		return nil, errors.New("scan interval must be positive")
	}
	if cfg.AutoExecute && (cfg.TradeAmount == nil || cfg.TradeAmount.Sign() <= 0) {
		return nil, errors.New("auto execution needs a positive trade amount")
	}
	if cfg.DedupeCacheSize <= 0 {
		cfg.DedupeCacheSize = 1024
	}
	seen, err := lru.New(cfg.DedupeCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create dedupe cache: %w", err)
	}

	limit := rate.Inf
	if cfg.ExecutionsPerMinute > 0 {
		limit = rate.Limit(cfg.ExecutionsPerMinute / 60)
	}

	return &Bot{
		cfg:     cfg,
		agent:   a,
		audit:   log,
		seen:    seen,
		limiter: rate.NewLimiter(limit, 1),
		logger:  logger.Named("bot"),
		now:     time.Now,
	}, nil
}

// Start runs the scan loop until ctx is cancelled or the agent is stopped
func (b *Bot) Start(ctx context.Context) error {
	b.logger.Info("Starting arbitrage runner...",
		zap.Int("tokens", len(b.cfg.Tokens)),
		zap.Duration("interval", b.cfg.Interval),
		zap.Bool("autoExecute", b.cfg.AutoExecute))

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		b.loop(ctx)
	}()
	return nil
}

// Stop waits for the scan loop to exit
func (b *Bot) Stop() {
	b.logger.Info("Stopping arbitrage runner...")
	b.wg.Wait()
}

// Halted reports whether auto execution was switched off after a failed trade
func (b *Bot) Halted() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.halted
}

func (b *Bot) loop(ctx context.Context) {
	ticker := time.NewTicker(b.cfg.Interval)
	defer ticker.Stop()

	for {
		if _, err := b.RunOnce(ctx); err != nil {
			if errors.Is(err, agent.ErrNotActive) {
				b.logger.Warn("Agent stopped, runner exiting")
				return
			}
			if ctx.Err() != nil {
				return
			}
			b.logger.Error("Scan failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// RunOnce performs one scan, records new opportunities and, when enabled,
// executes the most profitable one
func (b *Bot) RunOnce(ctx context.Context) (*Cycle, error) {
	opps, err := b.agent.FindOpportunities(ctx, b.cfg.Tokens)
	if err != nil {
		return nil, err
	}
	cycle := &Cycle{Opportunities: opps}

	if b.cfg.RecordOpportunities {
		for _, opp := range opps {
			if !b.firstSeen(opp) {
				continue
			}
			cycle.Recorded++
			if err := b.audit.Emit(ctx, audit.NewEvent(audit.KindOpportunityObserved, b.now(), audit.OpportunityObserved(opp))); err != nil {
				b.logger.Error("Failed to record opportunity", zap.Error(err))
			}
		}
	}

	if len(opps) == 0 || !b.cfg.AutoExecute || b.Halted() {
		return cycle, nil
	}
	if !b.limiter.Allow() {
		b.logger.Debug("Execution throttled")
		return cycle, nil
	}

	best := Best(opps)
	result, err := b.agent.ExecuteArbitrage(ctx, b.cfg.Owner, best.Token0, best.Token1, b.cfg.TradeAmount)
	switch {
	case err == nil:
		cycle.Trade = result
	case errors.Is(err, agent.ErrPartialExecution), errors.Is(err, agent.ErrNegativeRealizedProfit):
		b.mu.Lock()
		b.halted = true
		b.mu.Unlock()
		b.logger.Error("Trade needs manual reconciliation, auto execution disabled",
			zap.String("token0", best.Token0.Hex()),
			zap.String("token1", best.Token1.Hex()),
			zap.Error(err))
	case errors.Is(err, agent.ErrNotActive):
		return cycle, err
	default:
		b.logger.Warn("Execution rejected",
			zap.String("token0", best.Token0.Hex()),
			zap.String("token1", best.Token1.Hex()),
			zap.Error(err))
	}
	return cycle, nil
}

// Best returns the opportunity with the largest spread, the earliest on ties
func Best(opps []types.Opportunity) types.Opportunity {
	best := opps[0]
	for _, o := range opps[1:] {
		if o.ProfitBps > best.ProfitBps {
			best = o
		}
	}
	return best
}

// firstSeen reports whether opp was not observed within the dedupe window
func (b *Bot) firstSeen(opp types.Opportunity) bool {
	key := opportunityKey(opp)
	now := b.now()
	if v, ok := b.seen.Get(key); ok {
		if last := v.(time.Time); now.Sub(last) < b.cfg.DedupeWindow {
			return false
		}
	}
	b.seen.Add(key, now)
	return true
}

func opportunityKey(opp types.Opportunity) uint64 {
	var buf [2*common.AddressLength + 3]byte
	copy(buf[:], opp.Token0.Bytes())
	copy(buf[common.AddressLength:], opp.Token1.Bytes())
	binary.BigEndian.PutUint16(buf[2*common.AddressLength:], opp.ProfitBps)
	if opp.BuyOnVenueA {
		buf[len(buf)-1] = 1
	}
	return xxhash.Sum64(buf[:])
}
