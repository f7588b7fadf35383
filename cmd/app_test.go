package cmd

import (
	"bytes"
	"context"
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/michaelpento.lv/arbagent/audit"
	"github.com/michaelpento.lv/arbagent/config"
	"github.com/michaelpento.lv/arbagent/dex"
	"github.com/michaelpento.lv/arbagent/dex/uniswap"
	"github.com/michaelpento.lv/arbagent/simulator"
	"github.com/michaelpento.lv/arbagent/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const (
	testOwner = "0x00000000000000000000000000000000000000aa"
	testWETH  = "0x0000000000000000000000000000000000000001"
	testUSDC  = "0x0000000000000000000000000000000000000002"
)

func dryRunConfig(t *testing.T) *config.Config {
	cfg := config.DefaultConfig()
	cfg.Agent.Owner = testOwner
	cfg.Agent.MinProfitBps = 40
	cfg.Agent.ApprovedTokens = []string{testWETH, testUSDC}
	cfg.VenueA = config.VenueConfig{Kind: config.VenueSim, Name: "SimA", Pools: []config.PoolConfig{
		{Token0: testWETH, Token1: testUSDC, Reserve0: "1000000000000000000000", Reserve1: "1100000000000000000000"},
	}}
	cfg.VenueB = config.VenueConfig{Kind: config.VenueSim, Name: "SimB", Pools: []config.PoolConfig{
		{Token0: testWETH, Token1: testUSDC, Reserve0: "1000000000000000000000", Reserve1: "1000000000000000000000"},
	}}
	cfg.Simulation.Balances = []config.BalanceConfig{{Token: testWETH, Amount: "5000000000000000000"}}
	cfg.Audit.SQLitePath = filepath.Join(t.TempDir(), "audit.db")
	require.NoError(t, cfg.Validate())
	return cfg
}

func TestNewAppDryRun(t *testing.T) {
	cfg := dryRunConfig(t)
	ctx := context.Background()

	a, err := newApp(ctx, cfg, zaptest.NewLogger(t))
	require.NoError(t, err)

	state := a.agent.Snapshot()
	assert.Equal(t, common.HexToAddress(testOwner), state.Owner)
	assert.Equal(t, "SimA", state.VenueA)
	assert.Equal(t, "SimB", state.VenueB)
	assert.Equal(t, uint16(40), state.MinProfitBps)
	assert.True(t, a.agent.IsApproved(common.HexToAddress(testWETH)))

	opps, err := a.agent.FindOpportunities(ctx, config.Addresses(cfg.Agent.ApprovedTokens))
	require.NoError(t, err)
	require.Len(t, opps, 1)

	owner := common.HexToAddress(testOwner)
	result, err := a.agent.ExecuteArbitrage(ctx, owner, opps[0].Token0, opps[0].Token1, big.NewInt(1e17))
	require.NoError(t, err)
	assert.Positive(t, result.NetProfit.Sign())
	a.Close()

	store, err := audit.NewSQLiteStore(cfg.Audit.SQLitePath)
	require.NoError(t, err)
	defer store.Close()
	recs, err := store.List(ctx, "", 0)
	require.NoError(t, err)

	var kinds []audit.Kind
	for _, r := range recs {
		kinds = append(kinds, r.Kind)
	}
	assert.Equal(t, []audit.Kind{
		audit.KindConfigUpdated,
		audit.KindTokenApproval,
		audit.KindTokenApproval,
		audit.KindTradeExecuted,
	}, kinds)
}

func TestWriteOpportunities(t *testing.T) {
	var buf bytes.Buffer
	writeOpportunities(&buf, nil, "A", "B")
	assert.Contains(t, buf.String(), "no opportunities")

	buf.Reset()
	writeOpportunities(&buf, []types.Opportunity{{
		Token0:      common.HexToAddress(testWETH),
		Token1:      common.HexToAddress(testUSDC),
		ProfitBps:   200,
		BuyOnVenueA: false,
	}}, "SimA", "SimB")
	out := buf.String()
	assert.Contains(t, out, "200")
	assert.Contains(t, out, common.HexToAddress(testWETH).Hex())
	assert.Less(t, strings.Index(out, "SimB"), strings.Index(out, "SimA"), "buy venue is listed first")
}

func TestWriteAuditRecords(t *testing.T) {
	var buf bytes.Buffer
	writeAuditRecords(&buf, nil)
	assert.Contains(t, buf.String(), "empty")

	buf.Reset()
	writeAuditRecords(&buf, []audit.Record{{
		ID:        "id-1",
		Kind:      audit.KindEmergencyStop,
		Timestamp: time.Date(2024, 3, 4, 5, 6, 7, 0, time.UTC),
		Detail:    []byte(`{"reason":"halt"}`),
	}})
	out := buf.String()
	assert.Contains(t, out, "2024-03-04 05:06:07")
	assert.Contains(t, out, "emergency_stop")
	assert.Contains(t, out, "id-1")
}

func TestVenueRouter(t *testing.T) {
	log := zaptest.NewLogger(t)
	sim := simulator.NewSimulator("SimA", common.HexToAddress(testOwner), simulator.NewLedger(), log)
	assert.Equal(t, "paper", venueRouter(sim))

	tokens, err := dex.NewERC20(nil, 4)
	require.NoError(t, err)
	chain, err := uniswap.NewVenue(common.Address{}, nil, tokens, nil, log)
	require.NoError(t, err)
	assert.Equal(t, uniswap.MainnetRouter.Hex(), venueRouter(chain))

	// the rate limiter keeps the router visible
	assert.Equal(t, uniswap.MainnetRouter.Hex(), venueRouter(dex.NewRateLimited(chain, 10, 1)))
	assert.Equal(t, "paper", venueRouter(dex.NewRateLimited(sim, 10, 1)))
}

func TestConfigureLoggerFromConfig(t *testing.T) {
	cfg := dryRunConfig(t)
	dir := t.TempDir()
	cfg.Log = config.LogConfig{
		Encoding:  "console",
		File:      filepath.Join(dir, "agent.log"),
		ErrorFile: filepath.Join(dir, "agent-error.log"),
	}

	log, err := configureLogger(cfg)
	require.NoError(t, err)
	log.Info("configured from file")
	_ = log.Sync()

	data, err := os.ReadFile(cfg.Log.File)
	require.NoError(t, err)
	assert.Contains(t, string(data), "configured from file")

	cfg.Log.Encoding = "xml"
	_, err = configureLogger(cfg)
	assert.Error(t, err)
}
