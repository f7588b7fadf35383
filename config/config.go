package config

import (
	"encoding/json"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"gopkg.in/yaml.v2"
)

// Venue kinds
const (
	VenueUniswap   = "uniswap"
	VenueSushiswap = "sushiswap"
	VenueRouter    = "router"
	VenueSim       = "sim"
)

const defaultConfigName = ".arbagent.yaml"

type Config struct {
	// Chain and network settings
	Network NetworkConfig `json:"network" yaml:"network"`

	// Agent ownership, thresholds and token lists
	Agent AgentConfig `json:"agent" yaml:"agent"`

	// Price and execution venues
	VenueA VenueConfig `json:"venue_a" yaml:"venue_a"`
	VenueB VenueConfig `json:"venue_b" yaml:"venue_b"`

	// Starting balances for simulated venues
	Simulation SimulationConfig `json:"simulation" yaml:"simulation"`

	RPCRateLimit RateLimitConfig `json:"rpc_rate_limit" yaml:"rpc_rate_limit"`
	Runner       RunnerConfig    `json:"runner" yaml:"runner"`
	Audit        AuditConfig     `json:"audit" yaml:"audit"`
	Metrics      MetricsConfig   `json:"metrics" yaml:"metrics"`
	Log          LogConfig       `json:"log" yaml:"log"`
}

type NetworkConfig struct {
	RPCEndpoint string `json:"rpc_endpoint" yaml:"rpc_endpoint"`
	ChainID     int64  `json:"chain_id" yaml:"chain_id"`
}

type AgentConfig struct {
	Owner          string   `json:"owner" yaml:"owner"`
	Account        string   `json:"account" yaml:"account"` // trading wallet, defaults to owner
	MinProfitBps   uint16   `json:"min_profit_bps" yaml:"min_profit_bps"`
	MaxTradeAmount string   `json:"max_trade_amount" yaml:"max_trade_amount"`
	MaxSlippageBps uint16   `json:"max_slippage_bps" yaml:"max_slippage_bps"`
	ApprovedTokens []string `json:"approved_tokens" yaml:"approved_tokens"`
	ScanTokens     []string `json:"scan_tokens" yaml:"scan_tokens"`
}

type VenueConfig struct {
	Kind   string       `json:"kind" yaml:"kind"`
	Name   string       `json:"name" yaml:"name"`
	Router string       `json:"router" yaml:"router"` // empty selects the mainnet router
	Pools  []PoolConfig `json:"pools" yaml:"pools"`   // sim only
}

type PoolConfig struct {
	Token0   string `json:"token0" yaml:"token0"`
	Token1   string `json:"token1" yaml:"token1"`
	Reserve0 string `json:"reserve0" yaml:"reserve0"`
	Reserve1 string `json:"reserve1" yaml:"reserve1"`
}

type SimulationConfig struct {
	Balances []BalanceConfig `json:"balances" yaml:"balances"`
}

type BalanceConfig struct {
	Token  string `json:"token" yaml:"token"`
	Amount string `json:"amount" yaml:"amount"`
}

type RateLimitConfig struct {
	RequestsPerSecond float64 `json:"requests_per_second" yaml:"requests_per_second"`
	BurstSize         int     `json:"burst_size" yaml:"burst_size"`
}

type RunnerConfig struct {
	ScanInterval        time.Duration `json:"scan_interval" yaml:"scan_interval"`
	AutoExecute         bool          `json:"auto_execute" yaml:"auto_execute"`
	TradeAmount         string        `json:"trade_amount" yaml:"trade_amount"`
	ExecutionsPerMinute float64       `json:"executions_per_minute" yaml:"executions_per_minute"`
	RecordOpportunities bool          `json:"record_opportunities" yaml:"record_opportunities"`
	DedupeCacheSize     int           `json:"dedupe_cache_size" yaml:"dedupe_cache_size"`
	DedupeWindow        time.Duration `json:"dedupe_window" yaml:"dedupe_window"`
}

type AuditConfig struct {
	SQLitePath   string `json:"sqlite_path" yaml:"sqlite_path"`
	PostgresDSN  string `json:"postgres_dsn" yaml:"postgres_dsn"`
	RedisAddr    string `json:"redis_addr" yaml:"redis_addr"`
	RedisChannel string `json:"redis_channel" yaml:"redis_channel"`
}

type MetricsConfig struct {
	Enabled   bool   `json:"enabled" yaml:"enabled"`
	Addr      string `json:"addr" yaml:"addr"`
	Namespace string `json:"namespace" yaml:"namespace"`
}

// LogConfig selects the log encoding and files. Empty file names log to the
// console only.
type LogConfig struct {
	Debug     bool   `json:"debug" yaml:"debug"`
	Encoding  string `json:"encoding" yaml:"encoding"`
	File      string `json:"file" yaml:"file"`
	ErrorFile string `json:"error_file" yaml:"error_file"`
}

type SecureConfig struct {
	PrivateKey    string
	RedisPassword string
}

// Validate reports every problem found in the configuration at once
func (c *Config) Validate() error {
	var errors []string

	if c.Agent.Owner == "" {
		errors = append(errors, "agent.owner must be specified")
	} else if !common.IsHexAddress(c.Agent.Owner) {
		errors = append(errors, fmt.Sprintf("agent.owner %q is not an address", c.Agent.Owner))
	}
	if c.Agent.Account != "" && !common.IsHexAddress(c.Agent.Account) {
		errors = append(errors, fmt.Sprintf("agent.account %q is not an address", c.Agent.Account))
	}
	if _, err := ParseAmount(c.Agent.MaxTradeAmount); err != nil {
		errors = append(errors, fmt.Sprintf("agent.max_trade_amount: %v", err))
	}
	for _, tok := range append(append([]string{}, c.Agent.ApprovedTokens...), c.Agent.ScanTokens...) {
		if !common.IsHexAddress(tok) {
			errors = append(errors, fmt.Sprintf("token %q is not an address", tok))
		}
	}

	if err := c.VenueA.Validate(); err != nil {
		errors = append(errors, fmt.Sprintf("venue_a: %v", err))
	}
	if err := c.VenueB.Validate(); err != nil {
		errors = append(errors, fmt.Sprintf("venue_b: %v", err))
	}
	if c.VenueA.IsSim() != c.VenueB.IsSim() {
		errors = append(errors, "venues must both be simulated or both on-chain")
	}
	if !c.DryRun() {
		if c.Network.RPCEndpoint == "" {
			errors = append(errors, "network.rpc_endpoint must be specified for on-chain venues")
		}
		if c.Network.ChainID <= 0 {
			errors = append(errors, "network.chain_id must be positive")
		}
	}
	for _, b := range c.Simulation.Balances {
		if !common.IsHexAddress(b.Token) {
			errors = append(errors, fmt.Sprintf("simulation balance token %q is not an address", b.Token))
		}
		if _, err := ParseAmount(b.Amount); err != nil {
			errors = append(errors, fmt.Sprintf("simulation balance: %v", err))
		}
	}

	if err := c.RPCRateLimit.Validate(); err != nil {
		errors = append(errors, fmt.Sprintf("RPC rate limit error: %v", err))
	}
	if err := c.Runner.Validate(); err != nil {
		errors = append(errors, fmt.Sprintf("runner error: %v", err))
	}
	if c.Metrics.Enabled && c.Metrics.Addr == "" {
		errors = append(errors, "metrics.addr must be specified when metrics are enabled")
	}
	if enc := c.Log.Encoding; enc != "" && enc != "json" && enc != "console" {
		errors = append(errors, fmt.Sprintf("log.encoding %q must be json or console", enc))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errors, "; "))
	}
	return nil
}

// IsSim reports whether the venue is an in-memory simulator
func (v *VenueConfig) IsSim() bool {
	return v.Kind == VenueSim
}

func (v *VenueConfig) Validate() error {
	switch v.Kind {
	case VenueUniswap, VenueSushiswap:
		if v.Router != "" && !common.IsHexAddress(v.Router) {
			return fmt.Errorf("router %q is not an address", v.Router)
		}
	case VenueRouter:
		if !common.IsHexAddress(v.Router) {
			return fmt.Errorf("router venues need a router address")
		}
	case VenueSim:
		for _, p := range v.Pools {
			if !common.IsHexAddress(p.Token0) || !common.IsHexAddress(p.Token1) {
				return fmt.Errorf("pool %s/%s has an invalid token", p.Token0, p.Token1)
			}
			for _, r := range []string{p.Reserve0, p.Reserve1} {
				amount, err := ParseAmount(r)
				if err != nil {
					return fmt.Errorf("pool %s/%s: %w", p.Token0, p.Token1, err)
				}
				if amount.Sign() == 0 {
					return fmt.Errorf("pool %s/%s has an empty reserve", p.Token0, p.Token1)
				}
			}
		}
	default:
		return fmt.Errorf("unknown venue kind %q", v.Kind)
	}
	return nil
}

func (r *RateLimitConfig) Validate() error {
	if r.RequestsPerSecond <= 0 {
		return fmt.Errorf("requests per second must be positive")
	}
	if r.BurstSize <= 0 {
		return fmt.Errorf("burst size must be positive")
	}
	return nil
}

// UnmarshalJSON accepts durations as strings such as "15s" or as integer
// nanoseconds
func (r *RunnerConfig) UnmarshalJSON(data []byte) error {
	type plain RunnerConfig
	aux := struct {
		*plain
		ScanInterval json.RawMessage `json:"scan_interval"`
		DedupeWindow json.RawMessage `json:"dedupe_window"`
	}{plain: (*plain)(r)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	var err error
	if r.ScanInterval, err = parseDuration(aux.ScanInterval, r.ScanInterval); err != nil {
		return fmt.Errorf("scan_interval: %w", err)
	}
	if r.DedupeWindow, err = parseDuration(aux.DedupeWindow, r.DedupeWindow); err != nil {
		return fmt.Errorf("dedupe_window: %w", err)
	}
	return nil
}

// MarshalJSON writes durations in their string form
func (r RunnerConfig) MarshalJSON() ([]byte, error) {
	type plain RunnerConfig
	return json.Marshal(struct {
		plain
		ScanInterval string `json:"scan_interval"`
		DedupeWindow string `json:"dedupe_window"`
	}{plain(r), r.ScanInterval.String(), r.DedupeWindow.String()})
}

func parseDuration(raw json.RawMessage, current time.Duration) (time.Duration, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return current, nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, err
		}
		return time.ParseDuration(s)
	}
	var ns int64
	if err := json.Unmarshal(raw, &ns); err != nil {
		return 0, err
	}
	return time.Duration(ns), nil
}

func (r *RunnerConfig) Validate() error {
	if r.ScanInterval <= 0 {
		return fmt.Errorf("scan interval must be positive")
	}
	if r.DedupeCacheSize <= 0 {
		return fmt.Errorf("dedupe cache size must be positive")
	}
	if r.AutoExecute {
		amount, err := ParseAmount(r.TradeAmount)
		if err != nil {
			return fmt.Errorf("trade amount: %w", err)
		}
		if amount.Sign() == 0 {
			return fmt.Errorf("trade amount must be positive")
		}
		if r.ExecutionsPerMinute <= 0 {
			return fmt.Errorf("executions per minute must be positive")
		}
	}
	return nil
}

// DryRun reports whether the agent trades against simulated venues only
func (c *Config) DryRun() bool {
	return c.VenueA.IsSim() && c.VenueB.IsSim()
}

// ParseAmount parses a decimal or 0x-prefixed integer in the uint256 range
func ParseAmount(s string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(strings.TrimSpace(s), 0)
	if !ok {
		return nil, fmt.Errorf("invalid amount %q", s)
	}
	if v.Sign() < 0 || v.Cmp(math.MaxBig256) > 0 {
		return nil, fmt.Errorf("amount %q outside the uint256 range", s)
	}
	return v, nil
}

// Addresses converts hex strings to addresses, keeping their order
func Addresses(list []string) []common.Address {
	out := make([]common.Address, 0, len(list))
	for _, s := range list {
		out = append(out, common.HexToAddress(s))
	}
	return out
}

// LoadConfig reads a JSON or YAML file over the defaults and validates it.
// An empty path means ~/.arbagent.yaml.
func LoadConfig(cfgFile string) (*Config, error) {
	if cfgFile == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get user home directory: %w", err)
		}
		cfgFile = filepath.Join(home, defaultConfigName)
	}

	data, err := os.ReadFile(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}

	config := DefaultConfig()
	if isYAML(cfgFile) {
		err = yaml.Unmarshal(data, config)
	} else {
		err = json.Unmarshal(data, config)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode config file: %w", err)
	}

	ApplyEnv(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// SaveConfig writes cfg as YAML or JSON depending on the file extension
func SaveConfig(cfg *Config, cfgFile string) error {
	if cfgFile == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return err
		}
		cfgFile = filepath.Join(home, defaultConfigName)
	}

	var (
		data []byte
		err  error
	)
	if isYAML(cfgFile) {
		data, err = yaml.Marshal(cfg)
	} else {
		data, err = json.MarshalIndent(cfg, "", "    ")
	}
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return os.WriteFile(cfgFile, data, 0o600)
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

func DefaultConfig() *Config {
	return &Config{
		Network: NetworkConfig{
			RPCEndpoint: "http://localhost:8545",
			ChainID:     1,
		},
		Agent: AgentConfig{
			MinProfitBps:   30,
			MaxTradeAmount: "1000000000000000000", // 1 token at 18 decimals
			MaxSlippageBps: 50,
		},
		VenueA: VenueConfig{Kind: VenueUniswap, Name: "VenueA"},
		VenueB: VenueConfig{Kind: VenueSushiswap, Name: "VenueB"},
		RPCRateLimit: RateLimitConfig{
			RequestsPerSecond: 10,
			BurstSize:         20,
		},
		Runner: RunnerConfig{
			ScanInterval:        15 * time.Second,
			TradeAmount:         "100000000000000000",
			ExecutionsPerMinute: 1,
			DedupeCacheSize:     1024,
			DedupeWindow:        5 * time.Minute,
		},
		Audit: AuditConfig{
			SQLitePath:   "arbagent.db",
			RedisChannel: "arbagent:audit",
		},
		Metrics: MetricsConfig{
			Addr:      ":9090",
			Namespace: "arbagent",
		},
		Log: LogConfig{
			Encoding:  "json",
			File:      "arbagent.log",
			ErrorFile: "arbagent-error.log",
		},
	}
}

// NewConfig returns the defaults with environment overrides applied
func NewConfig() *Config {
	cfg := DefaultConfig()
	ApplyEnv(cfg)
	return cfg
}
