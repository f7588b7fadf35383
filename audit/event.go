// Package audit records what the agent did for external observers. The log is
// append-only: the agent writes records and never reads them back.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/michaelpento.lv/arbagent/types"
)

// Kind names an audit record type
type Kind string

const (
	KindOpportunityObserved Kind = "opportunity_observed"
	KindTradeExecuted       Kind = "trade_executed"
	KindExecutionFailed     Kind = "execution_failed"
	KindConfigUpdated       Kind = "config_updated"
	KindTokenApproval       Kind = "token_approval"
	KindEmergencyStop       Kind = "emergency_stop"
)

// Log receives audit events
type Log interface {
	Emit(ctx context.Context, e Event) error
}

// Event is one audit record. Payload is one of the payload structs below.
type Event struct {
	ID        uuid.UUID
	Kind      Kind
	Timestamp time.Time
	Payload   any
}

// NewEvent stamps a payload with a fresh id
func NewEvent(kind Kind, ts time.Time, payload any) Event {
	return Event{
		ID:        uuid.New(),
		Kind:      kind,
		Timestamp: ts.UTC(),
		Payload:   payload,
	}
}

// OpportunityObserved is emitted for a detected but unexecuted opportunity
type OpportunityObserved struct {
	Token0      common.Address `json:"token0"`
	Token1      common.Address `json:"token1"`
	ProfitBps   uint16         `json:"profit_bps"`
	BuyOnVenueA bool           `json:"buy_on_venue_a"`
}

// TradeExecuted is emitted once per completed arbitrage
type TradeExecuted struct {
	types.TradeResult
}

// ExecutionFailed is emitted when a trade fails after at least one leg settled
type ExecutionFailed struct {
	Token0        common.Address    `json:"token0"`
	Token1        common.Address    `json:"token1"`
	AmountIn      *big.Int          `json:"amount_in"`
	CompletedLegs []types.LegResult `json:"completed_legs"`
	Error         string            `json:"error"`
}

// ConfigUpdated carries the new configuration values
type ConfigUpdated struct {
	Caller         common.Address `json:"caller"`
	MinProfitBps   uint16         `json:"min_profit_bps"`
	MaxTradeAmount *big.Int       `json:"max_trade_amount"`
	MaxSlippageBps uint16         `json:"max_slippage_bps"`
}

// TokenApproval records a whitelist change
type TokenApproval struct {
	Caller   common.Address `json:"caller"`
	Token    common.Address `json:"token"`
	Approved bool           `json:"approved"`
}

// EmergencyStop records the agent being deactivated
type EmergencyStop struct {
	Caller common.Address `json:"caller"`
	Reason string         `json:"reason"`
}

// Record is the serialized form stored and published by the sinks
type Record struct {
	ID        string          `json:"id"`
	Kind      Kind            `json:"kind"`
	Timestamp time.Time       `json:"timestamp"`
	Detail    json.RawMessage `json:"detail"`
}

// Encode serializes an event payload to JSON
func Encode(e Event) (Record, error) {
	detail, err := json.Marshal(e.Payload)
	if err != nil {
		return Record{}, fmt.Errorf("failed to marshal %s payload: %w", e.Kind, err)
	}
	return Record{
		ID:        e.ID.String(),
		Kind:      e.Kind,
		Timestamp: e.Timestamp,
		Detail:    detail,
	}, nil
}
