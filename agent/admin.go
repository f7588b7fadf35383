package agent

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/michaelpento.lv/arbagent/audit"
	"go.uber.org/zap"
)

// UpdateConfig overwrites the profit threshold, trade cap and slippage
// tolerance. Values are only checked against their type range.
func (a *Agent) UpdateConfig(ctx context.Context, caller common.Address, minProfitBps uint16, maxTradeAmount *big.Int, maxSlippageBps uint16) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if caller != a.state.Owner {
		return ErrUnauthorized
	}
	if maxTradeAmount == nil || maxTradeAmount.Sign() < 0 || maxTradeAmount.Cmp(math.MaxBig256) > 0 {
		return ErrAmountOutOfRange
	}

	a.state.MinProfitBps = minProfitBps
	a.state.MaxTradeAmount = new(big.Int).Set(maxTradeAmount)
	a.state.MaxSlippageBps = maxSlippageBps

	a.logger.Info("Config updated",
		zap.Uint16("minProfitBps", minProfitBps),
		zap.Stringer("maxTradeAmount", maxTradeAmount),
		zap.Uint16("maxSlippageBps", maxSlippageBps))
	a.emit(ctx, audit.KindConfigUpdated, audit.ConfigUpdated{
		Caller:         caller,
		MinProfitBps:   minProfitBps,
		MaxTradeAmount: new(big.Int).Set(maxTradeAmount),
		MaxSlippageBps: maxSlippageBps,
	})
	return nil
}

// ApproveToken adds token to or removes it from the whitelist
func (a *Agent) ApproveToken(ctx context.Context, caller, token common.Address, approved bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if caller != a.state.Owner {
		return ErrUnauthorized
	}
	if approved {
		a.whitelist[token] = true
	} else {
		delete(a.whitelist, token)
	}

	a.logger.Info("Token approval changed",
		zap.String("token", token.Hex()),
		zap.Bool("approved", approved))
	a.emit(ctx, audit.KindTokenApproval, audit.TokenApproval{
		Caller:   caller,
		Token:    token,
		Approved: approved,
	})
	return nil
}

// EmergencyStop deactivates the agent. There is no way to reactivate it;
// a new agent has to be deployed.
func (a *Agent) EmergencyStop(ctx context.Context, caller common.Address, reason string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if caller != a.state.Owner {
		return ErrUnauthorized
	}
	if len(reason) > MaxReasonLength {
		return ErrReasonTooLong
	}

	a.state.Active = false
	a.metrics.Active.Set(0)

	a.logger.Warn("Emergency stop", zap.String("reason", reason))
	a.emit(ctx, audit.KindEmergencyStop, audit.EmergencyStop{
		Caller: caller,
		Reason: reason,
	})
	return nil
}
