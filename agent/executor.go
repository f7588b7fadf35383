package agent

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/michaelpento.lv/arbagent/audit"
	"github.com/michaelpento.lv/arbagent/dex"
	"github.com/michaelpento.lv/arbagent/types"
	"github.com/michaelpento.lv/arbagent/utils/metrics"
	"go.uber.org/zap"
)

// ExecuteArbitrage runs a round trip of amount token0 through token1 and back.
//
// The call is rejected, in this order and before any trade, when the agent is
// stopped, the caller is not the owner, the amount is above the cap, either
// token is not whitelisted, or a fresh price check does not clear the profit
// threshold. Leg 1 buys token1 on the venue that pays more, leg 2 sells the
// whole leg 1 output on the other venue. Realized profit is the change of the
// account's token0 balance; a decrease is returned as *RealizedLossError. A
// failure once leg 1 may have filled is returned as *LegError; leg 1 errors
// stay plain only when the venue reports dex.ErrNotSubmitted.
func (a *Agent) ExecuteArbitrage(ctx context.Context, caller, token0, token1 common.Address, amount *big.Int) (*types.TradeResult, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	start := time.Now()
	result, err := a.executeArbitrage(ctx, caller, token0, token1, amount)
	a.recordExecution(err, result, time.Since(start))
	if err != nil {
		a.logger.Warn("Arbitrage failed",
			zap.String("token0", token0.Hex()),
			zap.String("token1", token1.Hex()),
			zap.Stringer("amount", amount),
			zap.Error(err))
		return nil, err
	}

	a.logger.Info("Arbitrage executed",
		zap.String("token0", token0.Hex()),
		zap.String("token1", token1.Hex()),
		zap.Stringer("amountIn", result.AmountIn),
		zap.Stringer("netProfit", result.NetProfit))
	return result, nil
}

func (a *Agent) executeArbitrage(ctx context.Context, caller, token0, token1 common.Address, amount *big.Int) (*types.TradeResult, error) {
	if !a.state.Active {
		return nil, ErrNotActive
	}
	if caller != a.state.Owner {
		return nil, ErrUnauthorized
	}
	if amount == nil || amount.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	if amount.Cmp(a.state.MaxTradeAmount) > 0 {
		return nil, ErrAmountExceedsMax
	}
	if !a.whitelist[token0] || !a.whitelist[token1] {
		return nil, ErrTokenNotApproved
	}

	bps, buyOnVenueA, err := a.calculateProfit(ctx, token0, token1)
	if err != nil {
		return nil, err
	}
	if bps <= a.state.MinProfitBps {
		return nil, fmt.Errorf("%w: %d bps <= %d bps", ErrInsufficientProfit, bps, a.state.MinProfitBps)
	}

	buyVenue, sellVenue := a.venueB, a.venueA
	if buyOnVenueA {
		buyVenue, sellVenue = a.venueA, a.venueB
	}

	initial, err := a.balances.BalanceOf(ctx, token0, a.account)
	if err != nil {
		return nil, fmt.Errorf("failed to read initial balance: %w", err)
	}
	amountIn := new(big.Int).Set(amount)

	leg1, err := a.executeLeg(ctx, buyVenue, token0, token1, amountIn, true)
	if err != nil {
		err = fmt.Errorf("failed to execute leg 1 on %s: %w", buyVenue.Name(), err)
		if errors.Is(err, dex.ErrNotSubmitted) {
			return nil, err
		}
		// the buy may have filled; the account can hold token1
		return nil, a.partialFailure(ctx, token0, token1, amountIn, &LegError{Leg: 1, Err: err})
	}
	completed := []types.LegResult{leg1}

	leg2, err := a.executeLeg(ctx, sellVenue, token1, token0, leg1.AmountOut, false)
	if err != nil {
		return nil, a.partialFailure(ctx, token0, token1, amountIn, &LegError{
			Leg:       2,
			Completed: completed,
			Err:       fmt.Errorf("failed to execute leg 2 on %s: %w", sellVenue.Name(), err),
		})
	}
	completed = append(completed, leg2)

	final, err := a.balances.BalanceOf(ctx, token0, a.account)
	if err != nil {
		return nil, a.partialFailure(ctx, token0, token1, amountIn, &LegError{
			Completed: completed,
			Err:       fmt.Errorf("failed to read final balance: %w", err),
		})
	}

	result := &types.TradeResult{
		Token0:       token0,
		Token1:       token1,
		AmountIn:     amountIn,
		ProfitAmount: new(big.Int).Sub(leg2.AmountOut, amountIn),
		NetProfit:    new(big.Int).Sub(final, initial),
		BuyOnVenueA:  buyOnVenueA,
		Legs:         [2]types.LegResult{leg1, leg2},
		Timestamp:    a.now().UTC(),
	}

	if result.NetProfit.Sign() < 0 {
		lossErr := &RealizedLossError{
			Result: result,
			Loss:   new(big.Int).Neg(result.NetProfit),
		}
		a.emit(ctx, audit.KindExecutionFailed, audit.ExecutionFailed{
			Token0:        token0,
			Token1:        token1,
			AmountIn:      amountIn,
			CompletedLegs: completed,
			Error:         lossErr.Error(),
		})
		return nil, lossErr
	}

	a.emit(ctx, audit.KindTradeExecuted, audit.TradeExecuted{TradeResult: *result})
	return result, nil
}

// executeLeg quotes the leg to derive the slippage floor, then submits it
func (a *Agent) executeLeg(ctx context.Context, venue dex.Venue, tokenIn, tokenOut common.Address, amountIn *big.Int, isBuy bool) (types.LegResult, error) {
	expected, err := quote(ctx, venue, tokenIn, tokenOut, amountIn)
	if err != nil {
		return types.LegResult{}, dex.NotSubmitted(err)
	}

	req := types.SwapRequest{
		TokenIn:      tokenIn,
		TokenOut:     tokenOut,
		AmountIn:     new(big.Int).Set(amountIn),
		IsBuy:        isBuy,
		MinAmountOut: minAmountOut(expected.AmountOut, a.state.MaxSlippageBps),
	}
	out, err := venue.Execute(ctx, req)
	if err != nil {
		return types.LegResult{}, err
	}
	if out == nil || out.Sign() <= 0 {
		return types.LegResult{}, errors.New("venue reported no output")
	}

	a.logger.Debug("Leg settled",
		zap.String("venue", venue.Name()),
		zap.String("tokenIn", tokenIn.Hex()),
		zap.String("tokenOut", tokenOut.Hex()),
		zap.Stringer("amountIn", amountIn),
		zap.Stringer("amountOut", out),
		zap.Stringer("expected", expected.AmountOut))

	return types.LegResult{
		Venue:     venue.Name(),
		TokenIn:   tokenIn,
		TokenOut:  tokenOut,
		AmountIn:  req.AmountIn,
		AmountOut: new(big.Int).Set(out),
		IsBuy:     isBuy,
	}, nil
}

// minAmountOut applies the slippage tolerance to a quote
func minAmountOut(expected *big.Int, slippageBps uint16) *big.Int {
	if slippageBps >= BpsScale {
		return new(big.Int)
	}
	floor := new(big.Int).Mul(expected, big.NewInt(int64(BpsScale-int(slippageBps))))
	return floor.Quo(floor, bpsScale)
}

func (a *Agent) partialFailure(ctx context.Context, token0, token1 common.Address, amountIn *big.Int, legErr *LegError) error {
	a.logger.Error("Trade left open after submitted leg",
		zap.Int("failedLeg", legErr.Leg),
		zap.Int("settledLegs", len(legErr.Completed)),
		zap.Error(legErr.Err))
	a.emit(ctx, audit.KindExecutionFailed, audit.ExecutionFailed{
		Token0:        token0,
		Token1:        token1,
		AmountIn:      amountIn,
		CompletedLegs: legErr.Completed,
		Error:         legErr.Error(),
	})
	return legErr
}

func (a *Agent) recordExecution(err error, result *types.TradeResult, elapsed time.Duration) {
	var loss *RealizedLossError
	switch {
	case err == nil:
		a.metrics.Executions.WithLabelValues(metrics.OutcomeSuccess).Inc()
		a.metrics.ExecutionTime.Observe(elapsed.Seconds())
		a.metrics.RealizedProfit.Add(metrics.Tokens(result.NetProfit))
	case errors.As(err, &loss):
		a.metrics.Executions.WithLabelValues(metrics.OutcomeLoss).Inc()
		a.metrics.ExecutionTime.Observe(elapsed.Seconds())
		a.metrics.RealizedLoss.Add(metrics.Tokens(loss.Loss))
	case errors.Is(err, ErrPartialExecution):
		a.metrics.Executions.WithLabelValues(metrics.OutcomePartial).Inc()
		a.metrics.ExecutionTime.Observe(elapsed.Seconds())
	default:
		a.metrics.Executions.WithLabelValues(metrics.OutcomeRejected).Inc()
	}
}

// emit writes an audit record. Failures are logged and counted; they never
// undo the operation that produced the record.
func (a *Agent) emit(ctx context.Context, kind audit.Kind, payload any) {
	if err := a.audit.Emit(ctx, audit.NewEvent(kind, a.now(), payload)); err != nil {
		a.metrics.AuditFailures.Inc()
		a.logger.Error("Failed to write audit record",
			zap.String("kind", string(kind)),
			zap.Error(err))
	}
}
