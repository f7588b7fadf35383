package agent

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/michaelpento.lv/arbagent/types"
)

// Rejections. All of them are returned before any trade is submitted, except
// ErrPartialExecution and ErrNegativeRealizedProfit which are matched by the
// typed errors below.
var (
	ErrNotActive              = errors.New("agent is not active")
	ErrUnauthorized           = errors.New("caller is not the owner")
	ErrInvalidAmount          = errors.New("trade amount must be positive")
	ErrAmountExceedsMax       = errors.New("trade amount exceeds maximum")
	ErrAmountOutOfRange       = errors.New("amount outside the uint256 range")
	ErrTokenNotApproved       = errors.New("token is not approved")
	ErrInsufficientProfit     = errors.New("profit below threshold")
	ErrQuoteOverflow          = errors.New("profit exceeds representable basis points")
	ErrQuoteDivisionByZero    = errors.New("venue returned a zero quote")
	ErrReasonTooLong          = errors.New("reason code longer than 32 bytes")
	ErrNegativeRealizedProfit = errors.New("realized profit is negative")
	ErrPartialExecution       = errors.New("trade failed after a leg was submitted")
)

// LegError reports a failure after a leg was submitted. The account may hold
// an intermediate asset; Completed lists the legs known to have filled.
type LegError struct {
	// Leg is the 1-based leg that failed, or 0 when both legs settled and the
	// final accounting failed. Leg 1 means its outcome is unknown.
	Leg       int
	Completed []types.LegResult
	Err       error
}

func (e *LegError) Error() string {
	if e.Leg == 0 {
		return fmt.Sprintf("accounting failed after %d settled legs: %v", len(e.Completed), e.Err)
	}
	if e.Leg == 1 {
		return fmt.Sprintf("leg 1 outcome unknown: %v", e.Err)
	}
	return fmt.Sprintf("leg %d failed after %d settled leg(s): %v", e.Leg, len(e.Completed), e.Err)
}

func (e *LegError) Unwrap() error { return e.Err }

func (e *LegError) Is(target error) bool { return target == ErrPartialExecution }

// RealizedLossError reports a round trip that settled but left the account
// with less of the base asset than it started with.
type RealizedLossError struct {
	Result *types.TradeResult
	Loss   *big.Int
}

func (e *RealizedLossError) Error() string {
	return fmt.Sprintf("%v: lost %s of %s", ErrNegativeRealizedProfit, e.Loss, e.Result.Token0.Hex())
}

func (e *RealizedLossError) Is(target error) bool { return target == ErrNegativeRealizedProfit }
