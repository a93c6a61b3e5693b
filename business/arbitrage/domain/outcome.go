package domain

import (
	"math/big"
	"time"

	"github.com/fd1az/flashloan-arb/internal/apperror"
)

// ExecutionOutcome is the result of one authorised execution attempt.
type ExecutionOutcome struct {
	Success bool
	// Profit is what reached the owner; nil on failure.
	Profit *big.Int
	// FailureReason is empty on success.
	FailureReason string
	FailureCode   apperror.Code
	// BalanceSnapshot is the engine's final asset balance after swap 2,
	// or nil when the attempt stopped earlier.
	BalanceSnapshot *big.Int
	AmountOwed      *big.Int
	ExecutionCost   *big.Int

	Request    TradeRequest
	FinalState State
	States     []State
	StartedAt  time.Time
	FinishedAt time.Time
}

// Duration is FinishedAt - StartedAt.
func (o *ExecutionOutcome) Duration() time.Duration {
	return o.FinishedAt.Sub(o.StartedAt)
}
