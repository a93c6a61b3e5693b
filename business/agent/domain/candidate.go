// Package domain contains the agent's selection rules: how a simulated
// round trip becomes a candidate, which candidate wins a round, and when
// the fee market is too expensive to send.
package domain

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	blockchainDomain "github.com/fd1az/flashloan-arb/business/blockchain/domain"
)

// Pair is one configured round trip: sell the asset on PoolA, buy it
// back on PoolB.
type Pair struct {
	Name     string
	Asset    common.Address
	PoolA    common.Address
	PoolB    common.Address
	PathOut  []common.Address
	PathBack []common.Address
}

// Candidate is a simulated round trip that survived the filter.
type Candidate struct {
	Pair      Pair
	Principal *big.Int
	// EstimatedProfit is the engine's estimate, after premium and its own
	// execution cost.
	EstimatedProfit *big.Int
	// GasCost is the agent's buffered estimate of what sending costs.
	GasCost *big.Int
	// Net is EstimatedProfit - GasCost.
	Net *big.Int
	// FeeUnitPrice is the oracle's price per gas unit at simulation time.
	FeeUnitPrice *big.Int
}

// GasCost is gasUnits * buffer * feePrice, truncated to wei. A nil fee
// price returns fallback.
func GasCost(gasUnits uint64, buffer decimal.Decimal, feePrice, fallback *big.Int) *big.Int {
	if feePrice == nil || feePrice.Sign() <= 0 {
		return new(big.Int).Set(fallback)
	}
	cost := decimal.NewFromUint64(gasUnits).
		Mul(buffer).
		Mul(decimal.NewFromBigInt(feePrice, 0))
	return cost.Truncate(0).BigInt()
}

// Selector keeps the best candidate of a round.
type Selector struct {
	minProfit *big.Int
	best      *Candidate
}

// NewSelector accepts candidates whose estimated profit is at least
// minProfit.
func NewSelector(minProfit *big.Int) *Selector {
	return &Selector{minProfit: minProfit}
}

// Offer considers one simulated round trip. It reports whether the
// candidate became the round's best.
func (s *Selector) Offer(c Candidate) bool {
	if c.EstimatedProfit == nil || c.EstimatedProfit.Cmp(s.minProfit) < 0 {
		return false
	}
	if c.Net == nil || c.Net.Sign() <= 0 {
		return false
	}
	if s.best != nil && c.Net.Cmp(s.best.Net) <= 0 {
		return false
	}
	s.best = &c
	return true
}

// Best returns the winning candidate, or nil when none qualified.
func (s *Selector) Best() *Candidate { return s.best }

// FeeCeiling bounds what the agent pays per gas unit.
type FeeCeiling struct {
	// PriorityCap caps the tip.
	PriorityCap *big.Int
	// Max is the highest acceptable baseFee + tip.
	Max *big.Int
}

// Check returns the fee per gas a transaction would commit to and whether
// it is within the ceiling.
func (f FeeCeiling) Check(baseFee, suggestedTip *big.Int) (*big.Int, bool) {
	fee := blockchainDomain.MaxFee(baseFee, suggestedTip, f.PriorityCap)
	if f.Max == nil {
		return fee, true
	}
	return fee, fee.Cmp(f.Max) <= 0
}
