// Package domain contains the core domain types for the arbitrage context.
package domain

import (
	"fmt"
	"math/big"

	"github.com/fd1az/flashloan-arb/internal/apperror"
)

// BpsDenominator is 100% in basis points.
const BpsDenominator = 10_000

// Hard ceilings on the governed parameters.
const (
	MaxSlippageToleranceBps       = 500
	MaxLoanPremiumBps             = 50
	MaxPriceDeviationToleranceBps = 500
)

// MaxFeeUnitPriceCeiling is 500 gwei in wei.
var MaxFeeUnitPriceCeiling = big.NewInt(500_000_000_000)

// RiskParameters bound every simulation and execution. Amounts are in the
// traded asset's smallest unit; MaxAcceptableFeeUnitPrice is in wei.
type RiskParameters struct {
	MinProfit                  *big.Int
	SlippageToleranceBps       uint64
	GasCostEstimateUnits       uint64
	MaxAcceptableFeeUnitPrice  *big.Int
	LoanPremiumBps             uint64
	PriceDeviationToleranceBps uint64
}

// Validate checks every field against its ceiling.
func (p RiskParameters) Validate() error {
	switch {
	case p.MinProfit == nil || p.MinProfit.Sign() < 0:
		return outOfBounds("minProfit must be non-negative")
	case p.MaxAcceptableFeeUnitPrice == nil || p.MaxAcceptableFeeUnitPrice.Sign() < 0:
		return outOfBounds("maxAcceptableFeeUnitPrice must be non-negative")
	case p.SlippageToleranceBps > MaxSlippageToleranceBps:
		return outOfBounds(fmt.Sprintf("slippageToleranceBps %d > %d", p.SlippageToleranceBps, MaxSlippageToleranceBps))
	case p.MaxAcceptableFeeUnitPrice.Cmp(MaxFeeUnitPriceCeiling) > 0:
		return outOfBounds(fmt.Sprintf("maxAcceptableFeeUnitPrice %s > %s", p.MaxAcceptableFeeUnitPrice, MaxFeeUnitPriceCeiling))
	case p.LoanPremiumBps > MaxLoanPremiumBps:
		return outOfBounds(fmt.Sprintf("loanPremiumBps %d > %d", p.LoanPremiumBps, MaxLoanPremiumBps))
	case p.PriceDeviationToleranceBps > MaxPriceDeviationToleranceBps:
		return outOfBounds(fmt.Sprintf("priceDeviationToleranceBps %d > %d", p.PriceDeviationToleranceBps, MaxPriceDeviationToleranceBps))
	}
	return nil
}

// Clone returns a deep copy.
func (p RiskParameters) Clone() RiskParameters {
	out := p
	out.MinProfit = cloneInt(p.MinProfit)
	out.MaxAcceptableFeeUnitPrice = cloneInt(p.MaxAcceptableFeeUnitPrice)
	return out
}

// Premium is amount * LoanPremiumBps / 10000.
func (p RiskParameters) Premium(amount *big.Int) *big.Int {
	return MulBps(amount, p.LoanPremiumBps)
}

// MinOut is quoted reduced by the slippage tolerance.
func (p RiskParameters) MinOut(quoted *big.Int) *big.Int {
	return MulBps(quoted, BpsDenominator-p.SlippageToleranceBps)
}

// MulBps returns x * bps / 10000, rounded down.
func MulBps(x *big.Int, bps uint64) *big.Int {
	if x == nil {
		return new(big.Int)
	}
	out := new(big.Int).Mul(x, new(big.Int).SetUint64(bps))
	return out.Quo(out, big.NewInt(BpsDenominator))
}

func outOfBounds(msg string) error {
	return apperror.New(apperror.CodeParameterOutOfBounds, apperror.WithContext(msg))
}

func cloneInt(x *big.Int) *big.Int {
	if x == nil {
		return nil
	}
	return new(big.Int).Set(x)
}
