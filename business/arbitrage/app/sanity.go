package app

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/flashloan-arb/business/arbitrage/domain"
)

// oneUnit is the scale of the reference price.
var oneUnit = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)

// SanityChecker compares a swap's expected output against the reference
// price.
type SanityChecker struct {
	oracle    PriceOracle
	reference common.Address
}

func NewSanityChecker(oracle PriceOracle, reference common.Address) *SanityChecker {
	return &SanityChecker{oracle: oracle, reference: reference}
}

// Active reports whether the check applies: the path must end at the
// reference asset and token must be the reference asset. Trades that only
// pass through the reference asset mid-path are not checked.
func (s *SanityChecker) Active(path []common.Address, token common.Address) bool {
	return len(path) > 0 && path[len(path)-1] == s.reference && token == s.reference
}

// IsTradeSane requires expectedOut >= amountIn * price / 1e18 reduced by
// deviationBps. It returns true without reading the feed when inactive.
func (s *SanityChecker) IsTradeSane(ctx context.Context, amountIn, expectedOut *big.Int, path []common.Address, token common.Address, deviationBps uint64) (bool, error) {
	if !s.Active(path, token) {
		return true, nil
	}

	price, err := s.oracle.ReferencePrice(ctx)
	if err != nil {
		return false, err
	}

	expectedValue := new(big.Int).Mul(amountIn, price)
	expectedValue.Quo(expectedValue, oneUnit)
	floor := domain.MulBps(expectedValue, domain.BpsDenominator-deviationBps)
	return expectedOut.Cmp(floor) >= 0, nil
}
