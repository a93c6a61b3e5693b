// Package domain holds the constant-product pricing math shared by every
// pool and router.
package domain

import (
	"fmt"
	"math/big"
)

// Fee is the proportional fee a pool keeps on each swap, expressed as the
// fraction of the input that is traded: 997/1000 keeps 0.3%.
type Fee struct {
	Numerator   uint64
	Denominator uint64
}

// DefaultFee is the 0.3% fee of Uniswap V2 style pools.
var DefaultFee = Fee{Numerator: 997, Denominator: 1000}

// Validate rejects fees that would create value.
func (f Fee) Validate() error {
	if f.Denominator == 0 || f.Numerator == 0 || f.Numerator > f.Denominator {
		return fmt.Errorf("invalid fee %d/%d", f.Numerator, f.Denominator)
	}
	return nil
}

// Bps returns the fee kept, in basis points, rounded down.
func (f Fee) Bps() uint64 {
	if f.Denominator == 0 {
		return 0
	}
	return (f.Denominator - f.Numerator) * 10000 / f.Denominator
}

func (f Fee) String() string {
	return fmt.Sprintf("%d/%d", f.Numerator, f.Denominator)
}

// AmountOut is
//
//	floor(amountIn*num*reserveOut / (reserveIn*den + amountIn*num))
//
// It returns 0 if any input is nil or zero.
func (f Fee) AmountOut(amountIn, reserveIn, reserveOut *big.Int) *big.Int {
	if isZero(amountIn) || isZero(reserveIn) || isZero(reserveOut) {
		return new(big.Int)
	}

	num := new(big.Int).SetUint64(f.Numerator)
	den := new(big.Int).SetUint64(f.Denominator)

	inWithFee := new(big.Int).Mul(amountIn, num)
	numerator := new(big.Int).Mul(inWithFee, reserveOut)
	denominator := new(big.Int).Mul(reserveIn, den)
	denominator.Add(denominator, inWithFee)

	return numerator.Quo(numerator, denominator)
}

// AmountOut applies DefaultFee.
func AmountOut(amountIn, reserveIn, reserveOut *big.Int) *big.Int {
	return DefaultFee.AmountOut(amountIn, reserveIn, reserveOut)
}

// Hop is one leg of a path: the reserves of the pool it trades through,
// oriented in the direction of the trade.
type Hop struct {
	ReserveIn  *big.Int
	ReserveOut *big.Int
}

// AmountsOut chains AmountOut across hops. The result has len(hops)+1
// entries and starts with amountIn.
func (f Fee) AmountsOut(amountIn *big.Int, hops []Hop) []*big.Int {
	amounts := make([]*big.Int, 0, len(hops)+1)
	amounts = append(amounts, copyInt(amountIn))
	for _, h := range hops {
		amounts = append(amounts, f.AmountOut(amounts[len(amounts)-1], h.ReserveIn, h.ReserveOut))
	}
	return amounts
}

func isZero(x *big.Int) bool { return x == nil || x.Sign() == 0 }

func copyInt(x *big.Int) *big.Int {
	if x == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(x)
}
