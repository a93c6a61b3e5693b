// Package domain contains the core domain types for the blockchain context.
package domain

import (
	"math/big"
	"time"

	"github.com/shopspring/decimal"
)

// GasPrice is a legacy gas price reading.
type GasPrice struct {
	Wei       *big.Int
	Timestamp time.Time
}

// NewGasPrice creates a GasPrice from wei.
func NewGasPrice(wei *big.Int, at time.Time) *GasPrice {
	return &GasPrice{Wei: new(big.Int).Set(wei), Timestamp: at}
}

// Gwei renders the price in gwei.
func (g *GasPrice) Gwei() decimal.Decimal {
	if g == nil || g.Wei == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(g.Wei, -9)
}

// FeeQuote is the EIP-1559 view of the next block's fee market.
type FeeQuote struct {
	BaseFee   *big.Int
	TipCap    *big.Int
	Timestamp time.Time
}

// MaxFee is baseFee + min(priorityCap, tip): the fee per gas a
// transaction would commit to when it caps its tip at priorityCap. A nil
// tip uses priorityCap.
func MaxFee(baseFee, tip, priorityCap *big.Int) *big.Int {
	fee := new(big.Int)
	if baseFee != nil {
		fee.Set(baseFee)
	}
	prio := priorityCap
	if tip != nil && (prio == nil || tip.Cmp(prio) < 0) {
		prio = tip
	}
	if prio != nil {
		fee.Add(fee, prio)
	}
	return fee
}

// GweiToWei converts a decimal gwei amount, truncating sub-wei precision.
func GweiToWei(gwei decimal.Decimal) *big.Int {
	return gwei.Shift(9).Truncate(0).BigInt()
}
