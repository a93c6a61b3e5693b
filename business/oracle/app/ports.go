// Package app contains the oracle gateway and the price feed port.
package app

import (
	"context"
	"math/big"
	"time"
)

// FeedReading is a raw feed value with Decimals fractional digits.
type FeedReading struct {
	Value     *big.Int
	Decimals  uint8
	UpdatedAt time.Time
}

// PriceFeed is an external price source. Implementations read the source
// on every call.
type PriceFeed interface {
	Name() string
	LatestValue(ctx context.Context) (FeedReading, error)
}
