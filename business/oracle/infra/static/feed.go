// Package static provides a fixed-value price feed.
package static

import (
	"context"
	"math/big"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fd1az/flashloan-arb/business/oracle/app"
)

var _ app.PriceFeed = (*Feed)(nil)

// Feed reports a value set at construction or through Set. A zero or
// negative value is reported as-is; the gateway rejects it.
type Feed struct {
	name string

	mu        sync.RWMutex
	value     *big.Int
	decimals  uint8
	updatedAt time.Time
}

// New creates a feed reporting value with decimals fractional digits.
// value is a decimal such as "2500.5".
func New(name string, value decimal.Decimal, decimals uint8) *Feed {
	f := &Feed{name: name}
	f.Set(value, decimals)
	return f
}

func (f *Feed) Name() string { return "static:" + f.name }

// Set replaces the reported value.
func (f *Feed) Set(value decimal.Decimal, decimals uint8) {
	raw := value.Shift(int32(decimals)).Truncate(0).BigInt()
	f.mu.Lock()
	f.value = raw
	f.decimals = decimals
	f.updatedAt = time.Now()
	f.mu.Unlock()
}

// SetRaw replaces the reported value with an already scaled integer.
func (f *Feed) SetRaw(value *big.Int, decimals uint8) {
	f.mu.Lock()
	f.value = new(big.Int).Set(value)
	f.decimals = decimals
	f.updatedAt = time.Now()
	f.mu.Unlock()
}

func (f *Feed) LatestValue(context.Context) (app.FeedReading, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return app.FeedReading{
		Value:     new(big.Int).Set(f.value),
		Decimals:  f.decimals,
		UpdatedAt: f.updatedAt,
	}, nil
}
