// Package gasfeed turns the node's suggested gas price into a fee-unit
// price feed.
package gasfeed

import (
	"context"

	blockchainApp "github.com/fd1az/flashloan-arb/business/blockchain/app"
	"github.com/fd1az/flashloan-arb/business/oracle/app"
)

var _ app.PriceFeed = (*Feed)(nil)

// weiDecimals reports wei as gwei with nine fractional digits.
const weiDecimals = 9

// Feed adapts a GasOracle.
type Feed struct {
	oracle blockchainApp.GasOracle
}

func New(oracle blockchainApp.GasOracle) *Feed {
	return &Feed{oracle: oracle}
}

func (f *Feed) Name() string { return "gas:suggested" }

func (f *Feed) LatestValue(ctx context.Context) (app.FeedReading, error) {
	price, err := f.oracle.GetGasPrice(ctx)
	if err != nil {
		return app.FeedReading{}, err
	}
	return app.FeedReading{
		Value:     price.Wei,
		Decimals:  weiDecimals,
		UpdatedAt: price.Timestamp,
	}, nil
}
