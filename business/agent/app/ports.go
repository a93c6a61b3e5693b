// Package app runs the agent: one evaluation round per new block, the
// best qualifying round trip sent to the engine.
package app

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	arbApp "github.com/fd1az/flashloan-arb/business/arbitrage/app"
	arbDomain "github.com/fd1az/flashloan-arb/business/arbitrage/domain"
	blockchainDomain "github.com/fd1az/flashloan-arb/business/blockchain/domain"
)

// Blocks delivers new blocks. The blockchain service implements it.
type Blocks interface {
	SubscribeBlocks(ctx context.Context) (<-chan *blockchainDomain.Block, error)
}

// Simulator is the engine's read-only estimate.
type Simulator interface {
	Simulate(ctx context.Context, req arbDomain.TradeRequest) (arbApp.SimulationResult, error)
}

// Executor is the engine's execution entry point.
type Executor interface {
	Execute(ctx context.Context, caller common.Address, req arbDomain.TradeRequest) (*arbDomain.ExecutionOutcome, error)
}

// FeeMarket reads the node's fee market. It is optional; without it the
// agent prices gas from the simulation's fee-unit price.
type FeeMarket interface {
	GetFeeQuote(ctx context.Context) (*blockchainDomain.FeeQuote, error)
	GetGasPrice(ctx context.Context) (*blockchainDomain.GasPrice, error)
}

// ReserveSyncer refreshes mirrored pool reserves before a round.
type ReserveSyncer interface {
	Sync(ctx context.Context) error
}

// Alerter delivers operator notifications. Delivery failures are the
// alerter's problem, never the caller's.
type Alerter interface {
	Alert(ctx context.Context, text string)
}

// Limiter throttles simulations.
type Limiter interface {
	Wait(ctx context.Context) error
}

// Amounts renders base-unit amounts for alerts.
type Amounts interface {
	Amount(token common.Address, raw *big.Int) string
	Signed(token common.Address, raw *big.Int) string
}
