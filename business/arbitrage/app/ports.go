// Package app contains the arbitrage engine: the guards, the simulator,
// the execution orchestrator and the owner-governed surface around them.
package app

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	ammApp "github.com/fd1az/flashloan-arb/business/amm/app"
	"github.com/fd1az/flashloan-arb/business/arbitrage/domain"
)

// PriceOracle supplies the reference price and execution cost. The
// oracle gateway implements it.
type PriceOracle interface {
	ReferencePrice(ctx context.Context) (*big.Int, error)
	FeeUnitPrice(ctx context.Context) (*big.Int, error)
	EstimatedExecutionCost(ctx context.Context, gasUnits uint64) (*big.Int, error)
}

// Pools resolves pools and the router serving each one. The amm registry
// implements it.
type Pools interface {
	Pair(addr common.Address) (ammApp.Pair, error)
	RouterFor(addr common.Address) (ammApp.Router, error)
}

// Accounts are the two identities the engine knows.
type Accounts struct {
	// Owner is the governance identity and the profit recipient.
	Owner common.Address
	// Engine is the ledger account that borrows, swaps and holds approvals.
	Engine common.Address
}

// Scan is one simulated candidate, as evaluated by the agent.
type Scan struct {
	Block   uint64
	Pair    string
	Request domain.TradeRequest
	Result  SimulationResult
}

// Reporter displays engine events and agent activity.
type Reporter interface {
	Start(ctx context.Context) error
	Report(ev domain.Event)
	ReportScan(scan Scan)
	UpdateBlock(number uint64, at time.Time)
	UpdateConnectionStatus(name string, connected bool, latency time.Duration)
	Stop() error
}

// Forward hands every event on feed to r until ctx ends or feed closes.
func Forward(ctx context.Context, feed <-chan domain.Event, r Reporter) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-feed:
			if !ok {
				return
			}
			r.Report(ev)
		}
	}
}
