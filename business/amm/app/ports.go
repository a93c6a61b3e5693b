// Package app defines the pool and router ports of the AMM context and the
// registry the rest of the engine resolves them through.
package app

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/flashloan-arb/business/amm/domain"
	"github.com/fd1az/flashloan-arb/internal/ledger"
)

// Pair is a constant-product pool holding two tokens. Token0 is the
// primary token: Reserves returns (reserve0, reserve1) in that order.
type Pair interface {
	Address() common.Address
	Token0() common.Address
	Token1() common.Address
	Fee() domain.Fee
	Reserves(ctx context.Context, view ledger.View) (*big.Int, *big.Int, error)
}

// SwapRequest is an exact-input swap along Path.
type SwapRequest struct {
	AmountIn  *big.Int
	MinOut    *big.Int
	Path      []common.Address
	Recipient common.Address
	Deadline  time.Time
}

// Router quotes and executes swaps along a token path. QuoteOutput never
// mutates; Swap pulls AmountIn from sender through its allowance.
type Router interface {
	Name() string
	Address() common.Address
	QuoteOutput(ctx context.Context, view ledger.View, amountIn *big.Int, path []common.Address) ([]*big.Int, error)
	Swap(ctx context.Context, tx ledger.Tx, sender common.Address, req SwapRequest) ([]*big.Int, error)
}

// Oriented returns the pair's reserves as (reserveIn, reserveOut) for a
// trade selling tokenIn.
func Oriented(ctx context.Context, view ledger.View, p Pair, tokenIn common.Address) (*big.Int, *big.Int, error) {
	r0, r1, err := p.Reserves(ctx, view)
	if err != nil {
		return nil, nil, err
	}
	if tokenIn == p.Token0() {
		return r0, r1, nil
	}
	return r1, r0, nil
}
