// Package memory implements ledger-resident constant-product pools and the
// router that trades through them.
package memory

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/flashloan-arb/business/amm/app"
	"github.com/fd1az/flashloan-arb/business/amm/domain"
	"github.com/fd1az/flashloan-arb/internal/ledger"
)

var _ app.Pair = (*Pair)(nil)

// Pair is a pool whose reserves are its own ledger balances, so a reserve
// read always reflects the latest committed (or staged) state.
type Pair struct {
	address common.Address
	token0  common.Address
	token1  common.Address
	fee     domain.Fee
}

// NewPair orders the tokens the way V2 factories do: token0 sorts first.
func NewPair(address, tokenA, tokenB common.Address, fee domain.Fee) *Pair {
	t0, t1 := tokenA, tokenB
	if t1.Cmp(t0) < 0 {
		t0, t1 = t1, t0
	}
	return &Pair{address: address, token0: t0, token1: t1, fee: fee}
}

func (p *Pair) Address() common.Address { return p.address }
func (p *Pair) Token0() common.Address  { return p.token0 }
func (p *Pair) Token1() common.Address  { return p.token1 }
func (p *Pair) Fee() domain.Fee         { return p.fee }

// Has reports whether token is one of the pair's tokens.
func (p *Pair) Has(token common.Address) bool {
	return token == p.token0 || token == p.token1
}

func (p *Pair) Reserves(_ context.Context, view ledger.View) (*big.Int, *big.Int, error) {
	return view.BalanceOf(p.token0, p.address), view.BalanceOf(p.token1, p.address), nil
}
