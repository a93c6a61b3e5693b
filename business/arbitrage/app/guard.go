package app

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	ammApp "github.com/fd1az/flashloan-arb/business/amm/app"
	"github.com/fd1az/flashloan-arb/internal/apperror"
	"github.com/fd1az/flashloan-arb/internal/ledger"
)

// LiquidityGuard rejects trades that would take half or more of a pool's
// output reserve.
type LiquidityGuard struct {
	pools   Pools
	metrics *engineMetrics
}

func NewLiquidityGuard(pools Pools, metrics *engineMetrics) *LiquidityGuard {
	return &LiquidityGuard{pools: pools, metrics: metrics}
}

// HasSafeLiquidity reads the pool's reserves from view and requires
// amountOut > 0 and reserveOut >= 2*amountOut. An unknown pool or a token
// the pool does not hold is an error, not a rejection.
func (g *LiquidityGuard) HasSafeLiquidity(ctx context.Context, view ledger.View, pool common.Address, amountIn *big.Int, tokenIn common.Address) (bool, error) {
	pair, err := g.pools.Pair(pool)
	if err != nil {
		return false, err
	}
	if tokenIn != pair.Token0() && tokenIn != pair.Token1() {
		return false, apperror.New(apperror.CodeInvalidPath,
			apperror.WithContext(fmt.Sprintf("pool %s does not trade %s", pool.Hex(), tokenIn.Hex())))
	}

	reserveIn, reserveOut, err := ammApp.Oriented(ctx, view, pair, tokenIn)
	if err != nil {
		return false, err
	}

	out := pair.Fee().AmountOut(amountIn, reserveIn, reserveOut)
	safe := out.Sign() > 0 && reserveOut.Cmp(new(big.Int).Lsh(out, 1)) >= 0
	if !safe && g.metrics != nil {
		g.metrics.guardRejections.Add(ctx, 1, metric.WithAttributes(attribute.String("pool", pool.Hex())))
	}
	return safe, nil
}
