package app

import (
	"context"
	"fmt"
	"math/big"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/flashloan-arb/business/arbitrage/domain"
	"github.com/fd1az/flashloan-arb/internal/apperror"
	"github.com/fd1az/flashloan-arb/internal/ledger"
)

// Rejection reasons reported by a non-profitable simulation.
const (
	ReasonPoolALiquidity = "pool A liquidity"
	ReasonPoolBLiquidity = "pool B liquidity"
	ReasonQuoteA         = "router A quote"
	ReasonQuoteB         = "router B quote"
	ReasonBelowMinProfit = "below min profit"
)

// SimulationResult is a point-in-time estimate of one round trip.
type SimulationResult struct {
	Profitable bool
	// EstimatedProfit is final - owed - cost when profitable, else zero.
	EstimatedProfit *big.Int

	Intermediate  *big.Int
	Final         *big.Int
	Premium       *big.Int
	Owed          *big.Int
	ExecutionCost *big.Int
	FeeUnitPrice  *big.Int
	// Net is final - owed - cost, possibly negative.
	Net    *big.Int
	Reason string
}

// Simulator estimates a round trip without mutating anything.
type Simulator struct {
	ledger *ledger.Ledger
	pools  Pools
	oracle PriceOracle
	risk   *RiskStore
	guard  *LiquidityGuard

	tracer  trace.Tracer
	metrics *engineMetrics
}

func NewSimulator(l *ledger.Ledger, pools Pools, oracle PriceOracle, risk *RiskStore, guard *LiquidityGuard, metrics *engineMetrics) *Simulator {
	return &Simulator{
		ledger:  l,
		pools:   pools,
		oracle:  oracle,
		risk:    risk,
		guard:   guard,
		tracer:  otel.Tracer(tracerName),
		metrics: metrics,
	}
}

// Simulate runs against the latest committed snapshot with the current
// risk parameters. It may be called concurrently with itself and with
// execution.
func (s *Simulator) Simulate(ctx context.Context, req domain.TradeRequest) (SimulationResult, error) {
	return s.simulate(ctx, s.ledger.Snapshot(), req, s.risk.Get())
}

func (s *Simulator) simulate(ctx context.Context, view ledger.View, req domain.TradeRequest, params domain.RiskParameters) (res SimulationResult, err error) {
	ctx, span := s.tracer.Start(ctx, "arbitrage.simulate", trace.WithAttributes(
		attribute.String("asset", req.Asset.Hex()),
		attribute.String("pool_a", req.PoolA.Hex()),
		attribute.String("pool_b", req.PoolB.Hex()),
	))
	defer span.End()

	defer func() {
		result := "not_profitable"
		switch {
		case err != nil:
			result = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, string(apperror.GetCode(err)))
		case res.Profitable:
			result = "profitable"
			span.SetStatus(codes.Ok, result)
		default:
			span.SetAttributes(attribute.String("reason", res.Reason))
		}
		s.metrics.simulations.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
	}()

	if err := req.Validate(); err != nil {
		return SimulationResult{}, err
	}
	if req.PathBack[0] != req.Intermediate() {
		return SimulationResult{}, apperror.New(apperror.CodeInvalidPath,
			apperror.WithContext("return path must start at the outbound path's output token"))
	}

	feePrice, err := s.oracle.FeeUnitPrice(ctx)
	if err != nil {
		return SimulationResult{}, err
	}
	if feePrice.Cmp(params.MaxAcceptableFeeUnitPrice) > 0 {
		return SimulationResult{}, apperror.New(apperror.CodeFeePriceTooHigh,
			apperror.WithContext(fmt.Sprintf("fee unit price %s > %s", feePrice, params.MaxAcceptableFeeUnitPrice)))
	}

	res = SimulationResult{EstimatedProfit: new(big.Int), FeeUnitPrice: feePrice}

	ok, err := s.guard.HasSafeLiquidity(ctx, view, req.PoolA, req.Principal, req.PathOut[0])
	if err != nil {
		return SimulationResult{}, err
	}
	if !ok {
		res.Reason = ReasonPoolALiquidity
		return res, nil
	}

	routerA, err := s.pools.RouterFor(req.PoolA)
	if err != nil {
		return SimulationResult{}, err
	}
	amounts, err := routerA.QuoteOutput(ctx, view, req.Principal, req.PathOut)
	if err != nil {
		return notProfitableOnLiquidity(res, ReasonQuoteA, err)
	}
	res.Intermediate = amounts[len(amounts)-1]

	ok, err = s.guard.HasSafeLiquidity(ctx, view, req.PoolB, res.Intermediate, req.PathBack[0])
	if err != nil {
		return SimulationResult{}, err
	}
	if !ok {
		res.Reason = ReasonPoolBLiquidity
		return res, nil
	}

	routerB, err := s.pools.RouterFor(req.PoolB)
	if err != nil {
		return SimulationResult{}, err
	}
	amounts, err = routerB.QuoteOutput(ctx, view, res.Intermediate, req.PathBack)
	if err != nil {
		return notProfitableOnLiquidity(res, ReasonQuoteB, err)
	}
	res.Final = amounts[len(amounts)-1]

	res.Premium = params.Premium(req.Principal)
	res.Owed = new(big.Int).Add(req.Principal, res.Premium)

	res.ExecutionCost, err = s.oracle.EstimatedExecutionCost(ctx, params.GasCostEstimateUnits)
	if err != nil {
		return SimulationResult{}, err
	}

	res.Net = new(big.Int).Sub(res.Final, res.Owed)
	res.Net.Sub(res.Net, res.ExecutionCost)

	if res.Net.Cmp(params.MinProfit) > 0 {
		res.Profitable = true
		res.EstimatedProfit = new(big.Int).Set(res.Net)
	} else {
		res.Reason = ReasonBelowMinProfit
	}
	return res, nil
}

// notProfitableOnLiquidity turns a liquidity-category quote failure into a
// rejection and passes every other error through.
func notProfitableOnLiquidity(res SimulationResult, reason string, err error) (SimulationResult, error) {
	if apperror.GetCategory(err) != apperror.CategoryLiquidity {
		return SimulationResult{}, err
	}
	res.Reason = fmt.Sprintf("%s: %s", reason, apperror.GetCode(err))
	return res, nil
}
