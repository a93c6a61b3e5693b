package app

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/flashloan-arb/business/agent/domain"
	arbApp "github.com/fd1az/flashloan-arb/business/arbitrage/app"
	arbDomain "github.com/fd1az/flashloan-arb/business/arbitrage/domain"
	blockchainDomain "github.com/fd1az/flashloan-arb/business/blockchain/domain"
	"github.com/fd1az/flashloan-arb/internal/logger"
)

// Config holds the agent's trading rules.
type Config struct {
	// Owner is the identity the agent executes as.
	Owner       common.Address
	Pairs       []domain.Pair
	LoanAmounts []*big.Int
	// MinProfit applies to the engine's estimated profit.
	MinProfit       *big.Int
	GasEstimate     uint64
	GasBuffer       decimal.Decimal
	FallbackGasCost *big.Int
	Ceiling         domain.FeeCeiling
	DeadlineDelta   time.Duration
	InitialBackoff  time.Duration
	MaxBackoff      time.Duration
}

// Deps are the agent's collaborators. FeeMarket, Syncer, Alerter,
// Reporter and Limiter are optional.
type Deps struct {
	Blocks    Blocks
	Simulator Simulator
	Executor  Executor
	FeeMarket FeeMarket
	Syncer    ReserveSyncer
	Alerter   Alerter
	Reporter  arbApp.Reporter
	Limiter   Limiter
	Amounts   Amounts
	// Clock stamps deadlines. It must agree with the engine's clock.
	Clock  func() time.Time
	Logger logger.LoggerInterface
}

// Agent evaluates every configured pair and loan amount on each new block
// and sends the best qualifying round trip.
type Agent struct {
	cfg  Config
	deps Deps

	lastBlock atomic.Uint64
	started   atomic.Bool
	done      chan struct{}

	tracer  trace.Tracer
	metrics *agentMetrics
}

type noopAlerter struct{}

func (noopAlerter) Alert(context.Context, string) {}

type unlimited struct{}

func (unlimited) Wait(context.Context) error { return nil }

// NewAgent validates the configuration and builds an agent.
func NewAgent(cfg Config, deps Deps) (*Agent, error) {
	if deps.Blocks == nil || deps.Simulator == nil || deps.Executor == nil || deps.Amounts == nil || deps.Logger == nil {
		return nil, errors.New("agent: missing collaborator")
	}
	if cfg.Owner == (common.Address{}) {
		return nil, errors.New("agent: owner is required")
	}
	if len(cfg.Pairs) == 0 || len(cfg.LoanAmounts) == 0 {
		return nil, errors.New("agent: at least one pair and one loan amount are required")
	}
	for _, amt := range cfg.LoanAmounts {
		if amt == nil || amt.Sign() <= 0 {
			return nil, fmt.Errorf("agent: loan amount %v must be positive", amt)
		}
	}
	if cfg.MinProfit == nil {
		cfg.MinProfit = new(big.Int)
	}
	if cfg.FallbackGasCost == nil {
		cfg.FallbackGasCost = new(big.Int)
	}
	if cfg.GasBuffer.IsZero() {
		cfg.GasBuffer = decimal.NewFromInt(1)
	}
	if deps.Alerter == nil {
		deps.Alerter = noopAlerter{}
	}
	if deps.Limiter == nil {
		deps.Limiter = unlimited{}
	}
	if deps.Clock == nil {
		deps.Clock = time.Now
	}

	metrics, err := newAgentMetrics()
	if err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}
	return &Agent{
		cfg:     cfg,
		deps:    deps,
		done:    make(chan struct{}),
		tracer:  otel.Tracer(tracerName),
		metrics: metrics,
	}, nil
}

// Start subscribes to blocks and runs the loop until ctx ends.
func (a *Agent) Start(ctx context.Context) error {
	if !a.started.CompareAndSwap(false, true) {
		return errors.New("agent: already started")
	}
	blocks, err := a.deps.Blocks.SubscribeBlocks(ctx)
	if err != nil {
		return fmt.Errorf("subscribe blocks: %w", err)
	}

	a.deps.Logger.Info(ctx, "starting arbitrage agent",
		"pairs", len(a.cfg.Pairs), "loan_amounts", len(a.cfg.LoanAmounts))
	a.deps.Alerter.Alert(ctx, "🟢 Arbitrage agent started")

	go a.run(ctx, blocks)
	return nil
}

// Done is closed when the loop exits.
func (a *Agent) Done() <-chan struct{} { return a.done }

// LastBlock is the newest block the agent has handled.
func (a *Agent) LastBlock() uint64 { return a.lastBlock.Load() }

func (a *Agent) run(ctx context.Context, blocks <-chan *blockchainDomain.Block) {
	defer close(a.done)

	b := backoff.NewExponentialBackOff()
	if a.cfg.InitialBackoff > 0 {
		b.InitialInterval = a.cfg.InitialBackoff
	}
	if a.cfg.MaxBackoff > 0 {
		b.MaxInterval = a.cfg.MaxBackoff
	}

	for {
		select {
		case <-ctx.Done():
			a.deps.Logger.Info(ctx, "agent stopping", "reason", ctx.Err())
			return
		case block, ok := <-blocks:
			if !ok {
				a.deps.Logger.Warn(ctx, "block feed closed, agent stopping")
				return
			}
			if block == nil || block.Number <= a.lastBlock.Load() {
				continue
			}
			a.lastBlock.Store(block.Number)

			err := a.HandleBlock(ctx, block)
			if err == nil {
				b.Reset()
				continue
			}
			if ctx.Err() != nil {
				return
			}

			wait := b.NextBackOff()
			a.metrics.blockErrors.Add(ctx, 1)
			a.deps.Logger.Error(ctx, "block handling error", "block", block.Number, "error", err, "backoff", wait)
			a.deps.Alerter.Alert(ctx, fmt.Sprintf("⚠️ Block handling error: %v", err))

			select {
			case <-ctx.Done():
				return
			case <-time.After(wait):
			}
		}
	}
}

// HandleBlock runs one round: refresh reserves, scan every candidate,
// check the fee market and execute the winner.
func (a *Agent) HandleBlock(ctx context.Context, block *blockchainDomain.Block) (err error) {
	ctx, span := a.tracer.Start(ctx, "agent.block",
		trace.WithAttributes(attribute.Int64("block", int64(block.Number))))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "block handling failed")
		}
		span.End()
	}()

	a.metrics.blocks.Add(ctx, 1)
	a.deps.Logger.Info(ctx, "new block", "number", block.Number)
	if r := a.deps.Reporter; r != nil {
		r.UpdateBlock(block.Number, block.Timestamp)
	}

	if a.deps.Syncer != nil {
		if err := a.deps.Syncer.Sync(ctx); err != nil {
			return fmt.Errorf("sync reserves: %w", err)
		}
	}

	start := time.Now()
	best, err := a.Round(ctx, block.Number)
	a.metrics.roundTime.Record(ctx, float64(time.Since(start).Milliseconds()))
	if err != nil {
		return err
	}
	if best == nil {
		a.deps.Logger.Info(ctx, "no profitable opportunity or net profit below threshold", "block", block.Number)
		return nil
	}

	baseFee, tip, err := a.feeQuote(ctx, block, best)
	if err != nil {
		return fmt.Errorf("fee quote: %w", err)
	}
	fee, ok := a.cfg.Ceiling.Check(baseFee, tip)
	if !ok {
		a.metrics.feeSkips.Add(ctx, 1)
		a.deps.Logger.Warn(ctx, "max fee too high",
			"gwei", decimal.NewFromBigInt(fee, -9).String(),
			"ceiling_gwei", decimal.NewFromBigInt(a.cfg.Ceiling.Max, -9).String())
		return nil
	}
	span.SetAttributes(attribute.String("max_fee", fee.String()))

	return a.execute(ctx, best)
}

// Round simulates every pair at every loan amount and returns the best
// candidate, or nil. Simulation failures are reported and skipped; only
// cancellation ends the round early.
func (a *Agent) Round(ctx context.Context, block uint64) (*domain.Candidate, error) {
	sel := domain.NewSelector(a.cfg.MinProfit)
	nodePrice, useNode := a.gasPrice(ctx)

	for _, pair := range a.cfg.Pairs {
		for _, amount := range a.cfg.LoanAmounts {
			if err := a.deps.Limiter.Wait(ctx); err != nil {
				return nil, err
			}

			req := a.request(pair, amount)
			res, err := a.deps.Simulator.Simulate(ctx, req)
			if err != nil {
				if ctx.Err() != nil {
					return nil, ctx.Err()
				}
				a.metrics.scans.Add(ctx, 1, metric.WithAttributes(attribute.String("result", "error")))
				a.deps.Logger.Error(ctx, "simulation failed",
					"pair", pair.Name, "amount", a.deps.Amounts.Amount(pair.Asset, amount), "error", err)
				a.deps.Alerter.Alert(ctx, fmt.Sprintf("⚠️ Simulation failed (%s, %s): %v",
					pair.Name, a.deps.Amounts.Amount(pair.Asset, amount), err))
				continue
			}
			if r := a.deps.Reporter; r != nil {
				r.ReportScan(arbApp.Scan{Block: block, Pair: pair.Name, Request: req, Result: res})
			}

			price := res.FeeUnitPrice
			if useNode {
				price = nodePrice
			}
			c := a.candidate(pair, amount, res, price)

			result := "unprofitable"
			if res.Profitable {
				result = "profitable"
			}
			a.metrics.scans.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
			a.deps.Logger.Info(ctx, "simulation",
				"pair", pair.Name,
				"amount", a.deps.Amounts.Amount(pair.Asset, amount),
				"profitable", res.Profitable,
				"estimated_profit", a.deps.Amounts.Amount(pair.Asset, c.EstimatedProfit),
				"gas", a.deps.Amounts.Amount(pair.Asset, c.GasCost),
				"net", a.deps.Amounts.Signed(pair.Asset, c.Net),
				"reason", res.Reason)
			a.deps.Alerter.Alert(ctx, fmt.Sprintf("🧠 Profit opportunity: %s, Amount=%s, Net Profit=%s",
				pair.Name, a.deps.Amounts.Amount(pair.Asset, amount), a.deps.Amounts.Signed(pair.Asset, c.Net)))

			if res.Profitable {
				sel.Offer(c)
			}
		}
	}
	return sel.Best(), nil
}

func (a *Agent) candidate(pair domain.Pair, amount *big.Int, res arbApp.SimulationResult, price *big.Int) domain.Candidate {
	profit := new(big.Int)
	if res.EstimatedProfit != nil {
		profit.Set(res.EstimatedProfit)
	}
	gas := domain.GasCost(a.cfg.GasEstimate, a.cfg.GasBuffer, price, a.cfg.FallbackGasCost)
	return domain.Candidate{
		Pair:            pair,
		Principal:       new(big.Int).Set(amount),
		EstimatedProfit: profit,
		GasCost:         gas,
		Net:             new(big.Int).Sub(profit, gas),
		FeeUnitPrice:    res.FeeUnitPrice,
	}
}

// gasPrice reads the node's gas price once per round. The second result
// is false when there is no node; a failed read returns (nil, true) so
// every candidate of the round uses the fallback cost.
func (a *Agent) gasPrice(ctx context.Context) (*big.Int, bool) {
	if a.deps.FeeMarket == nil {
		return nil, false
	}
	gp, err := a.deps.FeeMarket.GetGasPrice(ctx)
	if err != nil || gp == nil {
		a.deps.Logger.Warn(ctx, "gas price unavailable, using fallback cost", "error", err)
		return nil, true
	}
	return gp.Wei, true
}

// feeQuote returns the base fee and suggested tip to check against the
// ceiling. Without a node the block's base fee is used, or the oracle's
// fee-unit price for blocks that carry none.
func (a *Agent) feeQuote(ctx context.Context, block *blockchainDomain.Block, best *domain.Candidate) (*big.Int, *big.Int, error) {
	if a.deps.FeeMarket != nil {
		q, err := a.deps.FeeMarket.GetFeeQuote(ctx)
		if err != nil {
			return nil, nil, err
		}
		return q.BaseFee, q.TipCap, nil
	}
	if block.BaseFee != nil {
		return block.BaseFee, nil, nil
	}
	return best.FeeUnitPrice, nil, nil
}

func (a *Agent) execute(ctx context.Context, best *domain.Candidate) error {
	pair := best.Pair
	req := a.request(pair, best.Principal)

	a.deps.Logger.Info(ctx, "sending execution",
		"pair", pair.Name,
		"amount", a.deps.Amounts.Amount(pair.Asset, best.Principal),
		"net", a.deps.Amounts.Signed(pair.Asset, best.Net))
	a.deps.Alerter.Alert(ctx, fmt.Sprintf("🚀 Execution sent: %s, Amount=%s, Net Profit=%s",
		pair.Name, a.deps.Amounts.Amount(pair.Asset, best.Principal), a.deps.Amounts.Signed(pair.Asset, best.Net)))

	outcome, err := a.deps.Executor.Execute(ctx, a.cfg.Owner, req)
	if err == nil {
		a.metrics.executions.Add(ctx, 1, metric.WithAttributes(attribute.String("result", "success")))
		a.deps.Logger.Info(ctx, "arbitrage executed successfully",
			"pair", pair.Name, "profit", a.deps.Amounts.Amount(pair.Asset, outcome.Profit))
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}

	a.metrics.executions.Add(ctx, 1, metric.WithAttributes(attribute.String("result", "failure")))
	a.deps.Logger.Error(ctx, "execution failed", "pair", pair.Name, "error", err)
	// An outcome means the engine published TradeFailed, which the event
	// alerts already carry.
	if outcome == nil {
		a.deps.Alerter.Alert(ctx, fmt.Sprintf("❌ Execution failed: %v", err))
	}
	return nil
}

func (a *Agent) request(pair domain.Pair, amount *big.Int) arbDomain.TradeRequest {
	return arbDomain.NewTradeRequest(pair.Asset, pair.PoolA, pair.PoolB, pair.PathOut, pair.PathBack,
		amount, a.deps.Clock().Add(a.cfg.DeadlineDelta))
}
