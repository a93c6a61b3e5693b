package app

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	ammApp "github.com/fd1az/flashloan-arb/business/amm/app"
	"github.com/fd1az/flashloan-arb/business/arbitrage/domain"
	lendingApp "github.com/fd1az/flashloan-arb/business/lending/app"
	"github.com/fd1az/flashloan-arb/internal/apperror"
	"github.com/fd1az/flashloan-arb/internal/ledger"
	"github.com/fd1az/flashloan-arb/internal/logger"
)

var _ lendingApp.Receiver = (*Orchestrator)(nil)

// entryGuard admits one state-changing call at a time.
type entryGuard struct {
	busy atomic.Bool
}

func (g *entryGuard) acquire() (func(), error) {
	if !g.busy.CompareAndSwap(false, true) {
		return nil, apperror.New(apperror.CodeExecutionInProgress)
	}
	return func() { g.busy.Store(false) }, nil
}

func (g *entryGuard) held() bool { return g.busy.Load() }

// attempt is the in-flight execution the loan callback is checked against.
type attempt struct {
	req     domain.TradeRequest
	params  domain.RiskParameters
	machine *domain.Machine

	balance   *big.Int
	owed      *big.Int
	cost      *big.Int
	profit    *big.Int
	shortfall error
}

// Orchestrator borrows, runs both swaps, and repays or aborts, all inside
// one ledger unit.
type Orchestrator struct {
	accounts  Accounts
	ledger    *ledger.Ledger
	lender    lendingApp.Lender
	pools     Pools
	oracle    PriceOracle
	risk      *RiskStore
	guard     *LiquidityGuard
	sanity    *SanityChecker
	simulator *Simulator
	events    *EventBus
	entry     *entryGuard
	clock     func() time.Time

	current atomic.Pointer[attempt]

	logger  logger.LoggerInterface
	tracer  trace.Tracer
	metrics *engineMetrics
}

// Address is the engine account: the loan receiver and swap sender.
func (o *Orchestrator) Address() common.Address { return o.accounts.Engine }

// InFlight reports whether an execution is running.
func (o *Orchestrator) InFlight() bool { return o.entry.held() }

// Execute runs one owner-requested round trip. Every guard is re-checked
// here; a prior simulation is not trusted. The returned outcome is nil
// only when the caller is not authorised or another call is in flight.
func (o *Orchestrator) Execute(ctx context.Context, caller common.Address, req domain.TradeRequest) (*domain.ExecutionOutcome, error) {
	if caller != o.accounts.Owner {
		return nil, apperror.New(apperror.CodeUnauthorizedCaller,
			apperror.WithContext("execute: "+caller.Hex()))
	}
	release, err := o.entry.acquire()
	if err != nil {
		return nil, err
	}
	defer release()

	ctx, span := o.tracer.Start(ctx, "arbitrage.execute", trace.WithAttributes(
		attribute.String("asset", req.Asset.Hex()),
		attribute.String("pool_a", req.PoolA.Hex()),
		attribute.String("pool_b", req.PoolB.Hex()),
	))
	defer span.End()

	req = req.Clone()
	a := &attempt{req: req, params: o.risk.Get(), machine: domain.NewMachine()}
	started := o.clock()

	err = o.run(ctx, a)

	outcome := o.outcome(a, started, err)
	o.events.Publish(domain.OutcomeEvent(outcome))
	o.record(ctx, span, outcome, err)
	return outcome, err
}

func (o *Orchestrator) run(ctx context.Context, a *attempt) error {
	req := a.req

	if err := req.Validate(); err != nil {
		return err
	}
	if req.Expired(o.clock()) {
		return apperror.New(apperror.CodeDeadlineExpired,
			apperror.WithContext("deadline "+req.Deadline.UTC().Format(time.RFC3339)))
	}

	sim, err := o.simulator.simulate(ctx, o.ledger.Snapshot(), req, a.params)
	if err != nil {
		return err
	}
	if !sim.Profitable {
		return apperror.New(apperror.CodeNotProfitable, apperror.WithContext(sim.Reason))
	}

	feePrice, err := o.oracle.FeeUnitPrice(ctx)
	if err != nil {
		return err
	}
	if feePrice.Cmp(a.params.MaxAcceptableFeeUnitPrice) > 0 {
		return apperror.New(apperror.CodeFeePriceTooHigh,
			apperror.WithContext(fmt.Sprintf("fee unit price %s > %s", feePrice, a.params.MaxAcceptableFeeUnitPrice)))
	}

	if err := a.machine.Transition(domain.StateRequested); err != nil {
		return err
	}

	data, err := domain.FlashLoanContext{Request: req, Premium: a.params.Premium(req.Principal)}.Encode()
	if err != nil {
		return err
	}

	// The unit's lifetime is measured on the engine clock, the same one
	// the deadline checks use.
	dctx, cancel := context.WithTimeout(ctx, req.Deadline.Sub(o.clock()))
	defer cancel()

	o.current.Store(a)
	defer o.current.Store(nil)

	err = o.ledger.Atomically(dctx, "arbitrage.execute", func(ctx context.Context, tx ledger.Tx) error {
		return o.lender.RequestLoan(ctx, tx, o.accounts.Engine, o, req.Asset, req.Principal, data)
	})
	if err != nil {
		if a.shortfall != nil {
			return a.shortfall
		}
		return err
	}
	return a.machine.Transition(domain.StateSettled)
}

// OnLoanCallback is entered by the lending facility with the principal
// already transferred. Returning an error or false discards the whole
// unit, loan included.
func (o *Orchestrator) OnLoanCallback(ctx context.Context, tx ledger.Tx, cb lendingApp.LoanCallback) (bool, error) {
	ctx, span := o.tracer.Start(ctx, "arbitrage.loan_callback")
	defer span.End()

	a, err := o.admitCallback(tx, cb)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(apperror.GetCode(err)))
		return false, err
	}
	if err := a.machine.Transition(domain.StateBorrowed); err != nil {
		return false, err
	}

	if err := o.swapOut(ctx, tx, a); err != nil {
		return false, err
	}
	if err := o.swapBack(ctx, tx, a); err != nil {
		return false, err
	}
	return o.settle(ctx, tx, a, cb)
}

func (o *Orchestrator) admitCallback(tx ledger.Tx, cb lendingApp.LoanCallback) (*attempt, error) {
	a := o.current.Load()
	if a == nil || !o.entry.held() {
		return nil, apperror.New(apperror.CodeUnexpectedCallback,
			apperror.WithContext("no execution in flight"))
	}
	if cb.Caller != o.lender.Address() {
		return nil, apperror.New(apperror.CodeUnexpectedLender, apperror.WithContext(cb.Caller.Hex()))
	}
	if cb.Initiator != o.accounts.Engine {
		return nil, apperror.New(apperror.CodeForeignInitiator, apperror.WithContext(cb.Initiator.Hex()))
	}

	decoded, err := domain.DecodeFlashLoanContext(cb.Data)
	if err != nil {
		return nil, err
	}
	if decoded.Request.Asset != cb.Asset {
		return nil, apperror.New(apperror.CodeCallbackAssetMismatch,
			apperror.WithContext(fmt.Sprintf("context %s, callback %s", decoded.Request.Asset.Hex(), cb.Asset.Hex())))
	}
	if cb.Amount == nil || decoded.Request.Principal.Cmp(cb.Amount) != 0 {
		return nil, apperror.New(apperror.CodeInvalidLoanContext,
			apperror.WithContext(fmt.Sprintf("context principal %s, callback amount %v", decoded.Request.Principal, cb.Amount)))
	}
	if cb.Premium == nil || cb.Premium.Sign() < 0 {
		return nil, apperror.New(apperror.CodeInvalidLoanContext, apperror.WithContext("callback premium"))
	}
	if decoded.Premium.Cmp(cb.Premium) != 0 {
		return nil, apperror.New(apperror.CodeInvalidLoanContext,
			apperror.WithContext(fmt.Sprintf("context premium %s, callback premium %s", decoded.Premium, cb.Premium)))
	}
	if decoded.Request.Asset != a.req.Asset || decoded.Request.PoolA != a.req.PoolA || decoded.Request.PoolB != a.req.PoolB ||
		!samePath(decoded.Request.PathOut, a.req.PathOut) || !samePath(decoded.Request.PathBack, a.req.PathBack) {
		return nil, apperror.New(apperror.CodeInvalidLoanContext,
			apperror.WithContext("context does not match the execution in flight"))
	}
	if a.req.Expired(tx.Now()) {
		return nil, apperror.New(apperror.CodeDeadlineExpired, apperror.WithContext("loan callback"))
	}
	return a, nil
}

func (o *Orchestrator) swapOut(ctx context.Context, tx ledger.Tx, a *attempt) error {
	req := a.req
	router, err := o.pools.RouterFor(req.PoolA)
	if err != nil {
		return err
	}

	minOut, err := o.minOut(ctx, tx, router, req.PoolA, req.Principal, req.PathOut, a.params)
	if err != nil {
		return err
	}
	sane, err := o.sanity.IsTradeSane(ctx, req.Principal, minOut, req.PathOut, req.Asset, a.params.PriceDeviationToleranceBps)
	if err != nil {
		return err
	}
	if !sane {
		return apperror.New(apperror.CodePriceDeviationExceeded,
			apperror.WithContext(fmt.Sprintf("minimum output %s below reference value", minOut)))
	}

	if err := o.swap(ctx, tx, router, req.Principal, minOut, req.PathOut, req.Deadline); err != nil {
		return err
	}
	return a.machine.Transition(domain.StateSwap1Done)
}

func (o *Orchestrator) swapBack(ctx context.Context, tx ledger.Tx, a *attempt) error {
	req := a.req
	router, err := o.pools.RouterFor(req.PoolB)
	if err != nil {
		return err
	}

	received := tx.BalanceOf(req.Intermediate(), o.accounts.Engine)
	minOut, err := o.minOut(ctx, tx, router, req.PoolB, received, req.PathBack, a.params)
	if err != nil {
		return err
	}

	if err := o.swap(ctx, tx, router, received, minOut, req.PathBack, req.Deadline); err != nil {
		return err
	}
	return a.machine.Transition(domain.StateSwap2Done)
}

// minOut re-runs the liquidity guard and returns the slippage-adjusted
// quote for amountIn.
func (o *Orchestrator) minOut(ctx context.Context, view ledger.View, router ammApp.Router, pool common.Address, amountIn *big.Int, path []common.Address, params domain.RiskParameters) (*big.Int, error) {
	ok, err := o.guard.HasSafeLiquidity(ctx, view, pool, amountIn, path[0])
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperror.New(apperror.CodeInsufficientLiquidity,
			apperror.WithContext(fmt.Sprintf("pool %s cannot absorb %s", pool.Hex(), amountIn)))
	}

	amounts, err := router.QuoteOutput(ctx, view, amountIn, path)
	if err != nil {
		return nil, err
	}
	return params.MinOut(amounts[len(amounts)-1]), nil
}

func (o *Orchestrator) swap(ctx context.Context, tx ledger.Tx, router ammApp.Router, amountIn, minOut *big.Int, path []common.Address, deadline time.Time) error {
	if err := tx.Approve(path[0], o.accounts.Engine, router.Address(), amountIn); err != nil {
		return err
	}
	_, err := router.Swap(ctx, tx, o.accounts.Engine, ammApp.SwapRequest{
		AmountIn:  amountIn,
		MinOut:    minOut,
		Path:      path,
		Recipient: o.accounts.Engine,
		Deadline:  deadline,
	})
	return err
}

// settle repays the facility and forwards the surplus to the owner, or
// declines so the facility undoes the loan.
func (o *Orchestrator) settle(ctx context.Context, tx ledger.Tx, a *attempt, cb lendingApp.LoanCallback) (bool, error) {
	req := a.req

	a.balance = tx.BalanceOf(req.Asset, o.accounts.Engine)
	a.owed = cb.Owed()

	cost, err := o.oracle.EstimatedExecutionCost(ctx, a.params.GasCostEstimateUnits)
	if err != nil {
		return false, err
	}
	a.cost = cost

	required := new(big.Int).Add(a.owed, cost)
	required.Add(required, a.params.MinProfit)

	if a.balance.Cmp(required) < 0 {
		if err := o.clearApprovals(tx, req); err != nil {
			return false, err
		}
		a.shortfall = apperror.New(apperror.CodeInsufficientProfit,
			apperror.WithContext(fmt.Sprintf("final balance %s < required %s", a.balance, required)))
		return false, nil
	}

	if err := tx.Approve(req.Asset, o.accounts.Engine, cb.Caller, a.owed); err != nil {
		return false, err
	}
	profit := new(big.Int).Sub(a.balance, a.owed)
	profit.Sub(profit, cost)
	if err := tx.Transfer(req.Asset, o.accounts.Engine, o.accounts.Owner, profit); err != nil {
		return false, err
	}
	if err := o.clearApprovals(tx, req); err != nil {
		return false, err
	}
	a.profit = profit
	return true, nil
}

func (o *Orchestrator) clearApprovals(tx ledger.Tx, req domain.TradeRequest) error {
	for _, leg := range []struct {
		pool  common.Address
		token common.Address
	}{
		{req.PoolA, req.PathOut[0]},
		{req.PoolB, req.PathBack[0]},
	} {
		router, err := o.pools.RouterFor(leg.pool)
		if err != nil {
			return err
		}
		if err := tx.Approve(leg.token, o.accounts.Engine, router.Address(), new(big.Int)); err != nil {
			return err
		}
	}
	return nil
}

func (o *Orchestrator) outcome(a *attempt, started time.Time, err error) *domain.ExecutionOutcome {
	out := &domain.ExecutionOutcome{
		Request:         a.req,
		BalanceSnapshot: a.balance,
		AmountOwed:      a.owed,
		ExecutionCost:   a.cost,
		StartedAt:       started,
		FinishedAt:      o.clock(),
	}
	if err == nil {
		out.Success = true
		out.Profit = a.profit
	} else {
		a.machine.Abort()
		out.FailureCode = apperror.GetCode(err)
		out.FailureReason = failureReason(err)
	}
	out.FinalState = a.machine.State()
	out.States = a.machine.History()
	return out
}

func (o *Orchestrator) record(ctx context.Context, span trace.Span, out *domain.ExecutionOutcome, err error) {
	result := "settled"
	if err != nil {
		result = "aborted"
		category := apperror.GetCategory(err)
		o.metrics.aborts.Add(ctx, 1, metric.WithAttributes(attribute.String("category", string(category))))
		span.RecordError(err)
		span.SetStatus(codes.Error, string(out.FailureCode))
		o.logger.Warn(ctx, "execution aborted",
			"code", out.FailureCode,
			"category", category,
			"reached", reached(out.States).String(),
			"reason", out.FailureReason)
	} else {
		span.SetAttributes(attribute.String("profit", out.Profit.String()))
		span.SetStatus(codes.Ok, result)
		o.logger.Info(ctx, "execution settled",
			"asset", out.Request.Asset.Hex(),
			"profit", out.Profit.String(),
			"owed", out.AmountOwed.String())
	}
	attrs := metric.WithAttributes(attribute.String("result", result))
	o.metrics.executions.Add(ctx, 1, attrs)
	o.metrics.executionLatency.Record(ctx, float64(out.Duration().Milliseconds()), attrs)
}

func samePath(a, b []common.Address) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// reached is the last state before the attempt aborted.
func reached(states []domain.State) domain.State {
	for i := len(states) - 1; i >= 0; i-- {
		if states[i] != domain.StateAborted {
			return states[i]
		}
	}
	return domain.StateIdle
}

func failureReason(err error) string {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return appErr.Reason()
	}
	return err.Error()
}
