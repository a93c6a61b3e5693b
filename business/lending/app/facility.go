package app

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/flashloan-arb/internal/apperror"
	"github.com/fd1az/flashloan-arb/internal/ledger"
)

const (
	tracerName = "github.com/fd1az/flashloan-arb/business/lending/app"
	meterName  = "github.com/fd1az/flashloan-arb/business/lending/app"

	bpsDenominator = 10_000
)

var _ Lender = (*Facility)(nil)

type facilityMetrics struct {
	loans metric.Int64Counter
}

// Facility lends the balances held at its own ledger address. It takes
// the principal back plus a premium through the receiver's allowance
// before returning.
type Facility struct {
	address    common.Address
	premiumBps uint64

	tracer  trace.Tracer
	metrics *facilityMetrics
}

// NewFacility creates a facility at address charging premiumBps.
func NewFacility(address common.Address, premiumBps uint64) (*Facility, error) {
	if premiumBps > bpsDenominator {
		return nil, apperror.New(apperror.CodeConfigurationError,
			apperror.WithContext(fmt.Sprintf("premium %d bps exceeds 100%%", premiumBps)))
	}
	f := &Facility{
		address:    address,
		premiumBps: premiumBps,
		tracer:     otel.Tracer(tracerName),
	}

	loans, err := otel.Meter(meterName).Int64Counter(
		"lending_loans_total",
		metric.WithDescription("Flash loans by result"),
		metric.WithUnit("{loan}"),
	)
	if err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}
	f.metrics = &facilityMetrics{loans: loans}
	return f, nil
}

func (f *Facility) Address() common.Address { return f.address }
func (f *Facility) PremiumBps() uint64      { return f.premiumBps }

// Premium is amount * premiumBps / 10000, rounded down.
func (f *Facility) Premium(amount *big.Int) *big.Int {
	p := new(big.Int).Mul(amount, new(big.Int).SetUint64(f.premiumBps))
	return p.Quo(p, big.NewInt(bpsDenominator))
}

// Available is the facility's balance of asset.
func (f *Facility) Available(view ledger.View, asset common.Address) *big.Int {
	return view.BalanceOf(asset, f.address)
}

// RequestLoan transfers amount of asset to receiver, calls it back and
// collects amount + premium. Any failure is returned so the enclosing unit
// is discarded.
func (f *Facility) RequestLoan(ctx context.Context, tx ledger.Tx, initiator common.Address, receiver Receiver, asset common.Address, amount *big.Int, data []byte) (err error) {
	ctx, span := f.tracer.Start(ctx, "lending.request_loan", trace.WithAttributes(
		attribute.String("asset", asset.Hex()),
		attribute.String("initiator", initiator.Hex()),
	))
	defer span.End()

	result := "repaid"
	defer func() {
		if err != nil {
			result = string(apperror.GetCode(err))
			span.RecordError(err)
			span.SetStatus(codes.Error, result)
		} else {
			span.SetStatus(codes.Ok, result)
		}
		f.metrics.loans.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
	}()

	if amount == nil || amount.Sign() <= 0 {
		return apperror.New(apperror.CodeInvalidAmount, apperror.WithContext("loan amount must be positive"))
	}
	if avail := f.Available(tx, asset); avail.Cmp(amount) < 0 {
		return apperror.New(apperror.CodeInsufficientLiquidity,
			apperror.WithContext(fmt.Sprintf("facility holds %s, requested %s", avail, amount)))
	}

	cb := LoanCallback{
		Caller:    f.address,
		Asset:     asset,
		Amount:    new(big.Int).Set(amount),
		Premium:   f.Premium(amount),
		Initiator: initiator,
		Data:      append([]byte(nil), data...),
	}
	span.SetAttributes(
		attribute.String("amount", amount.String()),
		attribute.String("premium", cb.Premium.String()),
	)

	if err := tx.Transfer(asset, f.address, receiver.Address(), amount); err != nil {
		return err
	}

	ok, err := receiver.OnLoanCallback(ctx, tx, cb)
	if err != nil {
		return err
	}
	if !ok {
		return apperror.New(apperror.CodeCallbackRejected,
			apperror.WithContext("receiver declined to repay"))
	}

	if err := tx.TransferFrom(asset, f.address, receiver.Address(), f.address, cb.Owed()); err != nil {
		return apperror.New(apperror.CodeInsufficientProfit,
			apperror.WithCause(err),
			apperror.WithContext("loan repayment failed"))
	}
	return nil
}
