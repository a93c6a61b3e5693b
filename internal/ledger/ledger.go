// Package ledger is the in-process token ledger every pool, router,
// lending facility and engine account lives in.
//
// Mutations only happen inside a unit of execution started with
// Atomically. A unit stages its writes and the ledger commits them all at
// once when the unit's function returns nil, or drops every one of them
// otherwise. Units run one at a time. Readers never block writers: they
// read an immutable committed state through Snapshot.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/flashloan-arb/internal/apperror"
)

const (
	tracerName = "github.com/fd1az/flashloan-arb/internal/ledger"
	meterName  = "github.com/fd1az/flashloan-arb/internal/ledger"
)

// View reads balances and allowances.
type View interface {
	BalanceOf(token, holder common.Address) *big.Int
	Allowance(token, owner, spender common.Address) *big.Int
}

// Tx is the mutable view handed to a unit of execution. All amounts are
// smallest-unit integers and must be non-negative.
type Tx interface {
	View
	Transfer(token, from, to common.Address, amount *big.Int) error
	Approve(token, owner, spender common.Address, amount *big.Int) error
	TransferFrom(token, spender, from, to common.Address, amount *big.Int) error
	Mint(token, to common.Address, amount *big.Int) error
	Burn(token, from common.Address, amount *big.Int) error
	// Now is the unit's timestamp, fixed when the unit starts.
	Now() time.Time
	Name() string
}

// Snapshot is a consistent committed view.
type Snapshot interface {
	View
	Version() uint64
}

// Stats counts resolved units.
type Stats struct {
	Version   uint64
	Committed uint64
	Discarded uint64
}

type unitKey struct{}

// Ledger holds committed state.
type Ledger struct {
	unitMu sync.Mutex
	state  atomic.Pointer[state]
	clock  func() time.Time

	committed atomic.Uint64
	discarded atomic.Uint64

	tracer  trace.Tracer
	metrics *ledgerMetrics
}

type ledgerMetrics struct {
	units        metric.Int64Counter
	unitDuration metric.Float64Histogram
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithClock overrides time.Now for unit timestamps.
func WithClock(clock func() time.Time) Option {
	return func(l *Ledger) { l.clock = clock }
}

// New creates an empty ledger.
func New(opts ...Option) *Ledger {
	l := &Ledger{
		clock:  time.Now,
		tracer: otel.Tracer(tracerName),
	}
	l.state.Store(emptyState())
	for _, opt := range opts {
		opt(l)
	}
	l.initMetrics()
	return l
}

func (l *Ledger) initMetrics() {
	meter := otel.Meter(meterName)
	l.metrics = &ledgerMetrics{}

	// Instrument creation only fails on invalid names; fall back to no-ops.
	var err error
	if l.metrics.units, err = meter.Int64Counter(
		"ledger_units_total",
		metric.WithDescription("Units of execution by result"),
		metric.WithUnit("{unit}"),
	); err != nil {
		l.metrics.units, _ = noopMeter.Int64Counter("ledger_units_total")
	}
	if l.metrics.unitDuration, err = meter.Float64Histogram(
		"ledger_unit_duration_seconds",
		metric.WithDescription("Time spent inside a unit of execution"),
		metric.WithUnit("s"),
	); err != nil {
		l.metrics.unitDuration, _ = noopMeter.Float64Histogram("ledger_unit_duration_seconds")
	}
}

// Now returns the ledger clock.
func (l *Ledger) Now() time.Time { return l.clock() }

// BalanceOf reads committed state.
func (l *Ledger) BalanceOf(token, holder common.Address) *big.Int {
	return l.state.Load().BalanceOf(token, holder)
}

// Allowance reads committed state.
func (l *Ledger) Allowance(token, owner, spender common.Address) *big.Int {
	return l.state.Load().Allowance(token, owner, spender)
}

// Snapshot returns the current committed state. It never changes.
func (l *Ledger) Snapshot() Snapshot {
	return l.state.Load()
}

// Stats reports unit counters.
func (l *Ledger) Stats() Stats {
	return Stats{
		Version:   l.state.Load().version,
		Committed: l.committed.Load(),
		Discarded: l.discarded.Load(),
	}
}

// ErrNestedUnit is returned when Atomically is called from inside a unit
// of the same ledger.
var ErrNestedUnit = errors.New("ledger: nested unit of execution")

// Atomically runs fn as one unit of execution. Every write fn performs
// through tx is committed together if fn returns nil and ctx is still
// live; otherwise nothing is. A panic in fn also leaves state untouched.
func (l *Ledger) Atomically(ctx context.Context, name string, fn func(ctx context.Context, tx Tx) error) (err error) {
	if owner, ok := ctx.Value(unitKey{}).(*Ledger); ok && owner == l {
		return apperror.New(apperror.CodeInvalidState, apperror.WithCause(ErrNestedUnit),
			apperror.WithContext(name))
	}

	ctx, span := l.tracer.Start(ctx, "ledger.unit", trace.WithAttributes(attribute.String("unit.name", name)))
	defer span.End()

	l.unitMu.Lock()
	defer l.unitMu.Unlock()

	start := time.Now()
	u := newUnit(name, l.state.Load(), l.clock())

	committed := false
	defer func() {
		u.closed = true
		result := "committed"
		if !committed {
			result = "discarded"
			l.discarded.Add(1)
			if err != nil {
				span.RecordError(err)
			}
			span.SetStatus(codes.Error, "unit discarded")
		} else {
			l.committed.Add(1)
			span.SetStatus(codes.Ok, "unit committed")
		}
		attrs := metric.WithAttributes(attribute.String("result", result))
		l.metrics.units.Add(ctx, 1, attrs)
		l.metrics.unitDuration.Record(ctx, time.Since(start).Seconds(), attrs)
	}()

	if err := fn(context.WithValue(ctx, unitKey{}, l), u); err != nil {
		return err
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		code := apperror.CodeServiceTimeout
		if errors.Is(ctxErr, context.DeadlineExceeded) {
			code = apperror.CodeDeadlineExpired
		}
		return apperror.New(code, apperror.WithCause(ctxErr),
			apperror.WithContext(fmt.Sprintf("unit %q not committed", name)))
	}

	next := u.base.apply(u.balances, u.allowances)
	l.state.Store(next)
	committed = true
	span.SetAttributes(attribute.Int64("ledger.version", int64(next.version)))
	return nil
}

// SetBalance moves holder's balance to exactly amount by minting or
// burning the difference.
func SetBalance(tx Tx, token, holder common.Address, amount *big.Int) error {
	cur := tx.BalanceOf(token, holder)
	switch diff := new(big.Int).Sub(amount, cur); diff.Sign() {
	case 1:
		return tx.Mint(token, holder, diff)
	case -1:
		return tx.Burn(token, holder, diff.Neg(diff))
	}
	return nil
}
