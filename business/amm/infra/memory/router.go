package memory

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/flashloan-arb/business/amm/app"
	"github.com/fd1az/flashloan-arb/business/amm/domain"
	"github.com/fd1az/flashloan-arb/internal/apperror"
	"github.com/fd1az/flashloan-arb/internal/ledger"
)

const tracerName = "github.com/fd1az/flashloan-arb/business/amm/infra/memory"

var _ app.Router = (*Router)(nil)

type pairKey struct{ a, b common.Address }

func keyOf(a, b common.Address) pairKey {
	if b.Cmp(a) < 0 {
		a, b = b, a
	}
	return pairKey{a, b}
}

// Router routes exact-input swaps through its own pairs. Quotes use the
// quote fee; execution uses the execution fee, which defaults to the same
// value but can differ to model a router whose real fee drifts from quotes.
type Router struct {
	name       string
	address    common.Address
	quoteFee   domain.Fee
	executeFee domain.Fee
	pairs      map[pairKey]*Pair

	tracer trace.Tracer
}

// RouterOption configures a Router.
type RouterOption func(*Router)

// WithExecutionFee overrides the fee applied when a swap executes.
func WithExecutionFee(fee domain.Fee) RouterOption {
	return func(r *Router) { r.executeFee = fee }
}

func NewRouter(name string, address common.Address, fee domain.Fee, opts ...RouterOption) *Router {
	r := &Router{
		name:       name,
		address:    address,
		quoteFee:   fee,
		executeFee: fee,
		pairs:      make(map[pairKey]*Pair),
		tracer:     otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Router) Name() string            { return r.name }
func (r *Router) Address() common.Address { return r.address }

// AddPair makes p routable. One pair per token pair.
func (r *Router) AddPair(p *Pair) {
	r.pairs[keyOf(p.Token0(), p.Token1())] = p
}

func (r *Router) QuoteOutput(ctx context.Context, view ledger.View, amountIn *big.Int, path []common.Address) ([]*big.Int, error) {
	ctx, span := r.tracer.Start(ctx, "router.quote_output", trace.WithAttributes(
		attribute.String("router", r.name),
		attribute.Int("hops", len(path)-1),
	))
	defer span.End()

	amounts, _, err := r.amountsOut(ctx, view, r.quoteFee, amountIn, path)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "quote failed")
		return nil, err
	}
	span.SetAttributes(attribute.String("amount_out", amounts[len(amounts)-1].String()))
	return amounts, nil
}

// Swap pulls AmountIn from sender into the first pair and forwards each
// hop's output to the next pair, the last one to Recipient.
func (r *Router) Swap(ctx context.Context, tx ledger.Tx, sender common.Address, req app.SwapRequest) ([]*big.Int, error) {
	ctx, span := r.tracer.Start(ctx, "router.swap", trace.WithAttributes(
		attribute.String("router", r.name),
		attribute.String("amount_in", req.AmountIn.String()),
	))
	defer span.End()

	amounts, err := r.swap(ctx, tx, sender, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "swap failed")
		return nil, err
	}
	span.SetAttributes(attribute.String("amount_out", amounts[len(amounts)-1].String()))
	span.SetStatus(codes.Ok, "swapped")
	return amounts, nil
}

func (r *Router) swap(ctx context.Context, tx ledger.Tx, sender common.Address, req app.SwapRequest) ([]*big.Int, error) {
	if !req.Deadline.IsZero() && tx.Now().After(req.Deadline) {
		return nil, apperror.New(apperror.CodeDeadlineExpired,
			apperror.WithContext(fmt.Sprintf("router %s: deadline %s passed", r.name, req.Deadline)))
	}
	if req.AmountIn == nil || req.AmountIn.Sign() <= 0 {
		return nil, apperror.New(apperror.CodeInvalidAmount, apperror.WithContext("swap amount must be positive"))
	}

	amounts, pairs, err := r.amountsOut(ctx, tx, r.executeFee, req.AmountIn, req.Path)
	if err != nil {
		return nil, err
	}
	out := amounts[len(amounts)-1]
	if req.MinOut != nil && out.Cmp(req.MinOut) < 0 {
		return nil, apperror.New(apperror.CodeSlippageExceeded,
			apperror.WithContext(fmt.Sprintf("router %s: out %s below min %s", r.name, out, req.MinOut)))
	}

	if err := tx.TransferFrom(req.Path[0], r.address, sender, pairs[0].Address(), req.AmountIn); err != nil {
		return nil, err
	}
	for i, p := range pairs {
		to := req.Recipient
		if i+1 < len(pairs) {
			to = pairs[i+1].Address()
		}
		if err := tx.Transfer(req.Path[i+1], p.Address(), to, amounts[i+1]); err != nil {
			return nil, err
		}
	}
	return amounts, nil
}

func (r *Router) amountsOut(ctx context.Context, view ledger.View, fee domain.Fee, amountIn *big.Int, path []common.Address) ([]*big.Int, []*Pair, error) {
	if len(path) < 2 {
		return nil, nil, apperror.New(apperror.CodeInvalidPath,
			apperror.WithContext(fmt.Sprintf("path needs at least 2 tokens, got %d", len(path))))
	}

	hops := make([]domain.Hop, 0, len(path)-1)
	pairs := make([]*Pair, 0, len(path)-1)
	for i := 0; i+1 < len(path); i++ {
		p, ok := r.pairs[keyOf(path[i], path[i+1])]
		if !ok {
			return nil, nil, apperror.New(apperror.CodeUnknownPool,
				apperror.WithContext(fmt.Sprintf("router %s has no pair for %s/%s", r.name, path[i].Hex(), path[i+1].Hex())))
		}
		in, out, err := app.Oriented(ctx, view, p, path[i])
		if err != nil {
			return nil, nil, err
		}
		hops = append(hops, domain.Hop{ReserveIn: in, ReserveOut: out})
		pairs = append(pairs, p)
	}

	amounts := fee.AmountsOut(amountIn, hops)
	if amounts[len(amounts)-1].Sign() == 0 {
		return nil, nil, apperror.New(apperror.CodeInsufficientLiquidity,
			apperror.WithContext(fmt.Sprintf("router %s: zero output", r.name)))
	}
	return amounts, pairs, nil
}
