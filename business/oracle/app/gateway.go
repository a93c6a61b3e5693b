package app

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/flashloan-arb/internal/apperror"
)

const (
	tracerName = "github.com/fd1az/flashloan-arb/business/oracle/app"
	meterName  = "github.com/fd1az/flashloan-arb/business/oracle/app"

	// priceDecimals is the precision of every normalised price: 1e18 is one unit.
	priceDecimals = 18
	// gweiDecimals converts fee-unit readings, which are quoted in gwei.
	gweiDecimals = 9
)

// OneUnit is 1e18, the normalised value of a price of 1.
var OneUnit = new(big.Int).Exp(big.NewInt(10), big.NewInt(priceDecimals), nil)

type gatewayMetrics struct {
	reads    metric.Int64Counter
	failures metric.Int64Counter
}

// Gateway wraps the reference price feed and the fee-unit price feed.
// Nothing is cached: each call reads its feed.
type Gateway struct {
	reference PriceFeed
	feeUnit   PriceFeed
	maxAge    time.Duration
	clock     func() time.Time

	tracer  trace.Tracer
	metrics *gatewayMetrics
}

// GatewayOption configures a Gateway.
type GatewayOption func(*Gateway)

// WithMaxAge rejects readings older than d. Zero disables the check, as
// do readings without a timestamp.
func WithMaxAge(d time.Duration) GatewayOption {
	return func(g *Gateway) { g.maxAge = d }
}

// WithClock overrides time.Now for staleness checks.
func WithClock(clock func() time.Time) GatewayOption {
	return func(g *Gateway) { g.clock = clock }
}

// NewGateway creates a gateway over the two feeds.
func NewGateway(reference, feeUnit PriceFeed, opts ...GatewayOption) (*Gateway, error) {
	if reference == nil || feeUnit == nil {
		return nil, apperror.New(apperror.CodeConfigurationError,
			apperror.WithContext("oracle gateway needs a reference and a fee-unit feed"))
	}
	g := &Gateway{
		reference: reference,
		feeUnit:   feeUnit,
		clock:     time.Now,
		tracer:    otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(g)
	}
	if err := g.initMetrics(); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}
	return g, nil
}

func (g *Gateway) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	g.metrics = &gatewayMetrics{}

	g.metrics.reads, err = meter.Int64Counter(
		"oracle_reads_total",
		metric.WithDescription("Total feed reads"),
		metric.WithUnit("{read}"),
	)
	if err != nil {
		return err
	}

	g.metrics.failures, err = meter.Int64Counter(
		"oracle_failures_total",
		metric.WithDescription("Feed reads rejected or failed"),
		metric.WithUnit("{failure}"),
	)
	return err
}

// ReferenceFeed and FeeUnitFeed expose the feeds for health checks.
func (g *Gateway) ReferenceFeed() PriceFeed { return g.reference }
func (g *Gateway) FeeUnitFeed() PriceFeed   { return g.feeUnit }

// ReferencePrice returns the reference asset price scaled so that 1e18
// is a price of one.
func (g *Gateway) ReferencePrice(ctx context.Context) (*big.Int, error) {
	return g.read(ctx, g.reference, priceDecimals)
}

// FeeUnitPrice returns the price of one execution fee unit in wei. The
// feed is quoted in gwei.
func (g *Gateway) FeeUnitPrice(ctx context.Context) (*big.Int, error) {
	return g.read(ctx, g.feeUnit, gweiDecimals)
}

// EstimatedExecutionCost is FeeUnitPrice * gasUnits, in wei.
func (g *Gateway) EstimatedExecutionCost(ctx context.Context, gasUnits uint64) (*big.Int, error) {
	price, err := g.FeeUnitPrice(ctx)
	if err != nil {
		return nil, err
	}
	return price.Mul(price, new(big.Int).SetUint64(gasUnits)), nil
}

// read fetches a reading, rejects non-positive and stale values, and
// rescales it by 10^shift / 10^decimals.
func (g *Gateway) read(ctx context.Context, feed PriceFeed, shift uint8) (*big.Int, error) {
	ctx, span := g.tracer.Start(ctx, "oracle.read",
		trace.WithAttributes(attribute.String("feed", feed.Name())))
	defer span.End()

	attrs := metric.WithAttributes(attribute.String("feed", feed.Name()))
	g.metrics.reads.Add(ctx, 1, attrs)

	fail := func(err error, reason string) (*big.Int, error) {
		g.metrics.failures.Add(ctx, 1, metric.WithAttributes(
			attribute.String("feed", feed.Name()), attribute.String("reason", reason)))
		span.RecordError(err)
		span.SetStatus(codes.Error, reason)
		return nil, err
	}

	r, err := feed.LatestValue(ctx)
	if err != nil {
		if apperror.GetCategory(err) == apperror.CategoryOracle {
			return fail(err, "feed")
		}
		return fail(apperror.New(apperror.CodeOracleUnavailable, apperror.WithCause(err),
			apperror.WithContext(feed.Name())), "unavailable")
	}
	if r.Value == nil || r.Value.Sign() <= 0 {
		return fail(apperror.New(apperror.CodeOracleInvalidPrice,
			apperror.WithContext(fmt.Sprintf("%s returned %v", feed.Name(), r.Value))), "invalid")
	}
	if g.maxAge > 0 && !r.UpdatedAt.IsZero() {
		if age := g.clock().Sub(r.UpdatedAt); age > g.maxAge {
			return fail(apperror.New(apperror.CodeOracleStale,
				apperror.WithContext(fmt.Sprintf("%s last updated %s ago", feed.Name(), age.Round(time.Second)))), "stale")
		}
	}

	v := rescale(r.Value, r.Decimals, shift)
	if v.Sign() <= 0 {
		return fail(apperror.New(apperror.CodeOracleInvalidPrice,
			apperror.WithContext(fmt.Sprintf("%s value %s below precision", feed.Name(), r.Value))), "invalid")
	}

	span.SetAttributes(attribute.String("value", v.String()))
	span.SetStatus(codes.Ok, "read")
	return v, nil
}

func rescale(v *big.Int, from, to uint8) *big.Int {
	out := new(big.Int).Set(v)
	switch {
	case to > from:
		out.Mul(out, pow10(to-from))
	case from > to:
		out.Quo(out, pow10(from-to))
	}
	return out
}

func pow10(n uint8) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n)), nil)
}
