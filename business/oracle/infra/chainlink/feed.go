// Package chainlink reads Chainlink AggregatorV3 feeds.
package chainlink

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/flashloan-arb/business/oracle/app"
	"github.com/fd1az/flashloan-arb/internal/apperror"
	"github.com/fd1az/flashloan-arb/internal/circuitbreaker"
	"github.com/fd1az/flashloan-arb/internal/logger"
)

const tracerName = "chainlink"

var _ app.PriceFeed = (*Feed)(nil)

// Feed reads latestRoundData and decimals on every call.
type Feed struct {
	name    string
	address common.Address
	caller  ethereum.ContractCaller
	abi     abi.ABI

	logger logger.LoggerInterface
	cb     *circuitbreaker.CircuitBreaker[[]byte]
	tracer trace.Tracer
}

// NewFeed creates a feed for the aggregator at address.
func NewFeed(name string, address common.Address, caller ethereum.ContractCaller, log logger.LoggerInterface) (*Feed, error) {
	parsed, err := abi.JSON(strings.NewReader(AggregatorV3ABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse aggregator ABI: %w", err)
	}

	cbCfg := circuitbreaker.DefaultConfig("chainlink-" + name)
	cbCfg.OnStateChange = func(n string, from, to circuitbreaker.State) {
		log.Warn(context.Background(), "circuit breaker state change",
			"breaker", n, "from", from.String(), "to", to.String())
	}

	return &Feed{
		name:    name,
		address: address,
		caller:  caller,
		abi:     parsed,
		logger:  log,
		cb:      circuitbreaker.New[[]byte](cbCfg),
		tracer:  otel.Tracer(tracerName),
	}, nil
}

func (f *Feed) Name() string { return "chainlink:" + f.name }

func (f *Feed) LatestValue(ctx context.Context) (app.FeedReading, error) {
	ctx, span := f.tracer.Start(ctx, "chainlink.latest_round_data",
		trace.WithAttributes(attribute.String("feed", f.address.Hex())))
	defer span.End()

	decOut, err := f.call(ctx, "decimals")
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "decimals failed")
		return app.FeedReading{}, err
	}
	decimals, ok := decOut[0].(uint8)
	if !ok {
		return app.FeedReading{}, fmt.Errorf("unexpected decimals type %T", decOut[0])
	}

	round, err := f.call(ctx, "latestRoundData")
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "latestRoundData failed")
		return app.FeedReading{}, err
	}
	if len(round) < 5 {
		return app.FeedReading{}, fmt.Errorf("unexpected output length: %d", len(round))
	}

	answer := round[1].(*big.Int)
	updatedAt := round[3].(*big.Int)
	roundID := round[0].(*big.Int)
	answeredIn := round[4].(*big.Int)

	if answeredIn.Cmp(roundID) < 0 {
		err := apperror.New(apperror.CodeOracleStale,
			apperror.WithContext(fmt.Sprintf("%s answered in round %s < %s", f.Name(), answeredIn, roundID)))
		span.RecordError(err)
		span.SetStatus(codes.Error, "stale round")
		return app.FeedReading{}, err
	}

	span.SetAttributes(
		attribute.String("answer", answer.String()),
		attribute.Int("decimals", int(decimals)),
	)
	span.SetStatus(codes.Ok, "read")

	return app.FeedReading{
		Value:     answer,
		Decimals:  decimals,
		UpdatedAt: time.Unix(updatedAt.Int64(), 0),
	}, nil
}

func (f *Feed) call(ctx context.Context, method string) ([]interface{}, error) {
	data, err := f.abi.Pack(method)
	if err != nil {
		return nil, fmt.Errorf("failed to encode call: %w", err)
	}

	result, err := f.cb.Execute(func() ([]byte, error) {
		return f.caller.CallContract(ctx, ethereum.CallMsg{To: &f.address, Data: data}, nil)
	})
	if err != nil {
		return nil, apperror.New(apperror.CodeOracleUnavailable,
			apperror.WithCause(err),
			apperror.WithContext(fmt.Sprintf("%s.%s", f.Name(), method)))
	}

	out, err := f.abi.Unpack(method, result)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", method, err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%s returned nothing", method)
	}
	return out, nil
}
