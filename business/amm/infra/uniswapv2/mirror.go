// Package uniswapv2 mirrors mainnet Uniswap V2 style pair reserves into
// the ledger so the engine can paper-trade against live liquidity.
package uniswapv2

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
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/flashloan-arb/business/amm/app"
	"github.com/fd1az/flashloan-arb/internal/apperror"
	"github.com/fd1az/flashloan-arb/internal/circuitbreaker"
	"github.com/fd1az/flashloan-arb/internal/ledger"
	"github.com/fd1az/flashloan-arb/internal/logger"
)

const (
	tracerName = "uniswapv2"
	meterName  = "uniswapv2"
)

type mirrorMetrics struct {
	syncsTotal  metric.Int64Counter
	syncLatency metric.Float64Histogram
	syncErrors  metric.Int64Counter
}

// Mirror copies on-chain reserves into the ledger balances of matching
// local pairs.
type Mirror struct {
	caller  ethereum.ContractCaller
	pairABI abi.ABI
	pairs   []app.Pair

	logger logger.LoggerInterface
	cb     *circuitbreaker.CircuitBreaker[[]byte]

	tracer  trace.Tracer
	metrics *mirrorMetrics
}

// NewMirror creates a mirror for pairs. caller is usually an *ethclient.Client.
func NewMirror(caller ethereum.ContractCaller, pairs []app.Pair, log logger.LoggerInterface) (*Mirror, error) {
	parsedABI, err := abi.JSON(strings.NewReader(PairABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse pair ABI: %w", err)
	}

	m := &Mirror{
		caller:  caller,
		pairABI: parsedABI,
		pairs:   pairs,
		logger:  log,
		tracer:  otel.Tracer(tracerName),
	}

	cbCfg := circuitbreaker.DefaultConfig("uniswapv2-mirror")
	cbCfg.OnStateChange = func(name string, from, to circuitbreaker.State) {
		log.Warn(context.Background(), "circuit breaker state changed",
			"name", name, "from", from.String(), "to", to.String())
	}
	m.cb = circuitbreaker.New[[]byte](cbCfg)

	if err := m.initMetrics(); err != nil {
		return nil, fmt.Errorf("failed to init metrics: %w", err)
	}
	return m, nil
}

func (m *Mirror) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	m.metrics = &mirrorMetrics{}

	m.metrics.syncsTotal, err = meter.Int64Counter(
		"uniswapv2_syncs_total",
		metric.WithDescription("Total reserve sync rounds"),
	)
	if err != nil {
		return err
	}

	m.metrics.syncLatency, err = meter.Float64Histogram(
		"uniswapv2_sync_latency_ms",
		metric.WithDescription("Reserve sync latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return err
	}

	m.metrics.syncErrors, err = meter.Int64Counter(
		"uniswapv2_sync_errors_total",
		metric.WithDescription("Total reserve sync errors"),
	)
	return err
}

// Pairs returns the mirrored pairs.
func (m *Mirror) Pairs() []app.Pair { return m.pairs }

// Sync reads every pair's reserves and writes them to the ledger in one
// unit, so readers never see half a round.
func (m *Mirror) Sync(ctx context.Context, l *ledger.Ledger) error {
	ctx, span := m.tracer.Start(ctx, "uniswapv2.sync",
		trace.WithAttributes(attribute.Int("pairs", len(m.pairs))))
	defer span.End()

	start := time.Now()
	m.metrics.syncsTotal.Add(ctx, 1)

	type reading struct {
		pair app.Pair
		r    Reserves
	}
	readings := make([]reading, 0, len(m.pairs))
	for _, p := range m.pairs {
		r, err := m.Reserves(ctx, p.Address())
		if err != nil {
			m.metrics.syncErrors.Add(ctx, 1)
			span.RecordError(err)
			span.SetStatus(codes.Error, "reserve read failed")
			return err
		}
		readings = append(readings, reading{pair: p, r: r})
	}

	err := l.Atomically(ctx, "uniswapv2.sync", func(_ context.Context, tx ledger.Tx) error {
		for _, rd := range readings {
			addr := rd.pair.Address()
			if err := ledger.SetBalance(tx, rd.pair.Token0(), addr, rd.r.Reserve0); err != nil {
				return err
			}
			if err := ledger.SetBalance(tx, rd.pair.Token1(), addr, rd.r.Reserve1); err != nil {
				return err
			}
		}
		return nil
	})

	m.metrics.syncLatency.Record(ctx, float64(time.Since(start).Milliseconds()))
	if err != nil {
		m.metrics.syncErrors.Add(ctx, 1)
		span.RecordError(err)
		span.SetStatus(codes.Error, "ledger write failed")
		return err
	}

	span.SetStatus(codes.Ok, "reserves synced")
	m.logger.Debug(ctx, "reserves synced", "pairs", len(readings))
	return nil
}

// Reserves calls getReserves on the pair at addr.
func (m *Mirror) Reserves(ctx context.Context, addr common.Address) (Reserves, error) {
	outputs, err := m.call(ctx, addr, "getReserves")
	if err != nil {
		return Reserves{}, err
	}
	if len(outputs) < 3 {
		return Reserves{}, fmt.Errorf("unexpected output length: %d", len(outputs))
	}
	return Reserves{
		Reserve0:           outputs[0].(*big.Int),
		Reserve1:           outputs[1].(*big.Int),
		BlockTimestampLast: outputs[2].(uint32),
	}, nil
}

// Token0 calls token0 on the pair at addr.
func (m *Mirror) Token0(ctx context.Context, addr common.Address) (common.Address, error) {
	outputs, err := m.call(ctx, addr, "token0")
	if err != nil {
		return common.Address{}, err
	}
	if len(outputs) != 1 {
		return common.Address{}, fmt.Errorf("unexpected output length: %d", len(outputs))
	}
	return outputs[0].(common.Address), nil
}

// Verify checks that each local pair orders its tokens like the on-chain
// pair does; a mismatch would swap the reserves.
func (m *Mirror) Verify(ctx context.Context) error {
	for _, p := range m.pairs {
		t0, err := m.Token0(ctx, p.Address())
		if err != nil {
			return err
		}
		if t0 != p.Token0() {
			return apperror.New(apperror.CodeConfigurationError,
				apperror.WithContext(fmt.Sprintf("pair %s: on-chain token0 %s, local %s",
					p.Address().Hex(), t0.Hex(), p.Token0().Hex())))
		}
	}
	return nil
}

func (m *Mirror) call(ctx context.Context, addr common.Address, method string) ([]interface{}, error) {
	callData, err := m.pairABI.Pack(method)
	if err != nil {
		return nil, fmt.Errorf("failed to encode call: %w", err)
	}

	result, err := m.cb.Execute(func() ([]byte, error) {
		return m.caller.CallContract(ctx, ethereum.CallMsg{
			To:   &addr,
			Data: callData,
		}, nil)
	})
	if err != nil {
		return nil, apperror.New(apperror.CodeContractCallFailed,
			apperror.WithCause(err),
			apperror.WithContext(fmt.Sprintf("%s on %s", method, addr.Hex())))
	}

	outputs, err := m.pairABI.Unpack(method, result)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", method, err)
	}
	return outputs, nil
}
