package ethereum

import (
	"context"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/flashloan-arb/business/blockchain/app"
	"github.com/fd1az/flashloan-arb/business/blockchain/domain"
	"github.com/fd1az/flashloan-arb/internal/apperror"
	"github.com/fd1az/flashloan-arb/internal/circuitbreaker"
	"github.com/fd1az/flashloan-arb/internal/logger"
)

var _ app.GasOracle = (*GasOracle)(nil)

// FeeClient is the subset of ethclient.Client the gas oracle uses.
type FeeClient interface {
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	SuggestGasTipCap(ctx context.Context) (*big.Int, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
}

// GasOracleConfig holds configuration for the gas oracle.
type GasOracleConfig struct {
	RPCURL string // Ethereum RPC endpoint
}

// DefaultGasOracleConfig returns sensible defaults.
func DefaultGasOracleConfig(rpcURL string) GasOracleConfig {
	return GasOracleConfig{RPCURL: rpcURL}
}

// gasOracleMetrics holds OTEL metric instruments.
type gasOracleMetrics struct {
	gasPriceFetches metric.Int64Counter
	gasPriceGwei    metric.Float64Gauge
	fetchErrors     metric.Int64Counter
}

// GasOracle reads fee data from a node. Every call goes to the node:
// fee data feeds the execution-cost estimate and must never be stale.
type GasOracle struct {
	config GasOracleConfig
	logger logger.LoggerInterface

	client   FeeClient
	closer   func()
	clientMu sync.RWMutex

	cb *circuitbreaker.CircuitBreaker[*big.Int]

	tracer  trace.Tracer
	metrics *gasOracleMetrics
}

// GasOracleOption configures a GasOracle.
type GasOracleOption func(*GasOracle)

// WithFeeClient injects an already connected client. Connect becomes a no-op.
func WithFeeClient(c FeeClient) GasOracleOption {
	return func(g *GasOracle) { g.client = c }
}

// NewGasOracle creates a new gas oracle instance.
func NewGasOracle(cfg GasOracleConfig, log logger.LoggerInterface, opts ...GasOracleOption) (*GasOracle, error) {
	g := &GasOracle{
		config: cfg,
		logger: log,
		tracer: otel.Tracer(instrumentationName),
	}
	for _, opt := range opts {
		opt(g)
	}

	if err := g.initMetrics(); err != nil {
		return nil, apperror.New(apperror.CodeInternalError, apperror.WithCause(err),
			apperror.WithContext("init gas oracle metrics"))
	}

	cbCfg := circuitbreaker.DefaultConfig("gas-oracle")
	cbCfg.OnStateChange = func(name string, from, to circuitbreaker.State) {
		log.Warn(context.Background(), "circuit breaker state change",
			"breaker", name, "from", from.String(), "to", to.String())
	}
	g.cb = circuitbreaker.New[*big.Int](cbCfg)

	return g, nil
}

// initMetrics initializes OTEL metric instruments.
func (g *GasOracle) initMetrics() error {
	meter := otel.Meter(instrumentationName)
	var err error

	g.metrics = &gasOracleMetrics{}

	g.metrics.gasPriceFetches, err = meter.Int64Counter(
		"gas_price_fetches_total",
		metric.WithDescription("Total gas price fetch attempts"),
		metric.WithUnit("{fetch}"),
	)
	if err != nil {
		return err
	}

	g.metrics.gasPriceGwei, err = meter.Float64Gauge(
		"gas_price_gwei",
		metric.WithDescription("Current gas price in gwei"),
		metric.WithUnit("gwei"),
	)
	if err != nil {
		return err
	}

	g.metrics.fetchErrors, err = meter.Int64Counter(
		"gas_fetch_errors_total",
		metric.WithDescription("Failed fee reads"),
		metric.WithUnit("{error}"),
	)
	return err
}

// Connect establishes connection to the Ethereum node.
func (g *GasOracle) Connect(ctx context.Context) error {
	g.clientMu.RLock()
	connected := g.client != nil
	g.clientMu.RUnlock()
	if connected {
		return nil
	}

	ctx, span := g.tracer.Start(ctx, "gas.connect",
		trace.WithAttributes(attribute.String("url", redactURL(g.config.RPCURL))),
	)
	defer span.End()

	client, err := ethclient.DialContext(ctx, g.config.RPCURL)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "dial failed")
		return apperror.New(apperror.CodeEthereumConnectionFailed,
			apperror.WithCause(err),
			apperror.WithContext("failed to connect gas oracle"))
	}

	g.clientMu.Lock()
	g.client = client
	g.closer = client.Close
	g.clientMu.Unlock()

	span.SetStatus(codes.Ok, "connected")
	g.logger.Info(ctx, "gas oracle connected", "url", redactURL(g.config.RPCURL))

	return nil
}

func (g *GasOracle) currentClient() (FeeClient, error) {
	g.clientMu.RLock()
	defer g.clientMu.RUnlock()
	if g.client == nil {
		return nil, apperror.New(apperror.CodeEthereumConnectionFailed,
			apperror.WithContext("gas oracle not connected"))
	}
	return g.client, nil
}

// GetGasPrice retrieves the current suggested gas price.
func (g *GasOracle) GetGasPrice(ctx context.Context) (*domain.GasPrice, error) {
	ctx, span := g.tracer.Start(ctx, "gas.get_price")
	defer span.End()

	g.metrics.gasPriceFetches.Add(ctx, 1)

	client, err := g.currentClient()
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	wei, err := g.cb.Execute(func() (*big.Int, error) {
		return client.SuggestGasPrice(ctx)
	})
	if err != nil {
		return nil, g.fail(ctx, span, err, "failed to get gas price")
	}

	price := domain.NewGasPrice(wei, time.Now())
	gweiF, _ := price.Gwei().Float64()
	g.metrics.gasPriceGwei.Record(ctx, gweiF)

	span.SetAttributes(attribute.Float64("gwei", gweiF))
	span.SetStatus(codes.Ok, "fetched")

	return price, nil
}

// GetGasTipCap retrieves the suggested gas tip cap (EIP-1559).
func (g *GasOracle) GetGasTipCap(ctx context.Context) (*big.Int, error) {
	ctx, span := g.tracer.Start(ctx, "gas.get_tip_cap")
	defer span.End()

	client, err := g.currentClient()
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	tipCap, err := g.cb.Execute(func() (*big.Int, error) {
		return client.SuggestGasTipCap(ctx)
	})
	if err != nil {
		return nil, g.fail(ctx, span, err, "failed to get gas tip cap")
	}

	span.SetStatus(codes.Ok, "fetched")
	return tipCap, nil
}

// GetFeeQuote reads the latest header's base fee and the suggested tip.
func (g *GasOracle) GetFeeQuote(ctx context.Context) (*domain.FeeQuote, error) {
	ctx, span := g.tracer.Start(ctx, "gas.get_fee_quote")
	defer span.End()

	client, err := g.currentClient()
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	baseFee, err := g.cb.Execute(func() (*big.Int, error) {
		h, err := client.HeaderByNumber(ctx, nil)
		if err != nil {
			return nil, err
		}
		return h.BaseFee, nil
	})
	if err != nil {
		return nil, g.fail(ctx, span, err, "failed to read base fee")
	}

	tip, err := g.GetGasTipCap(ctx)
	if err != nil {
		return nil, err
	}

	span.SetStatus(codes.Ok, "fetched")
	return &domain.FeeQuote{BaseFee: baseFee, TipCap: tip, Timestamp: time.Now()}, nil
}

func (g *GasOracle) fail(ctx context.Context, span trace.Span, err error, msg string) error {
	g.metrics.fetchErrors.Add(ctx, 1)
	span.RecordError(err)
	span.SetStatus(codes.Error, msg)

	code := apperror.CodeEthereumRPCError
	if g.cb.IsOpen() {
		code = apperror.CodeCircuitOpen
	}
	return apperror.New(code, apperror.WithCause(err), apperror.WithContext(msg))
}

// Close closes the gas oracle.
func (g *GasOracle) Close() error {
	g.clientMu.Lock()
	defer g.clientMu.Unlock()

	if g.closer != nil {
		g.closer()
		g.closer = nil
	}
	g.client = nil
	return nil
}
