// Package ethereum provides Ethereum blockchain infrastructure adapters.
package ethereum

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum"
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

const instrumentationName = "github.com/fd1az/flashloan-arb/business/blockchain/infra/ethereum"

var _ app.BlockSource = (*Subscriber)(nil)

var errClosed = errors.New("subscriber is closed")

// HeadClient is the part of ethclient.Client that block delivery needs.
type HeadClient interface {
	SubscribeNewHead(ctx context.Context, ch chan<- *types.Header) (ethereum.Subscription, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
	ChainID(ctx context.Context) (*big.Int, error)
	Close()
}

// Dialer opens a HeadClient for a node URL.
type Dialer func(ctx context.Context, rawURL string) (HeadClient, error)

func dialEthclient(ctx context.Context, rawURL string) (HeadClient, error) {
	return ethclient.DialContext(ctx, rawURL)
}

// SubscriberConfig configures block delivery. Heads stream over WSURL;
// HTTPURL is polled when the stream cannot be held.
type SubscriberConfig struct {
	WSURL          string
	HTTPURL        string
	PollInterval   time.Duration
	ReconnectDelay time.Duration
	BufferSize     int
}

// DefaultSubscriberConfig polls once per mainnet slot.
func DefaultSubscriberConfig(wsURL, httpURL string) SubscriberConfig {
	return SubscriberConfig{
		WSURL:          wsURL,
		HTTPURL:        httpURL,
		PollInterval:   12 * time.Second,
		ReconnectDelay: 5 * time.Second,
		BufferSize:     16,
	}
}

type headMetrics struct {
	heads     metric.Int64Counter
	errors    metric.Int64Counter
	state     metric.Int64Gauge
	lag       metric.Float64Histogram
	fallbacks metric.Int64Counter
}

func newHeadMetrics(meter metric.Meter) (*headMetrics, error) {
	var (
		m   headMetrics
		err error
	)
	if m.heads, err = meter.Int64Counter("eth_heads_received_total",
		metric.WithDescription("Block heads delivered to subscribers"),
		metric.WithUnit("{block}")); err != nil {
		return nil, err
	}
	if m.errors, err = meter.Int64Counter("eth_head_errors_total",
		metric.WithDescription("Failed head subscriptions and polls"),
		metric.WithUnit("{error}")); err != nil {
		return nil, err
	}
	if m.state, err = meter.Int64Gauge("eth_node_state",
		metric.WithDescription("Node connection state (0=disconnected, 1=connecting, 2=connected, 3=reconnecting)")); err != nil {
		return nil, err
	}
	if m.lag, err = meter.Float64Histogram("eth_head_lag_ms",
		metric.WithDescription("Delay between block timestamp and delivery"),
		metric.WithUnit("ms")); err != nil {
		return nil, err
	}
	if m.fallbacks, err = meter.Int64Counter("eth_poll_fallbacks_total",
		metric.WithDescription("Switches from the head stream to HTTP polling")); err != nil {
		return nil, err
	}
	return &m, nil
}

// endpoints holds the dialled node clients.
type endpoints struct {
	mu     sync.RWMutex
	stream HeadClient
	poll   HeadClient
}

func (e *endpoints) get() (stream, poll HeadClient) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.stream, e.poll
}

// Subscriber delivers node heads as domain blocks. It streams over
// WebSocket and degrades to HTTP polling; either way only block numbers
// above the last delivered one reach the channel.
type Subscriber struct {
	cfg  SubscriberConfig
	log  logger.LoggerInterface
	dial Dialer

	nodes endpoints

	stateMu    sync.RWMutex
	state      domain.ConnectionState
	polling    atomic.Bool
	last       atomic.Uint64
	lastAt     atomic.Int64
	reconnects atomic.Int32

	// sendMu covers the freshness check, the send and closing blocks.
	sendMu sync.Mutex
	blocks chan *domain.Block
	stop   chan struct{}
	closed atomic.Bool
	once   sync.Once

	streamCB *circuitbreaker.CircuitBreaker[*types.Header]
	pollCB   *circuitbreaker.CircuitBreaker[*types.Header]

	tracer  trace.Tracer
	metrics *headMetrics
}

// SubscriberOption configures a Subscriber.
type SubscriberOption func(*Subscriber)

// WithDialer replaces ethclient dialling.
func WithDialer(d Dialer) SubscriberOption {
	return func(s *Subscriber) { s.dial = d }
}

// NewSubscriber builds a Subscriber; nothing is dialled until Connect or
// Subscribe.
func NewSubscriber(cfg SubscriberConfig, log logger.LoggerInterface, opts ...SubscriberOption) (*Subscriber, error) {
	def := DefaultSubscriberConfig(cfg.WSURL, cfg.HTTPURL)
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = def.BufferSize
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = def.PollInterval
	}

	m, err := newHeadMetrics(otel.Meter(instrumentationName))
	if err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	s := &Subscriber{
		cfg:     cfg,
		log:     log,
		dial:    dialEthclient,
		state:   domain.StateDisconnected,
		blocks:  make(chan *domain.Block, cfg.BufferSize),
		stop:    make(chan struct{}),
		tracer:  otel.Tracer(instrumentationName),
		metrics: m,
	}
	for _, opt := range opts {
		opt(s)
	}

	breaker := func(name string) *circuitbreaker.CircuitBreaker[*types.Header] {
		bc := circuitbreaker.DefaultConfig(name)
		bc.OnStateChange = func(name string, from, to circuitbreaker.State) {
			s.log.Info(context.Background(), "circuit breaker state change",
				"breaker", name, "from", from.String(), "to", to.String())
		}
		return circuitbreaker.New[*types.Header](bc)
	}
	s.streamCB = breaker("eth-ws")
	s.pollCB = breaker("eth-http")

	return s, nil
}

// Connect dials the HTTP endpoint so LatestBlock and GetChainID work
// before Subscribe.
func (s *Subscriber) Connect(ctx context.Context) error {
	return s.dialPoll(ctx)
}

// Subscribe starts delivery and returns the block channel. The channel
// closes with Close.
func (s *Subscriber) Subscribe(ctx context.Context) (<-chan *domain.Block, error) {
	ctx, span := s.tracer.Start(ctx, "eth.subscribe", trace.WithAttributes(
		attribute.String("ws_url", redactURL(s.cfg.WSURL)),
		attribute.String("http_url", redactURL(s.cfg.HTTPURL)),
	))
	defer span.End()

	if s.closed.Load() {
		span.RecordError(errClosed)
		return nil, errClosed
	}

	s.setState(domain.StateConnecting)
	poll, err := s.pickTransport(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "no transport")
		s.setState(domain.StateDisconnected)
		return nil, apperror.New(apperror.CodeEthereumConnectionFailed,
			apperror.WithCause(err),
			apperror.WithContext("failed to connect via WS and HTTP"))
	}

	s.setState(domain.StateConnected)
	go s.deliver(ctx, poll)

	span.SetStatus(codes.Ok, "subscribed")
	return s.blocks, nil
}

// pickTransport dials the stream, or the poll endpoint when that fails,
// and reports whether polling was chosen.
func (s *Subscriber) pickTransport(ctx context.Context) (bool, error) {
	wsErr := s.dialStream(ctx)
	if wsErr == nil {
		s.polling.Store(false)
		return false, nil
	}
	s.log.Warn(ctx, "ws connection failed, trying http fallback", "error", wsErr)

	if err := s.dialPoll(ctx); err != nil {
		return false, errors.Join(wsErr, err)
	}
	s.polling.Store(true)
	s.metrics.fallbacks.Add(ctx, 1)
	return true, nil
}

func (s *Subscriber) dialStream(ctx context.Context) error {
	if s.cfg.WSURL == "" {
		return errors.New("ws url not configured")
	}
	client, err := s.dialTraced(ctx, "eth.connect.ws", s.cfg.WSURL)
	if err != nil {
		return fmt.Errorf("dial ws: %w", err)
	}

	s.nodes.mu.Lock()
	prev := s.nodes.stream
	s.nodes.stream = client
	s.nodes.mu.Unlock()
	if prev != nil {
		prev.Close()
	}
	return nil
}

// dialPoll keeps an already dialled HTTP client.
func (s *Subscriber) dialPoll(ctx context.Context) error {
	if _, poll := s.nodes.get(); poll != nil {
		return nil
	}
	if s.cfg.HTTPURL == "" {
		return errors.New("http url not configured")
	}
	client, err := s.dialTraced(ctx, "eth.connect.http", s.cfg.HTTPURL)
	if err != nil {
		return fmt.Errorf("dial http: %w", err)
	}

	s.nodes.mu.Lock()
	s.nodes.poll = client
	s.nodes.mu.Unlock()
	return nil
}

func (s *Subscriber) dialTraced(ctx context.Context, name, rawURL string) (HeadClient, error) {
	ctx, span := s.tracer.Start(ctx, name, trace.WithAttributes(attribute.String("url", redactURL(rawURL))))
	defer span.End()

	client, err := s.dial(ctx, rawURL)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "dial failed")
		return nil, err
	}
	span.SetStatus(codes.Ok, "connected")
	return client, nil
}

// emit converts header and delivers it if it is newer than anything
// delivered so far. A full buffer drops the block.
func (s *Subscriber) emit(ctx context.Context, header *types.Header) {
	block := headerToBlock(header)
	ctx, span := s.tracer.Start(ctx, "eth.process.header", trace.WithAttributes(
		attribute.Int64("block_number", int64(block.Number)),
		attribute.Bool("from_http", s.polling.Load()),
	))
	defer span.End()

	s.sendMu.Lock()
	defer s.sendMu.Unlock()

	if s.closed.Load() {
		return
	}
	if block.Number <= s.last.Load() {
		span.AddEvent("stale_block")
		return
	}
	s.last.Store(block.Number)
	s.lastAt.Store(time.Now().UnixNano())

	lag := time.Since(block.Timestamp)
	s.metrics.lag.Record(ctx, float64(lag.Milliseconds()))

	select {
	case s.blocks <- block:
		s.metrics.heads.Add(ctx, 1)
		s.log.Debug(ctx, "block received", "number", block.Number, "lag_ms", lag.Milliseconds())
	default:
		span.AddEvent("block_dropped_buffer_full")
		s.log.Warn(ctx, "block dropped, buffer full", "number", block.Number)
	}
}

func headerToBlock(h *types.Header) *domain.Block {
	return &domain.Block{
		Number:     h.Number.Uint64(),
		Hash:       h.Hash(),
		ParentHash: h.ParentHash,
		Timestamp:  time.Unix(int64(h.Time), 0),
		GasLimit:   h.GasLimit,
		GasUsed:    h.GasUsed,
		BaseFee:    h.BaseFee,
	}
}

// client picks the stream client unless polling.
func (s *Subscriber) client() HeadClient {
	stream, poll := s.nodes.get()
	if stream != nil && !s.polling.Load() {
		return stream
	}
	return poll
}

// LatestBlock reads the head from the stream client, falling back to the
// poll client.
func (s *Subscriber) LatestBlock(ctx context.Context) (*domain.Block, error) {
	ctx, span := s.tracer.Start(ctx, "eth.latest_block")
	defer span.End()

	stream, poll := s.nodes.get()
	var (
		header *types.Header
		err    error
	)
	if stream != nil && !s.polling.Load() {
		header, err = s.streamCB.Execute(func() (*types.Header, error) {
			return stream.HeaderByNumber(ctx, nil)
		})
	}
	if header == nil && poll != nil {
		header, err = s.pollCB.Execute(func() (*types.Header, error) {
			return poll.HeaderByNumber(ctx, nil)
		})
	}

	switch {
	case err != nil:
		span.RecordError(err)
		span.SetStatus(codes.Error, "fetch failed")
		return nil, apperror.New(apperror.CodeEthereumRPCError,
			apperror.WithCause(err), apperror.WithContext("failed to fetch latest block"))
	case header == nil:
		return nil, apperror.New(apperror.CodeEthereumConnectionFailed,
			apperror.WithContext("no ethereum client connected"))
	}
	return headerToBlock(header), nil
}

// GetChainID asks the connected node for its chain id.
func (s *Subscriber) GetChainID(ctx context.Context) (*big.Int, error) {
	ctx, span := s.tracer.Start(ctx, "eth.chain_id")
	defer span.End()

	c := s.client()
	if c == nil {
		return nil, apperror.New(apperror.CodeEthereumConnectionFailed,
			apperror.WithContext("no ethereum client connected"))
	}
	id, err := c.ChainID(ctx)
	if err != nil {
		span.RecordError(err)
		return nil, apperror.New(apperror.CodeEthereumRPCError,
			apperror.WithCause(err), apperror.WithContext("failed to get chain id"))
	}
	return id, nil
}

// State returns the current connection state.
func (s *Subscriber) State() domain.ConnectionState {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return s.state
}

// Status returns detailed connection status.
func (s *Subscriber) Status() domain.ConnectionStatus {
	st := domain.ConnectionStatus{
		State:      s.State(),
		LastBlock:  s.last.Load(),
		Reconnects: int(s.reconnects.Load()),
		UsingHTTP:  s.polling.Load(),
	}
	if ns := s.lastAt.Load(); ns > 0 {
		st.LastUpdate = time.Unix(0, ns)
	}
	return st
}

// BlockNumber is the last delivered block number.
func (s *Subscriber) BlockNumber() uint64 { return s.last.Load() }

var stateGauge = map[domain.ConnectionState]int64{
	domain.StateDisconnected: 0,
	domain.StateConnecting:   1,
	domain.StateConnected:    2,
	domain.StateReconnecting: 3,
}

func (s *Subscriber) setState(state domain.ConnectionState) {
	s.stateMu.Lock()
	s.state = state
	s.stateMu.Unlock()
	s.metrics.state.Record(context.Background(), stateGauge[state])
}

// Close stops delivery, closes node clients and the block channel.
func (s *Subscriber) Close() error {
	s.once.Do(func() {
		s.log.Info(context.Background(), "closing ethereum subscriber")
		s.closed.Store(true)
		close(s.stop)

		s.nodes.mu.Lock()
		for _, c := range []HeadClient{s.nodes.stream, s.nodes.poll} {
			if c != nil {
				c.Close()
			}
		}
		s.nodes.stream, s.nodes.poll = nil, nil
		s.nodes.mu.Unlock()

		s.sendMu.Lock()
		close(s.blocks)
		s.sendMu.Unlock()

		s.setState(domain.StateDisconnected)
	})
	return nil
}

// redactURL keeps scheme and host; paths and userinfo often carry API keys.
func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "<redacted>"
	}
	return u.Scheme + "://" + u.Host
}
