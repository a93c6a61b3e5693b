package app

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	ammApp "github.com/fd1az/flashloan-arb/business/amm/app"
	ammDomain "github.com/fd1az/flashloan-arb/business/amm/domain"
	"github.com/fd1az/flashloan-arb/business/amm/infra/memory"
	"github.com/fd1az/flashloan-arb/business/arbitrage/domain"
	lendingApp "github.com/fd1az/flashloan-arb/business/lending/app"
	oracleApp "github.com/fd1az/flashloan-arb/business/oracle/app"
	"github.com/fd1az/flashloan-arb/business/oracle/infra/static"
	"github.com/fd1az/flashloan-arb/internal/apperror"
	"github.com/fd1az/flashloan-arb/internal/ledger"
	"github.com/fd1az/flashloan-arb/internal/logger"
)

var (
	weth     = common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2")
	usdt     = common.HexToAddress("0xdAC17F958D2ee523a2206206994597C13D831ec7")
	poolA    = common.HexToAddress("0x06da0fd433C1A5d7a4faa01111c044910A184553")
	poolB    = common.HexToAddress("0x0d4a11d5EEaaC28EC3F61d100daF4d40471f1852")
	routerA  = common.HexToAddress("0xd9e1cE17f2641f24aE83637ab66a2cca9C378B9F")
	routerB  = common.HexToAddress("0x7a250d5630B4cF539739dF2C5dAcb4c659F2488D")
	facility = common.HexToAddress("0x87870Bca3F3fD6335C3F4ce8392D69350B4fA4E2")
	owner    = common.HexToAddress("0x000000000000000000000000000000000000a11c")
	engine   = common.HexToAddress("0x00000000000000000000000000000000000f1a54")
	stranger = common.HexToAddress("0x0000000000000000000000000000000000000bad")

	testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
)

// mockLogger implements logger.LoggerInterface for testing
type mockLogger struct{}

func (m *mockLogger) Debug(ctx context.Context, msg string, args ...any)              {}
func (m *mockLogger) Debugc(ctx context.Context, caller int, msg string, args ...any) {}
func (m *mockLogger) Info(ctx context.Context, msg string, args ...any)               {}
func (m *mockLogger) Infoc(ctx context.Context, caller int, msg string, args ...any)  {}
func (m *mockLogger) Warn(ctx context.Context, msg string, args ...any)               {}
func (m *mockLogger) Warnc(ctx context.Context, caller int, msg string, args ...any)  {}
func (m *mockLogger) Error(ctx context.Context, msg string, args ...any)              {}
func (m *mockLogger) Errorc(ctx context.Context, caller int, msg string, args ...any) {}

var _ logger.LoggerInterface = (*mockLogger)(nil)

// units parses a decimal string into an 18-decimal raw amount.
func units(s string) *big.Int {
	return decimal.RequireFromString(s).Shift(18).BigInt()
}

// scriptedRouter quotes a fixed output and mints fill (or the quote) to
// the recipient on swap.
type scriptedRouter struct {
	name   string
	addr   common.Address
	quote  *big.Int
	fill   *big.Int
	swaps  int
	onSwap func(ctx context.Context, tx ledger.Tx) error
}

var _ ammApp.Router = (*scriptedRouter)(nil)

func (r *scriptedRouter) Name() string            { return r.name }
func (r *scriptedRouter) Address() common.Address { return r.addr }

func (r *scriptedRouter) QuoteOutput(_ context.Context, _ ledger.View, amountIn *big.Int, _ []common.Address) ([]*big.Int, error) {
	return []*big.Int{new(big.Int).Set(amountIn), new(big.Int).Set(r.quote)}, nil
}

func (r *scriptedRouter) Swap(ctx context.Context, tx ledger.Tx, sender common.Address, req ammApp.SwapRequest) ([]*big.Int, error) {
	r.swaps++
	if r.onSwap != nil {
		if err := r.onSwap(ctx, tx); err != nil {
			return nil, err
		}
	}
	out := r.quote
	if r.fill != nil {
		out = r.fill
	}
	if out.Cmp(req.MinOut) < 0 {
		return nil, apperror.New(apperror.CodeSlippageExceeded)
	}
	if err := tx.TransferFrom(req.Path[0], r.addr, sender, r.addr, req.AmountIn); err != nil {
		return nil, err
	}
	if err := tx.Mint(req.Path[len(req.Path)-1], req.Recipient, out); err != nil {
		return nil, err
	}
	return []*big.Int{req.AmountIn, out}, nil
}

type harness struct {
	t        *testing.T
	now      time.Time
	ledger   *ledger.Ledger
	engine   *Engine
	registry *ammApp.Registry
	routerA  *scriptedRouter
	routerB  *scriptedRouter
	feeFeed  *static.Feed
	refFeed  *static.Feed
	lender   lendingApp.Lender
	events   <-chan domain.Event
}

type harnessOption func(*harnessConfig)

type harnessConfig struct {
	lender func(*lendingApp.Facility) lendingApp.Lender
	params domain.RiskParameters
	now    time.Time
}

func withLender(wrap func(*lendingApp.Facility) lendingApp.Lender) harnessOption {
	return func(c *harnessConfig) { c.lender = wrap }
}

// withNow freezes the ledger clock at now instead of testNow.
func withNow(now time.Time) harnessOption {
	return func(c *harnessConfig) { c.now = now }
}

func withParams(mutate func(*domain.RiskParameters)) harnessOption {
	return func(c *harnessConfig) { mutate(&c.params) }
}

// testParams: premium 9 bps, 100 gwei * 200k units = 0.02 cost, min
// profit 0.01, 1% slippage.
func testParams() domain.RiskParameters {
	return domain.RiskParameters{
		MinProfit:                  units("0.01"),
		SlippageToleranceBps:       100,
		GasCostEstimateUnits:       200_000,
		MaxAcceptableFeeUnitPrice:  big.NewInt(100_000_000_000),
		LoanPremiumBps:             9,
		PriceDeviationToleranceBps: 300,
	}
}

// newHarness builds an engine over pools holding 1000/1000 of each token,
// router A quoting 10.5 and router B quoting 10.08.
func newHarness(t *testing.T, opts ...harnessOption) *harness {
	t.Helper()
	cfg := harnessConfig{params: testParams(), now: testNow}
	for _, opt := range opts {
		opt(&cfg)
	}

	l := ledger.New(ledger.WithClock(func() time.Time { return cfg.now }))
	h := &harness{
		t:       t,
		now:     cfg.now,
		ledger:  l,
		routerA: &scriptedRouter{name: "router-a", addr: routerA, quote: units("10.5")},
		routerB: &scriptedRouter{name: "router-b", addr: routerB, quote: units("10.08")},
	}

	h.registry = ammApp.NewRegistry()
	h.registry.AddRouter(h.routerA)
	h.registry.AddRouter(h.routerB)
	for _, p := range []struct {
		pool   common.Address
		router string
	}{{poolA, "router-a"}, {poolB, "router-b"}} {
		if err := h.registry.AddPair(memory.NewPair(p.pool, weth, usdt, ammDomain.DefaultFee), p.router); err != nil {
			t.Fatal(err)
		}
	}

	fac, err := lendingApp.NewFacility(facility, 9)
	if err != nil {
		t.Fatal(err)
	}
	h.lender = fac
	if cfg.lender != nil {
		h.lender = cfg.lender(fac)
	}

	err = l.Atomically(context.Background(), "seed", func(_ context.Context, tx ledger.Tx) error {
		for _, pool := range []common.Address{poolA, poolB} {
			if err := tx.Mint(weth, pool, units("1000")); err != nil {
				return err
			}
			if err := tx.Mint(usdt, pool, units("1000")); err != nil {
				return err
			}
		}
		return tx.Mint(weth, facility, units("1000"))
	})
	if err != nil {
		t.Fatal(err)
	}

	h.refFeed = static.New("ref", decimal.NewFromInt(1), 0)
	h.feeFeed = static.New("fee", decimal.NewFromInt(100), 0)
	gw, err := oracleApp.NewGateway(h.refFeed, h.feeFeed)
	if err != nil {
		t.Fatal(err)
	}

	risk, err := NewRiskStore(cfg.params)
	if err != nil {
		t.Fatal(err)
	}

	h.engine, err = NewEngine(EngineConfig{
		Accounts:  Accounts{Owner: owner, Engine: engine},
		Reference: weth,
		Ledger:    l,
		Lender:    h.lender,
		Pools:     h.registry,
		Oracle:    gw,
		Risk:      risk,
		Logger:    &mockLogger{},
	})
	if err != nil {
		t.Fatalf("NewEngine() error: %v", err)
	}
	events, cancel := h.engine.Events.Subscribe(16)
	t.Cleanup(cancel)
	h.events = events
	return h
}

func (h *harness) request() domain.TradeRequest {
	return domain.NewTradeRequest(weth, poolA, poolB,
		[]common.Address{weth, usdt}, []common.Address{usdt, weth},
		units("10"), h.now.Add(5*time.Minute))
}

func (h *harness) balance(token, holder common.Address) *big.Int {
	return h.ledger.BalanceOf(token, holder)
}

func (h *harness) nextEvent() domain.Event {
	h.t.Helper()
	select {
	case ev := <-h.events:
		return ev
	default:
		h.t.Fatal("no event published")
		return nil
	}
}

func (h *harness) noEvent() {
	h.t.Helper()
	select {
	case ev := <-h.events:
		h.t.Fatalf("unexpected event %s", ev.EventName())
	default:
	}
}
