package app

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/fd1az/flashloan-arb/business/agent/domain"
	arbApp "github.com/fd1az/flashloan-arb/business/arbitrage/app"
	arbDomain "github.com/fd1az/flashloan-arb/business/arbitrage/domain"
	arbInfra "github.com/fd1az/flashloan-arb/business/arbitrage/infra"
	blockchainDomain "github.com/fd1az/flashloan-arb/business/blockchain/domain"
	"github.com/fd1az/flashloan-arb/internal/apperror"
	"github.com/fd1az/flashloan-arb/internal/asset"
	"github.com/fd1az/flashloan-arb/internal/logger"
)

var (
	owner   = common.HexToAddress("0x000000000000000000000000000000000000a11c")
	poolA   = common.HexToAddress("0x06da0fd433C1A5d7a4faa01111c044910A184553")
	poolB   = common.HexToAddress("0x0d4a11d5EEaaC28EC3F61d100daF4d40471f1852")
	poolC   = common.HexToAddress("0xB4e16d0168e52d35CaCD2c6185b44281Ec28C9Dc")
	poolD   = common.HexToAddress("0x397FF1542f962076d0BFE58eA045FfA2d347ACa0")
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

func ether(s string) *big.Int {
	return decimal.RequireFromString(s).Shift(18).BigInt()
}

func gwei(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), big.NewInt(1_000_000_000))
}

// fakeSim returns a scripted result per (pool A, principal).
type fakeSim struct {
	mu      sync.Mutex
	results map[string]arbApp.SimulationResult
	errs    map[string]error
	calls   []arbDomain.TradeRequest
}

func simKey(pool common.Address, principal *big.Int) string {
	return pool.Hex() + "/" + principal.String()
}

func (s *fakeSim) Simulate(_ context.Context, req arbDomain.TradeRequest) (arbApp.SimulationResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, req)
	key := simKey(req.PoolA, req.Principal)
	if err := s.errs[key]; err != nil {
		return arbApp.SimulationResult{}, err
	}
	if res, ok := s.results[key]; ok {
		return res, nil
	}
	return arbApp.SimulationResult{Reason: arbApp.ReasonBelowMinProfit, EstimatedProfit: new(big.Int), FeeUnitPrice: gwei(20)}, nil
}

type fakeExec struct {
	mu      sync.Mutex
	calls   []arbDomain.TradeRequest
	callers []common.Address
	err     error
	outcome *arbDomain.ExecutionOutcome
}

func (e *fakeExec) Execute(_ context.Context, caller common.Address, req arbDomain.TradeRequest) (*arbDomain.ExecutionOutcome, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls = append(e.calls, req)
	e.callers = append(e.callers, caller)
	if e.err != nil {
		return e.outcome, e.err
	}
	return &arbDomain.ExecutionOutcome{Success: true, Profit: big.NewInt(1), Request: req}, nil
}

func (e *fakeExec) count() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.calls)
}

type fakeFeeMarket struct {
	quote    *blockchainDomain.FeeQuote
	quoteErr error
	price    *big.Int
	priceErr error
}

func (f *fakeFeeMarket) GetFeeQuote(context.Context) (*blockchainDomain.FeeQuote, error) {
	return f.quote, f.quoteErr
}

func (f *fakeFeeMarket) GetGasPrice(context.Context) (*blockchainDomain.GasPrice, error) {
	if f.priceErr != nil {
		return nil, f.priceErr
	}
	return blockchainDomain.NewGasPrice(f.price, testNow), nil
}

type fakeAlerter struct {
	mu   sync.Mutex
	sent []string
}

func (a *fakeAlerter) Alert(_ context.Context, text string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.sent = append(a.sent, text)
}

func (a *fakeAlerter) contains(sub string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, s := range a.sent {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

type fakeSyncer struct {
	calls int
	err   error
}

func (s *fakeSyncer) Sync(context.Context) error {
	s.calls++
	return s.err
}

type fakeReporter struct {
	mu     sync.Mutex
	scans  []arbApp.Scan
	blocks []uint64
}

func (r *fakeReporter) Start(context.Context) error { return nil }
func (r *fakeReporter) Report(arbDomain.Event)      {}
func (r *fakeReporter) ReportScan(s arbApp.Scan) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.scans = append(r.scans, s)
}
func (r *fakeReporter) UpdateBlock(n uint64, _ time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.blocks = append(r.blocks, n)
}
func (r *fakeReporter) UpdateConnectionStatus(string, bool, time.Duration) {}
func (r *fakeReporter) Stop() error                                        { return nil }

type chanBlocks struct {
	ch  chan *blockchainDomain.Block
	err error
}

func (b *chanBlocks) SubscribeBlocks(context.Context) (<-chan *blockchainDomain.Block, error) {
	return b.ch, b.err
}

type fixture struct {
	agent    *Agent
	sim      *fakeSim
	exec     *fakeExec
	alerts   *fakeAlerter
	reporter *fakeReporter
	blocks   *chanBlocks
}

func pairs() []domain.Pair {
	return []domain.Pair{
		{Name: "WETH/USDT", Asset: asset.AddrWETH, PoolA: poolA, PoolB: poolB,
			PathOut: []common.Address{asset.AddrWETH, asset.AddrUSDT}, PathBack: []common.Address{asset.AddrUSDT, asset.AddrWETH}},
		{Name: "USDC/WETH", Asset: asset.AddrWETH, PoolA: poolC, PoolB: poolD,
			PathOut: []common.Address{asset.AddrWETH, asset.AddrUSDC}, PathBack: []common.Address{asset.AddrUSDC, asset.AddrWETH}},
	}
}

func testConfig() Config {
	return Config{
		Owner:           owner,
		Pairs:           pairs(),
		LoanAmounts:     []*big.Int{ether("1"), ether("10")},
		MinProfit:       ether("0.000001"),
		GasEstimate:     350000,
		GasBuffer:       decimal.RequireFromString("1.2"),
		FallbackGasCost: ether("0.01"),
		Ceiling:         domain.FeeCeiling{PriorityCap: gwei(2), Max: gwei(100)},
		DeadlineDelta:   300 * time.Second,
		InitialBackoff:  time.Millisecond,
		MaxBackoff:      5 * time.Millisecond,
	}
}

func newFixture(t *testing.T, mutate func(*Config, *Deps)) *fixture {
	t.Helper()
	f := &fixture{
		sim:      &fakeSim{results: map[string]arbApp.SimulationResult{}, errs: map[string]error{}},
		exec:     &fakeExec{},
		alerts:   &fakeAlerter{},
		reporter: &fakeReporter{},
		blocks:   &chanBlocks{ch: make(chan *blockchainDomain.Block, 8)},
	}
	cfg := testConfig()
	deps := Deps{
		Blocks:    f.blocks,
		Simulator: f.sim,
		Executor:  f.exec,
		Alerter:   f.alerts,
		Reporter:  f.reporter,
		Amounts:   arbInfra.NewFormatter(nil, asset.ChainIDEthereum),
		Clock:     func() time.Time { return testNow },
		Logger:    &mockLogger{},
	}
	if mutate != nil {
		mutate(&cfg, &deps)
	}
	a, err := NewAgent(cfg, deps)
	if err != nil {
		t.Fatalf("NewAgent() error: %v", err)
	}
	f.agent = a
	return f
}

func profitable(profit string) arbApp.SimulationResult {
	return arbApp.SimulationResult{Profitable: true, EstimatedProfit: ether(profit), Net: ether(profit), FeeUnitPrice: gwei(20)}
}

func block(n uint64) *blockchainDomain.Block {
	return &blockchainDomain.Block{Number: n, Timestamp: testNow}
}

func TestNewAgent_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config, *Deps)
	}{
		{"no owner", func(c *Config, _ *Deps) { c.Owner = common.Address{} }},
		{"no pairs", func(c *Config, _ *Deps) { c.Pairs = nil }},
		{"no amounts", func(c *Config, _ *Deps) { c.LoanAmounts = nil }},
		{"zero amount", func(c *Config, _ *Deps) { c.LoanAmounts = []*big.Int{big.NewInt(0)} }},
		{"no simulator", func(_ *Config, d *Deps) { d.Simulator = nil }},
		{"no logger", func(_ *Config, d *Deps) { d.Logger = nil }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			deps := Deps{
				Blocks: &chanBlocks{}, Simulator: &fakeSim{}, Executor: &fakeExec{},
				Amounts: arbInfra.NewFormatter(nil, asset.ChainIDEthereum), Logger: &mockLogger{},
			}
			tt.mutate(&cfg, &deps)
			if _, err := NewAgent(cfg, deps); err == nil {
				t.Error("NewAgent() accepted invalid input")
			}
		})
	}
}

func TestRound_PicksBestNet(t *testing.T) {
	f := newFixture(t, nil)
	f.sim.results[simKey(poolA, ether("1"))] = profitable("0.02")
	f.sim.results[simKey(poolA, ether("10"))] = profitable("0.05")
	f.sim.results[simKey(poolC, ether("1"))] = profitable("0.03")

	best, err := f.agent.Round(context.Background(), 7)
	if err != nil {
		t.Fatalf("Round() error: %v", err)
	}
	if best == nil {
		t.Fatal("Round() found no candidate")
	}
	if best.Pair.Name != "WETH/USDT" || best.Principal.Cmp(ether("10")) != 0 {
		t.Errorf("best = %s %s", best.Pair.Name, best.Principal)
	}
	// 350000 * 1.2 * 20 gwei
	if best.GasCost.Cmp(ether("0.0084")) != 0 {
		t.Errorf("GasCost = %s", best.GasCost)
	}
	if best.Net.Cmp(ether("0.0416")) != 0 {
		t.Errorf("Net = %s", best.Net)
	}

	if len(f.sim.calls) != 4 {
		t.Errorf("simulations = %d, want 4", len(f.sim.calls))
	}
	for _, req := range f.sim.calls {
		if !req.Deadline.Equal(testNow.Add(300 * time.Second)) {
			t.Errorf("deadline = %s", req.Deadline)
		}
	}
	if len(f.reporter.scans) != 4 || f.reporter.scans[0].Block != 7 {
		t.Errorf("scans = %d", len(f.reporter.scans))
	}
	if !f.alerts.contains("Profit opportunity: WETH/USDT") {
		t.Errorf("alerts = %v", f.alerts.sent)
	}
}

func TestRound_Filters(t *testing.T) {
	tests := []struct {
		name   string
		result arbApp.SimulationResult
	}{
		{"not profitable", arbApp.SimulationResult{EstimatedProfit: new(big.Int), FeeUnitPrice: gwei(20)}},
		{"below agent min profit", profitable("0.0000005")},
		{"gas eats the profit", profitable("0.008")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, func(c *Config, _ *Deps) { c.Pairs = pairs()[:1]; c.LoanAmounts = c.LoanAmounts[:1] })
			f.sim.results[simKey(poolA, ether("1"))] = tt.result
			best, err := f.agent.Round(context.Background(), 1)
			if err != nil {
				t.Fatal(err)
			}
			if best != nil {
				t.Errorf("Round() = %+v, want none", best)
			}
		})
	}
}

func TestRound_GasPriceSources(t *testing.T) {
	tests := []struct {
		name    string
		market  *fakeFeeMarket
		simFee  *big.Int
		wantGas *big.Int
	}{
		{"oracle fee price", nil, gwei(20), ether("0.0084")},
		{"node gas price", &fakeFeeMarket{price: gwei(10)}, gwei(20), ether("0.0042")},
		{"node read fails", &fakeFeeMarket{priceErr: errors.New("rpc down")}, gwei(20), ether("0.01")},
		{"no price at all", nil, nil, ether("0.01")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, func(c *Config, d *Deps) {
				c.Pairs = pairs()[:1]
				c.LoanAmounts = c.LoanAmounts[:1]
				if tt.market != nil {
					d.FeeMarket = tt.market
				}
			})
			res := profitable("1")
			res.FeeUnitPrice = tt.simFee
			f.sim.results[simKey(poolA, ether("1"))] = res

			best, err := f.agent.Round(context.Background(), 1)
			if err != nil || best == nil {
				t.Fatalf("Round() = %v, %v", best, err)
			}
			if best.GasCost.Cmp(tt.wantGas) != 0 {
				t.Errorf("GasCost = %s, want %s", best.GasCost, tt.wantGas)
			}
		})
	}
}

func TestRound_SimulationErrorSkipsCandidate(t *testing.T) {
	f := newFixture(t, nil)
	f.sim.errs[simKey(poolA, ether("1"))] = apperror.New(apperror.CodeOracleStale)
	f.sim.results[simKey(poolC, ether("10"))] = profitable("0.5")

	best, err := f.agent.Round(context.Background(), 1)
	if err != nil {
		t.Fatalf("Round() error: %v", err)
	}
	if best == nil || best.Pair.Name != "USDC/WETH" {
		t.Errorf("best = %+v", best)
	}
	if !f.alerts.contains("Simulation failed (WETH/USDT") {
		t.Errorf("alerts = %v", f.alerts.sent)
	}
	if len(f.reporter.scans) != 3 {
		t.Errorf("scans = %d, want 3", len(f.reporter.scans))
	}
}

func TestRound_Cancelled(t *testing.T) {
	f := newFixture(t, func(_ *Config, d *Deps) { d.Limiter = cancelledLimiter{} })
	if _, err := f.agent.Round(context.Background(), 1); !errors.Is(err, context.Canceled) {
		t.Errorf("Round() error = %v, want canceled", err)
	}
}

type cancelledLimiter struct{}

func (cancelledLimiter) Wait(context.Context) error { return context.Canceled }

func TestHandleBlock_Executes(t *testing.T) {
	syncer := &fakeSyncer{}
	f := newFixture(t, func(_ *Config, d *Deps) { d.Syncer = syncer })
	f.sim.results[simKey(poolA, ether("10"))] = profitable("0.05")

	if err := f.agent.HandleBlock(context.Background(), block(3)); err != nil {
		t.Fatalf("HandleBlock() error: %v", err)
	}
	if syncer.calls != 1 {
		t.Errorf("syncs = %d, want 1", syncer.calls)
	}
	if f.exec.count() != 1 {
		t.Fatalf("executions = %d, want 1", f.exec.count())
	}
	req := f.exec.calls[0]
	if f.exec.callers[0] != owner || req.PoolA != poolA || req.Principal.Cmp(ether("10")) != 0 {
		t.Errorf("executed %+v as %s", req, f.exec.callers[0].Hex())
	}
	if !f.alerts.contains("Execution sent: WETH/USDT") {
		t.Errorf("alerts = %v", f.alerts.sent)
	}
	if len(f.reporter.blocks) != 1 || f.reporter.blocks[0] != 3 {
		t.Errorf("blocks reported = %v", f.reporter.blocks)
	}
}

func TestHandleBlock_FeeCeiling(t *testing.T) {
	tests := []struct {
		name    string
		market  *fakeFeeMarket
		baseFee *big.Int
		want    int
	}{
		{"node quote within ceiling", &fakeFeeMarket{price: gwei(1), quote: &blockchainDomain.FeeQuote{BaseFee: gwei(90), TipCap: gwei(5)}}, nil, 1},
		{"node quote above ceiling", &fakeFeeMarket{price: gwei(1), quote: &blockchainDomain.FeeQuote{BaseFee: gwei(99), TipCap: gwei(5)}}, nil, 0},
		{"block base fee above ceiling", nil, gwei(120), 0},
		{"oracle fee price within ceiling", nil, nil, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, func(_ *Config, d *Deps) {
				if tt.market != nil {
					d.FeeMarket = tt.market
				}
			})
			f.sim.results[simKey(poolA, ether("1"))] = profitable("0.5")

			b := block(1)
			b.BaseFee = tt.baseFee
			if err := f.agent.HandleBlock(context.Background(), b); err != nil {
				t.Fatalf("HandleBlock() error: %v", err)
			}
			if f.exec.count() != tt.want {
				t.Errorf("executions = %d, want %d", f.exec.count(), tt.want)
			}
		})
	}
}

func TestHandleBlock_Errors(t *testing.T) {
	t.Run("sync failure", func(t *testing.T) {
		f := newFixture(t, func(_ *Config, d *Deps) { d.Syncer = &fakeSyncer{err: errors.New("rpc down")} })
		if err := f.agent.HandleBlock(context.Background(), block(1)); err == nil {
			t.Error("HandleBlock() ignored sync failure")
		}
		if len(f.sim.calls) != 0 {
			t.Error("simulated after failed sync")
		}
	})

	t.Run("fee quote failure", func(t *testing.T) {
		f := newFixture(t, func(_ *Config, d *Deps) {
			d.FeeMarket = &fakeFeeMarket{price: gwei(1), quoteErr: errors.New("rpc down")}
		})
		f.sim.results[simKey(poolA, ether("1"))] = profitable("0.5")
		if err := f.agent.HandleBlock(context.Background(), block(1)); err == nil {
			t.Error("HandleBlock() ignored fee quote failure")
		}
		if f.exec.count() != 0 {
			t.Error("executed without a fee quote")
		}
	})

	t.Run("execution failure is not a block error", func(t *testing.T) {
		f := newFixture(t, nil)
		f.exec.err = apperror.New(apperror.CodeExecutionInProgress)
		f.sim.results[simKey(poolA, ether("1"))] = profitable("0.5")
		if err := f.agent.HandleBlock(context.Background(), block(1)); err != nil {
			t.Errorf("HandleBlock() error: %v", err)
		}
		if !f.alerts.contains("Execution failed") {
			t.Errorf("alerts = %v", f.alerts.sent)
		}
	})

	t.Run("failure with outcome leaves alerting to engine events", func(t *testing.T) {
		f := newFixture(t, nil)
		f.exec.err = apperror.New(apperror.CodeInsufficientProfit)
		f.exec.outcome = &arbDomain.ExecutionOutcome{FailureCode: apperror.CodeInsufficientProfit}
		f.sim.results[simKey(poolA, ether("1"))] = profitable("0.5")
		if err := f.agent.HandleBlock(context.Background(), block(1)); err != nil {
			t.Errorf("HandleBlock() error: %v", err)
		}
		if f.alerts.contains("Execution failed") {
			t.Error("duplicate failure alert")
		}
	})
}

func TestAgent_RunSkipsStaleBlocks(t *testing.T) {
	f := newFixture(t, func(c *Config, _ *Deps) { c.Pairs = pairs()[:1]; c.LoanAmounts = c.LoanAmounts[:1] })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := f.agent.Start(ctx); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	if err := f.agent.Start(ctx); err == nil {
		t.Error("second Start() succeeded")
	}

	for _, n := range []uint64{5, 5, 4, 6} {
		f.blocks.ch <- block(n)
	}
	close(f.blocks.ch)

	select {
	case <-f.agent.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("agent did not stop after the feed closed")
	}
	if got := f.agent.LastBlock(); got != 6 {
		t.Errorf("LastBlock() = %d, want 6", got)
	}
	if len(f.sim.calls) != 2 {
		t.Errorf("simulations = %d, want 2 (blocks 5 and 6)", len(f.sim.calls))
	}
	if !f.alerts.contains("agent started") {
		t.Errorf("alerts = %v", f.alerts.sent)
	}
}

func TestAgent_RunBacksOffOnBlockError(t *testing.T) {
	syncer := &fakeSyncer{err: errors.New("rpc down")}
	f := newFixture(t, func(_ *Config, d *Deps) { d.Syncer = syncer })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := f.agent.Start(ctx); err != nil {
		t.Fatal(err)
	}
	f.blocks.ch <- block(1)
	f.blocks.ch <- block(2)
	close(f.blocks.ch)

	select {
	case <-f.agent.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("agent did not stop")
	}
	if syncer.calls != 2 {
		t.Errorf("sync attempts = %d, want 2", syncer.calls)
	}
	if !f.alerts.contains("Block handling error: sync reserves: rpc down") {
		t.Errorf("alerts = %v", f.alerts.sent)
	}
}

func TestAgent_StartSubscribeError(t *testing.T) {
	f := newFixture(t, nil)
	f.blocks.err = errors.New("no node")
	if err := f.agent.Start(context.Background()); err == nil {
		t.Error("Start() ignored subscribe error")
	}
}
