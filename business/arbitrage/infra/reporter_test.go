package infra

import (
	"bytes"
	"context"
	"math/big"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/flashloan-arb/business/arbitrage/app"
	"github.com/fd1az/flashloan-arb/business/arbitrage/domain"
	"github.com/fd1az/flashloan-arb/internal/asset"
	"github.com/fd1az/flashloan-arb/pkg/ui"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func wei(s string) *big.Int {
	v, _ := new(big.Int).SetString(s, 10)
	return v
}

func TestFormatter_Amounts(t *testing.T) {
	f := NewFormatter(asset.DefaultRegistry(), asset.ChainIDEthereum)

	tests := []struct {
		name  string
		token common.Address
		raw   *big.Int
		want  string
	}{
		{"weth", asset.AddrWETH, wei("1500000000000000000"), "1.500000 WETH"},
		{"usdt six decimals", asset.AddrUSDT, wei("2500000"), "2.500000 USDT"},
		{"nil", asset.AddrWETH, nil, "0.000000 WETH"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := f.Amount(tt.token, tt.raw); got != tt.want {
				t.Errorf("Amount() = %q, want %q", got, tt.want)
			}
		})
	}

	if got := f.Signed(asset.AddrWETH, wei("1000000000000000")); got != "+0.001000 WETH" {
		t.Errorf("Signed() = %q", got)
	}
	if got := f.Signed(asset.AddrWETH, wei("-1000000000000000")); got != "-0.001000 WETH" {
		t.Errorf("Signed(negative) = %q", got)
	}
	if got := f.Path([]common.Address{asset.AddrWETH, asset.AddrUSDC}); got != "WETH→USDC" {
		t.Errorf("Path() = %q", got)
	}
}

func TestFormatter_RecordAccumulates(t *testing.T) {
	f := NewFormatter(nil, asset.ChainIDEthereum)
	ev := domain.TradeExecuted{Asset: asset.AddrWETH, Profit: wei("10000000000000000"), At: testNow}

	if got := f.Record(ev); got != "0.010000 WETH" {
		t.Errorf("first Record() = %q", got)
	}
	if got := f.Record(ev); got != "0.020000 WETH" {
		t.Errorf("second Record() = %q", got)
	}
	if got := f.Record(domain.ParametersUpdated{At: testNow}); got != "" {
		t.Errorf("Record(params) = %q", got)
	}
}

func TestConsoleReporter(t *testing.T) {
	var out bytes.Buffer
	r := NewConsoleReporter(&out, NewFormatter(nil, asset.ChainIDEthereum), false)

	r.Report(domain.TradeExecuted{
		Asset:    asset.AddrWETH,
		Profit:   wei("51000000000000000"),
		PathOut:  []common.Address{asset.AddrWETH, asset.AddrUSDT},
		PathBack: []common.Address{asset.AddrUSDT, asset.AddrWETH},
		At:       testNow,
	})
	r.Report(domain.TradeFailed{
		Asset:      asset.AddrWETH,
		Code:       "INSUFFICIENT_PROFIT",
		Reason:     "final balance below required",
		Balance:    wei("10000000000000000000"),
		AmountOwed: wei("10009000000000000000"),
		At:         testNow,
	})
	scan := app.Scan{
		Block:   7,
		Pair:    "WETH/USDT",
		Request: domain.TradeRequest{Asset: asset.AddrWETH, Principal: wei("1000000000000000000")},
		Result:  app.SimulationResult{Reason: app.ReasonBelowMinProfit, Net: wei("-5")},
	}
	r.ReportScan(scan)

	got := out.String()
	for _, want := range []string{
		"TRADE EXECUTED",
		"WETH→USDT then USDT→WETH",
		"+0.051000 WETH",
		"Session total:  0.051000 WETH",
		"TRADE ABORTED  INSUFFICIENT_PROFIT",
		"owed 10.009000 WETH",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
	if strings.Contains(got, "#7") {
		t.Error("non-verbose reporter printed a losing scan")
	}

	scan.Result = app.SimulationResult{Profitable: true, Net: wei("23000000000000000")}
	r.ReportScan(scan)
	if !strings.Contains(out.String(), "#7 WETH/USDT") || !strings.Contains(out.String(), "PROFITABLE") {
		t.Errorf("profitable scan not printed:\n%s", out.String())
	}
}

func TestTUIReporter_Lifecycle(t *testing.T) {
	var in, out bytes.Buffer
	var quit atomic.Bool
	r := NewTUIReporter(NewFormatter(nil, asset.ChainIDEthereum), ui.Options{}, func() { quit.Store(true) },
		tea.WithInput(&in), tea.WithOutput(&out))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := r.Start(ctx); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	if err := r.Start(ctx); err == nil {
		t.Error("second Start() succeeded")
	}

	r.UpdateBlock(1, testNow)
	r.Report(domain.ParametersUpdated{At: testNow})
	if err := r.Stop(); err != nil {
		t.Fatalf("Stop() error: %v", err)
	}

	select {
	case <-r.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("program did not exit")
	}
	if !quit.Load() {
		t.Error("onQuit not called")
	}
	r.Report(domain.ParametersUpdated{At: testNow})
}

func TestConsoleReporter_ConnectionChangesOnly(t *testing.T) {
	var out bytes.Buffer
	r := NewConsoleReporter(&out, NewFormatter(nil, asset.ChainIDEthereum), false)

	r.UpdateConnectionStatus("node", true, 20*time.Millisecond)
	r.UpdateConnectionStatus("node", true, 30*time.Millisecond)
	r.UpdateConnectionStatus("node", false, 0)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("printed %d lines, want 2:\n%s", len(lines), out.String())
	}
	if !strings.HasSuffix(lines[0], "node: connected (20ms)") || !strings.HasSuffix(lines[1], "node: disconnected") {
		t.Errorf("lines = %q", lines)
	}
}
