package app

import (
	"context"
	"math/big"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/flashloan-arb/business/arbitrage/domain"
	"github.com/fd1az/flashloan-arb/internal/apperror"
	"github.com/fd1az/flashloan-arb/internal/ledger"
)

func TestSimulate_Profitable(t *testing.T) {
	h := newHarness(t)
	before := h.ledger.Snapshot().Version()

	res, err := h.engine.Simulator.Simulate(context.Background(), h.request())
	if err != nil {
		t.Fatalf("Simulate() error: %v", err)
	}
	if !res.Profitable {
		t.Fatalf("Simulate() not profitable: %s", res.Reason)
	}

	checks := []struct {
		name string
		got  string
		want string
	}{
		{"intermediate", res.Intermediate.String(), units("10.5").String()},
		{"final", res.Final.String(), units("10.08").String()},
		{"premium", res.Premium.String(), units("0.009").String()},
		{"owed", res.Owed.String(), units("10.009").String()},
		{"cost", res.ExecutionCost.String(), units("0.02").String()},
		{"net", res.Net.String(), units("0.051").String()},
		{"profit", res.EstimatedProfit.String(), units("0.051").String()},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s = %s, want %s", c.name, c.got, c.want)
		}
	}

	if h.ledger.Snapshot().Version() != before || h.routerA.swaps+h.routerB.swaps != 0 {
		t.Error("simulation mutated state")
	}
	h.noEvent()
}

func TestSimulate_NotProfitable(t *testing.T) {
	tests := []struct {
		name   string
		setup  func(*harness)
		reason string
	}{
		{
			name:   "below min profit",
			setup:  func(h *harness) { h.routerB.quote = units("10.035") },
			reason: ReasonBelowMinProfit,
		},
		{
			name: "pool A too shallow",
			setup: func(h *harness) {
				drain(h, poolA, weth, units("5"))
			},
			reason: ReasonPoolALiquidity,
		},
		{
			name: "pool B too shallow",
			setup: func(h *harness) {
				drain(h, poolB, usdt, units("5"))
			},
			reason: ReasonPoolBLiquidity,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			tt.setup(h)
			res, err := h.engine.Simulator.Simulate(context.Background(), h.request())
			if err != nil {
				t.Fatalf("Simulate() error: %v", err)
			}
			if res.Profitable {
				t.Fatal("Simulate() reported profitable")
			}
			if res.Reason != tt.reason {
				t.Errorf("Reason = %q, want %q", res.Reason, tt.reason)
			}
			if res.EstimatedProfit.Sign() != 0 {
				t.Errorf("EstimatedProfit = %s, want 0", res.EstimatedProfit)
			}
		})
	}
}

// drain leaves keep of token in pool. Draining the input side below the
// trade size makes the output at least half the other reserve.
func drain(h *harness, pool, token common.Address, keep *big.Int) {
	h.t.Helper()
	err := h.ledger.Atomically(context.Background(), "drain", func(_ context.Context, tx ledger.Tx) error {
		return ledger.SetBalance(tx, token, pool, keep)
	})
	if err != nil {
		h.t.Fatal(err)
	}
}

func TestSimulate_Errors(t *testing.T) {
	tests := []struct {
		name  string
		setup func(*harness)
		req   func(*domain.TradeRequest)
		want  apperror.Code
	}{
		{
			name: "return path mismatch",
			req:  func(r *domain.TradeRequest) { r.PathBack = []common.Address{stranger, weth} },
			want: apperror.CodeInvalidPath,
		},
		{
			name: "outbound path not starting at asset",
			req:  func(r *domain.TradeRequest) { r.PathOut = []common.Address{usdt, weth} },
			want: apperror.CodeInvalidPath,
		},
		{
			name: "zero principal",
			req:  func(r *domain.TradeRequest) { r.Principal = units("0") },
			want: apperror.CodeInvalidAmount,
		},
		{
			name: "unknown pool",
			req:  func(r *domain.TradeRequest) { r.PoolA = stranger },
			want: apperror.CodeUnknownPool,
		},
		{
			name:  "fee above ceiling",
			setup: func(h *harness) { h.feeFeed.SetRaw(big.NewInt(101_000_000_000), 9) },
			want:  apperror.CodeFeePriceTooHigh,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			if tt.setup != nil {
				tt.setup(h)
			}
			req := h.request()
			if tt.req != nil {
				tt.req(&req)
			}
			_, err := h.engine.Simulator.Simulate(context.Background(), req)
			if apperror.GetCode(err) != tt.want {
				t.Errorf("Simulate() error = %v, want %s", err, tt.want)
			}
		})
	}
}

func TestSimulate_UsesCurrentParameters(t *testing.T) {
	h := newHarness(t)
	params := h.engine.Governance.RiskParameters(context.Background())
	params.MinProfit = units("0.06")
	if err := h.engine.Governance.UpdateRiskParameters(context.Background(), owner, params); err != nil {
		t.Fatal(err)
	}

	res, err := h.engine.Simulator.Simulate(context.Background(), h.request())
	if err != nil {
		t.Fatal(err)
	}
	if res.Profitable || res.Reason != ReasonBelowMinProfit {
		t.Errorf("Simulate() = %+v, want below min profit", res)
	}
}

func TestSimulate_Concurrent(t *testing.T) {
	h := newHarness(t)
	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := h.engine.Simulator.Simulate(context.Background(), h.request())
			if err == nil && !res.Profitable {
				err = apperror.New(apperror.CodeNotProfitable, apperror.WithContext(res.Reason))
			}
			if err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}
