package app

import (
	"context"
	"math/big"
	"testing"

	"github.com/fd1az/flashloan-arb/business/arbitrage/domain"
	"github.com/fd1az/flashloan-arb/internal/apperror"
	"github.com/fd1az/flashloan-arb/internal/ledger"
)

func fundEngine(t *testing.T, h *harness, amount *big.Int) {
	t.Helper()
	err := h.ledger.Atomically(context.Background(), "fund", func(_ context.Context, tx ledger.Tx) error {
		return tx.Mint(weth, engine, amount)
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestWithdraw(t *testing.T) {
	h := newHarness(t)
	fundEngine(t, h, units("2"))

	if err := h.engine.Custody.Withdraw(context.Background(), owner, weth, units("1.5")); err != nil {
		t.Fatalf("Withdraw() error: %v", err)
	}
	if got := h.engine.Custody.Balance(weth); got.Cmp(units("0.5")) != 0 {
		t.Errorf("engine balance = %s, want 0.5", got)
	}
	if got := h.balance(weth, owner); got.Cmp(units("1.5")) != 0 {
		t.Errorf("owner balance = %s, want 1.5", got)
	}

	ev, ok := h.nextEvent().(domain.FundsWithdrawn)
	if !ok {
		t.Fatal("expected FundsWithdrawn")
	}
	if ev.Token != weth || ev.To != owner || ev.Amount.Cmp(units("1.5")) != 0 {
		t.Errorf("event = %+v", ev)
	}
}

func TestWithdraw_Rejected(t *testing.T) {
	tests := []struct {
		name   string
		amount *big.Int
		want   apperror.Code
	}{
		{name: "not owner", amount: units("1"), want: apperror.CodeUnauthorizedCaller},
		{name: "more than held", amount: units("3"), want: apperror.CodeInsufficientBalance},
		{name: "zero", amount: new(big.Int), want: apperror.CodeInvalidAmount},
		{name: "nil", want: apperror.CodeInvalidAmount},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			fundEngine(t, h, units("2"))
			caller := owner
			if tt.want == apperror.CodeUnauthorizedCaller {
				caller = stranger
			}

			err := h.engine.Custody.Withdraw(context.Background(), caller, weth, tt.amount)
			if apperror.GetCode(err) != tt.want {
				t.Fatalf("Withdraw() error = %v, want %s", err, tt.want)
			}
			if got := h.engine.Custody.Balance(weth); got.Cmp(units("2")) != 0 {
				t.Errorf("engine balance = %s, want 2", got)
			}
			h.noEvent()
		})
	}
}

func TestWithdraw_SharesEntryGuard(t *testing.T) {
	h := newHarness(t)
	fundEngine(t, h, units("1"))

	var inner error
	h.routerA.onSwap = func(ctx context.Context, _ ledger.Tx) error {
		inner = h.engine.Custody.Withdraw(ctx, owner, weth, units("1"))
		return nil
	}

	if _, err := h.engine.Orchestrator.Execute(context.Background(), owner, h.request()); err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if apperror.GetCode(inner) != apperror.CodeExecutionInProgress {
		t.Errorf("Withdraw() during execution = %v, want EXECUTION_IN_PROGRESS", inner)
	}
}
