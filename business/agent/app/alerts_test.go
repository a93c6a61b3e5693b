package app

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"

	arbDomain "github.com/fd1az/flashloan-arb/business/arbitrage/domain"
	arbInfra "github.com/fd1az/flashloan-arb/business/arbitrage/infra"
	"github.com/fd1az/flashloan-arb/internal/asset"
)

func TestEventAlert(t *testing.T) {
	f := arbInfra.NewFormatter(nil, asset.ChainIDEthereum)

	tests := []struct {
		name string
		ev   arbDomain.Event
		want []string
	}{
		{
			"executed",
			arbDomain.TradeExecuted{
				Asset: asset.AddrWETH, Profit: ether("0.05"),
				PathOut:  []common.Address{asset.AddrWETH, asset.AddrUSDT},
				PathBack: []common.Address{asset.AddrUSDT, asset.AddrWETH},
			},
			[]string{"executed successfully", "WETH→USDT then USDT→WETH", "+0.050000 WETH"},
		},
		{
			"failed",
			arbDomain.TradeFailed{Asset: asset.AddrWETH, Code: "SLIPPAGE_EXCEEDED", Reason: "leg 2 below minimum"},
			[]string{"Transaction failed", "SLIPPAGE_EXCEEDED: leg 2 below minimum"},
		},
		{
			"withdrawn",
			arbDomain.FundsWithdrawn{Token: asset.AddrWETH, Amount: ether("1"), To: owner},
			[]string{"Funds withdrawn", "1.000000 WETH"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EventAlert(f, tt.ev)
			for _, w := range tt.want {
				if !strings.Contains(got, w) {
					t.Errorf("EventAlert() = %q, missing %q", got, w)
				}
			}
		})
	}
}

func TestForwardAlerts(t *testing.T) {
	feed := make(chan arbDomain.Event, 2)
	alerts := &fakeAlerter{}
	feed <- arbDomain.ParametersUpdated{At: testNow}
	feed <- arbDomain.TradeFailed{Code: "DEADLINE_EXPIRED", Reason: "late"}
	close(feed)

	done := make(chan struct{})
	go func() {
		defer close(done)
		ForwardAlerts(context.Background(), feed, arbInfra.NewFormatter(nil, asset.ChainIDEthereum), alerts)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("ForwardAlerts did not return after feed closed")
	}
	if len(alerts.sent) != 2 || !alerts.contains("Risk parameters updated") || !alerts.contains("DEADLINE_EXPIRED") {
		t.Errorf("alerts = %v", alerts.sent)
	}
}
