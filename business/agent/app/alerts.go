package app

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	arbDomain "github.com/fd1az/flashloan-arb/business/arbitrage/domain"
)

// EventFormatter renders engine events for alerts.
type EventFormatter interface {
	Line(ev arbDomain.Event) string
	Signed(token common.Address, raw *big.Int) string
}

// EventAlert is the alert text for one engine event.
func EventAlert(f EventFormatter, ev arbDomain.Event) string {
	switch e := ev.(type) {
	case arbDomain.TradeExecuted:
		return fmt.Sprintf("✅ Arbitrage executed successfully: %s, profit %s", f.Line(ev), f.Signed(e.Asset, e.Profit))
	case arbDomain.TradeFailed:
		return fmt.Sprintf("❌ Transaction failed: %s", f.Line(ev))
	case arbDomain.ParametersUpdated:
		return fmt.Sprintf("⚙️ Risk parameters updated: %s", f.Line(ev))
	case arbDomain.FundsWithdrawn:
		return fmt.Sprintf("💸 Funds withdrawn: %s", f.Line(ev))
	}
	return fmt.Sprintf("%s: %s", ev.EventName(), f.Line(ev))
}

// ForwardAlerts alerts on every event on feed until ctx ends or feed
// closes.
func ForwardAlerts(ctx context.Context, feed <-chan arbDomain.Event, f EventFormatter, a Alerter) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-feed:
			if !ok {
				return
			}
			a.Alert(ctx, EventAlert(f, ev))
		}
	}
}
