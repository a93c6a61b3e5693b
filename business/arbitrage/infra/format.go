// Package infra contains the reporters that display engine activity.
package infra

import (
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/flashloan-arb/business/arbitrage/app"
	"github.com/fd1az/flashloan-arb/business/arbitrage/domain"
	"github.com/fd1az/flashloan-arb/internal/asset"
)

const displayPlaces = 6

// Formatter renders engine values for people. It keeps the running
// profit per asset across TradeExecuted events.
type Formatter struct {
	assets  *asset.Registry
	chainID uint64

	mu     sync.Mutex
	profit map[common.Address]*big.Int
}

func NewFormatter(assets *asset.Registry, chainID uint64) *Formatter {
	if assets == nil {
		assets = asset.DefaultRegistry()
	}
	return &Formatter{assets: assets, chainID: chainID, profit: make(map[common.Address]*big.Int)}
}

func (f *Formatter) Symbol(token common.Address) string {
	return f.assets.Describe(f.chainID, token).Symbol()
}

// Amount renders raw base units of token, e.g. "1.500000 WETH".
func (f *Formatter) Amount(token common.Address, raw *big.Int) string {
	a := f.assets.Describe(f.chainID, token)
	return asset.FormatUnits(raw, a.Decimals()).StringFixed(displayPlaces) + " " + a.Symbol()
}

// Signed is Amount with an explicit sign.
func (f *Formatter) Signed(token common.Address, raw *big.Int) string {
	if raw != nil && raw.Sign() > 0 {
		return "+" + f.Amount(token, raw)
	}
	return f.Amount(token, raw)
}

func (f *Formatter) Path(path []common.Address) string {
	parts := make([]string, len(path))
	for i, a := range path {
		parts[i] = f.Symbol(a)
	}
	return strings.Join(parts, "→")
}

// Line is the one-line summary of an event.
func (f *Formatter) Line(ev domain.Event) string {
	switch e := ev.(type) {
	case domain.TradeExecuted:
		return fmt.Sprintf("%s then %s", f.Path(e.PathOut), f.Path(e.PathBack))
	case domain.TradeFailed:
		if e.Balance != nil && e.AmountOwed != nil {
			return fmt.Sprintf("%s: %s (balance %s, owed %s)", e.Code, e.Reason,
				f.Amount(e.Asset, e.Balance), f.Amount(e.Asset, e.AmountOwed))
		}
		return fmt.Sprintf("%s: %s", e.Code, e.Reason)
	case domain.ParametersUpdated:
		p := e.Params
		return fmt.Sprintf("slippage %d bps, premium %d bps, deviation %d bps, %d units",
			p.SlippageToleranceBps, p.LoanPremiumBps, p.PriceDeviationToleranceBps, p.GasCostEstimateUnits)
	case domain.FundsWithdrawn:
		return fmt.Sprintf("%s to %s", f.Amount(e.Token, e.Amount), e.To.Hex())
	}
	return ev.EventName()
}

// Record adds an executed trade's profit to the running total and returns
// the new total. Other events return "".
func (f *Formatter) Record(ev domain.Event) string {
	e, ok := ev.(domain.TradeExecuted)
	if !ok || e.Profit == nil {
		return ""
	}
	f.mu.Lock()
	total, ok := f.profit[e.Asset]
	if !ok {
		total = new(big.Int)
		f.profit[e.Asset] = total
	}
	total.Add(total, e.Profit)
	out := new(big.Int).Set(total)
	f.mu.Unlock()
	return f.Amount(e.Asset, out)
}

// ScanNet is the simulated net of a scan, signed.
func (f *Formatter) ScanNet(s app.Scan) string {
	return f.Signed(s.Request.Asset, s.Result.Net)
}

func (f *Formatter) ScanPrincipal(s app.Scan) string {
	a := f.assets.Describe(f.chainID, s.Request.Asset)
	return asset.FormatUnits(s.Request.Principal, a.Decimals()).String() + " " + a.Symbol()
}
