// Package lending implements the in-process flash-loan facility.
package lending

import (
	"context"
	"fmt"

	"github.com/fd1az/flashloan-arb/business/lending/app"
	lendingDI "github.com/fd1az/flashloan-arb/business/lending/di"
	"github.com/fd1az/flashloan-arb/internal/asset"
	"github.com/fd1az/flashloan-arb/internal/config"
	"github.com/fd1az/flashloan-arb/internal/di"
	"github.com/fd1az/flashloan-arb/internal/ledger"
	"github.com/fd1az/flashloan-arb/internal/monolith"
)

// Module implements the lending bounded context.
type Module struct{}

func (m *Module) RegisterServices(c di.Container) error {
	di.RegisterToken(c, lendingDI.Facility, func(sr di.ServiceRegistry) *app.Facility {
		cfg := monolith.ConfigFrom(sr)
		f, err := app.NewFacility(cfg.Lending.AddressHex(), cfg.Lending.PremiumBps)
		if err != nil {
			panic("failed to create lending facility: " + err.Error())
		}
		return f
	})
	return nil
}

// Startup seeds the facility's liquidity.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	f := lendingDI.GetFacility(mono.Services())
	if err := SeedLiquidity(ctx, mono.Ledger(), f, mono.Config(), mono.AssetRegistry()); err != nil {
		return fmt.Errorf("seed lending liquidity: %w", err)
	}
	mono.Logger().Info(ctx, "lending module started",
		"facility", f.Address().Hex(),
		"premium_bps", f.PremiumBps(),
		"assets", len(mono.Config().Lending.Liquidity))
	return nil
}

// SeedLiquidity sets the facility's balances to the configured amounts.
func SeedLiquidity(ctx context.Context, l *ledger.Ledger, f *app.Facility, cfg *config.Config, assets *asset.Registry) error {
	return l.Atomically(ctx, "lending.seed", func(_ context.Context, tx ledger.Tx) error {
		for _, seed := range cfg.Lending.Liquidity {
			addr, err := assets.Resolve(cfg.Ethereum.ChainID, seed.Token)
			if err != nil {
				return err
			}
			raw, err := asset.ParseUnits(seed.Amount, assets.Describe(cfg.Ethereum.ChainID, addr).Decimals())
			if err != nil {
				return fmt.Errorf("%s liquidity: %w", seed.Token, err)
			}
			if err := ledger.SetBalance(tx, addr, f.Address(), raw); err != nil {
				return err
			}
		}
		return nil
	})
}
