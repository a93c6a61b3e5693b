// Package amm implements the constant-product pools and routers the engine
// trades through.
package amm

import (
	"context"
	"fmt"

	"github.com/fd1az/flashloan-arb/business/amm/app"
	ammDI "github.com/fd1az/flashloan-arb/business/amm/di"
	"github.com/fd1az/flashloan-arb/business/amm/domain"
	"github.com/fd1az/flashloan-arb/business/amm/infra/memory"
	"github.com/fd1az/flashloan-arb/business/amm/infra/uniswapv2"
	"github.com/fd1az/flashloan-arb/internal/asset"
	"github.com/fd1az/flashloan-arb/internal/config"
	"github.com/fd1az/flashloan-arb/internal/di"
	"github.com/fd1az/flashloan-arb/internal/ledger"
	"github.com/fd1az/flashloan-arb/internal/monolith"
)

// Module implements the amm bounded context.
type Module struct{}

// RegisterServices registers the pool registry and the optional mainnet mirror.
func (m *Module) RegisterServices(c di.Container) error {
	di.RegisterToken(c, ammDI.Registry, func(sr di.ServiceRegistry) *app.Registry {
		cfg := monolith.ConfigFrom(sr)
		reg, err := BuildRegistry(cfg, monolith.AssetsFrom(sr))
		if err != nil {
			panic("failed to build pool registry: " + err.Error())
		}
		return reg
	})

	di.RegisterToken(c, ammDI.Mirror, func(sr di.ServiceRegistry) *uniswapv2.Mirror {
		cfg := monolith.ConfigFrom(sr)
		if !cfg.Ethereum.Enabled {
			return nil
		}
		reg := ammDI.GetRegistry(sr)

		var mirrored []app.Pair
		for _, pc := range cfg.Pools {
			if !pc.Mirror {
				continue
			}
			p, err := reg.Pair(pc.AddressHex())
			if err != nil {
				panic("mirrored pool missing from registry: " + err.Error())
			}
			mirrored = append(mirrored, p)
		}
		if len(mirrored) == 0 {
			return nil
		}

		mirror, err := uniswapv2.NewMirror(monolith.EthClientFrom(sr), mirrored, monolith.LoggerFrom(sr))
		if err != nil {
			panic("failed to create reserve mirror: " + err.Error())
		}
		return mirror
	})

	return nil
}

// Startup seeds configured reserves and runs a first mirror sync.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	log := mono.Logger()
	cfg := mono.Config()
	reg := ammDI.GetRegistry(mono.Services())

	if err := SeedReserves(ctx, mono.Ledger(), cfg, mono.AssetRegistry()); err != nil {
		return fmt.Errorf("seed reserves: %w", err)
	}

	if mirror := ammDI.GetMirror(mono.Services()); mirror != nil {
		if err := mirror.Verify(ctx); err != nil {
			log.Error(ctx, "mirrored pool token order mismatch", "error", err)
		} else if err := mirror.Sync(ctx, mono.Ledger()); err != nil {
			// Don't fail - the agent syncs again before each round
			log.Error(ctx, "initial reserve sync failed", "error", err)
		}
	}

	log.Info(ctx, "amm module started", "pools", len(reg.Pairs()), "routers", len(reg.Routers()))
	return nil
}

// BuildRegistry creates one memory router per configured router and one
// pair per configured pool. A pair charges its router's fee.
func BuildRegistry(cfg *config.Config, assets *asset.Registry) (*app.Registry, error) {
	reg := app.NewRegistry()
	routers := make(map[string]*memory.Router, len(cfg.Routers))
	for _, rc := range cfg.Routers {
		fee := domain.Fee{Numerator: rc.FeeNumerator, Denominator: rc.FeeDenominator}
		if err := fee.Validate(); err != nil {
			return nil, fmt.Errorf("router %q: %w", rc.Name, err)
		}
		r := memory.NewRouter(rc.Name, rc.AddressHex(), fee)
		routers[rc.Name] = r
		reg.AddRouter(r)
	}

	for _, pc := range cfg.Pools {
		r, ok := routers[pc.Router]
		if !ok {
			return nil, fmt.Errorf("pool %q: unknown router %q", pc.Name, pc.Router)
		}
		t0, err := assets.Resolve(cfg.Ethereum.ChainID, pc.Token0)
		if err != nil {
			return nil, fmt.Errorf("pool %q: %w", pc.Name, err)
		}
		t1, err := assets.Resolve(cfg.Ethereum.ChainID, pc.Token1)
		if err != nil {
			return nil, fmt.Errorf("pool %q: %w", pc.Name, err)
		}
		p := memory.NewPair(pc.AddressHex(), t0, t1, routerFee(cfg, pc.Router))
		r.AddPair(p)
		if err := reg.AddPair(p, pc.Router); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

// SeedReserves sets each pool's ledger balances to its configured
// reserves. Pools without reserves are skipped.
func SeedReserves(ctx context.Context, l *ledger.Ledger, cfg *config.Config, assets *asset.Registry) error {
	return l.Atomically(ctx, "amm.seed", func(_ context.Context, tx ledger.Tx) error {
		for _, pc := range cfg.Pools {
			if pc.Reserve0 == "" && pc.Reserve1 == "" {
				continue
			}
			for _, side := range []struct{ token, amount string }{
				{pc.Token0, pc.Reserve0},
				{pc.Token1, pc.Reserve1},
			} {
				if side.amount == "" {
					continue
				}
				addr, err := assets.Resolve(cfg.Ethereum.ChainID, side.token)
				if err != nil {
					return fmt.Errorf("pool %q: %w", pc.Name, err)
				}
				raw, err := asset.ParseUnits(side.amount, assets.Describe(cfg.Ethereum.ChainID, addr).Decimals())
				if err != nil {
					return fmt.Errorf("pool %q reserve: %w", pc.Name, err)
				}
				if err := ledger.SetBalance(tx, addr, pc.AddressHex(), raw); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

func routerFee(cfg *config.Config, name string) domain.Fee {
	for _, rc := range cfg.Routers {
		if rc.Name == name {
			return domain.Fee{Numerator: rc.FeeNumerator, Denominator: rc.FeeDenominator}
		}
	}
	return domain.DefaultFee
}
