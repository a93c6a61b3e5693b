// Package arbitrage implements the flash-loan round-trip engine and its
// operator surface.
package arbitrage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	ammDI "github.com/fd1az/flashloan-arb/business/amm/di"
	"github.com/fd1az/flashloan-arb/business/arbitrage/app"
	arbDI "github.com/fd1az/flashloan-arb/business/arbitrage/di"
	"github.com/fd1az/flashloan-arb/business/arbitrage/domain"
	"github.com/fd1az/flashloan-arb/business/arbitrage/infra/httpapi"
	blockchainDomain "github.com/fd1az/flashloan-arb/business/blockchain/domain"
	lendingDI "github.com/fd1az/flashloan-arb/business/lending/di"
	oracleDI "github.com/fd1az/flashloan-arb/business/oracle/di"
	"github.com/fd1az/flashloan-arb/internal/asset"
	"github.com/fd1az/flashloan-arb/internal/config"
	"github.com/fd1az/flashloan-arb/internal/di"
	"github.com/fd1az/flashloan-arb/internal/monolith"
)

const apiShutdownTimeout = 5 * time.Second

// Module implements the arbitrage bounded context.
type Module struct {
	// Reporter, when set, receives every engine event and agent scan.
	Reporter app.Reporter
}

func (m *Module) RegisterServices(c di.Container) error {
	di.RegisterToken(c, arbDI.RiskStore, func(sr di.ServiceRegistry) *app.RiskStore {
		cfg := monolith.ConfigFrom(sr)
		ref, err := ReferenceAsset(cfg, monolith.AssetsFrom(sr))
		if err != nil {
			panic("failed to resolve reference asset: " + err.Error())
		}
		params, err := RiskParameters(cfg.Risk, ref.Decimals())
		if err != nil {
			panic("invalid risk parameters: " + err.Error())
		}
		store, err := app.NewRiskStore(params)
		if err != nil {
			panic("invalid risk parameters: " + err.Error())
		}
		return store
	})

	di.RegisterToken(c, arbDI.Engine, func(sr di.ServiceRegistry) *app.Engine {
		cfg := monolith.ConfigFrom(sr)
		ref, err := ReferenceAsset(cfg, monolith.AssetsFrom(sr))
		if err != nil {
			panic("failed to resolve reference asset: " + err.Error())
		}
		engine, err := app.NewEngine(app.EngineConfig{
			Accounts: app.Accounts{
				Owner:  cfg.Engine.OwnerHex(),
				Engine: cfg.Engine.AccountHex(),
			},
			Reference: ref.Address(),
			Ledger:    monolith.LedgerFrom(sr),
			Lender:    lendingDI.GetFacility(sr),
			Pools:     ammDI.GetRegistry(sr),
			Oracle:    oracleDI.GetGateway(sr),
			Risk:      arbDI.GetRiskStore(sr),
			Logger:    monolith.LoggerFrom(sr),
		})
		if err != nil {
			panic("failed to create arbitrage engine: " + err.Error())
		}
		return engine
	})

	di.RegisterToken(c, arbDI.Reporter, func(di.ServiceRegistry) app.Reporter {
		return m.Reporter
	})
	return nil
}

// Startup attaches the reporter, registers the engine health check and
// starts the operator API.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	log := mono.Logger()
	cfg := mono.Config()
	engine := arbDI.GetEngine(mono.Services())

	mono.Health().RegisterCheck("engine", func(ctx context.Context) (bool, string) {
		p := engine.Governance.RiskParameters(ctx)
		return true, fmt.Sprintf("in_flight=%t subscribers=%d dropped=%d min_profit=%s",
			engine.Orchestrator.InFlight(), engine.Events.Subscribers(), engine.Events.Dropped(), p.MinProfit)
	})

	if m.Reporter != nil {
		feed, cancel := engine.Events.Subscribe(0)
		go func() {
			defer cancel()
			app.Forward(ctx, feed, m.Reporter)
		}()
	}

	if cfg.API.Enabled {
		srv := httpapi.NewServer(httpapi.Config{
			Port:            cfg.API.Port,
			OwnerToken:      cfg.API.OwnerToken,
			CORSOrigins:     SplitOrigins(cfg.API.CORSOrigins),
			DefaultDeadline: cfg.Agent.DeadlineDelta,
		}, engine, cfg.Engine.OwnerHex(), mono.Ledger().Now, log)
		if err := srv.Start(); err != nil {
			return err
		}
		go func() {
			<-ctx.Done()
			sctx, cancel := context.WithTimeout(context.Background(), apiShutdownTimeout)
			defer cancel()
			srv.Stop(sctx)
		}()
		if cfg.API.OwnerToken == "" {
			log.Warn(ctx, "operator api has no owner token; owner routes will reject every caller")
		}
	}

	p := engine.Governance.RiskParameters(ctx)
	log.Info(ctx, "arbitrage module started",
		"owner", cfg.Engine.Owner,
		"engine", engine.Orchestrator.Address().Hex(),
		"reference", cfg.Engine.ReferenceAsset,
		"min_profit", p.MinProfit.String(),
		"slippage_bps", p.SlippageToleranceBps,
		"max_fee_unit_price", p.MaxAcceptableFeeUnitPrice.String(),
		"api", cfg.API.Enabled)
	return nil
}

// ReferenceAsset resolves the configured reference asset.
func ReferenceAsset(cfg *config.Config, assets *asset.Registry) (*asset.Asset, error) {
	addr, err := assets.Resolve(cfg.Ethereum.ChainID, cfg.Engine.ReferenceAsset)
	if err != nil {
		return nil, err
	}
	return assets.Describe(cfg.Ethereum.ChainID, addr), nil
}

// RiskParameters converts the configured decimal amounts to base units.
func RiskParameters(rc config.RiskConfig, decimals uint8) (domain.RiskParameters, error) {
	minProfit, err := asset.ParseUnits(rc.MinProfit, decimals)
	if err != nil {
		return domain.RiskParameters{}, fmt.Errorf("risk.min_profit: %w", err)
	}
	maxFee, err := decimal.NewFromString(rc.MaxFeeUnitPriceGwei)
	if err != nil {
		return domain.RiskParameters{}, fmt.Errorf("risk.max_fee_unit_price_gwei: %w", err)
	}
	p := domain.RiskParameters{
		MinProfit:                  minProfit,
		SlippageToleranceBps:       rc.SlippageToleranceBps,
		GasCostEstimateUnits:       rc.GasCostEstimateUnits,
		MaxAcceptableFeeUnitPrice:  blockchainDomain.GweiToWei(maxFee),
		LoanPremiumBps:             rc.LoanPremiumBps,
		PriceDeviationToleranceBps: rc.PriceDeviationToleranceBps,
	}
	return p, p.Validate()
}

// SplitOrigins parses a comma-separated origin list.
func SplitOrigins(s string) []string {
	var out []string
	for _, o := range strings.Split(s, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}
