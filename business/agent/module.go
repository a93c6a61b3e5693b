// Package agent implements the block-driven agent: it scans the configured
// round trips on every block, sends the best one to the engine and alerts
// the operator.
package agent

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/fd1az/flashloan-arb/business/agent/app"
	agentDI "github.com/fd1az/flashloan-arb/business/agent/di"
	"github.com/fd1az/flashloan-arb/business/agent/domain"
	"github.com/fd1az/flashloan-arb/business/agent/infra/telegram"
	ammDI "github.com/fd1az/flashloan-arb/business/amm/di"
	"github.com/fd1az/flashloan-arb/business/amm/infra/uniswapv2"
	"github.com/fd1az/flashloan-arb/business/arbitrage"
	arbDI "github.com/fd1az/flashloan-arb/business/arbitrage/di"
	arbInfra "github.com/fd1az/flashloan-arb/business/arbitrage/infra"
	blockchainDI "github.com/fd1az/flashloan-arb/business/blockchain/di"
	blockchainDomain "github.com/fd1az/flashloan-arb/business/blockchain/domain"
	"github.com/fd1az/flashloan-arb/internal/asset"
	"github.com/fd1az/flashloan-arb/internal/config"
	"github.com/fd1az/flashloan-arb/internal/di"
	"github.com/fd1az/flashloan-arb/internal/ledger"
	"github.com/fd1az/flashloan-arb/internal/monolith"
	"github.com/fd1az/flashloan-arb/internal/ratelimit"
)

// Module implements the agent bounded context.
type Module struct{}

func (m *Module) RegisterServices(c di.Container) error {
	di.RegisterToken(c, agentDI.Alerter, func(sr di.ServiceRegistry) app.Alerter {
		cfg := monolith.ConfigFrom(sr)
		if !cfg.Alerting.Enabled {
			return nil
		}
		a, err := telegram.NewAlerter(telegram.Config{
			BaseURL:  cfg.Alerting.BaseURL,
			BotToken: cfg.Alerting.BotToken,
			ChatID:   cfg.Alerting.ChatID,
			Timeout:  cfg.Alerting.Timeout,
		}, monolith.LoggerFrom(sr))
		if err != nil {
			panic("failed to create telegram alerter: " + err.Error())
		}
		return a
	})

	di.RegisterToken(c, agentDI.Agent, func(sr di.ServiceRegistry) *app.Agent {
		cfg := monolith.ConfigFrom(sr)
		assets := monolith.AssetsFrom(sr)
		l := monolith.LedgerFrom(sr)

		agentCfg, err := BuildConfig(cfg, assets)
		if err != nil {
			panic("invalid agent config: " + err.Error())
		}

		engine := arbDI.GetEngine(sr)
		svc := blockchainDI.GetBlockchainService(sr)
		deps := app.Deps{
			Blocks:    svc,
			Simulator: engine.Simulator,
			Executor:  engine.Orchestrator,
			Reporter:  arbDI.GetReporter(sr),
			Limiter:   ratelimit.New(cfg.Agent.SimulationsPerSec, 1),
			Amounts:   arbInfra.NewFormatter(assets, cfg.Ethereum.ChainID),
			Clock:     l.Now,
			Logger:    monolith.LoggerFrom(sr),
		}
		if svc.HasGasOracle() {
			deps.FeeMarket = svc
		}
		if alerter := agentDI.GetAlerter(sr); alerter != nil {
			deps.Alerter = alerter
		}
		if mirror := ammDI.GetMirror(sr); mirror != nil && cfg.Agent.SyncReserves {
			deps.Syncer = mirrorSyncer{mirror: mirror, ledger: l}
		}

		a, err := app.NewAgent(agentCfg, deps)
		if err != nil {
			panic("failed to create agent: " + err.Error())
		}
		return a
	})
	return nil
}

// Startup forwards engine events to the alerter and starts the block loop.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	log := mono.Logger()
	cfg := mono.Config()

	if alerter := agentDI.GetAlerter(mono.Services()); alerter != nil {
		engine := arbDI.GetEngine(mono.Services())
		feed, cancel := engine.Events.Subscribe(0)
		f := arbInfra.NewFormatter(mono.AssetRegistry(), cfg.Ethereum.ChainID)
		go func() {
			defer cancel()
			app.ForwardAlerts(ctx, feed, f, alerter)
		}()
	}

	if !cfg.Agent.Enabled {
		log.Info(ctx, "agent disabled")
		return nil
	}

	a := agentDI.GetAgent(mono.Services())
	if err := a.Start(ctx); err != nil {
		return fmt.Errorf("start agent: %w", err)
	}
	mono.Health().RegisterCheck("agent", func(context.Context) (bool, string) {
		return true, fmt.Sprintf("last block %d", a.LastBlock())
	})

	log.Info(ctx, "agent module started",
		"pairs", len(cfg.Agent.Pairs),
		"loan_amounts", cfg.Agent.LoanAmounts,
		"alerting", cfg.Alerting.Enabled)
	return nil
}

type mirrorSyncer struct {
	mirror *uniswapv2.Mirror
	ledger *ledger.Ledger
}

func (s mirrorSyncer) Sync(ctx context.Context) error { return s.mirror.Sync(ctx, s.ledger) }

// BuildConfig converts the agent section to base units. Loan amounts,
// profit and gas cost are denominated in the reference asset.
func BuildConfig(cfg *config.Config, assets *asset.Registry) (app.Config, error) {
	ref, err := arbitrage.ReferenceAsset(cfg, assets)
	if err != nil {
		return app.Config{}, err
	}
	dec := ref.Decimals()
	ac := cfg.Agent

	pairs, err := BuildPairs(ac.Pairs, cfg.Ethereum.ChainID, assets)
	if err != nil {
		return app.Config{}, err
	}

	amounts := make([]*big.Int, 0, len(ac.LoanAmounts))
	for _, s := range ac.LoanAmounts {
		v, err := asset.ParseUnits(s, dec)
		if err != nil {
			return app.Config{}, fmt.Errorf("agent.loan_amounts: %w", err)
		}
		amounts = append(amounts, v)
	}
	minProfit, err := asset.ParseUnits(ac.MinProfit, dec)
	if err != nil {
		return app.Config{}, fmt.Errorf("agent.min_profit: %w", err)
	}
	fallback, err := asset.ParseUnits(ac.FallbackGasCost, dec)
	if err != nil {
		return app.Config{}, fmt.Errorf("agent.fallback_gas_cost: %w", err)
	}
	maxGas, err := decimal.NewFromString(ac.MaxGasPriceGwei)
	if err != nil {
		return app.Config{}, fmt.Errorf("agent.max_gas_price_gwei: %w", err)
	}
	prio, err := decimal.NewFromString(ac.BasePriorityFeeGwei)
	if err != nil {
		return app.Config{}, fmt.Errorf("agent.base_priority_fee_gwei: %w", err)
	}

	return app.Config{
		Owner:           cfg.Engine.OwnerHex(),
		Pairs:           pairs,
		LoanAmounts:     amounts,
		MinProfit:       minProfit,
		GasEstimate:     ac.GasEstimate,
		GasBuffer:       decimal.NewFromFloat(ac.GasBuffer),
		FallbackGasCost: fallback,
		Ceiling: domain.FeeCeiling{
			PriorityCap: blockchainDomain.GweiToWei(prio),
			Max:         blockchainDomain.GweiToWei(maxGas),
		},
		DeadlineDelta:  ac.DeadlineDelta,
		InitialBackoff: ac.InitialBackoff,
		MaxBackoff:     ac.MaxBackoff,
	}, nil
}

// BuildPairs resolves configured pairs. Path entries are symbols or hex
// addresses; the traded asset is the first token of the outbound path.
func BuildPairs(pcs []config.PairConfig, chainID uint64, assets *asset.Registry) ([]domain.Pair, error) {
	resolve := func(name string, syms []string) ([]common.Address, error) {
		out := make([]common.Address, 0, len(syms))
		for _, s := range syms {
			addr, err := assets.Resolve(chainID, s)
			if err != nil {
				return nil, fmt.Errorf("pair %q: %w", name, err)
			}
			out = append(out, addr)
		}
		return out, nil
	}

	pairs := make([]domain.Pair, 0, len(pcs))
	for _, pc := range pcs {
		if !common.IsHexAddress(pc.PoolA) || !common.IsHexAddress(pc.PoolB) {
			return nil, fmt.Errorf("pair %q: invalid pool address", pc.Name)
		}
		out, err := resolve(pc.Name, pc.PathOut)
		if err != nil {
			return nil, err
		}
		back, err := resolve(pc.Name, pc.PathBack)
		if err != nil {
			return nil, err
		}
		if len(out) < 2 || len(back) < 2 {
			return nil, fmt.Errorf("pair %q: paths need at least two tokens", pc.Name)
		}
		pairs = append(pairs, domain.Pair{
			Name:     pc.Name,
			Asset:    out[0],
			PoolA:    common.HexToAddress(pc.PoolA),
			PoolB:    common.HexToAddress(pc.PoolB),
			PathOut:  out,
			PathBack: back,
		})
	}
	return pairs, nil
}
