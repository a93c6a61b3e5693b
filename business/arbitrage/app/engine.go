package app

import (
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.opentelemetry.io/otel"

	lendingApp "github.com/fd1az/flashloan-arb/business/lending/app"
	"github.com/fd1az/flashloan-arb/internal/ledger"
	"github.com/fd1az/flashloan-arb/internal/logger"
)

// EngineConfig holds the engine's collaborators.
type EngineConfig struct {
	Accounts  Accounts
	Reference common.Address
	Ledger    *ledger.Ledger
	Lender    lendingApp.Lender
	Pools     Pools
	Oracle    PriceOracle
	Risk      *RiskStore
	Logger    logger.LoggerInterface
	// Clock defaults to the ledger's clock.
	Clock func() time.Time
}

// Engine wires the components sharing one risk store, event bus and
// entry guard.
type Engine struct {
	Simulator    *Simulator
	Orchestrator *Orchestrator
	Governance   *Governance
	Custody      *Custody
	Sanity       *SanityChecker
	Guard        *LiquidityGuard
	Events       *EventBus
}

func NewEngine(cfg EngineConfig) (*Engine, error) {
	if cfg.Ledger == nil || cfg.Lender == nil || cfg.Pools == nil || cfg.Oracle == nil || cfg.Risk == nil || cfg.Logger == nil {
		return nil, fmt.Errorf("engine: missing collaborator")
	}
	if cfg.Accounts.Owner == (common.Address{}) || cfg.Accounts.Engine == (common.Address{}) {
		return nil, fmt.Errorf("engine: owner and engine accounts are required")
	}
	clock := cfg.Clock
	if clock == nil {
		clock = cfg.Ledger.Now
	}

	metrics, err := newEngineMetrics()
	if err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	events := NewEventBus()
	entry := &entryGuard{}
	guard := NewLiquidityGuard(cfg.Pools, metrics)
	sanity := NewSanityChecker(cfg.Oracle, cfg.Reference)
	sim := NewSimulator(cfg.Ledger, cfg.Pools, cfg.Oracle, cfg.Risk, guard, metrics)

	return &Engine{
		Simulator: sim,
		Orchestrator: &Orchestrator{
			accounts:  cfg.Accounts,
			ledger:    cfg.Ledger,
			lender:    cfg.Lender,
			pools:     cfg.Pools,
			oracle:    cfg.Oracle,
			risk:      cfg.Risk,
			guard:     guard,
			sanity:    sanity,
			simulator: sim,
			events:    events,
			entry:     entry,
			clock:     clock,
			logger:    cfg.Logger,
			tracer:    otel.Tracer(tracerName),
			metrics:   metrics,
		},
		Governance: &Governance{
			owner:   cfg.Accounts.Owner,
			risk:    cfg.Risk,
			events:  events,
			clock:   clock,
			logger:  cfg.Logger,
			metrics: metrics,
		},
		Custody: &Custody{
			accounts: cfg.Accounts,
			ledger:   cfg.Ledger,
			events:   events,
			entry:    entry,
			clock:    clock,
			logger:   cfg.Logger,
			metrics:  metrics,
		},
		Sanity: sanity,
		Guard:  guard,
		Events: events,
	}, nil
}
