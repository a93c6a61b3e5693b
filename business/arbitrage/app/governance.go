package app

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/fd1az/flashloan-arb/business/arbitrage/domain"
	"github.com/fd1az/flashloan-arb/internal/apperror"
	"github.com/fd1az/flashloan-arb/internal/logger"
)

// Governance is the owner's control over the risk parameters.
type Governance struct {
	owner  common.Address
	risk   *RiskStore
	events *EventBus
	clock  func() time.Time

	logger  logger.LoggerInterface
	metrics *engineMetrics
}

// RiskParameters returns a copy of the current parameters.
func (g *Governance) RiskParameters(context.Context) domain.RiskParameters {
	return g.risk.Get()
}

// UpdateRiskParameters replaces all six parameters or none.
func (g *Governance) UpdateRiskParameters(ctx context.Context, caller common.Address, params domain.RiskParameters) error {
	if caller != g.owner {
		return apperror.New(apperror.CodeUnauthorizedCaller,
			apperror.WithContext("update risk parameters: "+caller.Hex()))
	}

	if err := g.risk.Set(params); err != nil {
		g.metrics.paramUpdates.Add(ctx, 1, metric.WithAttributes(attribute.String("result", "rejected")))
		return err
	}
	g.metrics.paramUpdates.Add(ctx, 1, metric.WithAttributes(attribute.String("result", "applied")))

	applied := g.risk.Get()
	g.events.Publish(domain.ParametersUpdated{Params: applied, At: g.clock()})
	g.logger.Info(ctx, "risk parameters updated",
		"min_profit", applied.MinProfit.String(),
		"slippage_bps", applied.SlippageToleranceBps,
		"gas_units", applied.GasCostEstimateUnits,
		"max_fee_unit_price", applied.MaxAcceptableFeeUnitPrice.String(),
		"premium_bps", applied.LoanPremiumBps,
		"deviation_bps", applied.PriceDeviationToleranceBps)
	return nil
}
