// Package oracle implements the price oracle context: the reference price
// and the execution fee-unit price.
package oracle

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum"

	blockchainApp "github.com/fd1az/flashloan-arb/business/blockchain/app"
	blockchainDI "github.com/fd1az/flashloan-arb/business/blockchain/di"
	"github.com/fd1az/flashloan-arb/business/oracle/app"
	oracleDI "github.com/fd1az/flashloan-arb/business/oracle/di"
	"github.com/fd1az/flashloan-arb/business/oracle/infra/chainlink"
	"github.com/fd1az/flashloan-arb/business/oracle/infra/gasfeed"
	"github.com/fd1az/flashloan-arb/business/oracle/infra/static"
	"github.com/fd1az/flashloan-arb/internal/config"
	"github.com/fd1az/flashloan-arb/internal/di"
	"github.com/fd1az/flashloan-arb/internal/logger"
	"github.com/fd1az/flashloan-arb/internal/monolith"
)

// Module implements the oracle bounded context.
type Module struct{}

// RegisterServices registers the gateway.
func (m *Module) RegisterServices(c di.Container) error {
	di.RegisterToken(c, oracleDI.Gateway, func(sr di.ServiceRegistry) *app.Gateway {
		cfg := monolith.ConfigFrom(sr)
		log := monolith.LoggerFrom(sr)

		var caller ethereum.ContractCaller
		if client := monolith.EthClientFrom(sr); client != nil {
			caller = client
		}
		gas := blockchainDI.GetGasOracle(sr)

		ref, err := BuildFeed("reference", cfg.Oracle.Reference, caller, nil, log)
		if err != nil {
			panic("failed to build reference feed: " + err.Error())
		}
		fee, err := BuildFeed("fee_unit", cfg.Oracle.FeeUnit, caller, gas, log)
		if err != nil {
			panic("failed to build fee-unit feed: " + err.Error())
		}

		gw, err := app.NewGateway(ref, fee, app.WithMaxAge(cfg.Oracle.MaxAge))
		if err != nil {
			panic("failed to create oracle gateway: " + err.Error())
		}
		return gw
	})
	return nil
}

// Startup registers one health check per feed.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	gw := oracleDI.GetGateway(mono.Services())

	mono.Health().RegisterCheck("oracle.reference", func(ctx context.Context) (bool, string) {
		p, err := gw.ReferencePrice(ctx)
		if err != nil {
			return false, err.Error()
		}
		return true, fmt.Sprintf("%s = %s", gw.ReferenceFeed().Name(), p)
	})
	mono.Health().RegisterCheck("oracle.fee_unit", func(ctx context.Context) (bool, string) {
		p, err := gw.FeeUnitPrice(ctx)
		if err != nil {
			return false, err.Error()
		}
		return true, fmt.Sprintf("%s = %s wei", gw.FeeUnitFeed().Name(), p)
	})

	mono.Logger().Info(ctx, "oracle module started",
		"reference", gw.ReferenceFeed().Name(),
		"fee_unit", gw.FeeUnitFeed().Name())
	return nil
}

// BuildFeed creates the feed fc selects. Chainlink feeds need a caller
// and the "gas" source needs a gas oracle.
func BuildFeed(name string, fc config.FeedConfig, caller ethereum.ContractCaller, gas blockchainApp.GasOracle, log logger.LoggerInterface) (app.PriceFeed, error) {
	switch fc.Source {
	case "", "static":
		return static.New(name, fc.ValueDecimal(), fc.Decimals), nil
	case "chainlink":
		if caller == nil {
			return nil, fmt.Errorf("%s: chainlink feed requires ethereum", name)
		}
		return chainlink.NewFeed(name, fc.AddressHex(), caller, log)
	case "gas":
		if gas == nil {
			return nil, fmt.Errorf("%s: gas feed requires ethereum", name)
		}
		return gasfeed.New(gas), nil
	default:
		return nil, fmt.Errorf("%s: unknown feed source %q", name, fc.Source)
	}
}
