// Package blockchain implements the blockchain bounded context: block
// delivery and fee-market reads.
package blockchain

import (
	"context"
	"fmt"

	"github.com/fd1az/flashloan-arb/business/blockchain/app"
	blockchainDI "github.com/fd1az/flashloan-arb/business/blockchain/di"
	"github.com/fd1az/flashloan-arb/business/blockchain/domain"
	"github.com/fd1az/flashloan-arb/business/blockchain/infra/ethereum"
	"github.com/fd1az/flashloan-arb/business/blockchain/infra/ticker"
	"github.com/fd1az/flashloan-arb/internal/di"
	"github.com/fd1az/flashloan-arb/internal/monolith"
)

// Module implements the blockchain bounded context.
type Module struct{}

// RegisterServices registers all blockchain services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	// Block source: node subscriber, or a ticker when running without one
	di.RegisterToken(c, blockchainDI.BlockSource, func(sr di.ServiceRegistry) app.BlockSource {
		cfg := monolith.ConfigFrom(sr)
		log := monolith.LoggerFrom(sr)

		if !cfg.Ethereum.Enabled {
			tcfg := ticker.DefaultConfig()
			if cfg.Agent.PollInterval > 0 {
				tcfg.Interval = cfg.Agent.PollInterval
			}
			return ticker.NewSource(tcfg, log)
		}

		subCfg := ethereum.DefaultSubscriberConfig(cfg.Ethereum.WebSocketURL, cfg.Ethereum.HTTPURL)
		if cfg.Ethereum.PollInterval > 0 {
			subCfg.PollInterval = cfg.Ethereum.PollInterval
		}
		if cfg.Ethereum.ReconnectDelay > 0 {
			subCfg.ReconnectDelay = cfg.Ethereum.ReconnectDelay
		}
		sub, err := ethereum.NewSubscriber(subCfg, log)
		if err != nil {
			panic("failed to create subscriber: " + err.Error())
		}
		return sub
	})

	di.RegisterToken(c, blockchainDI.GasOracle, func(sr di.ServiceRegistry) app.GasOracle {
		cfg := monolith.ConfigFrom(sr)
		if !cfg.Ethereum.Enabled {
			return nil
		}
		log := monolith.LoggerFrom(sr)

		opts := []ethereum.GasOracleOption{}
		if client := monolith.EthClientFrom(sr); client != nil {
			opts = append(opts, ethereum.WithFeeClient(client))
		}
		oracle, err := ethereum.NewGasOracle(ethereum.DefaultGasOracleConfig(cfg.Ethereum.HTTPURL), log, opts...)
		if err != nil {
			panic("failed to create gas oracle: " + err.Error())
		}
		return oracle
	})

	di.RegisterToken(c, blockchainDI.BlockchainService, func(sr di.ServiceRegistry) *app.BlockchainService {
		return app.NewBlockchainService(blockchainDI.GetBlockSource(sr), blockchainDI.GetGasOracle(sr))
	})

	return nil
}

// Startup connects node clients and registers the block source health check.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	log := mono.Logger()
	cfg := mono.Config()

	source := blockchainDI.GetBlockSource(mono.Services())
	oracle := blockchainDI.GetGasOracle(mono.Services())

	if connector, ok := source.(interface{ Connect(context.Context) error }); ok {
		if err := connector.Connect(ctx); err != nil {
			log.Error(ctx, "failed to connect block subscriber", "error", err)
			// Don't fail - will retry on Subscribe
		}
	}
	if sub, ok := source.(*ethereum.Subscriber); ok {
		if id, err := sub.GetChainID(ctx); err == nil && id.Uint64() != cfg.Ethereum.ChainID {
			return fmt.Errorf("node chain id %s does not match configured %d", id, cfg.Ethereum.ChainID)
		}
	}

	if oracle != nil {
		if connector, ok := oracle.(interface{ Connect(context.Context) error }); ok {
			if err := connector.Connect(ctx); err != nil {
				log.Error(ctx, "failed to connect gas oracle", "error", err)
			}
		}
	}

	mono.Health().RegisterCheck("blocks", func(context.Context) (bool, string) {
		st := source.State()
		// Nothing subscribes without the agent, so an idle source is fine.
		healthy := st == domain.StateConnected || (!cfg.Agent.Enabled && st == domain.StateDisconnected)
		return healthy, fmt.Sprintf("block source %s, last block %d", st, source.Status().LastBlock)
	})

	log.Info(ctx, "blockchain module started", "synthetic", !cfg.Ethereum.Enabled)
	return nil
}
