// Package di contains dependency injection tokens for the blockchain context.
package di

import (
	"github.com/fd1az/flashloan-arb/business/blockchain/app"
	"github.com/fd1az/flashloan-arb/internal/di"
)

// Public service tokens - exposed to other modules
var (
	BlockchainService = di.NewToken[*app.BlockchainService]("blockchain.BlockchainService")
	// GasOracle is nil when ethereum is disabled.
	GasOracle = di.NewToken[app.GasOracle]("blockchain.GasOracle")
)

// Private dependency tokens - internal to blockchain module
var (
	BlockSource = di.NewToken[app.BlockSource]("blockchain:blockSource")
)

// Helper functions for type-safe access
func GetBlockchainService(c di.ServiceRegistry) *app.BlockchainService {
	return di.GetToken(c, BlockchainService)
}

func GetBlockSource(c di.ServiceRegistry) app.BlockSource {
	return di.GetToken(c, BlockSource)
}

func GetGasOracle(c di.ServiceRegistry) app.GasOracle {
	return di.GetToken(c, GasOracle)
}
