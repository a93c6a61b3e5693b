// Package app contains application services and port definitions for the blockchain context.
package app

import (
	"context"
	"math/big"

	"github.com/fd1az/flashloan-arb/business/blockchain/domain"
)

// BlockSource delivers new blocks. Implementations only emit block
// numbers strictly greater than the last one emitted.
type BlockSource interface {
	// Subscribe starts listening for new blocks and returns a channel of blocks.
	Subscribe(ctx context.Context) (<-chan *domain.Block, error)

	// LatestBlock retrieves the most recent block.
	LatestBlock(ctx context.Context) (*domain.Block, error)

	// State returns the current connection state.
	State() domain.ConnectionState

	// Status returns detailed connection information.
	Status() domain.ConnectionStatus
}

// GasOracle reads the fee market.
type GasOracle interface {
	// GetGasPrice retrieves the current suggested gas price.
	GetGasPrice(ctx context.Context) (*domain.GasPrice, error)

	// GetGasTipCap retrieves the suggested EIP-1559 priority fee.
	GetGasTipCap(ctx context.Context) (*big.Int, error)

	// GetFeeQuote reads the latest base fee together with the tip cap.
	GetFeeQuote(ctx context.Context) (*domain.FeeQuote, error)
}
