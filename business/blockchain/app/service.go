package app

import (
	"context"

	"github.com/fd1az/flashloan-arb/business/blockchain/domain"
	"github.com/fd1az/flashloan-arb/internal/apperror"
)

// BlockchainService coordinates block delivery and fee reads. The gas
// oracle is nil when running without a node.
type BlockchainService struct {
	source    BlockSource
	gasOracle GasOracle
}

// NewBlockchainService creates a new BlockchainService.
func NewBlockchainService(source BlockSource, gasOracle GasOracle) *BlockchainService {
	return &BlockchainService{
		source:    source,
		gasOracle: gasOracle,
	}
}

// SubscribeBlocks starts the block subscription and returns the channel.
func (s *BlockchainService) SubscribeBlocks(ctx context.Context) (<-chan *domain.Block, error) {
	return s.source.Subscribe(ctx)
}

// HasGasOracle reports whether fee reads reach a node.
func (s *BlockchainService) HasGasOracle() bool { return s.gasOracle != nil }

// GetGasPrice retrieves the current gas price.
func (s *BlockchainService) GetGasPrice(ctx context.Context) (*domain.GasPrice, error) {
	if s.gasOracle == nil {
		return nil, errNoOracle()
	}
	return s.gasOracle.GetGasPrice(ctx)
}

// GetFeeQuote retrieves the base fee and tip cap.
func (s *BlockchainService) GetFeeQuote(ctx context.Context) (*domain.FeeQuote, error) {
	if s.gasOracle == nil {
		return nil, errNoOracle()
	}
	return s.gasOracle.GetFeeQuote(ctx)
}

// ConnectionState returns the current connection state.
func (s *BlockchainService) ConnectionState() domain.ConnectionState {
	return s.source.State()
}

// Status returns the block source status.
func (s *BlockchainService) Status() domain.ConnectionStatus {
	return s.source.Status()
}

func errNoOracle() error {
	return apperror.New(apperror.CodeEthereumConnectionFailed,
		apperror.WithContext("no gas oracle: ethereum is disabled"))
}
