// Package ticker provides a synthetic block source for running without a
// node: it emits a new block number on every tick.
package ticker

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/flashloan-arb/business/blockchain/app"
	"github.com/fd1az/flashloan-arb/business/blockchain/domain"
	"github.com/fd1az/flashloan-arb/internal/logger"
)

var _ app.BlockSource = (*Source)(nil)

// Config configures the ticker source.
type Config struct {
	Interval   time.Duration
	StartBlock uint64
	GasLimit   uint64
	BufferSize int
}

// DefaultConfig returns a 1s ticker.
func DefaultConfig() Config {
	return Config{
		Interval:   time.Second,
		StartBlock: 1,
		GasLimit:   30_000_000,
		BufferSize: 16,
	}
}

// Source emits synthetic blocks.
type Source struct {
	config Config
	logger logger.LoggerInterface
	clock  func() time.Time

	lastBlock atomic.Uint64
	running   atomic.Bool
	startOnce sync.Once
	blocks    chan *domain.Block
}

// NewSource creates a ticker source.
func NewSource(cfg Config, log logger.LoggerInterface) *Source {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Second
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 16
	}
	s := &Source{
		config: cfg,
		logger: log,
		clock:  time.Now,
		blocks: make(chan *domain.Block, cfg.BufferSize),
	}
	if cfg.StartBlock > 0 {
		s.lastBlock.Store(cfg.StartBlock - 1)
	}
	return s
}

// Subscribe starts the ticker. It may only be called once; the channel is
// closed when ctx is done.
func (s *Source) Subscribe(ctx context.Context) (<-chan *domain.Block, error) {
	started := false
	s.startOnce.Do(func() {
		started = true
		s.running.Store(true)
		go s.run(ctx)
	})
	if !started {
		return nil, errors.New("ticker source already subscribed")
	}
	return s.blocks, nil
}

func (s *Source) run(ctx context.Context) {
	t := time.NewTicker(s.config.Interval)
	defer t.Stop()
	defer close(s.blocks)
	defer s.running.Store(false)

	s.logger.Info(ctx, "synthetic block source started", "interval", s.config.Interval)

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			b := s.next()
			select {
			case s.blocks <- b:
			default:
				s.logger.Warn(ctx, "block dropped, buffer full", "number", b.Number)
			}
		}
	}
}

func (s *Source) next() *domain.Block {
	n := s.lastBlock.Add(1)
	return s.block(n)
}

func (s *Source) block(n uint64) *domain.Block {
	return &domain.Block{
		Number:     n,
		Hash:       syntheticHash(n),
		ParentHash: syntheticHash(n - 1),
		Timestamp:  s.clock(),
		GasLimit:   s.config.GasLimit,
	}
}

// LatestBlock returns the last emitted block.
func (s *Source) LatestBlock(_ context.Context) (*domain.Block, error) {
	return s.block(s.lastBlock.Load()), nil
}

func (s *Source) State() domain.ConnectionState {
	if s.running.Load() {
		return domain.StateConnected
	}
	return domain.StateDisconnected
}

func (s *Source) Status() domain.ConnectionStatus {
	return domain.ConnectionStatus{
		State:      s.State(),
		LastBlock:  s.lastBlock.Load(),
		LastUpdate: s.clock(),
		Synthetic:  true,
	}
}

func syntheticHash(n uint64) common.Hash {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], n)
	return common.Hash(sha256.Sum256(buf[:]))
}
