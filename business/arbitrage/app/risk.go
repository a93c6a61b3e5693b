package app

import (
	"sync"

	"github.com/fd1az/flashloan-arb/business/arbitrage/domain"
)

// RiskStore holds the current risk parameters. Get and Set copy, so no
// caller can mutate the stored value.
type RiskStore struct {
	mu     sync.RWMutex
	params domain.RiskParameters
}

// NewRiskStore validates initial before storing it.
func NewRiskStore(initial domain.RiskParameters) (*RiskStore, error) {
	if err := initial.Validate(); err != nil {
		return nil, err
	}
	return &RiskStore{params: initial.Clone()}, nil
}

func (s *RiskStore) Get() domain.RiskParameters {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.params.Clone()
}

// Set replaces every field or none.
func (s *RiskStore) Set(p domain.RiskParameters) error {
	if err := p.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	s.params = p.Clone()
	s.mu.Unlock()
	return nil
}
