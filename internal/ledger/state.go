package ledger

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

type balanceKey struct {
	token  common.Address
	holder common.Address
}

type allowanceKey struct {
	token   common.Address
	owner   common.Address
	spender common.Address
}

// state is an immutable committed ledger. Commits publish a new state;
// readers holding an old pointer keep a consistent view.
type state struct {
	version    uint64
	balances   map[balanceKey]*big.Int
	allowances map[allowanceKey]*big.Int
}

func emptyState() *state {
	return &state{
		balances:   make(map[balanceKey]*big.Int),
		allowances: make(map[allowanceKey]*big.Int),
	}
}

func (s *state) BalanceOf(token, holder common.Address) *big.Int {
	if v, ok := s.balances[balanceKey{token, holder}]; ok {
		return new(big.Int).Set(v)
	}
	return new(big.Int)
}

func (s *state) Allowance(token, owner, spender common.Address) *big.Int {
	if v, ok := s.allowances[allowanceKey{token, owner, spender}]; ok {
		return new(big.Int).Set(v)
	}
	return new(big.Int)
}

func (s *state) Version() uint64 { return s.version }

// apply returns a new state with the overlay written on top. Zero values
// are dropped so the maps stay small.
func (s *state) apply(balances map[balanceKey]*big.Int, allowances map[allowanceKey]*big.Int) *state {
	next := &state{
		version:    s.version + 1,
		balances:   make(map[balanceKey]*big.Int, len(s.balances)+len(balances)),
		allowances: make(map[allowanceKey]*big.Int, len(s.allowances)+len(allowances)),
	}
	for k, v := range s.balances {
		next.balances[k] = v
	}
	for k, v := range s.allowances {
		next.allowances[k] = v
	}
	for k, v := range balances {
		if v.Sign() == 0 {
			delete(next.balances, k)
			continue
		}
		next.balances[k] = v
	}
	for k, v := range allowances {
		if v.Sign() == 0 {
			delete(next.allowances, k)
			continue
		}
		next.allowances[k] = v
	}
	return next
}
