package asset

import (
	"fmt"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// Registry is a thread-safe set of known assets.
type Registry struct {
	mu       sync.RWMutex
	byID     map[ID]*Asset
	bySymbol map[string][]*Asset
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byID:     make(map[ID]*Asset),
		bySymbol: make(map[string][]*Asset),
	}
}

// Register adds a. Registering the same ID twice panics.
func (r *Registry) Register(a *Asset) {
	if a == nil {
		panic("asset: cannot register nil asset")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byID[a.ID()]; exists {
		panic(fmt.Sprintf("asset: %s already registered", a.ID()))
	}
	r.byID[a.ID()] = a
	key := strings.ToUpper(a.Symbol())
	r.bySymbol[key] = append(r.bySymbol[key], a)
}

// Get looks up an asset by ID.
func (r *Registry) Get(id ID) (*Asset, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.byID[id]
	return a, ok
}

// GetToken looks up a token by chain and address.
func (r *Registry) GetToken(chainID uint64, addr common.Address) (*Asset, bool) {
	if addr == (common.Address{}) {
		return r.Get(NewNativeID(chainID))
	}
	return r.Get(NewTokenID(chainID, addr))
}

// GetBySymbol finds the asset with symbol on chainID, case-insensitively.
func (r *Registry) GetBySymbol(symbol string, chainID uint64) (*Asset, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, a := range r.bySymbol[strings.ToUpper(symbol)] {
		if a.ID().ChainID() == chainID {
			return a, true
		}
	}
	return nil, false
}

// Resolve accepts either a hex address or a symbol and returns the token
// address. Unknown hex addresses are accepted as-is.
func (r *Registry) Resolve(chainID uint64, s string) (common.Address, error) {
	s = strings.TrimSpace(s)
	if common.IsHexAddress(s) {
		return common.HexToAddress(s), nil
	}
	a, ok := r.GetBySymbol(s, chainID)
	if !ok {
		return common.Address{}, fmt.Errorf("asset: unknown token %q on chain %d", s, chainID)
	}
	return a.Address(), nil
}

// Describe returns the asset for addr, or a placeholder 18-decimal asset
// named after the short address so display code always has metadata.
func (r *Registry) Describe(chainID uint64, addr common.Address) *Asset {
	if a, ok := r.GetToken(chainID, addr); ok {
		return a
	}
	if addr == (common.Address{}) {
		return New(NewNativeID(chainID), "NATIVE", "", 18)
	}
	hex := addr.Hex()
	return New(NewTokenID(chainID, addr), hex[:6]+"…"+hex[len(hex)-4:], "", 18)
}

// All returns every registered asset.
func (r *Registry) All() []*Asset {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Asset, 0, len(r.byID))
	for _, a := range r.byID {
		out = append(out, a)
	}
	return out
}
