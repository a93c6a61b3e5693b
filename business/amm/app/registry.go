package app

import (
	"fmt"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/flashloan-arb/internal/apperror"
)

// Registry resolves pools by address and the router that serves each
// pool. It is populated at startup and read concurrently afterwards.
type Registry struct {
	mu         sync.RWMutex
	pairs      map[common.Address]Pair
	routers    map[string]Router
	pairRouter map[common.Address]string
}

func NewRegistry() *Registry {
	return &Registry{
		pairs:      make(map[common.Address]Pair),
		routers:    make(map[string]Router),
		pairRouter: make(map[common.Address]string),
	}
}

// AddRouter registers r under its name.
func (r *Registry) AddRouter(router Router) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.routers[router.Name()] = router
}

// AddPair registers p as served by the named router.
func (r *Registry) AddPair(p Pair, router string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.routers[router]; !ok {
		return fmt.Errorf("pool %s: unknown router %q", p.Address().Hex(), router)
	}
	r.pairs[p.Address()] = p
	r.pairRouter[p.Address()] = router
	return nil
}

// Pair looks up a pool by address.
func (r *Registry) Pair(addr common.Address) (Pair, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.pairs[addr]
	if !ok {
		return nil, apperror.New(apperror.CodeUnknownPool, apperror.WithContext(addr.Hex()))
	}
	return p, nil
}

// RouterFor returns the router serving the pool at addr.
func (r *Registry) RouterFor(addr common.Address) (Router, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	name, ok := r.pairRouter[addr]
	if !ok {
		return nil, apperror.New(apperror.CodeUnknownPool, apperror.WithContext(addr.Hex()))
	}
	return r.routers[name], nil
}

// Router looks up a router by name.
func (r *Registry) Router(name string) (Router, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rt, ok := r.routers[name]
	return rt, ok
}

// Pairs returns every pool, ordered by address.
func (r *Registry) Pairs() []Pair {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Pair, 0, len(r.pairs))
	for _, p := range r.pairs {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Address().Cmp(out[j].Address()) < 0
	})
	return out
}

// Routers returns every router, ordered by name.
func (r *Registry) Routers() []Router {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Router, 0, len(r.routers))
	for _, rt := range r.routers {
		out = append(out, rt)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}
