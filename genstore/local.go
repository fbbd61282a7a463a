package genstore

import (
	"context"
	"sync"
)

// Local keeps generations in memory. Namespaces are endpoint names, a small
// fixed set, so nothing is ever pruned.
type Local struct {
	mu   sync.RWMutex
	gens map[string]uint64
}

var _ GenStore = (*Local)(nil)

func NewLocal() *Local {
	return &Local{gens: make(map[string]uint64)}
}

func (s *Local) Snapshot(_ context.Context, ns string) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.gens[ns], nil
}

func (s *Local) Bump(_ context.Context, ns string) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gens[ns]++
	return s.gens[ns], nil
}

func (s *Local) Close(context.Context) error { return nil }
