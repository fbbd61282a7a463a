package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jellydator/ttlcache/v3"
)

type MemoryConfig struct {
	Capacity int           // max entries; required
	TTL      time.Duration // lifetime from insertion; required
	// OnEvict observes capacity and expiry evictions. It may run on another
	// goroutine; it must not block and must not call back into the store.
	OnEvict func(key string, reason EvictReason)
}

// Memory is an in-process LRU with a fixed TTL. Reads move an entry to the
// front of the LRU list but never extend its lifetime.
type Memory[V any] struct {
	c           *ttlcache.Cache[string, V]
	unsubscribe func()
	closeOnce   sync.Once
}

var _ Store[struct{}] = (*Memory[struct{}])(nil)

func NewMemory[V any](cfg MemoryConfig) (*Memory[V], error) {
	if cfg.Capacity <= 0 {
		return nil, errors.New("store: capacity must be positive")
	}
	if cfg.TTL <= 0 {
		return nil, errors.New("store: ttl must be positive")
	}

	c := ttlcache.New[string, V](
		ttlcache.WithTTL[string, V](cfg.TTL),
		ttlcache.WithCapacity[string, V](uint64(cfg.Capacity)),
		ttlcache.WithDisableTouchOnHit[string, V](),
	)
	m := &Memory[V]{c: c, unsubscribe: func() {}}

	if cfg.OnEvict != nil {
		onEvict := cfg.OnEvict
		m.unsubscribe = c.OnEviction(func(_ context.Context, reason ttlcache.EvictionReason, item *ttlcache.Item[string, V]) {
			switch reason {
			case ttlcache.EvictionReasonCapacityReached:
				onEvict(item.Key(), EvictCapacity)
			case ttlcache.EvictionReasonExpired:
				onEvict(item.Key(), EvictExpired)
			}
		})
	}

	go c.Start()
	return m, nil
}

func (m *Memory[V]) Get(_ context.Context, key string) (V, bool, error) {
	if it := m.c.Get(key); it != nil {
		return it.Value(), true, nil
	}
	// drop anything already past its TTL, including key itself
	m.c.DeleteExpired()
	var zero V
	return zero, false, nil
}

func (m *Memory[V]) Put(_ context.Context, key string, v V) error {
	// expired entries still occupy capacity until deleted; clear them first
	// so they are never chosen over a live entry for eviction
	m.c.DeleteExpired()
	m.c.Set(key, v, ttlcache.DefaultTTL)
	return nil
}

func (m *Memory[V]) Remove(_ context.Context, key string) error {
	m.c.Delete(key)
	return nil
}

func (m *Memory[V]) Clear(_ context.Context) error {
	m.c.DeleteAll()
	return nil
}

// Len counts stored entries, including expired ones not yet removed.
func (m *Memory[V]) Len() int { return m.c.Len() }

// Contains reports whether key holds an unexpired entry without counting as a use.
func (m *Memory[V]) Contains(key string) bool {
	return m.c.Has(key)
}

func (m *Memory[V]) Close(_ context.Context) error {
	m.closeOnce.Do(func() {
		m.unsubscribe()
		m.c.Stop()
	})
	return nil
}
