// Package store holds completed responses for an operation.
//
// Memory is the default: an exact LRU with a fixed TTL per entry, private to
// one process. Provider adapts any byte provider (ristretto, bigcache, redis)
// using a codec and generation-stamped framing.
package store

import (
	"context"
)

// Store is the cache contract operations depend on.
// Implementations must be safe for concurrent use.
type Store[V any] interface {
	// Get returns (v, true, nil) only for a present, unexpired entry.
	// Expired entries read as absent and are removed.
	Get(ctx context.Context, key string) (V, bool, error)
	// Put inserts or refreshes an entry with a fresh timestamp, evicting
	// the least recently used entry if the store is full.
	Put(ctx context.Context, key string, v V) error
	Remove(ctx context.Context, key string) error
	Clear(ctx context.Context) error
	Close(ctx context.Context) error
}

// EvictReason explains why an entry left a store without an explicit Remove or Clear.
type EvictReason string

const (
	EvictCapacity EvictReason = "capacity"
	EvictExpired  EvictReason = "expired"
)
