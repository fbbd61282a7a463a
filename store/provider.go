package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jellydator/ttlcache/v3"

	"github.com/unkn0wn-root/opcache/codec"
	"github.com/unkn0wn-root/opcache/genstore"
	"github.com/unkn0wn-root/opcache/internal/keys"
	"github.com/unkn0wn-root/opcache/internal/wire"
	pr "github.com/unkn0wn-root/opcache/provider"
)

type ProviderConfig[V any] struct {
	// Required
	Namespace string // isolates this store inside a shared provider, e.g. "content_video"
	Provider  pr.Provider
	Codec     codec.Codec[V]
	TTL       time.Duration

	// Scope partitions a shared provider between deployments or sessions.
	// Stores with different scopes never see each other's entries or
	// generations, even under the same Namespace.
	Scope string
	// Capacity bounds the entries this store keeps live; 0 leaves it to
	// the provider.
	Capacity int

	GenStore       genstore.GenStore // nil => genstore.Local owned by this store
	SharedProvider bool              // when true Close leaves the provider open
	// OnSelfHeal observes entries deleted on read.
	// reason ∈ {"corrupt", "gen_mismatch", "expired", "value_decode"}
	OnSelfHeal func(key, reason string)
	Now        func() time.Time // test clock; nil => time.Now
}

// Provider stores encoded responses in a byte provider. TTL is enforced here
// from the entry's creation time so providers without per-entry expiry still
// honour it. With a positive Capacity the store tracks its keys in LRU order
// and deletes the least recently used one from the provider before admitting
// a new key; without it capacity is whatever the provider enforces.
//
// Clear bumps the namespace generation instead of deleting keys: entries
// written under an older generation read as absent and are deleted lazily.
type Provider[V any] struct {
	ns         string // scoped namespace
	p          pr.Provider
	codec      codec.Codec[V]
	ttl        time.Duration
	gens       genstore.GenStore
	ownsGens   bool
	sharedProv bool
	onSelfHeal func(key, reason string)
	now        func() time.Time
	index      *lruIndex // nil when unbounded

	closeOnce sync.Once
	closeErr  error
}

var _ Store[struct{}] = (*Provider[struct{}])(nil)

func NewProvider[V any](cfg ProviderConfig[V]) (*Provider[V], error) {
	if cfg.Provider == nil {
		return nil, errors.New("store: provider is required")
	}
	if cfg.Codec == nil {
		return nil, errors.New("store: codec is required")
	}
	if cfg.Namespace == "" {
		return nil, errors.New("store: namespace is required")
	}
	if cfg.TTL <= 0 {
		return nil, errors.New("store: ttl must be positive")
	}
	if cfg.Capacity < 0 {
		return nil, errors.New("store: capacity must not be negative")
	}
	ns := cfg.Namespace
	if cfg.Scope != "" {
		ns = cfg.Scope + "/" + cfg.Namespace
	}

	s := &Provider[V]{
		ns:         ns,
		p:          cfg.Provider,
		codec:      cfg.Codec,
		ttl:        cfg.TTL,
		gens:       cfg.GenStore,
		sharedProv: cfg.SharedProvider,
		onSelfHeal: cfg.OnSelfHeal,
		now:        cfg.Now,
	}
	if s.gens == nil {
		s.gens = genstore.NewLocal()
		s.ownsGens = true
	}
	if s.onSelfHeal == nil {
		s.onSelfHeal = func(string, string) {}
	}
	if s.now == nil {
		s.now = time.Now
	}
	if cfg.Capacity > 0 {
		s.index = newLRUIndex(cfg.Capacity, cfg.TTL)
	}
	return s, nil
}

func (s *Provider[V]) Get(ctx context.Context, key string) (V, bool, error) {
	var zero V
	sk := keys.Storage(s.ns, key)

	raw, ok, err := s.p.Get(ctx, sk)
	if err != nil || !ok {
		return zero, false, err
	}
	e, err := wire.DecodeEntry(raw)
	if err != nil {
		s.heal(ctx, sk, key, "corrupt")
		return zero, false, nil
	}
	gen, err := s.gens.Snapshot(ctx, s.ns)
	if err != nil {
		return zero, false, err
	}
	if e.Gen != gen {
		s.heal(ctx, sk, key, "gen_mismatch")
		return zero, false, nil
	}
	if s.now().After(e.CreatedAt.Add(s.ttl)) {
		s.heal(ctx, sk, key, "expired")
		return zero, false, nil
	}
	v, err := s.codec.Decode(e.Payload)
	if err != nil {
		s.heal(ctx, sk, key, "value_decode")
		return zero, false, nil
	}
	// entries written by another process sharing the provider are adopted
	// here so they count against this store's capacity
	s.evict(ctx, s.index.admit(key))
	return v, true, nil
}

func (s *Provider[V]) Put(ctx context.Context, key string, v V) error {
	gen, err := s.gens.Snapshot(ctx, s.ns)
	if err != nil {
		return err
	}
	payload, err := s.codec.Encode(v)
	if err != nil {
		return err
	}
	b := wire.EncodeEntry(gen, s.now(), payload)
	s.evict(ctx, s.index.admit(key))
	// rejection under pressure (ok=false) is a capacity eviction, not an error
	_, err = s.p.Set(ctx, keys.Storage(s.ns, key), b, 1, s.ttl)
	return err
}

func (s *Provider[V]) Remove(ctx context.Context, key string) error {
	s.index.remove(key)
	return s.p.Del(ctx, keys.Storage(s.ns, key))
}

func (s *Provider[V]) Clear(ctx context.Context) error {
	s.index.reset()
	_, err := s.gens.Bump(ctx, s.ns)
	return err
}

func (s *Provider[V]) Close(ctx context.Context) error {
	s.closeOnce.Do(func() {
		var errs []error
		if s.ownsGens {
			errs = append(errs, s.gens.Close(ctx))
		}
		if !s.sharedProv {
			errs = append(errs, s.p.Close(ctx))
		}
		s.closeErr = errors.Join(errs...)
	})
	return s.closeErr
}

func (s *Provider[V]) heal(ctx context.Context, storageKey, key, reason string) {
	s.index.remove(key)
	_ = s.p.Del(ctx, storageKey)
	s.onSelfHeal(key, reason)
}

func (s *Provider[V]) evict(ctx context.Context, victim string) {
	if victim == "" {
		return
	}
	_ = s.p.Del(ctx, keys.Storage(s.ns, victim))
}

// lruIndex orders a bounded store's keys by recency. Victims are chosen and
// removed synchronously because ttlcache reports its own evictions on a
// separate goroutine. All methods are no-ops on a nil index.
type lruIndex struct {
	mu  sync.Mutex
	c   *ttlcache.Cache[string, struct{}]
	cap int
}

func newLRUIndex(capacity int, ttl time.Duration) *lruIndex {
	return &lruIndex{
		c: ttlcache.New[string, struct{}](
			ttlcache.WithTTL[string, struct{}](ttl),
			ttlcache.WithDisableTouchOnHit[string, struct{}](),
		),
		cap: capacity,
	}
}

// admit marks key most recently used and returns the key it displaced, or ""
// when nothing had to go.
func (x *lruIndex) admit(key string) string {
	if x == nil {
		return ""
	}
	x.mu.Lock()
	defer x.mu.Unlock()

	if x.c.Get(key) != nil {
		return ""
	}
	x.c.DeleteExpired()
	var victim string
	if x.c.Len() >= x.cap {
		x.c.RangeBackwards(func(it *ttlcache.Item[string, struct{}]) bool {
			victim = it.Key()
			return false
		})
		x.c.Delete(victim)
	}
	x.c.Set(key, struct{}{}, ttlcache.DefaultTTL)
	return victim
}

func (x *lruIndex) remove(key string) {
	if x == nil {
		return
	}
	x.mu.Lock()
	x.c.Delete(key)
	x.mu.Unlock()
}

func (x *lruIndex) reset() {
	if x == nil {
		return
	}
	x.mu.Lock()
	x.c.DeleteAll()
	x.mu.Unlock()
}
