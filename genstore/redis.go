package genstore

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

type RedisConfig struct {
	Client redis.UniversalClient
	// Namespace prefixes generation keys: "gen:<Namespace>:<ns>".
	Namespace string
	// TTL expires generation keys that stop being bumped; 0 keeps them
	// forever. An expired key reads as 0 again, which would revive entries
	// written before the last clear, so TTL must exceed the longest entry
	// TTL of any store using it.
	TTL time.Duration
	// CloseClient hands ownership of Client to the store.
	CloseClient bool
}

// Redis shares generations across processes, so a logout in one fpcache
// process clears what another wrote.
type Redis struct {
	rdb    redis.UniversalClient
	prefix string
	ttl    time.Duration
	owns   bool
}

var _ GenStore = (*Redis)(nil)

func NewRedis(cfg RedisConfig) (*Redis, error) {
	if cfg.Client == nil {
		return nil, errors.New("genstore: nil redis client")
	}
	if cfg.TTL < 0 {
		return nil, errors.New("genstore: negative ttl")
	}
	return &Redis{
		rdb:    cfg.Client,
		prefix: "gen:" + cfg.Namespace + ":",
		ttl:    cfg.TTL,
		owns:   cfg.CloseClient,
	}, nil
}

func (s *Redis) Snapshot(ctx context.Context, ns string) (uint64, error) {
	raw, err := s.rdb.Get(ctx, s.prefix+ns).Result()
	switch {
	case errors.Is(err, redis.Nil):
		return 0, nil
	case err != nil:
		return 0, err
	}
	g, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("genstore: %s: bad generation %q: %w", ns, raw, err)
	}
	return g, nil
}

// Bump increments and, with a TTL, refreshes expiry in the same round trip.
func (s *Redis) Bump(ctx context.Context, ns string) (uint64, error) {
	key := s.prefix + ns
	if s.ttl == 0 {
		g, err := s.rdb.Incr(ctx, key).Uint64()
		return g, err
	}

	var incr *redis.IntCmd
	if _, err := s.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		incr = p.Incr(ctx, key)
		p.Expire(ctx, key, s.ttl)
		return nil
	}); err != nil {
		return 0, err
	}
	return incr.Uint64()
}

func (s *Redis) Close(context.Context) error {
	if !s.owns {
		return nil
	}
	if err := s.rdb.Close(); err != nil && !errors.Is(err, redis.ErrClosed) {
		return err
	}
	return nil
}
