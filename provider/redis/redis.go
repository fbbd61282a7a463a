// Package redis stores cache entries in Redis, so several fpcache processes
// (or a restarted one) share results.
package redis

import (
	"context"
	"errors"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"

	pr "github.com/unkn0wn-root/opcache/provider"
)

var ErrNilClient = errors.New("redis provider: nil client")

type Config struct {
	Client goredis.UniversalClient
	// CloseClient hands ownership of Client to the provider.
	CloseClient bool
	// OpTimeout bounds each command; 0 => only the caller's ctx applies.
	OpTimeout time.Duration
}

type Redis struct {
	rdb       goredis.UniversalClient
	owns      bool
	timeout   time.Duration
	closeOnce sync.Once
	closeErr  error
}

var _ pr.Provider = (*Redis)(nil)

func New(cfg Config) (*Redis, error) {
	if cfg.Client == nil {
		return nil, ErrNilClient
	}
	return &Redis{rdb: cfg.Client, owns: cfg.CloseClient, timeout: cfg.OpTimeout}, nil
}

func (p *Redis) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if p.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, p.timeout)
}

func (p *Redis) Get(ctx context.Context, key string) ([]byte, bool, error) {
	ctx, cancel := p.bound(ctx)
	defer cancel()

	b, err := p.rdb.Get(ctx, key).Bytes()
	switch {
	case errors.Is(err, goredis.Nil):
		return nil, false, nil
	case err != nil:
		return nil, false, err
	}
	return b, true, nil
}

func (p *Redis) Set(ctx context.Context, key string, value []byte, _ int64, ttl time.Duration) (bool, error) {
	ctx, cancel := p.bound(ctx)
	defer cancel()

	if err := p.rdb.Set(ctx, key, value, max(ttl, 0)).Err(); err != nil {
		return false, err
	}
	return true, nil
}

func (p *Redis) Del(ctx context.Context, key string) error {
	ctx, cancel := p.bound(ctx)
	defer cancel()
	return p.rdb.Del(ctx, key).Err()
}

// Close closes the client only when the provider owns it.
func (p *Redis) Close(context.Context) error {
	p.closeOnce.Do(func() {
		if p.owns {
			p.closeErr = p.rdb.Close()
		}
	})
	return p.closeErr
}
