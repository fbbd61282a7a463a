// Package ristretto keeps cache entries in an in-process ristretto cache
// shared by every operation of a client.
package ristretto

import (
	"context"
	"errors"
	"time"

	rc "github.com/dgraph-io/ristretto"

	pr "github.com/unkn0wn-root/opcache/provider"
)

type Config struct {
	// MaxEntries bounds the cache. store.Provider writes every entry with
	// cost 1.
	MaxEntries int64
	// NumCounters defaults to 10 x MaxEntries.
	NumCounters int64
	BufferItems int64 // 0 => 64
	Metrics     bool
	// SyncWrites makes Set wait until the write is visible to Get.
	// ristretto applies sets asynchronously otherwise.
	SyncWrites bool
}

type Provider struct {
	c    *rc.Cache
	sync bool
}

var _ pr.Provider = (*Provider)(nil)

func New(cfg Config) (*Provider, error) {
	if cfg.MaxEntries <= 0 {
		return nil, errors.New("ristretto: MaxEntries must be > 0")
	}
	if cfg.NumCounters <= 0 {
		cfg.NumCounters = 10 * cfg.MaxEntries
	}
	if cfg.BufferItems <= 0 {
		cfg.BufferItems = 64
	}
	c, err := rc.NewCache(&rc.Config{
		NumCounters:        cfg.NumCounters,
		MaxCost:            cfg.MaxEntries,
		BufferItems:        cfg.BufferItems,
		Metrics:            cfg.Metrics,
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, err
	}
	return &Provider{c: c, sync: cfg.SyncWrites}, nil
}

func (p *Provider) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := p.c.Get(key)
	if !ok {
		return nil, false, nil
	}
	if b, ok := v.([]byte); ok {
		return b, true, nil
	}
	p.c.Del(key)
	return nil, false, nil
}

// Set may be refused by ristretto's admission policy; that is ok=false, not
// an error.
func (p *Provider) Set(_ context.Context, key string, value []byte, cost int64, ttl time.Duration) (bool, error) {
	ok := p.c.SetWithTTL(key, value, max(cost, 1), max(ttl, 0))
	if ok && p.sync {
		p.c.Wait()
	}
	return ok, nil
}

func (p *Provider) Del(_ context.Context, key string) error {
	p.c.Del(key)
	return nil
}

func (p *Provider) Close(_ context.Context) error {
	p.c.Wait()
	p.c.Close()
	return nil
}

// Metrics returns ristretto's counters; nil unless Config.Metrics is set.
func (p *Provider) Metrics() *rc.Metrics { return p.c.Metrics }
