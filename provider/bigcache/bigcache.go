// Package bigcache keeps cache entries in an allegro/bigcache arena, off
// the Go heap's pointer graph.
//
// bigcache has a single lifetime for every entry. store.Provider still
// enforces each endpoint's TTL on read, so LifeWindow must be at least the
// longest endpoint TTL or entries vanish early.
package bigcache

import (
	"context"
	"errors"
	"time"

	bc "github.com/allegro/bigcache/v3"

	pr "github.com/unkn0wn-root/opcache/provider"
)

type Config struct {
	LifeWindow  time.Duration // required
	CleanWindow time.Duration // 0 => LifeWindow / 2
	Shards      int           // power of two; 0 => bigcache default
	// MaxEntriesInWindow and MaxEntrySize size the initial allocation.
	MaxEntriesInWindow int
	MaxEntrySize       int
	HardMaxCacheSizeMB int // 0 => unbounded
}

type Provider struct {
	c *bc.BigCache
}

var _ pr.Provider = (*Provider)(nil)

func New(cfg Config) (*Provider, error) {
	if cfg.LifeWindow <= 0 {
		return nil, errors.New("bigcache: LifeWindow must be > 0")
	}
	conf := bc.DefaultConfig(cfg.LifeWindow)
	conf.CleanWindow = cfg.CleanWindow
	if conf.CleanWindow <= 0 {
		conf.CleanWindow = cfg.LifeWindow / 2
	}
	if cfg.Shards > 0 {
		conf.Shards = cfg.Shards
	}
	if cfg.MaxEntriesInWindow > 0 {
		conf.MaxEntriesInWindow = cfg.MaxEntriesInWindow
	}
	if cfg.MaxEntrySize > 0 {
		conf.MaxEntrySize = cfg.MaxEntrySize
	}
	conf.HardMaxCacheSize = cfg.HardMaxCacheSizeMB
	conf.Verbose = false

	c, err := bc.New(context.Background(), conf)
	if err != nil {
		return nil, err
	}
	return &Provider{c: c}, nil
}

func (p *Provider) Get(_ context.Context, key string) ([]byte, bool, error) {
	b, err := p.c.Get(key)
	switch {
	case errors.Is(err, bc.ErrEntryNotFound):
		return nil, false, nil
	case err != nil:
		return nil, false, err
	}
	return b, true, nil
}

// Set ignores ttl and cost; see the package doc.
func (p *Provider) Set(_ context.Context, key string, value []byte, _ int64, _ time.Duration) (bool, error) {
	if err := p.c.Set(key, value); err != nil {
		return false, err
	}
	return true, nil
}

func (p *Provider) Del(_ context.Context, key string) error {
	err := p.c.Delete(key)
	if errors.Is(err, bc.ErrEntryNotFound) {
		return nil
	}
	return err
}

// Len is the number of entries, expired ones included until cleaned.
func (p *Provider) Len() int { return p.c.Len() }

func (p *Provider) Close(_ context.Context) error { return p.c.Close() }
