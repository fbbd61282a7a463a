// Package sloghooks reports operation events through log/slog.
package sloghooks

import (
	"log/slog"
	"sync/atomic"

	"github.com/unkn0wn-root/opcache"
)

type Options struct {
	// Sampling to avoid floods on hot paths; 0/1 = log all.
	HitEvery      uint64
	MissEvery     uint64
	CoalesceEvery uint64
	EvictEvery    uint64
}

type Hooks struct {
	l    *slog.Logger
	opts Options

	hitCtr      atomic.Uint64
	missCtr     atomic.Uint64
	coalesceCtr atomic.Uint64
	evictCtr    atomic.Uint64
}

var _ opcache.Hooks = (*Hooks)(nil)

func New(l *slog.Logger, opts Options) *Hooks {
	return &Hooks{l: l, opts: opts}
}

func sample(n uint64, ctr *atomic.Uint64) bool {
	if n == 0 || n == 1 {
		return true
	}
	return ctr.Add(1)%n == 0
}

func (h *Hooks) Hit(op string) {
	if h.l == nil || !sample(h.opts.HitEvery, &h.hitCtr) {
		return
	}
	h.l.Debug("opcache.hit", "op", op)
}

func (h *Hooks) Miss(op string) {
	if h.l == nil || !sample(h.opts.MissEvery, &h.missCtr) {
		return
	}
	h.l.Debug("opcache.miss", "op", op)
}

func (h *Hooks) Coalesced(op string) {
	if h.l == nil || !sample(h.opts.CoalesceEvery, &h.coalesceCtr) {
		return
	}
	h.l.Debug("opcache.coalesced", "op", op)
}

func (h *Hooks) Evicted(op, reason string) {
	if h.l == nil || !sample(h.opts.EvictEvery, &h.evictCtr) {
		return
	}
	h.l.Debug("opcache.evicted",
		"op", op,
		"reason", reason)
}

func (h *Hooks) StaleDiscarded(op string) {
	if h.l == nil {
		return
	}
	h.l.Info("opcache.stale_discarded", "op", op)
}

func (h *Hooks) TransportFailed(op string, err error) {
	if h.l == nil {
		return
	}
	h.l.Warn("opcache.transport_failed",
		"op", op,
		"err", err)
}

func (h *Hooks) DecodeFailed(op string, err error) {
	if h.l == nil {
		return
	}
	h.l.Error("opcache.decode_failed",
		"op", op,
		"err", err)
}

func (h *Hooks) Cleared(op string) {
	if h.l == nil {
		return
	}
	h.l.Info("opcache.cleared", "op", op)
}
