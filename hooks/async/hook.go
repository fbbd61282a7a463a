// Package asynchook moves hook calls off the operation's goroutine.
//
//	raw := sloghooks.New(slog.Default(), sloghooks.Options{HitEvery: 100})
//	hooks := asynchook.New(raw, 1, 1000) // 1 worker; queue 1000 events
//	defer hooks.Close()
//
//	op, _ := opcache.New(opcache.Options[VideoRequest, Video]{
//		Name:      "content_video",
//		Transport: tr,
//		Decoder:   codec.JSON[Video]{},
//		Hooks:     hooks, // or raw if you don't want async
//	})
//
// Events are dropped, not queued, once the queue is full.
package asynchook

import (
	"sync"
	"sync/atomic"

	"github.com/unkn0wn-root/opcache"
)

type Hooks struct {
	inner   opcache.Hooks
	q       chan func()
	wg      sync.WaitGroup
	once    sync.Once
	mu      sync.RWMutex // guards closed against sends on q
	closed  bool
	dropped atomic.Uint64
}

var _ opcache.Hooks = (*Hooks)(nil)

func New(inner opcache.Hooks, workers, qlen int) *Hooks {
	if workers <= 0 {
		workers = 1
	}
	if qlen <= 0 {
		qlen = 1024
	}

	h := &Hooks{inner: inner, q: make(chan func(), qlen)}
	h.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer h.wg.Done()
			for f := range h.q {
				f()
			}
		}()
	}
	return h
}

// Close drains queued events and stops the workers. Later events are dropped.
func (h *Hooks) Close() {
	h.once.Do(func() {
		h.mu.Lock()
		h.closed = true
		close(h.q)
		h.mu.Unlock()
		h.wg.Wait()
	})
}

// Dropped counts events lost to a full queue or a closed hook.
func (h *Hooks) Dropped() uint64 { return h.dropped.Load() }

func (h *Hooks) try(f func()) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		h.dropped.Add(1)
		return
	}
	select {
	case h.q <- f:
	default: // drop
		h.dropped.Add(1)
	}
}

func (h *Hooks) Hit(op string)            { h.try(func() { h.inner.Hit(op) }) }
func (h *Hooks) Miss(op string)           { h.try(func() { h.inner.Miss(op) }) }
func (h *Hooks) Coalesced(op string)      { h.try(func() { h.inner.Coalesced(op) }) }
func (h *Hooks) Evicted(op, r string)     { h.try(func() { h.inner.Evicted(op, r) }) }
func (h *Hooks) StaleDiscarded(op string) { h.try(func() { h.inner.StaleDiscarded(op) }) }
func (h *Hooks) Cleared(op string)        { h.try(func() { h.inner.Cleared(op) }) }
func (h *Hooks) TransportFailed(op string, err error) {
	h.try(func() { h.inner.TransportFailed(op, err) })
}
func (h *Hooks) DecodeFailed(op string, err error) {
	h.try(func() { h.inner.DecodeFailed(op, err) })
}
