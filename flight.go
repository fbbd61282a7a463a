package opcache

import (
	"context"
	"sync"
)

// call is one in-flight transport attempt shared by every waiter on its key.
type call[V any] struct {
	ctx    context.Context
	cancel context.CancelCauseFunc
	epoch  uint64 // operation epoch when the call was created
	done   chan struct{}

	waiters int // guarded by flights.mu

	// written once before done is closed
	val V
	err error
}

// flights is the per-key table of pending calls. A call leaves the table
// exactly once: on completion, when its last waiter leaves, or on cancelAll.
type flights[V any] struct {
	mu sync.Mutex
	m  map[string]*call[V]
}

func newFlights[V any]() *flights[V] {
	return &flights[V]{m: make(map[string]*call[V])}
}

// acquire attaches to the pending call for key or creates one. The caller
// becomes a waiter either way; created reports whether it must start the call.
func (f *flights[V]) acquire(ctx context.Context, key string, epoch uint64) (c *call[V], created bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if c, ok := f.m[key]; ok {
		c.waiters++
		return c, false
	}
	// keep the starter's values but not its cancellation; the call outlives
	// whichever caller started it
	cctx, cancel := context.WithCancelCause(context.WithoutCancel(ctx))
	c = &call[V]{ctx: cctx, cancel: cancel, epoch: epoch, done: make(chan struct{}), waiters: 1}
	f.m[key] = c
	return c, true
}

// wait blocks until c completes or ctx ends. A caller leaving through ctx
// is withdrawn from c; the last one to leave cancels it.
func (f *flights[V]) wait(ctx context.Context, key string, c *call[V]) (V, error) {
	select {
	case <-c.done:
		return c.val, c.err
	case <-ctx.Done():
		f.leave(key, c)
		var zero V
		return zero, ctxError(ctx)
	}
}

func (f *flights[V]) leave(key string, c *call[V]) {
	f.mu.Lock()
	c.waiters--
	last := c.waiters == 0
	if last {
		f.removeLocked(key, c)
	}
	f.mu.Unlock()

	if last {
		c.cancel(ErrCancelled)
	}
}

// finish publishes the outcome. The call is removed from the table before
// waiters are released so a waiter retrying after an error starts afresh.
func (f *flights[V]) finish(key string, c *call[V], v V, err error) {
	c.val, c.err = v, err

	f.mu.Lock()
	f.removeLocked(key, c)
	f.mu.Unlock()

	close(c.done)
	c.cancel(nil)
}

// cancelAll withdraws every pending call and empties the table.
func (f *flights[V]) cancelAll(cause error) int {
	f.mu.Lock()
	pending := f.m
	f.m = make(map[string]*call[V])
	f.mu.Unlock()

	for _, c := range pending {
		c.cancel(cause)
	}
	return len(pending)
}

func (f *flights[V]) len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.m)
}

func (f *flights[V]) removeLocked(key string, c *call[V]) {
	// a newer call may already own key
	if f.m[key] == c {
		delete(f.m, key)
	}
}
