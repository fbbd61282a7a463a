package opcache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/unkn0wn-root/opcache/codec"
	"github.com/unkn0wn-root/opcache/store"
	"github.com/unkn0wn-root/opcache/transport"
)

type operation[R Request, V any] struct {
	name      string
	tr        transport.Transport
	dec       codec.Decoder[V]
	store     store.Store[V]
	ownsStore bool
	log       Logger
	hooks     Hooks

	// gate orders commits against Cancel/ClearCache. Commits and call
	// creation hold it shared; epoch bumps hold it exclusively.
	gate  sync.RWMutex
	epoch uint64

	flights *flights[V]
	closed  atomic.Bool
}

var _ Operation[Request, struct{}] = (*operation[Request, struct{}])(nil)

func newOperation[R Request, V any](opts Options[R, V]) (*operation[R, V], error) {
	if opts.Name == "" {
		return nil, errors.New("opcache: name is required")
	}
	if opts.Transport == nil {
		return nil, errors.New("opcache: transport is required")
	}
	if opts.Decoder == nil {
		return nil, errors.New("opcache: decoder is required")
	}
	if opts.Capacity < 0 {
		return nil, fmt.Errorf("opcache: %s: capacity must not be negative", opts.Name)
	}
	if opts.TTL < 0 {
		return nil, fmt.Errorf("opcache: %s: ttl must not be negative", opts.Name)
	}

	o := &operation[R, V]{
		name:    opts.Name,
		tr:      opts.Transport,
		dec:     opts.Decoder,
		store:   opts.Store,
		flights: newFlights[V](),
	}

	// defaults
	o.log = coalesce[Logger](opts.Logger, NopLogger{})
	o.hooks = coalesce[Hooks](opts.Hooks, NopHooks{})

	if o.store == nil {
		hooks, name := o.hooks, o.name
		m, err := store.NewMemory[V](store.MemoryConfig{
			Capacity: coalesce(opts.Capacity, DefaultCapacity),
			TTL:      coalesce(opts.TTL, DefaultTTL),
			OnEvict:  func(_ string, reason store.EvictReason) { hooks.Evicted(name, string(reason)) },
		})
		if err != nil {
			return nil, fmt.Errorf("opcache: %s: %w", opts.Name, err)
		}
		o.store = m
		o.ownsStore = true
	}
	return o, nil
}

func (o *operation[R, V]) Name() string { return o.name }

func (o *operation[R, V]) Get(ctx context.Context, req R) (V, error) {
	var zero V
	if o.closed.Load() {
		return zero, ErrClosed
	}
	if err := ctxError(ctx); err != nil {
		return zero, err
	}

	key := KeyOf(o.name, req)
	if v, ok := o.lookup(ctx, key); ok {
		o.hooks.Hit(o.name)
		return v, nil
	}

	// creation is ordered with Cancel so a call never carries an epoch
	// older than the table it lands in. Close marks closed before it
	// cancels, so seeing open here means any later Close withdraws the call.
	o.gate.RLock()
	if o.closed.Load() {
		o.gate.RUnlock()
		return zero, ErrClosed
	}
	c, created := o.flights.acquire(ctx, key, o.epoch)
	o.gate.RUnlock()

	if created {
		o.hooks.Miss(o.name)
		o.log.Debug("miss; calling transport", opFields(o.name, key))
		go o.run(key, req.Descriptor(), c)
	} else {
		o.hooks.Coalesced(o.name)
		o.log.Debug("miss; joined in-flight call", opFields(o.name, key))
	}
	return o.flights.wait(ctx, key, c)
}

func (o *operation[R, V]) Invalidate(ctx context.Context, req R) error {
	if o.closed.Load() {
		return ErrClosed
	}
	return o.store.Remove(ctx, KeyOf(o.name, req))
}

func (o *operation[R, V]) Cancel() {
	o.gate.Lock()
	o.epoch++
	n := o.flights.cancelAll(ErrCancelled)
	o.gate.Unlock()

	if n > 0 {
		o.log.Debug("cancelled in-flight calls", Fields{"op": o.name, "count": n})
	}
}

func (o *operation[R, V]) ClearCache(ctx context.Context) error {
	o.gate.Lock()
	o.epoch++
	err := o.store.Clear(ctx)
	o.gate.Unlock()

	if err != nil {
		o.log.Error("clear store failed", Fields{"op": o.name, "err": err})
		return fmt.Errorf("opcache: %s: clear: %w", o.name, err)
	}
	o.hooks.Cleared(o.name)
	return nil
}

// Close cancels in-flight calls and releases a store the operation created.
func (o *operation[R, V]) Close(ctx context.Context) error {
	if !o.closed.CompareAndSwap(false, true) {
		return nil
	}
	o.Cancel()
	if o.ownsStore {
		return o.store.Close(ctx)
	}
	return nil
}

// lookup treats store errors as misses; the transport is the source of truth.
func (o *operation[R, V]) lookup(ctx context.Context, key string) (V, bool) {
	v, ok, err := o.store.Get(ctx, key)
	if err != nil {
		f := opFields(o.name, key)
		f["err"] = err
		o.log.Warn("store get failed; treating as miss", f)
		return v, false
	}
	return v, ok
}

// run performs the call for c and publishes its outcome to every waiter.
func (o *operation[R, V]) run(key string, d transport.Descriptor, c *call[V]) {
	// another call may have stored key between the caller's miss and ours
	if v, ok := o.lookup(c.ctx, key); ok {
		o.flights.finish(key, c, v, nil)
		return
	}
	v, err := o.fetch(c.ctx, key, d)
	if err == nil {
		o.commit(c, key, v)
	}
	o.flights.finish(key, c, v, err)
}

func (o *operation[R, V]) fetch(ctx context.Context, key string, d transport.Descriptor) (V, error) {
	var zero V

	payload, err := o.do(ctx, d)
	if cerr := ctxError(ctx); cerr != nil {
		// never hand out a result the waiters already gave up on
		return zero, cerr
	}
	if err != nil {
		f := opFields(o.name, key)
		f["err"] = err
		o.log.Debug("transport failed", f)
		o.hooks.TransportFailed(o.name, err)
		return zero, err
	}

	v, err := o.dec.Decode(payload)
	if err != nil {
		o.hooks.DecodeFailed(o.name, err)
		return zero, &DecodeError{Op: o.name, Err: err}
	}
	return v, nil
}

func (o *operation[R, V]) do(ctx context.Context, d transport.Descriptor) (payload []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			o.log.Error("transport panicked", Fields{"op": o.name, "panic": r})
			payload, err = nil, fmt.Errorf("%w: %s: %v", ErrTransportPanic, o.name, r)
		}
	}()
	return o.tr.Do(ctx, d)
}

// commit stores v unless the operation was cancelled or cleared after c was
// created. Exactly one Put per successful, current completion.
func (o *operation[R, V]) commit(c *call[V], key string, v V) {
	o.gate.RLock()
	defer o.gate.RUnlock()

	if o.epoch != c.epoch || c.ctx.Err() != nil {
		o.hooks.StaleDiscarded(o.name)
		o.log.Warn("discarded completion from before cancel/clear", opFields(o.name, key))
		return
	}
	if err := o.store.Put(c.ctx, key, v); err != nil {
		f := opFields(o.name, key)
		f["err"] = err
		o.log.Warn("store put failed", f)
	}
}
