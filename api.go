package opcache

import (
	"context"
	"time"

	"github.com/unkn0wn-root/opcache/codec"
	"github.com/unkn0wn-root/opcache/store"
	"github.com/unkn0wn-root/opcache/transport"
)

// Request is the parameter set of one call. Every field that affects the
// result must be reflected in its Descriptor.
type Request interface {
	Descriptor() transport.Descriptor
}

// Keyer lets a request choose its own cache identity instead of the one
// derived from its Descriptor. The key must still cover every
// result-affecting field.
type Keyer interface {
	CacheKey() string
}

// Managed is the lifecycle contract a Registry drives.
type Managed interface {
	Name() string
	// Cancel withdraws every in-flight call. Their waiters receive ErrCancelled
	// and their results are never stored.
	Cancel()
	// ClearCache drops every stored entry. Calls in flight at that moment
	// still answer their waiters but are not stored.
	ClearCache(ctx context.Context) error
	Close(ctx context.Context) error
}

// Operation is a cached, coalesced remote call for one endpoint.
type Operation[R Request, V any] interface {
	Managed

	// Get returns the stored result for req or waits for the single
	// in-flight call for it. Errors are returned to every waiter and never
	// stored.
	Get(ctx context.Context, req R) (V, error)
	// Invalidate drops the stored result for req, if any.
	Invalidate(ctx context.Context, req R) error
}

// Options configure an Operation.
// Only Name, Transport and Decoder are required.
type Options[R Request, V any] struct {
	// Required
	Name      string // endpoint identity; namespaces keys, logs and metrics. e.g. "content_video"
	Transport transport.Transport
	Decoder   codec.Decoder[V]

	// Store holds completed results. nil => store.Memory with Capacity and TTL,
	// owned and closed by the operation. A supplied store is closed by its owner.
	Store    store.Store[V]
	Capacity int           // store.Memory only; 0 => DefaultCapacity
	TTL      time.Duration // store.Memory only; 0 => DefaultTTL

	Logger Logger // if nil, NopLogger is used
	Hooks  Hooks  // if nil, NopHooks is used
}

func New[R Request, V any](opts Options[R, V]) (Operation[R, V], error) {
	return newOperation[R, V](opts)
}
