// Package opcache turns remote fetches into cached, coalesced, cancellable
// operations and manages their lifecycle as a group.
//
// An Operation is built per endpoint from a Transport (performs the call),
// a Decoder (payload -> V) and a Store (completed results with TTL and a
// capacity bound). Get derives a request key, answers from the store when it
// can and otherwise attaches to the single in-flight call for that key,
// starting one if needed.
//
// Components:
//   - transport.Transport: Descriptor in, payload bytes or error out.
//   - codec.Decoder[V]: payload -> V. Decode failures surface as *DecodeError.
//   - store.Store[V]: store.Memory (LRU + TTL, default) or store.Provider
//     over ristretto, bigcache or redis.
//   - Registry: owns every operation; ClearAll cancels in-flight calls and
//     empties every store, e.g. on logout.
//
// Cancellation is reference counted: a caller whose ctx ends stops waiting,
// and the transport call is cancelled once its last waiter has left. Cancel
// and ClearAll withdraw in-flight calls, whose waiters get ErrCancelled. A
// call in flight when ClearCache ran still answers its waiters. None of
// them writes into the store.
//
//	op, _ := opcache.New(opcache.Options[VideoRequest, Video]{
//		Name:      "content_video",
//		Transport: httpTransport,
//		Decoder:   codec.JSON[Video]{},
//		Capacity:  50,
//		TTL:       5 * time.Minute,
//	})
//	reg := opcache.NewRegistry(opcache.RegistryOptions{})
//	reg.MustRegister(op)
//	v, err := op.Get(ctx, VideoRequest{ID: "abc"})
//	...
//	_ = reg.ClearAll(ctx) // logout
package opcache
