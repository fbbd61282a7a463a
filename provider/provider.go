// Package provider is the byte store beneath store.Provider.
//
// A provider holds opaque framed entries written by store.Provider and must
// return them byte for byte. Keys under the "op:" prefix belong to opcache;
// anything else written there fails frame validation and is deleted on read.
package provider

import (
	"context"
	"time"
)

// Provider must be safe for concurrent use.
type Provider interface {
	// Get reports a miss as (nil, false, nil). Errors are for I/O failures only.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set writes value with ttl (<= 0: no per-entry expiry). cost is a
	// weight for providers that bound by cost and may be ignored. ok is
	// false when the provider dropped the write to stay within its bounds.
	Set(ctx context.Context, key string, value []byte, cost int64, ttl time.Duration) (ok bool, err error)

	// Del is a no-op for missing keys.
	Del(ctx context.Context, key string) error

	Close(ctx context.Context) error
}
