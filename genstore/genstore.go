// Package genstore keeps generation counters for store namespaces.
//
// store.Provider stamps each entry with its namespace's generation at write
// time and treats a mismatch on read as a miss. Clearing a namespace is one
// Bump, however many entries it holds.
package genstore

import "context"

// GenStore is shared by every store that must observe the same clears:
// Local within one process, Redis across processes sharing a provider.
type GenStore interface {
	// Snapshot returns the current generation; a namespace never bumped is 0.
	Snapshot(ctx context.Context, ns string) (uint64, error)
	// Bump increments atomically and returns the new generation.
	Bump(ctx context.Context, ns string) (uint64, error)
	Close(ctx context.Context) error
}
