package opcache

import (
	"github.com/unkn0wn-root/opcache/internal/keys"
)

// KeyOf derives the cache key for req within endpoint. It is pure and total:
// equal requests always map to equal keys, and unequal requests map to
// unequal keys barring a SHA-256 prefix collision.
func KeyOf(endpoint string, req Request) string {
	if k, ok := req.(Keyer); ok {
		return keys.Derive(endpoint, "key:"+k.CacheKey())
	}
	return keys.Derive(endpoint, "desc:"+req.Descriptor().Canonical())
}
