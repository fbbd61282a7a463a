package keys

import (
	"crypto/sha256"
	"encoding/hex"
)

// digestLen is the number of hex chars kept from the SHA-256 digest (128 bits).
const digestLen = 32

// Derive returns "<namespace>:<digest>" where digest is a truncated SHA-256 of
// the canonical request form. Pure and total: any input yields a key.
func Derive(namespace, canonical string) string {
	return namespace + ":" + Digest(canonical)
}

// Digest is the truncated hex SHA-256 of s.
func Digest(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])[:digestLen]
}

// Storage prefixes a key with its owner namespace for shared byte providers.
func Storage(namespace, key string) string {
	return "op:" + namespace + ":" + key
}
