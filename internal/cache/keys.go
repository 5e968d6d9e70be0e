package cache

import (
	"crypto/sha256"
	"fmt"

	"github.com/google/uuid"
)

func RateLimitKey(keyPrefix string) string {
	return fmt.Sprintf("ratelimit:%s", keyPrefix)
}

// AuthKey derives the cache key for a validated bearer token. The raw token is
// never stored; only its SHA-256 digest appears in the key.
func AuthKey(rawToken string) string {
	return fmt.Sprintf("auth:%x", sha256.Sum256([]byte(rawToken)))
}

// RevokedKey marks an API key as revoked so cached principals for it are
// dropped before their TTL runs out.
func RevokedKey(keyID uuid.UUID) string {
	return fmt.Sprintf("revoked:%s", keyID)
}
