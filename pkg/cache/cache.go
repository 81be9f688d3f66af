// Package cache provides payload caching for the data acquisition service.
//
// The [Cache] interface abstracts over several backends:
//   - memory: in-process map for page-session lifetimes (the default)
//   - file: directory-backed cache for CLI usage
//   - redis: shared cache for multi-instance deployments
//   - null: caching disabled
//
// Expiration is lazy: entries are validated against their TTL when read,
// never swept in the background. An entry is trusted only while less than
// its TTL has passed since it was stored.
//
// Keys are built by a [Keyer] so that the same resource fetched with
// different options occupies different entries, and so that multiple
// dashboards can share one backend via [ScopedKeyer] without collisions.
package cache

import (
	"context"
	"time"
)

// Default TTLs per payload class.
const (
	// TTLResource is how long fetched resource payloads stay fresh.
	TTLResource = 5 * time.Minute

	// TTLSnapshot is how long rendered chart snapshots stay fresh.
	TTLSnapshot = time.Hour
)

// Cache is the interface implemented by all cache backends.
//
// Get returns (data, true, nil) on a fresh hit and (nil, false, nil) on a
// miss or an expired entry. A TTL of 0 passed to Set means the entry never
// expires.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}
