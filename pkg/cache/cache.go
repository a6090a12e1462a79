// Package cache provides byte-oriented caching for layouts and rendered
// collages.
//
// The [Cache] interface is implemented by [FileCache] (CLI runs, stored under
// the user cache directory), [RedisCache] (the HTTP service) and [NullCache]
// (caching disabled). Keys are produced by a [Keyer] so that every consumer
// derives the same key from the same inputs.
//
// # Usage
//
//	c, _ := cache.NewFileCache(dir)
//	key := cache.NewDefaultKeyer().ArtifactKey(layoutHash, cache.ArtifactKeyOpts{Format: "png"})
//	if data, hit, _ := c.Get(ctx, key); hit {
//	    return data
//	}
package cache

import (
	"context"
	"time"
)

// TTLs for cached entries.
const (
	// TTLLayout is how long generated layouts are kept.
	TTLLayout = 24 * time.Hour

	// TTLArtifact is how long rendered collages are kept.
	TTLArtifact = 7 * 24 * time.Hour
)

// Cache stores opaque byte values under string keys.
// Implementations must be safe for concurrent use.
type Cache interface {
	// Get returns the value for key and whether it was found. A missing or
	// expired entry is a miss, not an error.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A zero ttl never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases resources held by the cache.
	Close() error
}
