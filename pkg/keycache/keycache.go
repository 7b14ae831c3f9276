// Package keycache stores public keys retrieved from key servers so that
// each issuer's key is fetched at most once per TTL window.
//
// Two [Store] implementations are provided: [Memory], a process-local
// cache with a background expiry sweep, and [Redis], a cache shared by
// every replica pointing at the same Redis database. Neither is a global;
// the process that wires the token validator creates the store and owns
// its lifecycle.
package keycache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"
)

const (
	// DefaultTTL is how long a fetched key is served from cache.
	DefaultTTL = 24 * time.Hour

	// DefaultSweepInterval is how often [Memory] purges expired entries.
	DefaultSweepInterval = 10 * time.Second

	// DefaultPrefix namespaces the keys written by [Redis].
	DefaultPrefix = "asap:keycache:"
)

// Store is a time-bounded mapping from cache key to public key blob.
// Implementations must be safe for concurrent use and must never return
// an entry older than their TTL.
type Store interface {
	// Get returns the blob stored under key. ok is false on a miss.
	Get(ctx context.Context, key string) (blob string, ok bool, err error)

	// Set stores blob under key for the store's TTL.
	Set(ctx context.Context, key, blob string) error

	// FlushAll removes every entry.
	FlushAll(ctx context.Context) error
}

// CacheKey derives the cache key for a key server URL: the hex-encoded
// SHA-256 of the URL. Raw URLs are never used as keys.
func CacheKey(url string) string {
	sum := sha256.Sum256([]byte(url))
	return hex.EncodeToString(sum[:])
}

type options struct {
	ttl           time.Duration
	sweepInterval time.Duration
	prefix        string
}

// Option configures a [Memory] or [Redis] store.
type Option func(*options)

// WithTTL overrides [DefaultTTL]. Non-positive values are ignored.
func WithTTL(ttl time.Duration) Option {
	return func(o *options) {
		if ttl > 0 {
			o.ttl = ttl
		}
	}
}

// WithSweepInterval overrides [DefaultSweepInterval] for [Memory].
// Non-positive values are ignored.
func WithSweepInterval(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.sweepInterval = d
		}
	}
}

// WithPrefix overrides [DefaultPrefix] for [Redis].
func WithPrefix(prefix string) Option {
	return func(o *options) {
		if prefix != "" {
			o.prefix = prefix
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{
		ttl:           DefaultTTL,
		sweepInterval: DefaultSweepInterval,
		prefix:        DefaultPrefix,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
