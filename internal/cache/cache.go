package cache

import (
	"context"
	"errors"
	"time"
)

// Namespace selects one of the two cache data classes. They share one
// store but are purged independently: ephemeral entries hold volatile
// collaborator responses (weather, searches), durable entries hold
// slow-changing reference data (places).
type Namespace string

const (
	NamespaceEphemeral Namespace = "ephemeral"
	NamespaceDurable   Namespace = "durable"
)

var (
	// ErrUnknownNamespace is returned for namespaces other than
	// NamespaceEphemeral and NamespaceDurable.
	ErrUnknownNamespace = errors.New("unknown cache namespace")

	// ErrInvalidTTL is returned by Set when ttl is not positive.
	ErrInvalidTTL = errors.New("cache ttl must be positive")
)

// Stats describes the contents of one namespace.
type Stats struct {
	// Entries is the number of live (unexpired) entries.
	Entries int
	// Expired is the number of expired entries not yet evicted.
	Expired int
	// Hits is the total hit count across all entries.
	Hits int64
}

// Store is a key-value cache with per-entry TTL.
//
// The cache is best-effort: callers must treat read errors as misses and
// must not fail the operation being cached when a write fails. All methods
// are safe for concurrent use, including across runs.
type Store interface {
	// Get returns the value for key, or found=false if the key is absent
	// or expired. Expired entries are left in place for the next
	// EvictExpired sweep. A live hit increments the entry's hit count.
	Get(ctx context.Context, ns Namespace, key string) (value []byte, found bool, err error)

	// Set upserts an entry expiring ttl from now. Overwriting an existing
	// key resets created_at, expires_at, and the hit count.
	Set(ctx context.Context, ns Namespace, key string, value []byte, ttl time.Duration) error

	// EvictExpired removes all entries in ns whose expiry has passed and
	// returns the number removed.
	EvictExpired(ctx context.Context, ns Namespace) (int, error)

	// Stats reports entry counts and accumulated hits for ns.
	Stats(ctx context.Context, ns Namespace) (Stats, error)
}
