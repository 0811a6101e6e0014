package collab

import (
	"context"
	"time"

	"github.com/wayfarer-dev/wayfarer/internal/cache"
	"github.com/wayfarer-dev/wayfarer/pkg/api"
)

// RetryPolicy controls how a failed collaborator call is retried.
// MaxAttempts includes the first attempt:
//
//	MaxAttempts = 1 => no retries (just the initial call)
//	MaxAttempts = 3 => initial call + up to 2 retries
//
// InitialBackoff is the delay before the first retry; each further retry
// multiplies it by BackoffMultiplier (default 2.0) up to MaxBackoff.
type RetryPolicy struct {
	MaxAttempts       int
	InitialBackoff    time.Duration
	BackoffMultiplier float64
	MaxBackoff        time.Duration
}

// Config describes one Adapter.
type Config struct {
	// Namespace selects the cache data class. Volatile data (weather,
	// search results) belongs in cache.NamespaceEphemeral with a short
	// TTL; stable reference data in cache.NamespaceDurable.
	Namespace cache.Namespace

	// TTL applied to cached results.
	TTL time.Duration

	// Retry policy for the real call.
	Retry RetryPolicy

	// RateLimitPerSecond caps real calls per second for this adapter
	// instance. Zero means unlimited.
	RateLimitPerSecond int
}

// Adapter wraps a Caller with a read-through TTL cache, bounded retry, and
// local rate limiting.
//
// Cache reads are best-effort: storage errors and undecodable entries
// degrade to a miss. Cache write failures are reported to the observer and
// otherwise ignored, so a broken cache never fails the business call.
type Adapter struct {
	name     string
	caller   Caller
	store    cache.Store
	cfg      Config
	limiter  *rateLimiter
	observer api.Observer
}

// Ensure Adapter itself satisfies Caller, so adapters can be stacked or
// passed wherever a bare collaborator is expected.
var _ Caller = (*Adapter)(nil)

// NewAdapter creates an Adapter for the named collaborator. A nil observer
// defaults to api.NoopObserver.
func NewAdapter(name string, caller Caller, store cache.Store, cfg Config, obs api.Observer) *Adapter {
	if obs == nil {
		obs = api.NoopObserver{}
	}
	if cfg.Namespace == "" {
		cfg.Namespace = cache.NamespaceEphemeral
	}
	if cfg.TTL <= 0 {
		cfg.TTL = time.Hour
	}
	return &Adapter{
		name:     name,
		caller:   caller,
		store:    store,
		cfg:      cfg,
		limiter:  newRateLimiter(cfg.RateLimitPerSecond),
		observer: obs,
	}
}

// Name returns the collaborator name used for cache key derivation.
func (a *Adapter) Name() string { return a.name }

// Call performs the operation, serving from cache when possible.
func (a *Adapter) Call(ctx context.Context, operation string, params map[string]any) (any, error) {
	key := cache.Key(a.name, operation, params)
	ns := a.cfg.Namespace

	if data, found, err := a.store.Get(ctx, ns, key); err == nil && found {
		if v, derr := cache.DecodeValue(data); derr == nil {
			a.observer.OnCacheHit(ctx, string(ns), a.name, operation)
			return v, nil
		}
		// Undecodable entries (e.g. after a type change) fall through to
		// the real call and get overwritten below.
	}
	a.observer.OnCacheMiss(ctx, string(ns), a.name, operation)

	result, err := a.callWithRetry(ctx, operation, params)
	if err != nil {
		return nil, err
	}

	if data, encErr := cache.EncodeValue(result); encErr != nil {
		a.observer.OnCacheWriteFailed(ctx, string(ns), key, encErr)
	} else if setErr := a.store.Set(ctx, ns, key, data, a.cfg.TTL); setErr != nil {
		a.observer.OnCacheWriteFailed(ctx, string(ns), key, setErr)
	}

	return result, nil
}

func (a *Adapter) callWithRetry(ctx context.Context, operation string, params map[string]any) (any, error) {
	maxAttempts := a.cfg.Retry.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 1
	}

	backoff := a.cfg.Retry.InitialBackoff
	maxBackoff := a.cfg.Retry.MaxBackoff
	multiplier := a.cfg.Retry.BackoffMultiplier
	if multiplier <= 0 {
		multiplier = 2.0
	}

	var lastErr error

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := a.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		result, err := a.caller.Call(ctx, operation, params)
		if err == nil {
			return result, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		lastErr = err

		if attempt == maxAttempts {
			break
		}

		if backoff > 0 {
			delay := backoff
			if maxBackoff > 0 && delay > maxBackoff {
				delay = maxBackoff
			}

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}

			next := time.Duration(float64(backoff) * multiplier)
			if maxBackoff > 0 && next > maxBackoff {
				backoff = maxBackoff
			} else {
				backoff = next
			}
		}
	}

	return nil, &UnavailableError{
		Collaborator: a.name,
		Operation:    operation,
		Attempts:     maxAttempts,
		Err:          lastErr,
	}
}
