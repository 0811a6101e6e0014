package cache

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is a goroutine-safe Store backed by maps. Production wiring
// always uses SQLiteStore (the cache must survive restarts); MemoryStore
// exists for unit tests and adapter fakes.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[Namespace]map[string]*memoryEntry
}

type memoryEntry struct {
	value     []byte
	createdAt time.Time
	expiresAt time.Time
	hits      int64
}

// Ensure MemoryStore implements Store.
var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: map[Namespace]map[string]*memoryEntry{
			NamespaceEphemeral: {},
			NamespaceDurable:   {},
		},
	}
}

func (s *MemoryStore) Get(ctx context.Context, ns Namespace, key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	bucket, ok := s.entries[ns]
	if !ok {
		return nil, false, ErrUnknownNamespace
	}

	e, ok := bucket[key]
	if !ok || !time.Now().Before(e.expiresAt) {
		return nil, false, nil
	}

	e.hits++
	return e.value, true, nil
}

func (s *MemoryStore) Set(ctx context.Context, ns Namespace, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return ErrInvalidTTL
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	bucket, ok := s.entries[ns]
	if !ok {
		return ErrUnknownNamespace
	}

	now := time.Now()
	bucket[key] = &memoryEntry{
		value:     append([]byte(nil), value...),
		createdAt: now,
		expiresAt: now.Add(ttl),
	}
	return nil
}

func (s *MemoryStore) EvictExpired(ctx context.Context, ns Namespace) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	bucket, ok := s.entries[ns]
	if !ok {
		return 0, ErrUnknownNamespace
	}

	now := time.Now()
	removed := 0
	for k, e := range bucket {
		if !now.Before(e.expiresAt) {
			delete(bucket, k)
			removed++
		}
	}
	return removed, nil
}

func (s *MemoryStore) Stats(ctx context.Context, ns Namespace) (Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	bucket, ok := s.entries[ns]
	if !ok {
		return Stats{}, ErrUnknownNamespace
	}

	now := time.Now()
	var st Stats
	for _, e := range bucket {
		if now.Before(e.expiresAt) {
			st.Entries++
		} else {
			st.Expired++
		}
		st.Hits += e.hits
	}
	return st, nil
}
