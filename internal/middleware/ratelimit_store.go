package middleware

import (
	"context"
	"sync"
	"time"

	"github.com/mdnaeem95/halaltech/internal/cache"
)

// RateStore counts requests per key within a fixed window.
type RateStore interface {
	Increment(ctx context.Context, key string, window time.Duration) (count int, ttl time.Duration, err error)
}

// memoryRateStore is a process-local RateStore for single instances and tests.
type memoryRateStore struct {
	mu    sync.Mutex
	data  map[string]*memoryCounter
	clock func() time.Time
}

type memoryCounter struct {
	count     int
	windowEnd time.Time
}

// NewMemoryRateStore constructs an in-memory rate store. Expired counters are
// swept lazily on increment.
func NewMemoryRateStore() RateStore {
	return &memoryRateStore{
		data:  make(map[string]*memoryCounter),
		clock: time.Now,
	}
}

func (s *memoryRateStore) Increment(_ context.Context, key string, window time.Duration) (int, time.Duration, error) {
	if window <= 0 {
		window = time.Minute
	}
	now := s.clock()

	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.data) > 10000 {
		for k, counter := range s.data {
			if now.After(counter.windowEnd) {
				delete(s.data, k)
			}
		}
	}

	counter, ok := s.data[key]
	if !ok || now.After(counter.windowEnd) {
		counter = &memoryCounter{windowEnd: now.Add(window)}
		s.data[key] = counter
	}
	counter.count++
	return counter.count, counter.windowEnd.Sub(now), nil
}

// cacheRateStore shares counters through the cache store, Redis or SQL, so
// limits hold across instances.
type cacheRateStore struct {
	store cache.Store
}

// NewCacheRateStore wraps a cache.Store. A nil store yields nil.
func NewCacheRateStore(store cache.Store) RateStore {
	if store == nil {
		return nil
	}
	return &cacheRateStore{store: store}
}

func (s *cacheRateStore) Increment(ctx context.Context, key string, window time.Duration) (int, time.Duration, error) {
	count, ttl, err := s.store.IncrementWithTTL(ctx, "ratelimit:"+key, window)
	return int(count), ttl, err
}

type scopedRateStore struct {
	store RateStore
	scope string
}

// ScopedRateStore namespaces keys so a second limiter on the same route keeps
// its own counters.
func ScopedRateStore(store RateStore, scope string) RateStore {
	if store == nil {
		store = NewMemoryRateStore()
	}
	return &scopedRateStore{store: store, scope: scope}
}

func (s *scopedRateStore) Increment(ctx context.Context, key string, window time.Duration) (int, time.Duration, error) {
	return s.store.Increment(ctx, s.scope+":"+key, window)
}
