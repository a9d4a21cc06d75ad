package ratelimit

import (
	"context"
	"sync"
	"time"
)

const defaultMaxKeys = 100_000

type memoryBucket struct {
	count     int64
	expiresAt time.Time
}

// MemoryCounter counts in process. It is only correct when a single
// instance serves all traffic.
type MemoryCounter struct {
	mu      sync.Mutex
	buckets map[string]*memoryBucket
	maxKeys int
	now     func() time.Time
}

// NewMemoryCounter creates an empty counter.
func NewMemoryCounter() *MemoryCounter {
	return &MemoryCounter{
		buckets: make(map[string]*memoryBucket),
		maxKeys: defaultMaxKeys,
		now:     time.Now,
	}
}

// IncrementAndGet implements Counter.
func (m *MemoryCounter) IncrementAndGet(_ context.Context, key string, limit int, ttl time.Duration) (int64, error) {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.buckets[key]
	if ok && !now.Before(b.expiresAt) {
		delete(m.buckets, key)
		ok = false
	}
	if !ok {
		if len(m.buckets) >= m.maxKeys {
			m.sweep(now)
		}
		if len(m.buckets) >= m.maxKeys {
			m.evictOldest()
		}
		b = &memoryBucket{expiresAt: now.Add(ttl)}
		m.buckets[key] = b
	}

	if b.count <= int64(limit) {
		b.count++
	}
	return b.count, nil
}

// Len returns the number of live buckets.
func (m *MemoryCounter) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.buckets)
}

// sweep drops expired buckets. Caller holds mu.
func (m *MemoryCounter) sweep(now time.Time) {
	for k, b := range m.buckets {
		if !now.Before(b.expiresAt) {
			delete(m.buckets, k)
		}
	}
}

// evictOldest drops the bucket closest to expiry. Caller holds mu.
func (m *MemoryCounter) evictOldest() {
	var (
		oldest string
		at     time.Time
	)
	for k, b := range m.buckets {
		if oldest == "" || b.expiresAt.Before(at) {
			oldest, at = k, b.expiresAt
		}
	}
	delete(m.buckets, oldest)
}
