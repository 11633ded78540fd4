package cache

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps buckets in process memory. Counts are not shared
// between instances; use RedisStore when running more than one.
type MemoryStore struct {
	buckets map[string]Bucket
	mutex   sync.Mutex
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return NewMemoryStoreWithClock(time.Now)
}

// NewMemoryStoreWithClock is NewMemoryStore with an injectable clock.
func NewMemoryStoreWithClock(now func() time.Time) *MemoryStore {
	return &MemoryStore{
		buckets: make(map[string]Bucket),
		now:     now,
	}
}

func (s *MemoryStore) Get(_ context.Context, key string) (Bucket, bool, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	b, found := s.buckets[key]
	if !found || b.Expired(s.now()) {
		return Bucket{}, false, nil
	}
	return b, true, nil
}

// Incr also sweeps every expired bucket, so memory stays bounded by the
// number of clients seen within one window.
func (s *MemoryStore) Incr(_ context.Context, key string) (Bucket, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	now := s.now()
	s.sweep(now)

	b := s.buckets[key]
	b.Count++
	s.buckets[key] = b
	return b, nil
}

func (s *MemoryStore) Expire(_ context.Context, key string, ttl time.Duration) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	b, found := s.buckets[key]
	if !found {
		return nil
	}
	b.ResetAt = s.now().Add(ttl)
	s.buckets[key] = b
	return nil
}

// Len returns the number of tracked buckets, expired ones included.
func (s *MemoryStore) Len() int {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return len(s.buckets)
}

func (s *MemoryStore) sweep(now time.Time) {
	for key, b := range s.buckets {
		if b.Expired(now) {
			delete(s.buckets, key)
		}
	}
}
