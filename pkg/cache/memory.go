package cache

import (
	"context"
	"path"
	"sort"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

const (
	memoryCleanupInterval = 5 * time.Minute
	windowSweepThreshold  = 10000
)

// MemoryStore is an in-process Store backed by go-cache. Sliding windows are
// kept as sorted timestamp slices guarded by a single mutex, which gives the
// same atomicity as a Redis transaction within one process.
type MemoryStore struct {
	items *gocache.Cache

	mu      sync.Mutex
	windows map[string]*window
}

type window struct {
	scores  []int64
	expires time.Time
}

// NewMemoryStore creates an empty in-process store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		items:   gocache.New(gocache.NoExpiration, memoryCleanupInterval),
		windows: make(map[string]*window),
	}
}

func (s *MemoryStore) Get(_ context.Context, key string) (string, error) {
	v, ok := s.items.Get(key)
	if !ok {
		return "", ErrMiss
	}
	return v.(string), nil
}

func (s *MemoryStore) Set(_ context.Context, key, value string, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = gocache.NoExpiration
	}
	s.items.Set(key, value, ttl)
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range keys {
		s.items.Delete(k)
		delete(s.windows, k)
	}
	return nil
}

func (s *MemoryStore) Keys(_ context.Context, pattern string) ([]string, error) {
	var keys []string
	for k := range s.items.Items() {
		if ok, _ := path.Match(pattern, k); ok {
			keys = append(keys, k)
		}
	}

	s.mu.Lock()
	for k := range s.windows {
		if ok, _ := path.Match(pattern, k); ok {
			keys = append(keys, k)
		}
	}
	s.mu.Unlock()

	sort.Strings(keys)
	return keys, nil
}

// SlidingWindow ignores member uniqueness; each call records one entry.
func (s *MemoryStore) SlidingWindow(_ context.Context, key string, windowStart, now time.Time, _ string, ttl time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.windows) >= windowSweepThreshold {
		s.sweepLocked(now)
	}

	w, ok := s.windows[key]
	if !ok || now.After(w.expires) {
		w = &window{}
		s.windows[key] = w
	}

	cutoff := windowStart.UnixMicro()
	kept := w.scores[:0]
	for _, score := range w.scores {
		if score > cutoff {
			kept = append(kept, score)
		}
	}
	w.scores = kept

	count := int64(len(w.scores))
	w.scores = append(w.scores, now.UnixMicro())
	w.expires = now.Add(ttl)
	return count, nil
}

// sweepLocked drops expired windows. Caller holds s.mu.
func (s *MemoryStore) sweepLocked(now time.Time) {
	for k, w := range s.windows {
		if now.After(w.expires) {
			delete(s.windows, k)
		}
	}
}

func (s *MemoryStore) Ping(context.Context) error {
	return nil
}

var _ Store = (*MemoryStore)(nil)
