package cache

import (
	"sync"
	"time"
)

// store is a small TTL cache with a hard size cap. Reports are cheap to
// rebuild, so housekeeping is lazy: expired entries fall out when touched or
// when an insert overflows the cap, and recency is tracked with a counter so
// eviction order is deterministic.
type store[T any] struct {
	mu      sync.Mutex
	cap     int
	ttl     time.Duration
	tick    uint64
	entries map[string]*entry[T]
}

type entry[T any] struct {
	value   T
	used    uint64
	expires time.Time
}

func newStore[T any](cap int, ttl time.Duration) *store[T] {
	return &store[T]{
		cap:     cap,
		ttl:     ttl,
		entries: make(map[string]*entry[T]),
	}
}

func (s *store[T]) get(key string) (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var zero T
	e, ok := s.entries[key]
	if !ok {
		return zero, false
	}
	if time.Now().After(e.expires) {
		delete(s.entries, key)
		return zero, false
	}
	s.tick++
	e.used = s.tick
	return e.value, true
}

func (s *store[T]) set(key string, value T) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	s.tick++
	s.entries[key] = &entry[T]{value: value, used: s.tick, expires: now.Add(s.ttl)}
	if len(s.entries) <= s.cap {
		return
	}

	// Over cap: shed expired entries first, then the coldest survivors.
	for k, e := range s.entries {
		if now.After(e.expires) {
			delete(s.entries, k)
		}
	}
	for len(s.entries) > s.cap {
		coldest := ""
		var coldestUsed uint64
		for k, e := range s.entries {
			if coldest == "" || e.used < coldestUsed {
				coldest = k
				coldestUsed = e.used
			}
		}
		delete(s.entries, coldest)
	}
}

func (s *store[T]) drop(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
}

func (s *store[T]) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
