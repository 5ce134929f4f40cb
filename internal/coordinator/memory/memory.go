// Package memory implements coordinator.Backend in-process, grounded on the
// teacher's internal/storage/memory CAS map pattern. Intended for tests and
// single-instance development; it provides no cross-process guarantee.
package memory

import (
	"context"
	"sync"
	"time"

	"pkt.systems/fos/internal/clock"
)

type entry struct {
	value   string
	expires time.Time
}

// Store is an in-process, TTL-aware key-value coordinator backend.
type Store struct {
	mu    sync.Mutex
	items map[string]entry
	clock clock.Clock
}

// New returns a ready-to-use in-process backend.
func New() *Store {
	return &Store{items: make(map[string]entry), clock: clock.Real{}}
}

// WithClock overrides the clock used to evaluate TTL expiry; used by tests.
func (s *Store) WithClock(clk clock.Clock) *Store {
	s.clock = clk
	return s
}

func (s *Store) expired(e entry, now time.Time) bool {
	return !e.expires.IsZero() && !now.Before(e.expires)
}

// SetNX implements coordinator.Backend.
func (s *Store) SetNX(_ context.Context, key, value string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.clock.Now()
	if existing, ok := s.items[key]; ok && !s.expired(existing, now) {
		return false, nil
	}
	s.items[key] = entry{value: value, expires: now.Add(ttl)}
	return true, nil
}

// Delete implements coordinator.Backend.
func (s *Store) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, key)
	return nil
}

// CompareDelete implements coordinator.Backend.
func (s *Store) CompareDelete(_ context.Context, key, expect string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.items[key]
	if !ok || s.expired(existing, s.clock.Now()) {
		return false, nil
	}
	if existing.value != expect {
		return false, nil
	}
	delete(s.items, key)
	return true, nil
}

// Close implements coordinator.Backend; the in-process store holds no
// external resources.
func (s *Store) Close() error { return nil }
