package memory

import (
	"sort"
	"time"
)

// resolveExpiry evicts key if its deadline is at or before now. It reports
// whether the key was evicted. This is the only place expiry is decided.
func (s *Store) resolveExpiry(key string, now time.Time) bool {
	deadline, ok := s.expires[key]
	if !ok || now.Before(deadline) {
		return false
	}
	s.remove(key)
	return true
}

// pastDeadline reports whether key's deadline is at or before now without
// evicting it. Read-only listings use it so eviction stays with the sweep.
func (s *Store) pastDeadline(key string, now time.Time) bool {
	deadline, ok := s.expires[key]
	return ok && !now.Before(deadline)
}

// SweepExpired evicts every key whose deadline has passed and returns the
// evicted keys in lexical order.
func (s *Store) SweepExpired() []string {
	now := s.now()

	// Collect first; resolveExpiry mutates s.expires.
	candidates := make([]string, 0)
	for k, deadline := range s.expires {
		if !now.Before(deadline) {
			candidates = append(candidates, k)
		}
	}

	evicted := candidates[:0]
	for _, k := range candidates {
		if s.resolveExpiry(k, now) {
			evicted = append(evicted, k)
		}
	}
	sort.Strings(evicted)
	return evicted
}

// Expire sets key to expire after ttl. It reports false if the key is absent.
func (s *Store) Expire(key string, ttl time.Duration) bool {
	if _, ok := s.lookup(key); !ok {
		return false
	}
	s.expires[key] = s.now().Add(ttl)
	return true
}

// TTL returns the seconds left before key expires, rounded up, -1 if the key has
// no deadline, or -2 if the key does not exist.
func (s *Store) TTL(key string) int64 {
	if _, ok := s.lookup(key); !ok {
		return -2
	}
	deadline, ok := s.expires[key]
	if !ok {
		return -1
	}
	remaining := deadline.Sub(s.now())
	if remaining < 0 {
		return 0
	}
	return int64((remaining + time.Second - 1) / time.Second)
}

// Persist removes key's deadline. It reports whether one was removed.
func (s *Store) Persist(key string) bool {
	if _, ok := s.lookup(key); !ok {
		return false
	}
	if _, ok := s.expires[key]; !ok {
		return false
	}
	delete(s.expires, key)
	return true
}

// Deadline returns key's expiry deadline, if any.
func (s *Store) Deadline(key string) (time.Time, bool) {
	if _, ok := s.lookup(key); !ok {
		return time.Time{}, false
	}
	d, ok := s.expires[key]
	return d, ok
}

// ExpiringCount returns the number of keys carrying a deadline.
func (s *Store) ExpiringCount() int {
	return len(s.expires)
}
